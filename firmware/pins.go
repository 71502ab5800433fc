//go:build tinygo

package main

import "machine"

const (
	// ADC configuration
	ADC_REFERENCE_MV = 5000 // ACS712 runs from 5V
	ADC_RESOLUTION   = 10   // ADC resolution in bits (10-bit = 0-1023)

	// Sensor pin
	PIN_SENSOR = machine.A0

	// Stream every Nth incremental sample as a raw "micros,code" line
	STREAM_EVERY = 4

	// Serial configuration
	// Format "micros,code\n" is at most 16 bytes. 500 lines/sec * 16 bytes = 8,000 bytes/sec.
	// 115200 baud gives 11,520 bytes/sec.
	UART_BAUD_RATE = 115200
)
