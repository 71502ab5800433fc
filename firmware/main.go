//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"strconv"
	"time"

	"github.com/itohio/goacs712/pkg/current"
)

// adc adapts machine.ADC to the sensor. TinyGo scales readings to 16 bits.
type adc struct {
	machine.ADC
	last  uint16
	reads uint32
}

func (a *adc) Configure() error {
	PIN_SENSOR.Configure(machine.PinConfig{Mode: machine.PinInput})
	a.ADC.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})
	return nil
}

func (a *adc) Get() uint16 {
	a.last = a.ADC.Get() >> (16 - ADC_RESOLUTION)
	a.reads++
	return a.last
}

type clock struct {
	start time.Time
}

func (c clock) Micros() uint32 {
	return uint32(time.Since(c.start) / time.Microsecond)
}

func (c clock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	cfg := current.DefaultConfig()
	cfg.Resolution = 1<<ADC_RESOLUTION - 1
	cfg.VoltageReference = float32(ADC_REFERENCE_MV) / 1000
	cfg.Mode = current.ModeIncremental

	pin := &adc{ADC: machine.ADC{Pin: PIN_SENSOR}}
	sensor, err := current.New(cfg, pin, clock{start: time.Now()})
	if err != nil {
		println("# error:", err.Error())
		return
	}
	if err := sensor.Begin(); err != nil {
		println("# error:", err.Error())
		return
	}

	zero := sensor.Calibrate()
	println("#zero=" + strconv.FormatFloat(float64(zero), 'f', 2, 32))

	streamed := pin.reads
	for {
		if sensor.Update() {
			println("#amps=" + strconv.FormatFloat(float64(sensor.Amps()), 'f', 3, 32))
		}

		if pin.reads-streamed >= STREAM_EVERY {
			streamed = pin.reads
			print(sensor.SamplerState().LastSample)
			print(",")
			println(pin.last)
		}

		time.Sleep(50 * time.Microsecond)
	}
}
