package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate the firmware streams at.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
)

// RawSample is one ADC acquisition of the sensor output.
type RawSample struct {
	Timestamp time.Time
	Code      uint16
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads raw samples streamed by the firmware over a serial port.
//
// The firmware writes one sample per line as "micros,code". Lines starting
// with '#' are informational and only logged. The 32-bit micros counter
// wraps; timestamps of RawSample are unwrapped and keep increasing.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a Serial reader for port. Zero baudRate or bufSize select the defaults.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		samples:  make(chan RawSample, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.readSamples(port)

	return nil
}

// Close closes the connection. The samples channel is closed once the
// reader goroutine exits.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false

	return nil
}

// Samples returns the channel for reading samples.
func (d *Serial) Samples() <-chan RawSample {
	return d.samples
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) readSamples(r io.Reader) {
	defer close(d.samples)
	defer func() {
		if p := recover(); p != nil {
			log.Printf("Panic in readSamples: %v", p)
		}
	}()

	readLines(d.ctx, r, d.samples)
}

// readLines parses lines from r into out until r ends or ctx is cancelled.
func readLines(ctx context.Context, r io.Reader, out chan<- RawSample) {
	var clock counter
	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				log.Printf("Error reading from serial port: %v", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			log.Printf("device: %s", strings.TrimSpace(line[1:]))
			continue
		}

		micros, code, err := parseLine(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}

		sample := RawSample{
			Timestamp: time.Unix(0, int64(clock.extend(micros))*int64(time.Microsecond)),
			Code:      code,
		}

		// Send sample to channel (non-blocking)
		select {
		case out <- sample:
		case <-ctx.Done():
			return
		default:
			log.Printf("Samples channel full, dropping sample")
		}
	}
}

// counter extends the firmware's wrapping 32-bit microsecond counter into a
// monotonic 64-bit one.
type counter struct {
	started bool
	last    uint32
	micros  uint64
}

// extend returns the 64-bit time of the 32-bit reading v. Readings must be
// less than 2^32 us apart.
func (c *counter) extend(v uint32) uint64 {
	if !c.started {
		c.started = true
		c.micros = uint64(v)
	} else {
		c.micros += uint64(v - c.last)
	}
	c.last = v
	return c.micros
}

// parseLine parses a line from the MCU.
// Format: micros,code where micros is the wrapping 32-bit MCU counter
// Example: 1234567890,602
func parseLine(line string) (uint32, uint16, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid line format: expected 2 comma-separated values, got %d", len(parts))
	}

	micros, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp: %w", err)
	}

	code, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid code: %w", err)
	}

	return uint32(micros), uint16(code), nil
}
