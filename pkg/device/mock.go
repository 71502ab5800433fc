package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/hal"
)

// Mock simulates a sensor streaming raw ADC codes.
type Mock struct {
	rate     time.Duration
	waveform hal.Waveform

	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	startTime time.Time
}

// NewMock creates a new mocked device producing the current described by
// cfg.Mock through a sensor described by cfg.Sensor and cfg.Calibration.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	rate := cfg.Mock.SampleRate
	if rate <= 0 {
		rate = config.Default().Mock.SampleRate
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		rate:     rate,
		waveform: Waveform(cfg),
		samples:  make(chan RawSample, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Waveform returns the simulated sensor output described by cfg.
func Waveform(cfg *config.Config) hal.Waveform {
	sensitivity := cfg.Sensor.Model.Sensitivity()
	if sensitivity == 0 {
		sensitivity = cfg.Calibration.Sensitivity
	}
	return hal.Waveform{
		VoltageReference: cfg.Sensor.VRef,
		Resolution:       cfg.Sensor.Resolution,
		Sensitivity:      sensitivity,
		ZeroPoint:        float64(cfg.Sensor.Resolution) / 2,
		DCAmps:           cfg.Mock.DCAmps,
		ACPeak:           cfg.Mock.ACAmps,
		Frequency:        cfg.Mock.Frequency,
		NoiseAmps:        cfg.Mock.NoiseAmps,
	}
}

// Connect starts generating samples.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()

	go m.generateSamples(m.startTime)

	return nil
}

// Close stops the mocked device. The samples channel is closed once the
// generator exits.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false

	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan RawSample {
	return m.samples
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generateSamples(start time.Time) {
	defer close(m.samples)

	ticker := time.NewTicker(m.rate)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			sample := m.generateSample(start, now)
			select {
			case m.samples <- sample:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample returns the sample the sensor would produce at now.
func (m *Mock) generateSample(start, now time.Time) RawSample {
	return RawSample{
		Timestamp: now,
		Code:      m.waveform.Code(now.Sub(start)),
	}
}
