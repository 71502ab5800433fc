package meter

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/sample"
	"periph.io/x/conn/v3/physic"
)

var _ CurrentMeter = (*Meter)(nil)

// Stats summarizes the samples inside the meter window.
type Stats struct {
	Count   int
	Span    time.Duration // time between the oldest and the newest sample
	Latest  float64       // A
	Mean    float64       // A, the DC component
	RMS     float64       // A
	Min     float64       // A
	Max     float64       // A
	Voltage float64       // mean sensor output (V)
}

// Current converts amperes to a periph physical quantity.
func Current(amps float64) physic.ElectricCurrent {
	return physic.ElectricCurrent(math.Round(amps * float64(physic.Ampere)))
}

// Potential converts volts to a periph physical quantity.
func Potential(volts float64) physic.ElectricPotential {
	return physic.ElectricPotential(math.Round(volts * float64(physic.Volt)))
}

func (s Stats) String() string {
	return fmt.Sprintf("n=%d span=%s last=%s mean=%s rms=%s min=%s max=%s vout=%s",
		s.Count, s.Span.Round(time.Millisecond),
		Current(s.Latest), Current(s.Mean), Current(s.RMS),
		Current(s.Min), Current(s.Max), Potential(s.Voltage))
}

// CurrentMeter processes samples, maintains a time window and summarizes it.
type CurrentMeter interface {
	ProcessSamples(input <-chan sample.Sample)
	Samples() []sample.Sample // Get current samples buffer (FIFO, ordered first to last)
	Stats() Stats             // Statistics over the current window
	OnUpdate(func(samples []sample.Sample, stats Stats))
}

// Meter implements CurrentMeter.
//
// Samples are kept in timestamp order, oldest first, and dropped once they
// fall outside the window.
type Meter struct {
	samples []sample.Sample

	mu sync.RWMutex

	callbacks []func(samples []sample.Sample, stats Stats)
	cbMu      sync.RWMutex

	windowDuration time.Duration

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a new meter with the window from cfg.
func New(cfg *config.Config) *Meter {
	return &Meter{
		samples:        make([]sample.Sample, 0),
		windowDuration: time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second)),
	}
}

// ProcessSamples consumes the input channel until it closes. After that no
// more callbacks are sent until ResetShutdown.
func (m *Meter) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		m.processSample(s)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processSample adds a sample to the buffer and trims the window.
func (m *Meter) processSample(s sample.Sample) {
	m.mu.Lock()

	// A timestamp going back means a new timeline (device restart).
	if n := len(m.samples); n > 0 && s.Timestamp.Before(m.samples[n-1].Timestamp) {
		m.samples = m.samples[:0]
	}
	m.samples = append(m.samples, s)

	// Remove samples outside time window (based on timestamp, not count)
	cutoffTime := s.Timestamp.Add(-m.windowDuration)
	cutoffIndex := 0
	for i, old := range m.samples {
		if old.Timestamp.After(cutoffTime) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex > 0 {
		m.samples = append(m.samples[:0], m.samples[cutoffIndex:]...)
	}

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// Samples returns a copy of the current samples buffer.
func (m *Meter) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Stats returns statistics over the current window.
func (m *Meter) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return computeStats(m.samples)
}

// OnUpdate registers a callback function that will be called when samples are updated.
// The callback should copy data quickly and return as fast as possible.
func (m *Meter) OnUpdate(callback func(samples []sample.Sample, stats Stats)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to be sent again.
// This should be called before starting a new measurement chain.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered callbacks with current data.
// Makes copies of data while holding read lock, then calls callbacks without lock.
func (m *Meter) notifyCallbacks() {
	m.cbMu.RLock()
	callbacks := make([]func(samples []sample.Sample, stats Stats), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	if len(callbacks) == 0 {
		return
	}

	m.mu.RLock()
	samplesCopy := make([]sample.Sample, len(m.samples))
	copy(samplesCopy, m.samples)
	m.mu.RUnlock()

	stats := computeStats(samplesCopy)

	// Invoke callbacks without holding any locks
	for _, cb := range callbacks {
		if cb != nil {
			cb(samplesCopy, stats)
		}
	}
}

func computeStats(samples []sample.Sample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	first, last := samples[0], samples[len(samples)-1]
	st := Stats{
		Count:  len(samples),
		Span:   last.Timestamp.Sub(first.Timestamp),
		Latest: last.Amps,
		Min:    first.Amps,
		Max:    first.Amps,
	}

	var sum, sumSquares, sumVoltage float64
	for _, s := range samples {
		sum += s.Amps
		sumSquares += s.Amps * s.Amps
		sumVoltage += s.Voltage
		st.Min = math.Min(st.Min, s.Amps)
		st.Max = math.Max(st.Max, s.Amps)
	}

	n := float64(len(samples))
	st.Mean = sum / n
	st.RMS = math.Sqrt(sumSquares / n)
	st.Voltage = sumVoltage / n
	return st
}
