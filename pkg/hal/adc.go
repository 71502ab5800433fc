package hal

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrNotConfigured is returned by Configure of a pin marked as broken.
var ErrNotConfigured = errors.New("pin cannot be configured")

// pin tracks configuration and read counts shared by all sources.
type pin struct {
	mu         sync.Mutex
	configured bool
	reads      int
	broken     bool
}

// Configure marks the pin as configured.
func (p *pin) Configure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.broken {
		return ErrNotConfigured
	}
	p.configured = true
	return nil
}

// Configured reports whether Configure succeeded.
func (p *pin) Configured() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configured
}

// Reads returns the number of acquisitions so far.
func (p *pin) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

func (p *pin) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.reads
	p.reads++
	return n
}

// ConstantADC always returns the same code.
type ConstantADC struct {
	pin
	Code uint16
}

// NewConstantADC creates a source returning code.
func NewConstantADC(code uint16) *ConstantADC {
	return &ConstantADC{Code: code}
}

// Get returns the constant code.
func (a *ConstantADC) Get() uint16 {
	a.count()
	return a.Code
}

// SequenceADC replays a list of codes, starting over at the end.
type SequenceADC struct {
	pin
	codes []uint16
}

// NewSequenceADC creates a source replaying codes.
func NewSequenceADC(codes ...uint16) *SequenceADC {
	if len(codes) == 0 {
		codes = []uint16{0}
	}
	return &SequenceADC{codes: codes}
}

// Get returns the next code of the sequence.
func (a *SequenceADC) Get() uint16 {
	n := a.count()
	return a.codes[n%len(a.codes)]
}

// BrokenADC fails to configure and reads zero.
type BrokenADC struct {
	pin
}

// NewBrokenADC creates a pin whose Configure fails.
func NewBrokenADC() *BrokenADC {
	a := &BrokenADC{}
	a.broken = true
	return a
}

// Get returns 0.
func (a *BrokenADC) Get() uint16 {
	a.count()
	return 0
}

// Waveform describes the output of a current sensor carrying a DC
// component plus a sinusoid.
type Waveform struct {
	VoltageReference float64
	Resolution       uint16
	Sensitivity      float64 // V/A
	ZeroPoint        float64 // code at zero current

	DCAmps    float64
	ACPeak    float64 // peak amplitude of the AC component (A)
	Frequency float64 // Hz
	NoiseAmps float64
}

// Amps returns the simulated current at t.
func (w Waveform) Amps(t time.Duration) float64 {
	amps := w.DCAmps
	if w.ACPeak != 0 && w.Frequency > 0 {
		amps += w.ACPeak * math.Sin(2*math.Pi*w.Frequency*t.Seconds())
	}
	if w.NoiseAmps != 0 {
		ns := float64(t.Nanoseconds())
		amps += (math.Sin(ns*0.001) + math.Cos(ns*0.0013)) * w.NoiseAmps * 0.5
	}
	return amps
}

// Code returns the ADC code the sensor produces at t, rounded and clamped
// to [0, Resolution].
func (w Waveform) Code(t time.Duration) uint16 {
	volts := w.Amps(t) * w.Sensitivity
	code := w.ZeroPoint + volts/w.VoltageReference*float64(w.Resolution)
	code = math.Round(code)
	if code < 0 {
		return 0
	}
	if code > float64(w.Resolution) {
		return w.Resolution
	}
	return uint16(code)
}

// WaveformADC samples a Waveform at the time given by a Timebase.
type WaveformADC struct {
	pin
	Waveform Waveform
	time     Timebase
}

// NewWaveformADC creates a source reading w at the time of tb.
func NewWaveformADC(w Waveform, tb Timebase) *WaveformADC {
	return &WaveformADC{Waveform: w, time: tb}
}

// Get returns the waveform code at the current time.
func (a *WaveformADC) Get() uint16 {
	a.count()
	return a.Waveform.Code(a.time.Elapsed())
}
