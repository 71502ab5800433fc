package current

import (
	"math"
	"sync/atomic"
	"time"
)

// SamplerState is a snapshot of the incremental sampler.
type SamplerState struct {
	LastSample  uint32 // Micros of the last accepted sample
	Accumulator uint32 // Sum of raw codes in the current window
	Count       int    // Codes in the current window
	LastAmps    float32
}

// Sampler accumulates one ADC code per interval across many short Update
// calls and publishes the average current once Threshold codes are in.
//
// Update must be called from a single place. Amps may be read from anywhere.
type Sampler struct {
	interval   uint32
	threshold  int
	lastSample uint32
	window     Window
	amps       atomic.Uint32 // float32 bits
}

// NewSampler creates a sampler taking one code every interval and
// publishing after threshold codes.
func NewSampler(interval time.Duration, threshold int) *Sampler {
	if threshold <= 0 {
		threshold = 1
	}
	return &Sampler{
		interval:  uint32(interval / time.Microsecond),
		threshold: threshold,
	}
}

// Update takes at most one sample from adc. It returns true when the
// window filled up during this call and a new value was published.
func (s *Sampler) Update(now uint32, adc ADC, convert func(code float32) float32) bool {
	if elapsed(now, s.lastSample) < s.interval {
		return false
	}
	s.lastSample = now

	if s.window.Add(adc.Get()) < s.threshold {
		return false
	}

	amps := convert(s.window.Mean())
	s.amps.Store(math.Float32bits(amps))
	s.window.Reset()
	return true
}

// Amps returns the most recently published current.
func (s *Sampler) Amps() float32 {
	return math.Float32frombits(s.amps.Load())
}

// State returns a snapshot of the sampler.
func (s *Sampler) State() SamplerState {
	return SamplerState{
		LastSample:  s.lastSample,
		Accumulator: s.window.Sum(),
		Count:       s.window.Len(),
		LastAmps:    s.Amps(),
	}
}

// Reset drops the partial window and restarts timing from now.
func (s *Sampler) Reset(now uint32) {
	s.window.Reset()
	s.lastSample = now
}
