package current

import (
	"math"
	"time"

	"github.com/chewxy/math32"
)

// Sensitivities of the ACS712 variants in volts per ampere.
const (
	Sensitivity05B float32 = 0.185
	Sensitivity20A float32 = 0.100
	Sensitivity30A float32 = 0.066
)

const (
	DefaultVoltageReference float32 = 5.0
	DefaultResolution       uint16  = 1023
	DefaultFrequency        float32 = 60
)

// Mode selects the oversampling strategy used by Sensor.Measure.
type Mode uint8

const (
	// ModeFixedCount averages a fixed number of blocking reads (DC).
	ModeFixedCount Mode = iota
	// ModeTimeWindow samples for one full AC period and returns RMS.
	ModeTimeWindow
	// ModeIncremental spreads the averaging over non-blocking Update calls.
	ModeIncremental
)

var modeNames = [...]string{
	ModeFixedCount:  "fixed",
	ModeTimeWindow:  "window",
	ModeIncremental: "incremental",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode returns the mode with the given name.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, ErrInvalidMode
}

// Sampling holds the oversampling tunables.
//
// DCSamples and DCDelay trade latency for accuracy: the default of 100 reads
// without delay finishes in roughly 100 ADC conversions, while 10 reads with
// a 1ms delay gives the front-end time to settle at the cost of ~10ms.
type Sampling struct {
	CalibrationSamples int
	CalibrationDelay   time.Duration
	DCSamples          int
	DCDelay            time.Duration
	Frequency          float32       // AC frequency used by Measure in ModeTimeWindow
	Interval           time.Duration // minimum spacing of incremental samples
	Threshold          int           // incremental samples per published estimate
}

// Config is the fixed per-sensor configuration.
type Config struct {
	VoltageReference float32
	Resolution       uint16 // full-scale ADC code
	Mode             Mode
	Sampling         Sampling
}

// Calibration maps ADC codes to current.
type Calibration struct {
	Sensitivity float32 // V/A
	ZeroPoint   float32 // ADC code at zero current
}

// DefaultSampling returns the reference oversampling parameters.
func DefaultSampling() Sampling {
	return Sampling{
		CalibrationSamples: 100,
		CalibrationDelay:   2 * time.Millisecond,
		DCSamples:          100,
		DCDelay:            0,
		Frequency:          DefaultFrequency,
		Interval:           500 * time.Microsecond,
		Threshold:          100,
	}
}

// DefaultConfig returns a 5V, 10-bit configuration.
func DefaultConfig() Config {
	return Config{
		VoltageReference: DefaultVoltageReference,
		Resolution:       DefaultResolution,
		Mode:             ModeFixedCount,
		Sampling:         DefaultSampling(),
	}
}

// DefaultCalibration returns the ACS712-05B sensitivity and a zero point at
// the middle of the ADC range.
func DefaultCalibration(resolution uint16) Calibration {
	return Calibration{
		Sensitivity: Sensitivity05B,
		ZeroPoint:   float32(resolution) / 2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !(c.VoltageReference > 0) || math32.IsInf(c.VoltageReference, 0) {
		return ErrInvalidReference
	}
	if c.Resolution == 0 {
		return ErrInvalidResolution
	}
	if c.Mode > ModeIncremental {
		return ErrInvalidMode
	}

	s := c.Sampling
	if s.CalibrationSamples <= 0 || s.DCSamples <= 0 || s.Threshold <= 0 {
		return ErrInvalidSampling
	}
	if s.CalibrationDelay < 0 || s.DCDelay < 0 || s.Interval < 0 {
		return ErrInvalidSampling
	}
	if s.Interval/time.Microsecond > math.MaxUint32 {
		return ErrInvalidSampling
	}
	if c.Mode == ModeTimeWindow && !validFrequency(s.Frequency) {
		return ErrInvalidFrequency
	}

	if uint64(s.Threshold)*uint64(c.Resolution) > math.MaxUint32 {
		return ErrAccumulatorOverflow
	}
	return nil
}

func validSensitivity(v float32) bool {
	return v > 0 && !math32.IsInf(v, 0)
}

func validZeroPoint(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

func validFrequency(f float32) bool {
	return f > 0 && !math32.IsInf(f, 0)
}
