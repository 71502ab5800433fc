package current

import "github.com/chewxy/math32"

// Sensor estimates current through a Hall-effect sensor such as the ACS712.
//
// The blocking reads (Calibrate, ReadCurrentDC, ReadCurrentAC) own the
// calling goroutine for their whole duration and must not run concurrently
// on the same Sensor. Update is the non-blocking alternative and must be
// called from a single polling loop.
type Sensor struct {
	adc   ADC
	clock Clock

	cfg       Config
	converter Converter
	cal       Calibration

	sampler *Sampler
}

// New creates a sensor reading from adc. The calibration starts at the
// ACS712-05B sensitivity with the zero point in the middle of the ADC range.
func New(cfg Config, adc ADC, clock Clock) (*Sensor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Sensor{
		adc:   adc,
		clock: clock,
		cfg:   cfg,
		converter: Converter{
			VoltageReference: cfg.VoltageReference,
			Resolution:       cfg.Resolution,
		},
		cal:     DefaultCalibration(cfg.Resolution),
		sampler: NewSampler(cfg.Sampling.Interval, cfg.Sampling.Threshold),
	}, nil
}

// Begin configures the ADC pin and restarts the incremental sampler so the
// first Update after Begin takes a sample.
func (s *Sensor) Begin() error {
	if err := s.adc.Configure(); err != nil {
		return err
	}
	s.sampler.Reset(s.clock.Micros() - s.sampler.interval)
	return nil
}

// Config returns the sensor configuration.
func (s *Sensor) Config() Config {
	return s.cfg
}

// Converter returns the code to voltage converter of this sensor.
func (s *Sensor) Converter() Converter {
	return s.converter
}

// SetSensitivity sets the sensor sensitivity in V/A.
func (s *Sensor) SetSensitivity(v float32) error {
	if !validSensitivity(v) {
		return ErrInvalidSensitivity
	}
	s.cal.Sensitivity = v
	return nil
}

// Sensitivity returns the sensitivity in V/A.
func (s *Sensor) Sensitivity() float32 {
	return s.cal.Sensitivity
}

// SetZeroPoint overrides the zero point, e.g. with a value restored from
// persistent storage. NaN and infinities are rejected.
func (s *Sensor) SetZeroPoint(v float32) error {
	if !validZeroPoint(v) {
		return ErrInvalidZeroPoint
	}
	s.cal.ZeroPoint = v
	return nil
}

// ZeroPoint returns the ADC code corresponding to zero current.
func (s *Sensor) ZeroPoint() float32 {
	return s.cal.ZeroPoint
}

// Calibration returns the active calibration.
func (s *Sensor) Calibration() Calibration {
	return s.cal
}

// SetCalibration replaces sensitivity and zero point at once.
func (s *Sensor) SetCalibration(cal Calibration) error {
	if !validSensitivity(cal.Sensitivity) {
		return ErrInvalidSensitivity
	}
	if !validZeroPoint(cal.ZeroPoint) {
		return ErrInvalidZeroPoint
	}
	s.cal = cal
	return nil
}

// Calibrate estimates the zero point by averaging CalibrationSamples reads
// with CalibrationDelay after each one. The new zero point is stored and
// returned.
//
// No current may flow through the sensor during calibration. This is not
// checked; calibrating under load gives a wrong zero point.
func (s *Sensor) Calibrate() float32 {
	n := s.cfg.Sampling.CalibrationSamples
	delay := s.cfg.Sampling.CalibrationDelay

	var w Window
	for i := 0; i < n; i++ {
		w.Add(s.adc.Get())
		s.clock.Sleep(delay)
	}

	s.cal.ZeroPoint = w.Mean()
	return s.cal.ZeroPoint
}

// ReadCurrentDC averages DCSamples reads and returns the current in amperes.
func (s *Sensor) ReadCurrentDC() float32 {
	n := s.cfg.Sampling.DCSamples
	delay := s.cfg.Sampling.DCDelay

	var w Window
	for i := 0; i < n; i++ {
		w.Add(s.adc.Get())
		if delay > 0 {
			s.clock.Sleep(delay)
		}
	}

	return s.converter.Current(w.Mean(), s.cal)
}

// ReadCurrentAC samples for one period of an AC signal of the given
// frequency and returns the RMS current. Every point is a single read.
//
// If the ADC is too slow to produce a sample within the period, 0 is
// returned.
func (s *Sensor) ReadCurrentAC(frequency float32) (float32, error) {
	if !validFrequency(frequency) {
		return 0, ErrInvalidFrequency
	}
	// The period has to fit the wrapping microsecond counter.
	p := 1000000 / frequency
	if p >= maxPeriod {
		return 0, ErrInvalidFrequency
	}
	period := uint32(p)

	var (
		sumSquares float32
		samples    uint32
	)
	start := s.clock.Micros()
	for elapsed(s.clock.Micros(), start) < period {
		amps := s.converter.Current(float32(s.adc.Get()), s.cal)
		sumSquares += amps * amps
		samples++
	}

	if samples == 0 {
		return 0, nil
	}
	return math32.Sqrt(sumSquares / float32(samples)), nil
}

// Update advances the incremental sampler. It never blocks and reads the ADC
// at most once. It returns true if a new value is available from Amps.
func (s *Sensor) Update() bool {
	return s.sampler.Update(s.clock.Micros(), s.adc, s.current)
}

// Amps returns the last current published by Update. The value stays the
// same between publications.
func (s *Sensor) Amps() float32 {
	return s.sampler.Amps()
}

// SamplerState returns a snapshot of the incremental sampler.
func (s *Sensor) SamplerState() SamplerState {
	return s.sampler.State()
}

// Measure reads the current using the configured Mode. In ModeIncremental it
// does not block and returns the last published value.
func (s *Sensor) Measure() (float32, error) {
	switch s.cfg.Mode {
	case ModeFixedCount:
		return s.ReadCurrentDC(), nil
	case ModeTimeWindow:
		return s.ReadCurrentAC(s.cfg.Sampling.Frequency)
	case ModeIncremental:
		s.Update()
		return s.Amps(), nil
	}
	return 0, ErrInvalidMode
}

func (s *Sensor) current(code float32) float32 {
	return s.converter.Current(code, s.cal)
}
