package current

import (
	"math"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/goacs712/pkg/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSensor(t *testing.T, cfg Config, adc ADC, clock Clock) *Sensor {
	t.Helper()
	s, err := New(cfg, adc, clock)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := newSensor(t, DefaultConfig(), hal.NewConstantADC(0), hal.NewFakeClock(0, 0))

	assert.Equal(t, Sensitivity05B, s.Sensitivity())
	assert.Equal(t, float32(511.5), s.ZeroPoint())
	assert.Equal(t, float32(0), s.Amps())
	assert.Equal(t, SamplerState{}, s.SamplerState())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolution = 0

	s, err := New(cfg, hal.NewConstantADC(0), hal.NewFakeClock(0, 0))
	assert.ErrorIs(t, err, ErrInvalidResolution)
	assert.Nil(t, s)
}

func TestBegin(t *testing.T) {
	adc := hal.NewConstantADC(511)
	s := newSensor(t, DefaultConfig(), adc, hal.NewFakeClock(0, 0))

	require.NoError(t, s.Begin())
	assert.True(t, adc.Configured())

	broken := newSensor(t, DefaultConfig(), hal.NewBrokenADC(), hal.NewFakeClock(0, 0))
	assert.ErrorIs(t, broken.Begin(), hal.ErrNotConfigured)
}

func TestSetSensitivity(t *testing.T) {
	s := newSensor(t, DefaultConfig(), hal.NewConstantADC(0), hal.NewFakeClock(0, 0))

	require.NoError(t, s.SetSensitivity(Sensitivity20A))
	assert.Equal(t, Sensitivity20A, s.Sensitivity())

	for _, v := range []float32{0, -0.1, math32.NaN(), math32.Inf(1)} {
		assert.ErrorIs(t, s.SetSensitivity(v), ErrInvalidSensitivity, "sensitivity %v", v)
		assert.Equal(t, Sensitivity20A, s.Sensitivity(), "rejected value must not be stored")
	}
}

func TestSetCalibration(t *testing.T) {
	s := newSensor(t, DefaultConfig(), hal.NewConstantADC(0), hal.NewFakeClock(0, 0))

	cal := Calibration{Sensitivity: Sensitivity30A, ZeroPoint: 509.25}
	require.NoError(t, s.SetCalibration(cal))
	assert.Equal(t, cal, s.Calibration())

	err := s.SetCalibration(Calibration{Sensitivity: 0, ZeroPoint: 100})
	assert.ErrorIs(t, err, ErrInvalidSensitivity)
	assert.Equal(t, cal, s.Calibration())

	require.NoError(t, s.SetZeroPoint(512))
	assert.Equal(t, float32(512), s.ZeroPoint())

	err = s.SetCalibration(Calibration{Sensitivity: Sensitivity30A, ZeroPoint: math32.NaN()})
	assert.ErrorIs(t, err, ErrInvalidZeroPoint)
	assert.Equal(t, float32(512), s.ZeroPoint())
}

func TestSetZeroPoint_NonFinite(t *testing.T) {
	s := newSensor(t, DefaultConfig(), hal.NewConstantADC(602), hal.NewFakeClock(0, 0))
	require.NoError(t, s.SetZeroPoint(511))

	for _, v := range []float32{math32.NaN(), math32.Inf(1), math32.Inf(-1)} {
		assert.ErrorIs(t, s.SetZeroPoint(v), ErrInvalidZeroPoint, "zero point %v", v)
		assert.Equal(t, float32(511), s.ZeroPoint(), "rejected value must not be stored")
	}

	amps := s.ReadCurrentDC()
	assert.False(t, math32.IsNaN(amps))
	assert.InDelta(t, s.Converter().Current(602, s.Calibration()), amps, 1e-6)
}

func TestCalibrate(t *testing.T) {
	adc := hal.NewSequenceADC(510, 512)
	clock := hal.NewFakeClock(0, 0)
	s := newSensor(t, DefaultConfig(), adc, clock)

	zero := s.Calibrate()

	assert.Equal(t, float32(511), zero)
	assert.Equal(t, float32(511), s.ZeroPoint())
	assert.Equal(t, 100, adc.Reads())
	assert.Equal(t, 200*time.Millisecond, clock.Slept())
}

func TestCalibrate_Idempotent(t *testing.T) {
	codes := []uint16{508, 513, 511, 509, 515, 510, 512, 511, 514, 507}

	a := newSensor(t, DefaultConfig(), hal.NewSequenceADC(codes...), hal.NewFakeClock(0, 0))
	b := newSensor(t, DefaultConfig(), hal.NewSequenceADC(codes...), hal.NewFakeClock(0, 0))

	first := a.Calibrate()
	assert.Equal(t, first, b.Calibrate())
	// 100 reads cover the 10 code sequence exactly, so a second run sees the same codes.
	assert.Equal(t, first, a.Calibrate())
	assert.InDelta(t, 511.0, first, 1e-4)
}

func TestReadCurrentDC(t *testing.T) {
	s := newSensor(t, DefaultConfig(), hal.NewConstantADC(602), hal.NewFakeClock(0, 0))
	require.NoError(t, s.SetSensitivity(0.185))
	require.NoError(t, s.SetZeroPoint(511.5))

	want := ((602.0 / 1023.0 * 5.0) - (511.5 / 1023.0 * 5.0)) / 0.185
	assert.InDelta(t, want, s.ReadCurrentDC(), 1e-4)
}

func TestReadCurrentDC_Sign(t *testing.T) {
	tests := []struct {
		name string
		code uint16
		sign int
	}{
		{name: "above zero point", code: 600, sign: 1},
		{name: "below zero point", code: 420, sign: -1},
		{name: "at zero point", code: 512, sign: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSensor(t, DefaultConfig(), hal.NewConstantADC(tt.code), hal.NewFakeClock(0, 0))
			require.NoError(t, s.SetZeroPoint(512))

			amps := s.ReadCurrentDC()
			switch tt.sign {
			case 1:
				assert.Greater(t, amps, float32(0))
			case -1:
				assert.Less(t, amps, float32(0))
			default:
				assert.InDelta(t, 0, amps, 1e-6)
			}
		})
	}
}

func TestReadCurrentDC_Oversampling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sampling.DCSamples = 10
	cfg.Sampling.DCDelay = time.Millisecond

	adc := hal.NewSequenceADC(511, 512)
	clock := hal.NewFakeClock(0, 0)
	s := newSensor(t, cfg, adc, clock)
	require.NoError(t, s.SetZeroPoint(511))

	// Average code 511.5 is half a code above zero.
	want := (0.5 / 1023.0 * 5.0) / 0.185
	assert.InDelta(t, want, s.ReadCurrentDC(), 1e-5)
	assert.Equal(t, 10, adc.Reads())
	assert.Equal(t, 10*time.Millisecond, clock.Slept())

	fast := newSensor(t, DefaultConfig(), hal.NewConstantADC(512), clock)
	fast.ReadCurrentDC()
	assert.Equal(t, 10*time.Millisecond, clock.Slept(), "no delay by default")
}

func acWaveform(peak float64) hal.Waveform {
	return hal.Waveform{
		VoltageReference: 5.0,
		Resolution:       1023,
		Sensitivity:      0.185,
		ZeroPoint:        512,
		ACPeak:           peak,
		Frequency:        50,
	}
}

func TestReadCurrentAC_Sinusoid(t *testing.T) {
	for _, peak := range []float64{1, 2.5, 5} {
		clock := hal.NewFakeClock(0, 100*time.Microsecond)
		adc := hal.NewWaveformADC(acWaveform(peak), clock)
		s := newSensor(t, DefaultConfig(), adc, clock)
		require.NoError(t, s.SetZeroPoint(512))

		rms, err := s.ReadCurrentAC(50)
		require.NoError(t, err)
		assert.InDelta(t, peak/math.Sqrt2, rms, 0.03, "peak %v", peak)
	}
}

func TestReadCurrentAC_DC(t *testing.T) {
	s := newSensor(t, DefaultConfig(), hal.NewConstantADC(420), hal.NewFakeClock(0, 50*time.Microsecond))
	require.NoError(t, s.SetZeroPoint(512))

	rms, err := s.ReadCurrentAC(60)
	require.NoError(t, err)
	assert.InDelta(t, -s.Converter().Current(420, s.Calibration()), rms, 1e-4)
}

func TestReadCurrentAC_SampleCount(t *testing.T) {
	tests := []struct {
		name  string
		start uint32
	}{
		{name: "from zero", start: 0},
		{name: "across wraparound", start: math.MaxUint32 - 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adc := hal.NewConstantADC(512)
			s := newSensor(t, DefaultConfig(), adc, hal.NewFakeClock(tt.start, 100*time.Microsecond))

			_, err := s.ReadCurrentAC(50)
			require.NoError(t, err)
			// 20ms period read every 100us after the start timestamp.
			assert.Equal(t, 199, adc.Reads())
		})
	}
}

func TestReadCurrentAC_NoSamples(t *testing.T) {
	adc := hal.NewConstantADC(700)
	s := newSensor(t, DefaultConfig(), adc, hal.NewFakeClock(0, time.Second))

	rms, err := s.ReadCurrentAC(60)
	require.NoError(t, err)
	assert.Equal(t, float32(0), rms)
	assert.False(t, math32.IsNaN(rms))
	assert.Equal(t, 0, adc.Reads())
}

func TestReadCurrentAC_InvalidFrequency(t *testing.T) {
	adc := hal.NewConstantADC(512)
	s := newSensor(t, DefaultConfig(), adc, hal.NewFakeClock(0, 100*time.Microsecond))

	for _, f := range []float32{0, -60, math32.NaN(), math32.Inf(1), 1e-6} {
		_, err := s.ReadCurrentAC(f)
		assert.ErrorIs(t, err, ErrInvalidFrequency, "frequency %v", f)
	}
	assert.Equal(t, 0, adc.Reads())
}

func TestMeasure(t *testing.T) {
	t.Run("fixed", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mode = ModeFixedCount
		s := newSensor(t, cfg, hal.NewConstantADC(602), hal.NewFakeClock(0, 0))

		amps, err := s.Measure()
		require.NoError(t, err)
		assert.Equal(t, s.ReadCurrentDC(), amps)
	})

	t.Run("window", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mode = ModeTimeWindow
		cfg.Sampling.Frequency = 50
		adc := hal.NewConstantADC(512)
		s := newSensor(t, cfg, adc, hal.NewFakeClock(0, 100*time.Microsecond))

		_, err := s.Measure()
		require.NoError(t, err)
		assert.Equal(t, 199, adc.Reads())
	})

	t.Run("incremental", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mode = ModeIncremental
		cfg.Sampling.Threshold = 2
		clock := hal.NewFakeClock(0, 0)
		s := newSensor(t, cfg, hal.NewConstantADC(602), clock)

		amps, err := s.Measure()
		require.NoError(t, err)
		assert.Equal(t, float32(0), amps)

		clock.Advance(500 * time.Microsecond)
		amps, err = s.Measure()
		require.NoError(t, err)
		assert.Equal(t, float32(0), amps, "one sample is not a full window")

		clock.Advance(500 * time.Microsecond)
		amps, err = s.Measure()
		require.NoError(t, err)
		assert.InDelta(t, s.Converter().Current(602, s.Calibration()), amps, 1e-6)
	})
}
