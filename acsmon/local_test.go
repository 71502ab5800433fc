package main

import (
	"testing"
	"time"

	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/current"
	"github.com/itohio/goacs712/pkg/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayADC(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.DCAmps = 2
	cfg.Mock.NoiseAmps = 0

	clock := hal.NewFakeClock(0, 0)
	adc := newRelayADC(cfg, clock)
	require.NoError(t, adc.Configure())

	idle := adc.Get()
	adc.on.Store(true)
	load := adc.Get()

	assert.InDelta(t, 511.5, float64(idle), 0.5)
	assert.Greater(t, load, idle)
}

func TestRunLocal_CalibratesBeforeLoad(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.DCAmps = 2
	cfg.Mock.NoiseAmps = 0
	cfg.Calibration.ZeroPoint = 400
	cfg.Sampling.CalibrationSamples = 10
	cfg.Sampling.CalibrationDelay = time.Microsecond

	clock := hal.NewFakeClock(0, 0)
	adc := newRelayADC(cfg, clock)
	sensorCfg, cal, err := cfg.Current()
	require.NoError(t, err)

	sensor, err := current.New(sensorCfg, adc, clock)
	require.NoError(t, err)
	require.NoError(t, sensor.SetCalibration(cal))

	zero := sensor.Calibrate()
	assert.InDelta(t, 511.5, zero, 0.5)

	adc.on.Store(true)
	read, err := reader(sensor, "dc")
	require.NoError(t, err)
	amps, err := read()
	require.NoError(t, err)
	assert.InDelta(t, 2, amps, 0.05)
}

func TestReader_UnknownMode(t *testing.T) {
	sensor, err := current.New(current.DefaultConfig(), hal.NewConstantADC(512), hal.NewFakeClock(0, 0))
	require.NoError(t, err)

	_, err = reader(sensor, "adaptive")
	assert.Error(t, err)

	for _, mode := range []string{"dc", "ac", "measure"} {
		read, err := reader(sensor, mode)
		require.NoError(t, err, mode)
		assert.NotNil(t, read, mode)
	}
}
