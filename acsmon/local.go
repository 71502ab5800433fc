package main

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/current"
	"github.com/itohio/goacs712/pkg/device"
	"github.com/itohio/goacs712/pkg/hal"
	"github.com/itohio/goacs712/pkg/meter"
)

// relayADC simulates a sensor whose load can be switched off, so that the
// zero point can be calibrated before the load current flows.
type relayADC struct {
	idle *hal.WaveformADC
	load *hal.WaveformADC
	on   atomic.Bool
}

func newRelayADC(cfg *config.Config, tb hal.Timebase) *relayADC {
	w := device.Waveform(cfg)
	idle := w
	idle.DCAmps = 0
	idle.ACPeak = 0

	return &relayADC{
		idle: hal.NewWaveformADC(idle, tb),
		load: hal.NewWaveformADC(w, tb),
	}
}

func (r *relayADC) Configure() error {
	if err := r.idle.Configure(); err != nil {
		return err
	}
	return r.load.Configure()
}

func (r *relayADC) Get() uint16 {
	if r.on.Load() {
		return r.load.Get()
	}
	return r.idle.Get()
}

// runLocal drives the current sensor directly against a simulated ADC using
// one of the blocking or incremental strategies.
func runLocal(ctx context.Context, cfg *config.Config, mode string, opts options) error {
	sensorCfg, cal, err := cfg.Current()
	if err != nil {
		return err
	}

	clock := hal.NewSystemClock()
	adc := newRelayADC(cfg, clock)

	sensor, err := current.New(sensorCfg, adc, clock)
	if err != nil {
		return fmt.Errorf("failed to create sensor: %w", err)
	}
	if err := sensor.SetCalibration(cal); err != nil {
		return fmt.Errorf("failed to apply calibration: %w", err)
	}
	if err := sensor.Begin(); err != nil {
		return fmt.Errorf("failed to configure ADC: %w", err)
	}

	if opts.calibrate {
		log.Printf("Calibrating zero point from %d samples", sensorCfg.Sampling.CalibrationSamples)
		zero := sensor.Calibrate()
		log.Printf("Zero point: %.2f", zero)
		cfg.SetCalibration(sensor.Calibration())
	}
	adc.on.Store(true)

	read, err := reader(sensor, mode)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(opts.report)
	defer ticker.Stop()

	for {
		if mode == "poll" {
			if sensor.Update() {
				log.Printf("amps=%s", meter.Current(float64(sensor.Amps())))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(sensorCfg.Sampling.Interval / 4):
			}
			continue
		}

		amps, err := read()
		if err != nil {
			return err
		}
		log.Printf("%s amps=%s", mode, meter.Current(float64(amps)))

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// reader returns the blocking read for mode.
func reader(sensor *current.Sensor, mode string) (func() (float32, error), error) {
	switch mode {
	case "dc":
		return func() (float32, error) { return sensor.ReadCurrentDC(), nil }, nil
	case "ac":
		freq := sensor.Config().Sampling.Frequency
		return func() (float32, error) { return sensor.ReadCurrentAC(freq) }, nil
	case "measure":
		return sensor.Measure, nil
	case "poll":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}
