package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/device"
	"github.com/itohio/goacs712/pkg/meter"
	"github.com/itohio/goacs712/pkg/sample"
)

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device         device.Device
	samplesStream  <-chan sample.Sample
	meterGoroutine chan struct{} // Closed when meter goroutine exits
}

// closeMeasurementChain gracefully closes the measurement chain.
// Waits for all goroutines to finish and channels to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	// Close device - this will close the raw samples channel
	if chain.device != nil {
		chain.device.Close()
	}

	// The meter goroutine exits once the converters drained
	if chain.meterGoroutine != nil {
		<-chain.meterGoroutine
	}
}

// openDevice creates and connects the configured sample source.
func openDevice(cfg *config.Config, useMock bool) (device.Device, error) {
	var dev device.Device
	if useMock {
		dev = device.NewMock(cfg)
		log.Println("Using mocked device")
	} else {
		dev = device.New(cfg.Serial.Port, cfg.Serial.BaudRate, 500)
	}

	if err := dev.Connect(); err != nil {
		if useMock {
			return nil, fmt.Errorf("failed to connect to mocked device: %w", err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Serial.Port, err)
	}
	if !useMock {
		log.Printf("Connected to serial port: %s", cfg.Serial.Port)
	}
	return dev, nil
}

// startMeasurementChain wires dev through the configured converters into m.
// With calibrate set the zero point is first estimated from the stream and
// stored in cfg. On error dev is closed.
func startMeasurementChain(ctx context.Context, cfg *config.Config, dev device.Device, m *meter.Meter, calibrate bool) (*measurementChain, error) {
	rawSamples := dev.Samples()

	if calibrate {
		log.Printf("Calibrating zero point from %d samples, make sure no current flows", cfg.Sampling.CalibrationSamples)
		zero, err := sample.ZeroPoint(ctx, rawSamples, cfg.Sampling.CalibrationSamples)
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("calibration failed: %w", err)
		}
		cfg.Calibration.ZeroPoint = zero
		log.Printf("Zero point: %.2f", zero)
	}

	params, err := sample.NewParams(cfg)
	if err != nil {
		dev.Close()
		return nil, err
	}

	// Chain converters: RMS per period, averaging, or plain conversion
	var samplesStream <-chan sample.Sample
	switch {
	case cfg.Measurement.RMSPeriod > 0:
		samplesStream = sample.NewRMSConverter(params, cfg.Measurement.RMSPeriod, 500)(rawSamples)
	case cfg.Measurement.AverageSamples > 0:
		samplesStream = sample.NewAveragingConverter(params, cfg.Measurement.AverageSamples, 500)(rawSamples)
	default:
		samplesStream = sample.NewConverter(params, 500)(rawSamples)
	}

	// Reset meter shutdown flag for new chain
	m.ResetShutdown()

	meterDone := make(chan struct{})
	go func() {
		defer close(meterDone)
		m.ProcessSamples(samplesStream)
	}()

	return &measurementChain{
		device:         dev,
		samplesStream:  samplesStream,
		meterGoroutine: meterDone,
	}, nil
}

// runStream reads raw codes from the firmware (or the mock), converts them
// on the host and reports windowed statistics.
func runStream(ctx context.Context, cfg *config.Config, useMock bool, opts options) error {
	dev, err := openDevice(cfg, useMock)
	if err != nil {
		return err
	}

	currentMeter := meter.New(cfg)

	var (
		mu     sync.Mutex
		latest meter.Stats
	)
	currentMeter.OnUpdate(func(samples []sample.Sample, stats meter.Stats) {
		mu.Lock()
		latest = stats
		mu.Unlock()
	})

	chain, err := startMeasurementChain(ctx, cfg, dev, currentMeter, opts.calibrate)
	if err != nil {
		return err
	}
	defer closeMeasurementChain(chain)

	ticker := time.NewTicker(opts.report)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Final: %s", currentMeter.Stats())
			return nil
		case <-chain.meterGoroutine:
			log.Printf("Device stream ended: %s", currentMeter.Stats())
			return nil
		case <-ticker.C:
			mu.Lock()
			stats := latest
			mu.Unlock()
			log.Println(stats)
		}
	}
}
