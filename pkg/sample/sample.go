package sample

import (
	"log"
	"time"

	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/current"
	"github.com/itohio/goacs712/pkg/device"
)

// Sample represents a processed measurement sample with physical values.
type Sample struct {
	Timestamp time.Time
	Code      float64 // ADC code, fractional after averaging
	Voltage   float64 // Sensor output voltage (V)
	Amps      float64 // Current (A)
}

// Params holds what is needed to turn ADC codes into current.
type Params struct {
	Converter   current.Converter
	Calibration current.Calibration
}

// NewParams builds conversion parameters from the application configuration.
func NewParams(cfg *config.Config) (Params, error) {
	sensorCfg, cal, err := cfg.Current()
	if err != nil {
		return Params{}, err
	}
	return Params{
		Converter: current.Converter{
			VoltageReference: sensorCfg.VoltageReference,
			Resolution:       sensorCfg.Resolution,
		},
		Calibration: cal,
	}, nil
}

// Convert turns an ADC code into a Sample.
func (p Params) Convert(ts time.Time, code float64) Sample {
	c := float32(code)
	return Sample{
		Timestamp: ts,
		Code:      code,
		Voltage:   float64(p.Converter.ToVoltage(c)),
		Amps:      float64(p.Converter.Current(c, p.Calibration)),
	}
}

// Converter is a function type that converts RawSample channel to Sample channel.
type Converter func(in <-chan device.RawSample) <-chan Sample

// NewConverter creates a converter function that transforms every RawSample
// into an instantaneous current Sample.
func NewConverter(p Params, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan device.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				select {
				case out <- p.Convert(raw.Timestamp, float64(raw.Code)):
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}
