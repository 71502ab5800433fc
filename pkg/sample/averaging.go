package sample

import (
	"log"
	"math"

	"github.com/itohio/goacs712/pkg/current"
	"github.com/itohio/goacs712/pkg/device"
)

// maxWindowSize keeps the code accumulator within uint32 for 16-bit codes.
const maxWindowSize = math.MaxUint32 / math.MaxUint16

// NewAveragingConverter creates a converter that averages windowSize
// consecutive RawSamples and emits one Sample per full window, the same way
// the sensor's incremental sampler does. A partial window is flushed when
// the input closes.
func NewAveragingConverter(p Params, windowSize int, bufSize int) Converter {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if windowSize > maxWindowSize {
		windowSize = maxWindowSize
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan device.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var (
				window current.Window
				last   device.RawSample
			)
			emit := func() {
				s := p.Convert(last.Timestamp, float64(window.Mean()))
				window.Reset()
				select {
				case out <- s:
				default:
					log.Printf("Averaging converter output channel full")
				}
			}

			for raw := range in {
				last = raw
				if window.Add(raw.Code) >= windowSize {
					emit()
				}
			}

			// Input closed, output any remaining samples
			if window.Len() > 0 {
				emit()
			}
		}()

		return out
	}
}
