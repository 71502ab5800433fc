package sample

import (
	"log"
	"math"
	"time"

	"github.com/itohio/goacs712/pkg/device"
)

// NewRMSConverter creates a converter that emits the RMS current of every
// period of the input stream. Sample timestamps drive the windows, so the
// result does not depend on how fast the stream is consumed. The Code and
// Voltage of an emitted Sample are the window means. An incomplete period
// at the end of the stream is dropped, and so is one interrupted by a
// timestamp going backwards.
func NewRMSConverter(p Params, period time.Duration, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan device.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var (
				start      time.Time
				sumSquares float64
				sumCode    float64
				n          int
			)

			for raw := range in {
				if n > 0 && raw.Timestamp.Before(start) {
					// Device restarted; the partial period belongs to the old timeline.
					sumSquares, sumCode, n = 0, 0, 0
				}

				if n == 0 {
					start = raw.Timestamp
				} else if raw.Timestamp.Sub(start) >= period {
					select {
					case out <- rmsSample(p, start.Add(period), sumSquares, sumCode, n):
					default:
						log.Printf("RMS converter output channel full")
					}
					start = raw.Timestamp
					sumSquares, sumCode, n = 0, 0, 0
				}

				s := p.Convert(raw.Timestamp, float64(raw.Code))
				sumSquares += s.Amps * s.Amps
				sumCode += s.Code
				n++
			}
		}()

		return out
	}
}

func rmsSample(p Params, ts time.Time, sumSquares, sumCode float64, n int) Sample {
	if n == 0 {
		return Sample{Timestamp: ts}
	}
	mean := p.Convert(ts, sumCode/float64(n))
	mean.Amps = math.Sqrt(sumSquares / float64(n))
	return mean
}
