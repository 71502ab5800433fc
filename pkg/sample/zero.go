package sample

import (
	"context"
	"errors"

	"github.com/itohio/goacs712/pkg/current"
	"github.com/itohio/goacs712/pkg/device"
)

// ErrNoSamples is returned when a zero point is requested from no samples.
var ErrNoSamples = errors.New("no samples")

// ZeroPoint averages the codes of n samples read from in. No current may
// flow while the samples are taken.
func ZeroPoint(ctx context.Context, in <-chan device.RawSample, n int) (float64, error) {
	if n <= 0 {
		return 0, ErrNoSamples
	}

	var window current.Window
	for window.Len() < n && window.Len() < maxWindowSize {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case raw, ok := <-in:
			if !ok {
				if window.Len() == 0 {
					return 0, ErrNoSamples
				}
				return float64(window.Mean()), nil
			}
			window.Add(raw.Code)
		}
	}

	return float64(window.Mean()), nil
}
