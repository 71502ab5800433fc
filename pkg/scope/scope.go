package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/meter"
	"github.com/itohio/goacs712/pkg/sample"
)

// ScopeWidget is a custom Fyne widget that plots the current in the meter
// window, oscilloscope style, with the window statistics overlaid.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration

	// Data (protected by mu)
	mu    sync.RWMutex
	stats meter.Stats

	// Display buffer (reused for downsampling)
	displaySamples []sample.Sample

	view view

	// Display settings
	maxDisplayPoints int
}

// view is the visible data range.
type view struct {
	yMin, yMax float64 // A
	xMin, xMax time.Time
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		window:           time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second)),
		displaySamples:   make([]sample.Sample, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	s.view = autoScale(nil, s.window, time.Now())
	s.ExtendBaseWidget(s)
	return s
}

// UpdateData updates the widget with a meter window.
// This should be called from the meter callback using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample, stats meter.Stats) {
	s.mu.Lock()
	s.displaySamples = sample.Downsample(s.displaySamples, samples, s.maxDisplayPoints)
	s.stats = stats
	s.view = autoScale(s.displaySamples, s.window, time.Now())
	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// Stats returns the statistics currently shown.
func (s *ScopeWidget) Stats() meter.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// autoScale fits the Y range to the samples with a 10% margin and always
// keeps zero current visible. The X range spans at least window.
func autoScale(samples []sample.Sample, window time.Duration, now time.Time) view {
	if len(samples) == 0 {
		return view{yMin: -1, yMax: 1, xMin: now, xMax: now.Add(window)}
	}

	v := view{
		yMin: min(samples[0].Amps, 0),
		yMax: max(samples[0].Amps, 0),
		xMin: samples[0].Timestamp,
		xMax: samples[len(samples)-1].Timestamp,
	}
	for _, s := range samples {
		v.yMin = min(v.yMin, s.Amps)
		v.yMax = max(v.yMax, s.Amps)
	}

	span := v.yMax - v.yMin
	if span == 0 {
		span = 1.0
	}
	margin := span * 0.1
	v.yMin -= margin
	v.yMax += margin

	// Ensure minimum window
	if v.xMax.Sub(v.xMin) < window {
		v.xMax = v.xMin.Add(window)
	}
	return v
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
