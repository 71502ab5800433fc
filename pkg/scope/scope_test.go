package scope

import (
	"math"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/meter"
	"github.com/itohio/goacs712/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sinusoid(start time.Time, n int, peak float64) []sample.Sample {
	samples := make([]sample.Sample, n)
	for i := range samples {
		ts := time.Duration(i) * time.Millisecond
		samples[i] = sample.Sample{
			Timestamp: start.Add(ts),
			Amps:      peak * math.Sin(2*math.Pi*50*ts.Seconds()),
		}
	}
	return samples
}

func TestAutoScale_Empty(t *testing.T) {
	now := time.Now()
	v := autoScale(nil, 10*time.Second, now)

	assert.Equal(t, -1.0, v.yMin)
	assert.Equal(t, 1.0, v.yMax)
	assert.Equal(t, now, v.xMin)
	assert.Equal(t, now.Add(10*time.Second), v.xMax)
}

func TestAutoScale_KeepsZeroVisible(t *testing.T) {
	now := time.Now()
	samples := []sample.Sample{
		{Timestamp: now, Amps: 2},
		{Timestamp: now.Add(time.Second), Amps: 4},
	}

	v := autoScale(samples, 10*time.Second, now)

	// Range 0..4 plus 10% margin
	assert.InDelta(t, -0.4, v.yMin, 1e-9)
	assert.InDelta(t, 4.4, v.yMax, 1e-9)
	assert.Equal(t, now, v.xMin)
	assert.Equal(t, now.Add(10*time.Second), v.xMax, "minimum window")
}

func TestAutoScale_Constant(t *testing.T) {
	now := time.Now()
	samples := []sample.Sample{{Timestamp: now}, {Timestamp: now.Add(20 * time.Second)}}

	v := autoScale(samples, 10*time.Second, now)

	assert.InDelta(t, -0.1, v.yMin, 1e-9)
	assert.InDelta(t, 0.1, v.yMax, 1e-9)
	assert.Equal(t, now.Add(20*time.Second), v.xMax, "longer span is kept")
}

func TestPlot_Pos(t *testing.T) {
	now := time.Now()
	p := plot{
		x: 10, y: 20, width: 100, height: 50,
		view: view{yMin: -1, yMax: 1, xMin: now, xMax: now.Add(time.Second)},
	}

	assert.Equal(t, fyne.NewPos(10, 70), p.pos(now, -1))
	assert.Equal(t, fyne.NewPos(60, 45), p.pos(now.Add(500*time.Millisecond), 0))
	assert.Equal(t, fyne.NewPos(110, 20), p.pos(now.Add(time.Second), 1))
}

func TestScopeWidget_UpdateData(t *testing.T) {
	test.NewTempApp(t)

	cfg := config.Default()
	cfg.Measurement.WindowSeconds = 1
	w := New(cfg)
	w.Resize(fyne.NewSize(600, 400))

	samples := sinusoid(time.Now(), 2000, 5)
	stats := meter.Stats{Count: len(samples), Mean: 0, RMS: 5 / math.Sqrt2, Min: -5, Max: 5}
	w.UpdateData(samples, stats)

	assert.Equal(t, stats, w.Stats())

	w.mu.RLock()
	displayed := len(w.displaySamples)
	v := w.view
	w.mu.RUnlock()
	assert.LessOrEqual(t, displayed, w.maxDisplayPoints)
	assert.InDelta(t, -6, v.yMin, 0.01)
	assert.InDelta(t, 6, v.yMax, 0.01)

	r := test.WidgetRenderer(w)
	r.Refresh()

	var lines, texts int
	for _, o := range r.Objects() {
		switch o.(type) {
		case *canvas.Line:
			lines++
		case *canvas.Text:
			texts++
		}
	}
	require.Greater(t, lines, displayed-1, "trace, grid and level lines")
	assert.Equal(t, 9+11+1, texts, "axis labels and stats")
}
