package scope

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/goacs712/pkg/meter"
	"github.com/itohio/goacs712/pkg/sample"
)

var (
	gridColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	traceColor  = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	meanColor   = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	rmsColor    = color.RGBA{R: 0, G: 100, B: 200, A: 255}   // Dark blue
	statsColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255} // Light gray
	zeroColor   = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	plotMargins = struct{ left, right, top, bottom float32 }{70, 20, 30, 40}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plot maps data coordinates into the plot area.
type plot struct {
	x, y, width, height float32
	view                view
}

func (p plot) pos(ts time.Time, amps float64) fyne.Position {
	span := p.view.xMax.Sub(p.view.xMin).Seconds()
	if span <= 0 {
		return fyne.NewPos(p.x, p.level(amps))
	}
	x := p.x + float32(ts.Sub(p.view.xMin).Seconds()/span)*p.width
	return fyne.NewPos(x, p.level(amps))
}

func (p plot) level(amps float64) float32 {
	return p.y + p.height - float32((amps-p.view.yMin)/(p.view.yMax-p.view.yMin))*p.height
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	// Background fills entire widget
	r.grid.Resize(size)

	// Size changed, redraw with new dimensions
	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the canvas objects from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	stats := r.scope.stats
	v := r.scope.view
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep background)
	r.objects = []fyne.CanvasObject{r.grid}

	p := plot{
		x:      plotMargins.left,
		y:      plotMargins.top,
		width:  size.Width - plotMargins.left - plotMargins.right,
		height: size.Height - plotMargins.top - plotMargins.bottom,
		view:   v,
	}

	r.drawGrid(p)
	r.drawLevel(p, 0, zeroColor, 1)

	if stats.Count > 0 {
		r.drawLevel(p, stats.Mean, meanColor, 1.5)
		r.drawLevel(p, stats.RMS, rmsColor, 1)
		r.drawLevel(p, -stats.RMS, rmsColor, 1)
		r.drawStats(p, stats)
	}

	r.drawTrace(p, samples)
}

// drawGrid draws the oscilloscope-style grid with current and time labels.
func (r *scopeRenderer) drawGrid(p plot) {
	// Horizontal grid lines (current)
	numHLines := 8
	for i := 0; i <= numHLines; i++ {
		y := p.y + float32(i)*p.height/float32(numHLines)
		r.addLine(fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.width, y), gridColor, 1)

		value := p.view.yMax - float64(i)*(p.view.yMax-p.view.yMin)/float64(numHLines)
		text := canvas.NewText(meter.Current(value).String(), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	// Vertical grid lines (time)
	numVLines := 10
	span := p.view.xMax.Sub(p.view.xMin)
	for i := 0; i <= numVLines; i++ {
		x := p.x + float32(i)*p.width/float32(numVLines)
		r.addLine(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.height), gridColor, 1)

		offset := span * time.Duration(i) / time.Duration(numVLines)
		text := canvas.NewText(offset.Round(time.Millisecond).String(), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.height+5))
		r.objects = append(r.objects, text)
	}
}

// drawLevel draws a horizontal line at amps.
func (r *scopeRenderer) drawLevel(p plot, amps float64, c color.Color, width float32) {
	if amps < p.view.yMin || amps > p.view.yMax {
		return
	}
	y := p.level(amps)
	r.addLine(fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.width, y), c, width)
}

// drawTrace draws the current curve (orange).
func (r *scopeRenderer) drawTrace(p plot, samples []sample.Sample) {
	if len(samples) < 2 {
		return
	}

	prev := p.pos(samples[0].Timestamp, samples[0].Amps)
	for _, s := range samples[1:] {
		next := p.pos(s.Timestamp, s.Amps)
		r.addLine(prev, next, traceColor, 1.5)
		prev = next
	}
}

// drawStats writes the window statistics above the plot.
func (r *scopeRenderer) drawStats(p plot, stats meter.Stats) {
	text := canvas.NewText(stats.String(), statsColor)
	text.TextSize = 11
	text.Alignment = fyne.TextAlignLeading
	text.Move(fyne.NewPos(p.x, 8))
	r.objects = append(r.objects, text)
}

func (r *scopeRenderer) addLine(from, to fyne.Position, c color.Color, width float32) {
	line := canvas.NewLine(c)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}
