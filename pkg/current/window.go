package current

// Window accumulates raw ADC codes until a fixed count is reached.
// The zero value is an empty window; the caller must ensure the
// threshold times the largest code fits in uint32.
type Window struct {
	sum   uint32
	count int
}

// Add adds one code and returns the number of codes in the window.
func (w *Window) Add(code uint16) int {
	w.sum += uint32(code)
	w.count++
	return w.count
}

// Len returns the number of accumulated codes.
func (w *Window) Len() int {
	return w.count
}

// Sum returns the accumulated codes.
func (w *Window) Sum() uint32 {
	return w.sum
}

// Mean returns the average code, or 0 for an empty window.
func (w *Window) Mean() float32 {
	if w.count == 0 {
		return 0
	}
	return float32(w.sum) / float32(w.count)
}

// Reset empties the window.
func (w *Window) Reset() {
	w.sum = 0
	w.count = 0
}
