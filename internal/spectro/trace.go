package spectro

import (
	"fmt"
	"math"
)

// Selector addresses one of the two traces.
type Selector int

const (
	// Primary is the live trace fed by the camera.
	Primary Selector = iota
	// Reference is the comparison trace loaded from external data.
	Reference
)

func (s Selector) String() string {
	switch s {
	case Primary:
		return "primary"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

// Trace holds one spectral curve: raw sample arrays, a background of
// matching length, and the derived arrays the renderer consumes. Raw x and
// raw y are always equal length. Background subtraction is a pure
// y-transform and calibration a pure x-transform; the two never interact.
//
// Trace state is confined to the render loop goroutine.
type Trace struct {
	name string
	cal  *CalibrationModel

	rawX       []float64
	rawY       []float64
	background []float64

	subtract bool

	// Derived, rebuilt by recompute.
	corrected []float64
	displayX  []float64
}

// NewTrace creates an empty trace with an identity calibration.
func NewTrace(name string) *Trace {
	return &Trace{name: name, cal: NewCalibrationModel()}
}

// Name returns the trace label.
func (t *Trace) Name() string { return t.name }

// Calibration returns the trace's calibration model.
func (t *Trace) Calibration() *CalibrationModel { return t.cal }

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.rawY) }

// SetRawData replaces both raw arrays. x and y must be equal length. A
// stored background whose length no longer matches is discarded (reset to
// zeros) rather than left to cause shape mismatches downstream. The input
// slices are copied; live frames hand the engine caller-owned arrays.
func (t *Trace) SetRawData(x, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: x has %d samples, y has %d", ErrSpectrumSizeMismatch, len(x), len(y))
	}

	if len(t.rawX) != len(x) {
		t.rawX = make([]float64, len(x))
		t.rawY = make([]float64, len(y))
	}
	copy(t.rawX, x)
	copy(t.rawY, y)

	if len(t.background) != len(y) {
		t.background = make([]float64, len(y))
	}

	t.recompute()
	return nil
}

// SetBackground replaces the background array. Its length must match the
// current raw data exactly; on mismatch the prior background is left
// untouched and ErrSpectrumSizeMismatch is returned.
func (t *Trace) SetBackground(bg []float64) error {
	if len(bg) != len(t.rawY) {
		return fmt.Errorf("%w: background has %d samples, trace has %d", ErrSpectrumSizeMismatch, len(bg), len(t.rawY))
	}
	if len(t.background) != len(bg) {
		t.background = make([]float64, len(bg))
	}
	copy(t.background, bg)
	t.recompute()
	return nil
}

// ClearBackground zeroes the stored background.
func (t *Trace) ClearBackground() {
	for i := range t.background {
		t.background[i] = 0
	}
	t.recompute()
}

// SetSubtractBackground toggles which y-array feeds the rendered line. The
// stored arrays are untouched.
func (t *Trace) SetSubtractBackground(on bool) { t.subtract = on }

// SubtractBackground reports whether the corrected y-array is displayed.
func (t *Trace) SubtractBackground() bool { return t.subtract }

// Recalibrate rebuilds the derived arrays after a calibration or unit-mode
// change.
func (t *Trace) Recalibrate() { t.recompute() }

func (t *Trace) recompute() {
	if len(t.corrected) != len(t.rawY) {
		t.corrected = make([]float64, len(t.rawY))
	}
	for i := range t.rawY {
		t.corrected[i] = t.rawY[i] - t.background[i]
	}

	if t.cal.UnitMode() == UnitWavelength {
		t.displayX = t.cal.ApplySlice(t.rawX)
	} else {
		if len(t.displayX) != len(t.rawX) {
			t.displayX = make([]float64, len(t.rawX))
		}
		copy(t.displayX, t.rawX)
	}
}

// RawX returns the raw x samples. The slice is live engine state; callers
// must not mutate it.
func (t *Trace) RawX() []float64 { return t.rawX }

// RawY returns the raw intensity samples.
func (t *Trace) RawY() []float64 { return t.rawY }

// Background returns the stored background array.
func (t *Trace) Background() []float64 { return t.background }

// CorrectedY returns the background-subtracted intensities.
func (t *Trace) CorrectedY() []float64 { return t.corrected }

// DisplayedX returns the x array in the active unit space.
func (t *Trace) DisplayedX() []float64 { return t.displayX }

// DisplayedY returns the y array the renderer should draw: corrected when
// subtraction is enabled, raw otherwise.
func (t *Trace) DisplayedY() []float64 {
	if t.subtract {
		return t.corrected
	}
	return t.rawY
}

// XExtents returns the min and max of the displayed x values. ok is false
// for an empty trace.
func (t *Trace) XExtents() (min, max float64, ok bool) {
	if len(t.displayX) == 0 {
		return 0, 0, false
	}
	min, max = t.displayX[0], t.displayX[0]
	for _, x := range t.displayX[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max, true
}

// YExtents returns the min and max of the displayed y values.
func (t *Trace) YExtents() (min, max float64, ok bool) {
	ys := t.DisplayedY()
	if len(ys) == 0 {
		return 0, 0, false
	}
	min, max = ys[0], ys[0]
	for _, y := range ys[1:] {
		if y < min {
			min = y
		}
		if y > max {
			max = y
		}
	}
	return min, max, true
}

// NearestIndex returns the index of the sample whose displayed x is closest
// to x. Snapping is by argmin of absolute difference, never interpolation.
// Returns -1 for an empty trace.
func (t *Trace) NearestIndex(x float64) int {
	if len(t.displayX) == 0 {
		return -1
	}
	best := 0
	bestDist := math.Abs(t.displayX[0] - x)
	for i, dx := range t.displayX[1:] {
		if d := math.Abs(dx - x); d < bestDist {
			bestDist = d
			best = i + 1
		}
	}
	return best
}

// TraceStore holds the primary/reference trace pair.
type TraceStore struct {
	traces [2]*Trace
}

// NewTraceStore creates the pair with identity calibrations.
func NewTraceStore() *TraceStore {
	return &TraceStore{traces: [2]*Trace{
		NewTrace(Primary.String()),
		NewTrace(Reference.String()),
	}}
}

// Trace returns the trace for sel. Panics on an out-of-range selector: that
// is a programming error, not input.
func (s *TraceStore) Trace(sel Selector) *Trace {
	return s.traces[sel]
}
