package spectro

import (
	"github.com/banshee-data/spectrum.report/internal/spectro/render"
)

// CrosshairReadout is the cursor position in every space a dialog cares
// about: sample index, raw x (pixel or loaded x value), displayed x in the
// active unit space, and the displayed intensity.
type CrosshairReadout struct {
	HasData  bool    `json:"has_data"`
	Index    int     `json:"index"`
	RawX     float64 `json:"raw_x"`
	DisplayX float64 `json:"display_x"`
	Y        float64 `json:"y"`
	Unit     string  `json:"unit"`
}

// Crosshair is an index-addressed cursor over one trace: a state machine
// over a single integer, clamped to the trace's sample range. Its glyph
// keeps a fixed size in screen pixels, so the data-space arm lengths are
// recomputed from the surface scale whenever position, data, or axes change.
type Crosshair struct {
	trace *Trace
	surf  *render.Surface
	glyph *render.CrosshairGlyph

	index int

	halfWidthPx  float64
	halfHeightPx float64
}

// NewCrosshair binds a cursor to a trace and its glyph artist. Half extents
// are in screen pixels.
func NewCrosshair(trace *Trace, surf *render.Surface, glyph *render.CrosshairGlyph, halfWidthPx, halfHeightPx float64) *Crosshair {
	if halfWidthPx <= 0 {
		halfWidthPx = 6
	}
	if halfHeightPx <= 0 {
		halfHeightPx = 6
	}
	return &Crosshair{
		trace:        trace,
		surf:         surf,
		glyph:        glyph,
		halfWidthPx:  halfWidthPx,
		halfHeightPx: halfHeightPx,
	}
}

// Index returns the current sample index.
func (c *Crosshair) Index() int { return c.index }

// SetIndex moves the cursor to i, clamped into [0, N-1]. On an empty trace
// the call has no effect and reports false. The glyph geometry is
// recomputed from the current axes scale.
func (c *Crosshair) SetIndex(i int) bool {
	n := c.trace.Len()
	if n == 0 {
		c.glyph.Clear()
		return false
	}
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	c.index = i

	xs := c.trace.DisplayedX()
	ys := c.trace.DisplayedY()
	dx, dy := c.surf.DataPerPixel()
	c.glyph.SetHalfExtents(c.halfWidthPx*dx, c.halfHeightPx*dy)
	c.glyph.SetCenter(xs[i], ys[i])
	return true
}

// Move shifts the cursor by delta samples (keyboard navigation).
func (c *Crosshair) Move(delta int) bool {
	return c.SetIndex(c.index + delta)
}

// Refresh reapplies the current index against possibly-changed data or
// calibration.
func (c *Crosshair) Refresh() { c.SetIndex(c.index) }

// OnAxesResize recomputes the data-per-pixel multiplier after an axes or
// canvas change, keeping the glyph's visual size constant, then reapplies
// the current index.
func (c *Crosshair) OnAxesResize() { c.SetIndex(c.index) }

// SnapToScreen maps a display-space click to data space and snaps the
// cursor to the nearest sample index.
func (c *Crosshair) SnapToScreen(sx, sy float64) bool {
	x, _ := c.surf.ScreenToData(sx, sy)
	i := c.trace.NearestIndex(x)
	if i < 0 {
		return false
	}
	return c.SetIndex(i)
}

// Readout reports the cursor position in all spaces.
func (c *Crosshair) Readout() CrosshairReadout {
	n := c.trace.Len()
	if n == 0 {
		return CrosshairReadout{Unit: c.trace.Calibration().UnitMode().String()}
	}
	i := c.index
	if i > n-1 {
		i = n - 1
	}
	return CrosshairReadout{
		HasData:  true,
		Index:    i,
		RawX:     c.trace.RawX()[i],
		DisplayX: c.trace.DisplayedX()[i],
		Y:        c.trace.DisplayedY()[i],
		Unit:     c.trace.Calibration().UnitMode().String(),
	}
}
