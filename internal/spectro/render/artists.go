package render

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Artist is a renderable element composited over the cached background on
// every blit. The Plot contract matches gonum's plot.Plotter so artists draw
// with the same transforms the static scene used.
type Artist interface {
	Plot(c draw.Canvas, plt *plot.Plot)
	// Surface returns the surface the artist was created against. The
	// BlitManager refuses artists bound to a different surface.
	Surface() *Surface
}

// TraceLine draws one spectral trace as a polyline. The x and y slices are
// swapped wholesale on update; the artist never mutates them.
//
// When the trace is much denser than the data area is wide, points are
// aggregated into per-pixel min/max buckets before stroking. A 3648-pixel
// sensor row on a ~800px-wide plot would otherwise stroke four segments per
// visible pixel for no visual gain.
type TraceLine struct {
	surf  *Surface
	Style draw.LineStyle

	xs, ys []float64
}

// NewTraceLine creates a line artist bound to s.
func NewTraceLine(s *Surface, col color.Color) *TraceLine {
	return &TraceLine{
		surf: s,
		Style: draw.LineStyle{
			Color: col,
			Width: vg.Points(1),
		},
	}
}

// Surface returns the owning surface.
func (l *TraceLine) Surface() *Surface { return l.surf }

// SetData replaces the plotted arrays. Both slices must be equal length;
// the caller (the trace store) maintains that invariant.
func (l *TraceLine) SetData(xs, ys []float64) {
	l.xs, l.ys = xs, ys
}

// Len returns the number of plotted samples.
func (l *TraceLine) Len() int { return len(l.xs) }

// Plot strokes the trace into the data canvas.
func (l *TraceLine) Plot(c draw.Canvas, plt *plot.Plot) {
	if len(l.xs) == 0 {
		return
	}

	xs, ys := l.xs, l.ys
	if buckets := int(c.Rectangle.Size().X); buckets > 0 && len(xs) > 2*buckets {
		xs, ys = decimate(xs, ys, buckets)
	}

	trX, trY := plt.Transforms(&c)
	pts := make([]vg.Point, len(xs))
	for i := range xs {
		pts[i] = vg.Point{X: trX(xs[i]), Y: trY(ys[i])}
	}
	c.StrokeLines(l.Style, c.ClipLinesXY(pts)...)
}

// decimate aggregates samples into n buckets, keeping each bucket's min and
// max so peaks and troughs survive. Assumes samples are roughly evenly
// spaced in x, which holds for line-sensor data.
func decimate(xs, ys []float64, n int) (outX, outY []float64) {
	per := len(xs) / n
	if per < 2 {
		return xs, ys
	}
	outX = make([]float64, 0, 2*n+2)
	outY = make([]float64, 0, 2*n+2)
	for start := 0; start < len(xs); start += per {
		end := start + per
		if end > len(xs) {
			end = len(xs)
		}
		lo, hi := start, start
		for i := start + 1; i < end; i++ {
			if ys[i] < ys[lo] {
				lo = i
			}
			if ys[i] > ys[hi] {
				hi = i
			}
		}
		// Emit in sample order so the polyline does not zigzag backwards.
		if lo <= hi {
			outX = append(outX, xs[lo], xs[hi])
			outY = append(outY, ys[lo], ys[hi])
		} else {
			outX = append(outX, xs[hi], xs[lo])
			outY = append(outY, ys[hi], ys[lo])
		}
	}
	return outX, outY
}

// CrosshairGlyph draws a small cross centred on one trace sample. Its
// half-extents are stored in data units, precomputed by the crosshair logic
// from a fixed screen-pixel size and the surface's current scale.
type CrosshairGlyph struct {
	surf  *Surface
	Style draw.LineStyle

	x, y         float64
	halfW, halfH float64
	hasPosition  bool
}

// NewCrosshairGlyph creates a crosshair artist bound to s.
func NewCrosshairGlyph(s *Surface, col color.Color) *CrosshairGlyph {
	return &CrosshairGlyph{
		surf: s,
		Style: draw.LineStyle{
			Color: col,
			Width: vg.Points(1.5),
		},
	}
}

// Surface returns the owning surface.
func (g *CrosshairGlyph) Surface() *Surface { return g.surf }

// SetCenter positions the glyph in data space.
func (g *CrosshairGlyph) SetCenter(x, y float64) {
	g.x, g.y = x, y
	g.hasPosition = true
}

// SetHalfExtents sets the glyph arm lengths in data units.
func (g *CrosshairGlyph) SetHalfExtents(halfW, halfH float64) {
	g.halfW, g.halfH = halfW, halfH
}

// Center reports the current data-space position.
func (g *CrosshairGlyph) Center() (x, y float64, ok bool) {
	return g.x, g.y, g.hasPosition
}

// Clear removes the glyph until the next SetCenter, used when a trace is
// emptied.
func (g *CrosshairGlyph) Clear() { g.hasPosition = false }

// Plot strokes the two crosshair arms.
func (g *CrosshairGlyph) Plot(c draw.Canvas, plt *plot.Plot) {
	if !g.hasPosition {
		return
	}
	trX, trY := plt.Transforms(&c)
	horiz := []vg.Point{
		{X: trX(g.x - g.halfW), Y: trY(g.y)},
		{X: trX(g.x + g.halfW), Y: trY(g.y)},
	}
	vert := []vg.Point{
		{X: trX(g.x), Y: trY(g.y - g.halfH)},
		{X: trX(g.x), Y: trY(g.y + g.halfH)},
	}
	c.StrokeLines(g.Style, c.ClipLinesXY(horiz)...)
	c.StrokeLines(g.Style, c.ClipLinesXY(vert)...)
}
