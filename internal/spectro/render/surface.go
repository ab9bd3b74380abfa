// Package render implements the incremental plot renderer for the
// spectrometer engine. A Surface owns the static scene (axes, grid, labels)
// rendered through gonum/plot into a raster canvas; the BlitManager composites
// animated artists (trace lines, crosshairs) over a cached snapshot of that
// scene so per-frame cost stays far below a full scene render.
package render

import (
	"image"
	imgdraw "image/draw"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// surfaceDPI pins the raster resolution so one vg point equals one image
// pixel. All screen-space math in this package relies on that equivalence.
const surfaceDPI = 72

// Flusher receives the composited image after every blit. Implementations
// must not retain img past the call; the backing store is reused on the next
// draw.
type Flusher interface {
	Flush(img image.Image)
}

// SurfaceConfig describes the static scene of a Surface.
type SurfaceConfig struct {
	WidthPx  int
	HeightPx int
	Title    string
	XLabel   string
	YLabel   string

	// Initial axis limits. Zero values for both min and max on an axis
	// leave gonum/plot's automatic range in place until data arrives.
	XMin, XMax float64
	YMin, YMax float64
}

// Surface owns a plot.Plot holding only static content and the raster canvas
// both the static scene and the animated artists draw into. Surface state is
// confined to the render loop goroutine; it carries no locking.
type Surface struct {
	p        *plot.Plot
	canvas   *vgimg.Canvas
	dc       draw.Canvas
	widthPx  int
	heightPx int
}

// NewSurface builds a surface with an empty grid-backed scene.
func NewSurface(cfg SurfaceConfig) *Surface {
	if cfg.WidthPx <= 0 {
		cfg.WidthPx = 900
	}
	if cfg.HeightPx <= 0 {
		cfg.HeightPx = 480
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	p.X.Label.Text = cfg.XLabel
	p.Y.Label.Text = cfg.YLabel
	p.Add(plotter.NewGrid())

	if cfg.XMin != 0 || cfg.XMax != 0 {
		p.X.Min, p.X.Max = cfg.XMin, cfg.XMax
	}
	if cfg.YMin != 0 || cfg.YMax != 0 {
		p.Y.Min, p.Y.Max = cfg.YMin, cfg.YMax
	}

	s := &Surface{p: p}
	s.allocCanvas(cfg.WidthPx, cfg.HeightPx)
	return s
}

func (s *Surface) allocCanvas(wPx, hPx int) {
	s.widthPx = wPx
	s.heightPx = hPx
	s.canvas = vgimg.NewWith(
		vgimg.UseWH(vg.Length(wPx), vg.Length(hPx)),
		vgimg.UseDPI(surfaceDPI),
	)
	s.dc = draw.New(s.canvas)
}

// Plot exposes the underlying static plot for label and scale edits. Artists
// must never be added to it; they belong to the BlitManager.
func (s *Surface) Plot() *plot.Plot { return s.p }

// Size returns the raster dimensions in pixels.
func (s *Surface) Size() (wPx, hPx int) { return s.widthPx, s.heightPx }

// Resize replaces the raster canvas. The caller owns forcing a full redraw
// afterwards; until then the surface content is stale.
func (s *Surface) Resize(wPx, hPx int) {
	if wPx == s.widthPx && hPx == s.heightPx {
		return
	}
	s.allocCanvas(wPx, hPx)
}

// XLimits returns the current x axis range.
func (s *Surface) XLimits() (min, max float64) { return s.p.X.Min, s.p.X.Max }

// YLimits returns the current y axis range.
func (s *Surface) YLimits() (min, max float64) { return s.p.Y.Min, s.p.Y.Max }

// SetXLimits replaces the x axis range. Invalidates any cached background;
// callers must force a full redraw.
func (s *Surface) SetXLimits(min, max float64) {
	if min == max {
		max = min + 1
	}
	s.p.X.Min, s.p.X.Max = min, max
}

// SetYLimits replaces the y axis range.
func (s *Surface) SetYLimits(min, max float64) {
	if min == max {
		max = min + 1
	}
	s.p.Y.Min, s.p.Y.Max = min, max
}

// DrawStatic renders the static scene (background fill, axes, grid, labels)
// into the raster canvas, replacing all previous content.
func (s *Surface) DrawStatic() {
	s.p.Draw(s.dc)
}

// DataCanvas returns the sub-canvas covering the data area, the canvas
// artists plot into.
func (s *Surface) DataCanvas() draw.Canvas {
	return s.p.DataCanvas(s.dc)
}

// Image returns the raster backing store. The returned image is live: any
// draw through the surface mutates it.
func (s *Surface) Image() imgdraw.Image {
	return s.canvas.Image()
}

// DataToScreen maps data coordinates to image coordinates (origin top-left,
// y down).
func (s *Surface) DataToScreen(x, y float64) (sx, sy float64) {
	dc := s.DataCanvas()
	trX, trY := s.p.Transforms(&dc)
	return float64(trX(x)), float64(s.heightPx) - float64(trY(y))
}

// ScreenToData inverts DataToScreen for linear axes. Coordinates outside the
// data rectangle extrapolate linearly, which keeps edge clicks usable.
func (s *Surface) ScreenToData(sx, sy float64) (x, y float64) {
	r := s.DataCanvas().Rectangle
	w := float64(r.Max.X - r.Min.X)
	h := float64(r.Max.Y - r.Min.Y)
	if w <= 0 || h <= 0 {
		return s.p.X.Min, s.p.Y.Min
	}
	cy := float64(s.heightPx) - sy
	x = s.p.X.Min + (sx-float64(r.Min.X))/w*(s.p.X.Max-s.p.X.Min)
	y = s.p.Y.Min + (cy-float64(r.Min.Y))/h*(s.p.Y.Max-s.p.Y.Min)
	return x, y
}

// DataPerPixel returns the data-space extent of one screen pixel on each
// axis. Crosshair glyphs use it to hold a fixed visual size across zoom
// levels.
func (s *Surface) DataPerPixel() (dx, dy float64) {
	r := s.DataCanvas().Rectangle
	w := float64(r.Max.X - r.Min.X)
	h := float64(r.Max.Y - r.Min.Y)
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	return (s.p.X.Max - s.p.X.Min) / w, (s.p.Y.Max - s.p.Y.Min) / h
}
