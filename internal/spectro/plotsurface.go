package spectro

import (
	"image/color"
	"math"

	"github.com/banshee-data/spectrum.report/internal/monitoring"
	"github.com/banshee-data/spectrum.report/internal/spectro/render"
)

// Trace palette. Primary is the live camera trace, reference the loaded
// comparison spectrum.
var (
	primaryColor      = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	referenceColor    = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	primaryCrossColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	refCrossColor     = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
)

// PlotSurfaceConfig configures the dual-trace view.
type PlotSurfaceConfig struct {
	// Surface to render into. A default 900x480 surface is created when
	// nil.
	Surface *render.Surface
	// Sink receives every composited frame (may be nil).
	Sink render.Flusher
	// BoundsTolerance gates cheap updates against full redraws when
	// displayed x extents drift from the axis limits. Default 1e-3. A
	// performance knob: live frames should not force a background
	// recapture, but newly calibrated or loaded data of a different range
	// must.
	BoundsTolerance float64
	// Crosshair glyph half-extents in screen pixels (default 6).
	CrosshairHalfWidthPx  float64
	CrosshairHalfHeightPx float64
}

// PlotSurface composes the trace store, calibration models, incremental
// renderer, and crosshairs into the dual-trace spectral view the UI shell
// talks to. Every method must run on the render loop goroutine; the Engine
// provides that confinement.
type PlotSurface struct {
	surface *render.Surface
	blit    *render.BlitManager
	store   *TraceStore

	lines      [2]*render.TraceLine
	crosshairs [2]*Crosshair

	tolerance float64

	suppressed        bool
	captureBackground bool

	framesSeen uint64
	pixelAxis  []float64
}

// NewPlotSurface wires the dual-trace view. The returned error is always a
// caller wiring bug (foreign artists); treat it as fatal.
func NewPlotSurface(cfg PlotSurfaceConfig) (*PlotSurface, error) {
	surf := cfg.Surface
	if surf == nil {
		surf = render.NewSurface(render.SurfaceConfig{
			Title:  "Spectrum",
			XLabel: "Pixel",
			YLabel: "Intensity",
			XMin:   0, XMax: DefaultSensorPixels - 1,
			YMin: 0, YMax: 65535,
		})
	}
	if cfg.BoundsTolerance <= 0 {
		cfg.BoundsTolerance = 1e-3
	}

	ps := &PlotSurface{
		surface:   surf,
		store:     NewTraceStore(),
		tolerance: cfg.BoundsTolerance,
	}

	ps.lines[Primary] = render.NewTraceLine(surf, primaryColor)
	ps.lines[Reference] = render.NewTraceLine(surf, referenceColor)

	primGlyph := render.NewCrosshairGlyph(surf, primaryCrossColor)
	refGlyph := render.NewCrosshairGlyph(surf, refCrossColor)
	ps.crosshairs[Primary] = NewCrosshair(ps.store.Trace(Primary), surf, primGlyph,
		cfg.CrosshairHalfWidthPx, cfg.CrosshairHalfHeightPx)
	ps.crosshairs[Reference] = NewCrosshair(ps.store.Trace(Reference), surf, refGlyph,
		cfg.CrosshairHalfWidthPx, cfg.CrosshairHalfHeightPx)

	blit, err := render.NewBlitManager(surf, cfg.Sink,
		ps.lines[Primary], ps.lines[Reference], primGlyph, refGlyph)
	if err != nil {
		return nil, err
	}
	ps.blit = blit
	return ps, nil
}

// Trace exposes the underlying trace for sel.
func (ps *PlotSurface) Trace(sel Selector) *Trace { return ps.store.Trace(sel) }

// Surface exposes the render surface.
func (ps *PlotSurface) Surface() *render.Surface { return ps.surface }

// FramesSeen returns the number of live frames consumed.
func (ps *PlotSurface) FramesSeen() uint64 { return ps.framesSeen }

// RenderStats returns the renderer's full-vs-incremental draw counters.
func (ps *PlotSurface) RenderStats() render.BlitStats { return ps.blit.Stats() }

// OnFrame feeds a coalesced live frame into the primary trace. Register via
// the Engine; frames arrive already rate-bounded by the FrameBridge.
func (ps *PlotSurface) OnFrame(f *Frame) {
	if f == nil || len(f.Raw) == 0 {
		return
	}
	ps.framesSeen++

	if len(ps.pixelAxis) != len(f.Raw) {
		ps.pixelAxis = make([]float64, len(f.Raw))
		for i := range ps.pixelAxis {
			ps.pixelAxis[i] = float64(i)
		}
	}

	t := ps.store.Trace(Primary)
	if err := t.SetRawData(ps.pixelAxis, f.Raw); err != nil {
		// Unreachable: the axis is built to match.
		monitoring.Logf("dropping frame %d: %v", f.Seq, err)
		return
	}

	if ps.captureBackground {
		ps.captureBackground = false
		if err := t.SetBackground(f.Raw); err != nil {
			monitoring.Logf("background capture failed: %v", err)
		} else {
			monitoring.Logf("captured background from frame %d", f.Seq)
		}
	}

	ps.refreshTrace(Primary, false)
}

// SetRawData loads externally provided sample arrays into a trace (file
// loaders, NIST line lists).
func (ps *PlotSurface) SetRawData(sel Selector, x, y []float64) error {
	if err := ps.store.Trace(sel).SetRawData(x, y); err != nil {
		return err
	}
	ps.refreshTrace(sel, false)
	return nil
}

// SetBackground stores a background spectrum for sel. The array length must
// match the trace exactly.
func (ps *PlotSurface) SetBackground(sel Selector, bg []float64) error {
	if err := ps.store.Trace(sel).SetBackground(bg); err != nil {
		return err
	}
	ps.refreshTrace(sel, false)
	return nil
}

// SetBackgroundSubtraction toggles whether sel renders raw or
// background-subtracted intensities.
func (ps *PlotSurface) SetBackgroundSubtraction(sel Selector, on bool) {
	ps.store.Trace(sel).SetSubtractBackground(on)
	ps.refreshTrace(sel, false)
}

// CaptureBackgroundFromNextFrame arms one-shot background capture: the next
// live frame is stored as the primary trace's background.
func (ps *PlotSurface) CaptureBackgroundFromNextFrame() {
	ps.captureBackground = true
}

// Fit least-squares fits the calibration polynomial for sel from control
// points and installs the coefficients. Validation failures leave the model
// untouched.
func (ps *PlotSurface) Fit(sel Selector, pixels, wavelengths []float64) error {
	coeffs, err := FitCalibration(pixels, wavelengths)
	if err != nil {
		return err
	}
	cal := ps.store.Trace(sel).Calibration()
	cal.SetFittingParams(coeffs[0], coeffs[1], coeffs[2], coeffs[3])
	ps.afterCalibrationChange(sel)
	return nil
}

// SetCoefficients installs manually entered calibration coefficients
// (exactly four).
func (ps *PlotSurface) SetCoefficients(sel Selector, coeffs []float64) error {
	if err := ps.store.Trace(sel).Calibration().SetCoefficients(coeffs); err != nil {
		return err
	}
	ps.afterCalibrationChange(sel)
	return nil
}

// FittingParams returns the current coefficient tuple for round-tripping
// into a calibration dialog.
func (ps *PlotSurface) FittingParams(sel Selector) [4]float64 {
	return ps.store.Trace(sel).Calibration().Coefficients()
}

// SetUnitMode switches sel between pixel and wavelength display. A real
// switch redefines every displayed x value, so bounds are recomputed and
// the scene fully redrawn.
func (ps *PlotSurface) SetUnitMode(sel Selector, mode UnitMode) {
	if !ps.store.Trace(sel).Calibration().SetUnitMode(mode) {
		return
	}
	ps.store.Trace(sel).Recalibrate()
	ps.refreshTrace(sel, true)
}

func (ps *PlotSurface) afterCalibrationChange(sel Selector) {
	t := ps.store.Trace(sel)
	if t.Calibration().UnitMode() != UnitWavelength {
		return // displayed x is raw; nothing on screen changes
	}
	t.Recalibrate()
	ps.refreshTrace(sel, true)
}

// ToggleTraceVisibility hides or shows a trace and its crosshair without
// unregistering either, returning the new visibility.
func (ps *PlotSurface) ToggleTraceVisibility(sel Selector) bool {
	v := ps.blit.ToggleVisible(ps.lines[sel])
	ps.blit.SetVisible(ps.crosshairs[sel].glyph, v)
	if !ps.suppressed {
		ps.blit.Update()
	}
	return v
}

// TraceVisible reports whether sel is currently drawn.
func (ps *PlotSurface) TraceVisible(sel Selector) bool {
	return ps.blit.Visible(ps.lines[sel])
}

// SetCrosshairIndex places sel's cursor at an absolute sample index, clamped
// into the trace's range. Returns ErrNoData when the trace has no samples to
// land on.
func (ps *PlotSurface) SetCrosshairIndex(sel Selector, index int) error {
	if !ps.crosshairs[sel].SetIndex(index) {
		return ErrNoData
	}
	if !ps.suppressed {
		ps.blit.Update()
	}
	return nil
}

// MoveCrosshair shifts sel's cursor by delta samples (keyboard left/right).
func (ps *PlotSurface) MoveCrosshair(sel Selector, delta int) {
	if ps.crosshairs[sel].Move(delta) && !ps.suppressed {
		ps.blit.Update()
	}
}

// ClickCrosshair snaps sel's cursor to the sample nearest a display-space
// click.
func (ps *PlotSurface) ClickCrosshair(sel Selector, screenX, screenY float64) {
	if ps.crosshairs[sel].SnapToScreen(screenX, screenY) && !ps.suppressed {
		ps.blit.Update()
	}
}

// CrosshairReadout returns sel's cursor position in all coordinate spaces.
func (ps *PlotSurface) CrosshairReadout(sel Selector) CrosshairReadout {
	return ps.crosshairs[sel].Readout()
}

// Redraw forces a full re-render; call after window resizes or any external
// axis edit.
func (ps *PlotSurface) Redraw() {
	if ps.suppressed {
		return
	}
	ps.refreshCrosshairs()
	ps.blit.ForceFullRedraw()
}

// Resize replaces the raster dimensions and fully redraws.
func (ps *PlotSurface) Resize(widthPx, heightPx int) {
	ps.surface.Resize(widthPx, heightPx)
	for _, c := range ps.crosshairs {
		c.OnAxesResize()
	}
	if !ps.suppressed {
		ps.blit.ForceFullRedraw()
	}
}

// SetYLimits pins the intensity axis and fully redraws.
func (ps *PlotSurface) SetYLimits(min, max float64) {
	ps.surface.SetYLimits(min, max)
	ps.refreshCrosshairs()
	if !ps.suppressed {
		ps.blit.ForceFullRedraw()
	}
}

// Autoscale fits the intensity axis to the visible traces with a 5% margin
// and fully redraws.
func (ps *PlotSurface) Autoscale() {
	var lo, hi float64
	var any bool
	for sel := Primary; sel <= Reference; sel++ {
		if !ps.TraceVisible(sel) {
			continue
		}
		min, max, ok := ps.store.Trace(sel).YExtents()
		if !ok {
			continue
		}
		if !any {
			lo, hi, any = min, max, true
			continue
		}
		lo = math.Min(lo, min)
		hi = math.Max(hi, max)
	}
	if !any {
		return
	}
	margin := (hi - lo) * 0.05
	if margin == 0 {
		margin = 1
	}
	ps.SetYLimits(lo-margin, hi+margin)
}

// SuppressRedraw stops all rendering; state mutations still apply. Used
// while the window is hidden or a dialog batches many edits.
func (ps *PlotSurface) SuppressRedraw() { ps.suppressed = true }

// EnableRedraw resumes rendering with a full redraw, since any amount of
// state may have changed while suppressed.
func (ps *PlotSurface) EnableRedraw() {
	ps.suppressed = false
	ps.Redraw()
}

// refreshTrace pushes sel's displayed arrays at its line artist and decides
// between the cheap incremental update and a full redraw. forceFull skips
// the tolerance check (calibration and unit-mode changes always redraw).
func (ps *PlotSurface) refreshTrace(sel Selector, forceFull bool) {
	t := ps.store.Trace(sel)
	ps.lines[sel].SetData(t.DisplayedX(), t.DisplayedY())

	if ps.suppressed {
		return
	}

	if forceFull || ps.updateXBounds() {
		if forceFull {
			ps.recomputeXBounds()
		}
		ps.refreshCrosshairs()
		ps.blit.ForceFullRedraw()
		return
	}

	ps.crosshairs[sel].Refresh()
	ps.blit.Update()
}

// updateXBounds compares the union of visible trace extents against the
// current x limits. Beyond tolerance the limits are replaced and the caller
// must fully redraw; within tolerance nothing changes and the cheap path is
// taken. The tolerance exists so live frames with a stable range never pay
// for a background recapture.
func (ps *PlotSurface) updateXBounds() (changed bool) {
	lo, hi, ok := ps.visibleXExtents()
	if !ok {
		return false
	}
	curLo, curHi := ps.surface.XLimits()
	if math.Abs(lo-curLo) <= ps.tolerance && math.Abs(hi-curHi) <= ps.tolerance {
		return false
	}
	ps.surface.SetXLimits(lo, hi)
	return true
}

// recomputeXBounds unconditionally refits the x limits to the visible
// traces.
func (ps *PlotSurface) recomputeXBounds() {
	if lo, hi, ok := ps.visibleXExtents(); ok {
		ps.surface.SetXLimits(lo, hi)
	}
}

func (ps *PlotSurface) visibleXExtents() (lo, hi float64, ok bool) {
	for sel := Primary; sel <= Reference; sel++ {
		if !ps.TraceVisible(sel) {
			continue
		}
		min, max, have := ps.store.Trace(sel).XExtents()
		if !have {
			continue
		}
		if !ok {
			lo, hi, ok = min, max, true
			continue
		}
		lo = math.Min(lo, min)
		hi = math.Max(hi, max)
	}
	return lo, hi, ok
}

func (ps *PlotSurface) refreshCrosshairs() {
	for _, c := range ps.crosshairs {
		c.Refresh()
	}
}

// TraceSnapshot is a copy of one trace's displayed state, safe to hand
// across goroutines.
type TraceSnapshot struct {
	Name         string           `json:"name"`
	X            []float64        `json:"x"`
	Y            []float64        `json:"y"`
	Visible      bool             `json:"visible"`
	Unit         string           `json:"unit"`
	Coefficients [4]float64       `json:"coefficients"`
	Subtracting  bool             `json:"subtracting_background"`
	Crosshair    CrosshairReadout `json:"crosshair"`
}

// Snapshot copies the full displayed state for monitoring. Must run on the
// render loop goroutine (use Engine.Do); the returned value is then free to
// cross goroutines.
func (ps *PlotSurface) Snapshot() Snapshot {
	return Snapshot{
		Primary:    ps.snapshotTrace(Primary),
		Reference:  ps.snapshotTrace(Reference),
		FramesSeen: ps.framesSeen,
	}
}

// Snapshot is a point-in-time copy of both traces.
type Snapshot struct {
	Primary    TraceSnapshot `json:"primary"`
	Reference  TraceSnapshot `json:"reference"`
	FramesSeen uint64        `json:"frames_seen"`
}

func (ps *PlotSurface) snapshotTrace(sel Selector) TraceSnapshot {
	t := ps.store.Trace(sel)
	xs := make([]float64, t.Len())
	ys := make([]float64, t.Len())
	copy(xs, t.DisplayedX())
	copy(ys, t.DisplayedY())
	return TraceSnapshot{
		Name:         t.Name(),
		X:            xs,
		Y:            ys,
		Visible:      ps.TraceVisible(sel),
		Unit:         t.Calibration().UnitMode().String(),
		Coefficients: t.Calibration().Coefficients(),
		Subtracting:  t.SubtractBackground(),
		Crosshair:    ps.crosshairs[sel].Readout(),
	}
}
