package spectro

import (
	"context"
	"time"

	"github.com/banshee-data/spectrum.report/internal/monitoring"
)

// Engine owns the single-threaded render loop. Its goroutine is the only
// one that touches PlotSurface, trace, and renderer state; external callers
// reach that state through Do, and hardware frames cross over through the
// FrameBridge. No other cross-goroutine boundary exists.
type Engine struct {
	bridge *FrameBridge
	ps     *PlotSurface

	cmds chan func()

	// Loop-confined.
	paused bool
}

// NewEngine couples a bridge and a plot surface.
func NewEngine(bridge *FrameBridge, ps *PlotSurface) *Engine {
	return &Engine{
		bridge: bridge,
		ps:     ps,
		cmds:   make(chan func(), 16),
	}
}

// Bridge returns the frame bridge; register its OnHardwareFrame with the
// frame source.
func (e *Engine) Bridge() *FrameBridge { return e.bridge }

// Attach registers the engine's bridge as src's frame callback.
func (e *Engine) Attach(src FrameSource) {
	src.AddFrameCallback(e.bridge.OnHardwareFrame)
}

// Run drives the render loop until ctx is done: one ticker draining the
// bridge at the configured cadence, interleaved with posted commands. Frames
// keep coalescing in the bridge while paused; they are simply not consumed.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.bridge.Interval())
	defer ticker.Stop()

	monitoring.Logf("render loop running at %v cadence", e.bridge.Interval())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-e.cmds:
			cmd()
		case <-ticker.C:
			if e.paused {
				continue
			}
			if f, ok := e.bridge.Take(); ok {
				e.ps.OnFrame(f)
			}
		}
	}
}

// Do runs f on the render loop goroutine and waits for it to finish. Only
// valid while Run is active; f receives the loop-confined PlotSurface.
func (e *Engine) Do(f func(ps *PlotSurface)) {
	done := make(chan struct{})
	e.cmds <- func() {
		defer close(done)
		f(e.ps)
	}
	<-done
}

// Pause suspends frame consumption and rendering, e.g. while the display is
// hidden. Commands still run.
func (e *Engine) Pause() {
	e.Do(func(ps *PlotSurface) {
		e.paused = true
		ps.SuppressRedraw()
	})
}

// Resume re-enables frame consumption and forces a full redraw, since the
// cached background is arbitrarily stale after a pause.
func (e *Engine) Resume() {
	e.Do(func(ps *PlotSurface) {
		e.paused = false
		ps.EnableRedraw()
	})
}
