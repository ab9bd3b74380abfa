package spectro

import (
	"context"
	"testing"
	"time"

	"github.com/banshee-data/spectrum.report/internal/spectro/render"
)

func startTestEngine(t *testing.T) (*Engine, context.CancelFunc) {
	t.Helper()
	surf := render.NewSurface(render.SurfaceConfig{
		WidthPx: 320, HeightPx: 240,
		XMin: 0, XMax: 4, YMin: 0, YMax: 1000,
	})
	ps, err := NewPlotSurface(PlotSurfaceConfig{Surface: surf})
	if err != nil {
		t.Fatalf("NewPlotSurface: %v", err)
	}

	e := NewEngine(NewFrameBridge(2*time.Millisecond), ps)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e, cancel
}

func TestEngineConsumesCoalescedFrames(t *testing.T) {
	e, _ := startTestEngine(t)

	for i := 1; i <= 50; i++ {
		e.Bridge().OnHardwareFrame(&Frame{Seq: uint64(i), Raw: []float64{1, 2, 3, 4, 5}})
	}

	deadline := time.After(time.Second)
	for {
		var seen uint64
		e.Do(func(ps *PlotSurface) { seen = ps.FramesSeen() })
		if seen >= 1 {
			if seen > 50 {
				t.Fatalf("FramesSeen = %d, more than delivered", seen)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("engine never consumed the pending frame")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestEngineDoSerialisesAccess(t *testing.T) {
	e, _ := startTestEngine(t)

	e.Do(func(ps *PlotSurface) {
		if err := ps.SetRawData(Reference, []float64{0, 1, 2}, []float64{7, 8, 9}); err != nil {
			t.Errorf("SetRawData: %v", err)
		}
	})

	var snap Snapshot
	e.Do(func(ps *PlotSurface) { snap = ps.Snapshot() })
	if len(snap.Reference.Y) != 3 || snap.Reference.Y[2] != 9 {
		t.Errorf("snapshot reference y = %v, want [7 8 9]", snap.Reference.Y)
	}
}

func TestEnginePauseStopsConsumption(t *testing.T) {
	e, _ := startTestEngine(t)

	e.Pause()
	e.Bridge().OnHardwareFrame(&Frame{Seq: 1, Raw: []float64{1, 2, 3, 4, 5}})

	// Give the loop several ticks; the frame must stay pending.
	time.Sleep(20 * time.Millisecond)
	var seen uint64
	e.Do(func(ps *PlotSurface) { seen = ps.FramesSeen() })
	if seen != 0 {
		t.Fatalf("paused engine consumed %d frames", seen)
	}
	if !e.Bridge().Pending() {
		t.Fatal("frame should still be pending while paused")
	}

	e.Resume()
	deadline := time.After(time.Second)
	for {
		e.Do(func(ps *PlotSurface) { seen = ps.FramesSeen() })
		if seen == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("resumed engine never consumed the pending frame")
		case <-time.After(time.Millisecond):
		}
	}

	// Resume forced a full redraw.
	var stats uint64
	e.Do(func(ps *PlotSurface) { stats = ps.RenderStats().FullRedraws })
	if stats == 0 {
		t.Error("Resume did not force a full redraw")
	}
}
