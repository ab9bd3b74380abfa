package render

import (
	"image"
	"image/color"
	"testing"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg/draw"
)

// recordingArtist counts how often it is asked to draw.
type recordingArtist struct {
	surf  *Surface
	draws int
}

func (r *recordingArtist) Plot(c draw.Canvas, plt *plot.Plot) { r.draws++ }
func (r *recordingArtist) Surface() *Surface                  { return r.surf }

// countingFlusher counts composited frames pushed at it.
type countingFlusher struct {
	flushes int
	last    image.Image
}

func (f *countingFlusher) Flush(img image.Image) {
	f.flushes++
	f.last = img
}

func testSurface() *Surface {
	return NewSurface(SurfaceConfig{
		WidthPx:  320,
		HeightPx: 240,
		XMin:     0, XMax: 100,
		YMin: 0, YMax: 1000,
	})
}

func TestAddRejectsForeignArtist(t *testing.T) {
	s1 := testSurface()
	s2 := testSurface()

	bm, err := NewBlitManager(s1, nil)
	if err != nil {
		t.Fatalf("NewBlitManager: %v", err)
	}

	if err := bm.Add(&recordingArtist{surf: s2}); err != ErrForeignArtist {
		t.Errorf("Add(foreign artist) = %v, want ErrForeignArtist", err)
	}
	if err := bm.Add(&recordingArtist{surf: s1}); err != nil {
		t.Errorf("Add(own artist) = %v, want nil", err)
	}
}

func TestUpdateFallsBackToFullRedraw(t *testing.T) {
	s := testSurface()
	a := &recordingArtist{surf: s}
	sink := &countingFlusher{}

	bm, err := NewBlitManager(s, sink, a)
	if err != nil {
		t.Fatalf("NewBlitManager: %v", err)
	}

	if bm.HasBackground() {
		t.Fatal("fresh manager should have no background snapshot")
	}

	// First Update has no snapshot and must take the full-redraw path,
	// capturing one.
	bm.Update()
	if !bm.HasBackground() {
		t.Error("Update did not capture a background snapshot")
	}
	if a.draws != 1 {
		t.Errorf("artist drawn %d times, want 1", a.draws)
	}
	if sink.flushes != 1 {
		t.Errorf("sink flushed %d times, want 1", sink.flushes)
	}

	// Subsequent updates reuse the snapshot.
	bm.Update()
	bm.Update()
	if a.draws != 3 || sink.flushes != 3 {
		t.Errorf("after two more updates: draws=%d flushes=%d, want 3/3", a.draws, sink.flushes)
	}
}

func TestVisibilityTogglesSkipDraw(t *testing.T) {
	s := testSurface()
	a := &recordingArtist{surf: s}
	b := &recordingArtist{surf: s}

	bm, err := NewBlitManager(s, nil, a, b)
	if err != nil {
		t.Fatalf("NewBlitManager: %v", err)
	}

	bm.OnFullRedraw()
	if a.draws != 1 || b.draws != 1 {
		t.Fatalf("initial draws a=%d b=%d, want 1/1", a.draws, b.draws)
	}

	if got := bm.ToggleVisible(b); got {
		t.Error("ToggleVisible should report the artist is now hidden")
	}
	bm.Update()
	if a.draws != 2 {
		t.Errorf("visible artist draws=%d, want 2", a.draws)
	}
	if b.draws != 1 {
		t.Errorf("hidden artist draws=%d, want 1", b.draws)
	}

	// Hidden artists stay registered and come back on re-toggle.
	if got := bm.ToggleVisible(b); !got {
		t.Error("ToggleVisible should report the artist is visible again")
	}
	bm.Update()
	if b.draws != 2 {
		t.Errorf("re-shown artist draws=%d, want 2", b.draws)
	}
}

func TestForceFullRedrawRecapturesBackground(t *testing.T) {
	s := testSurface()
	bm, err := NewBlitManager(s, nil)
	if err != nil {
		t.Fatalf("NewBlitManager: %v", err)
	}

	bm.OnFullRedraw()
	if !bm.HasBackground() {
		t.Fatal("OnFullRedraw did not capture background")
	}

	bm.Invalidate()
	if bm.HasBackground() {
		t.Fatal("Invalidate left the snapshot in place")
	}

	s.SetXLimits(0, 500)
	bm.ForceFullRedraw()
	if !bm.HasBackground() {
		t.Error("ForceFullRedraw did not recapture background")
	}
}

func TestTraceLineDecimatePreservesExtremes(t *testing.T) {
	xs := make([]float64, 1000)
	ys := make([]float64, 1000)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = 100
	}
	ys[123] = 9000 // lone spike must survive decimation
	ys[777] = -50

	outX, outY := decimate(xs, ys, 50)
	if len(outX) >= len(xs) {
		t.Fatalf("decimate did not reduce: %d -> %d", len(xs), len(outX))
	}

	var sawSpike, sawTrough bool
	for i := range outY {
		if outY[i] == 9000 && outX[i] == 123 {
			sawSpike = true
		}
		if outY[i] == -50 && outX[i] == 777 {
			sawTrough = true
		}
	}
	if !sawSpike || !sawTrough {
		t.Errorf("decimate lost extremes: spike=%v trough=%v", sawSpike, sawTrough)
	}
}

func TestSurfaceTransformRoundTrip(t *testing.T) {
	s := testSurface()
	s.DrawStatic()

	sx, sy := s.DataToScreen(50, 500)
	x, y := s.ScreenToData(sx, sy)

	if diff := x - 50; diff > 0.5 || diff < -0.5 {
		t.Errorf("x round trip: got %f, want ~50", x)
	}
	if diff := y - 500; diff > 5 || diff < -5 {
		t.Errorf("y round trip: got %f, want ~500", y)
	}
}

func TestCrosshairGlyphClear(t *testing.T) {
	s := testSurface()
	g := NewCrosshairGlyph(s, color.RGBA{R: 255, A: 255})

	if _, _, ok := g.Center(); ok {
		t.Error("fresh glyph should have no position")
	}
	g.SetCenter(10, 20)
	if _, _, ok := g.Center(); !ok {
		t.Error("glyph lost its position after SetCenter")
	}
	g.Clear()
	if _, _, ok := g.Center(); ok {
		t.Error("Clear did not remove the position")
	}
}
