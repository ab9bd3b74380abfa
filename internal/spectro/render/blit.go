package render

import (
	"errors"
	"image"
	imgdraw "image/draw"
)

// ErrForeignArtist is returned when an artist bound to one surface is
// registered with a manager for another. This is a wiring bug in the caller,
// not a runtime condition; callers should treat it as fatal.
var ErrForeignArtist = errors.New("artist belongs to a different render surface")

// BlitManager composites animated artists over a cached snapshot of the
// static scene. The common path (Update) restores the snapshot pixels and
// strokes only the artists, so live-frame cost is independent of scene
// complexity. All state is confined to the render loop goroutine.
type BlitManager struct {
	surface *Surface
	sink    Flusher

	artists []Artist
	visible []bool

	background *image.RGBA

	stats BlitStats
}

// BlitStats counts renders by path, for tuning the cheap-vs-full redraw
// policy.
type BlitStats struct {
	FullRedraws uint64
	Updates     uint64
}

// NewBlitManager creates a manager over s, flushing composited images to
// sink (which may be nil). Any artists given are registered visible.
func NewBlitManager(s *Surface, sink Flusher, artists ...Artist) (*BlitManager, error) {
	bm := &BlitManager{surface: s, sink: sink}
	for _, a := range artists {
		if err := bm.Add(a); err != nil {
			return nil, err
		}
	}
	return bm, nil
}

// Add registers an artist as animated and visible. Artists created against a
// different surface are rejected with ErrForeignArtist.
func (bm *BlitManager) Add(a Artist) error {
	if a.Surface() != bm.surface {
		return ErrForeignArtist
	}
	bm.artists = append(bm.artists, a)
	bm.visible = append(bm.visible, true)
	return nil
}

// SetVisible toggles an artist without unregistering it. Unknown artists are
// ignored.
func (bm *BlitManager) SetVisible(a Artist, v bool) {
	for i := range bm.artists {
		if bm.artists[i] == a {
			bm.visible[i] = v
			return
		}
	}
}

// Visible reports whether a registered artist is currently drawn.
func (bm *BlitManager) Visible(a Artist) bool {
	for i := range bm.artists {
		if bm.artists[i] == a {
			return bm.visible[i]
		}
	}
	return false
}

// ToggleVisible flips an artist's visibility and returns the new state.
func (bm *BlitManager) ToggleVisible(a Artist) bool {
	for i := range bm.artists {
		if bm.artists[i] == a {
			bm.visible[i] = !bm.visible[i]
			return bm.visible[i]
		}
	}
	return false
}

// HasBackground reports whether a static snapshot has been captured since
// the last invalidation. Exposed for tests and diagnostics.
func (bm *BlitManager) HasBackground() bool { return bm.background != nil }

// Invalidate discards the cached snapshot, forcing the next Update through
// the full-redraw path. Call after resizes or axis-limit edits.
func (bm *BlitManager) Invalidate() { bm.background = nil }

// OnFullRedraw re-renders the static scene, captures it as the new
// background snapshot, then composites the visible artists and flushes.
// Must be called whenever static content (axis limits, labels, canvas size)
// has changed.
func (bm *BlitManager) OnFullRedraw() {
	bm.stats.FullRedraws++
	bm.surface.DrawStatic()

	src := bm.surface.Image()
	b := src.Bounds()
	if bm.background == nil || bm.background.Bounds() != b {
		bm.background = image.NewRGBA(b)
	}
	imgdraw.Draw(bm.background, b, src, b.Min, imgdraw.Src)

	bm.drawAnimated()
	bm.flush()
}

// ForceFullRedraw is the explicit full re-render entry point used after
// calibration changes, resizes, and axis edits.
func (bm *BlitManager) ForceFullRedraw() {
	bm.Invalidate()
	bm.OnFullRedraw()
}

// Update is the cheap common path: restore the background snapshot, draw the
// visible artists, flush. Falls back to OnFullRedraw when no snapshot
// exists yet.
func (bm *BlitManager) Update() {
	if bm.background == nil {
		bm.OnFullRedraw()
		return
	}
	bm.stats.Updates++

	dst := bm.surface.Image()
	b := bm.background.Bounds()
	imgdraw.Draw(dst, b, bm.background, b.Min, imgdraw.Src)

	bm.drawAnimated()
	bm.flush()
}

func (bm *BlitManager) drawAnimated() {
	dc := bm.surface.DataCanvas()
	p := bm.surface.Plot()
	for i, a := range bm.artists {
		if bm.visible[i] {
			a.Plot(dc, p)
		}
	}
}

// Stats returns a copy of the render counters.
func (bm *BlitManager) Stats() BlitStats { return bm.stats }

func (bm *BlitManager) flush() {
	if bm.sink != nil {
		bm.sink.Flush(bm.surface.Image())
	}
}
