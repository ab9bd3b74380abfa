package spectro

import (
	"context"
	"sync"
	"time"
)

// DefaultTickInterval is the render-loop cadence: ~30Hz, decoupled from the
// sensor frame rate.
const DefaultTickInterval = time.Second / 30

// BridgeStats counts frame traffic through the bridge.
type BridgeStats struct {
	Received uint64 // frames delivered by the hardware callback
	Emitted  uint64 // frames handed to the render loop
	Dropped  uint64 // frames superseded before the loop consumed them
}

// FrameBridge decouples the hardware-callback goroutine from the render
// loop. The callback side only stores the latest frame and raises a pending
// flag; the render loop drains at its own fixed cadence. Frames arriving
// faster than the tick rate are coalesced: only the newest survives, which
// bounds render work regardless of acquisition rate.
//
// The frame reference and pending flag are observed atomically together
// under one mutex so a consumer can never pair a stale flag with a newer
// frame.
type FrameBridge struct {
	mu      sync.Mutex
	latest  *Frame
	pending bool
	stats   BridgeStats

	interval time.Duration
}

// NewFrameBridge creates a bridge ticking at the given interval
// (DefaultTickInterval when zero).
func NewFrameBridge(interval time.Duration) *FrameBridge {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &FrameBridge{interval: interval}
}

// Interval returns the tick cadence.
func (b *FrameBridge) Interval() time.Duration { return b.interval }

// OnHardwareFrame records f as the latest frame. Safe to call from any
// goroutine; O(1), no allocation, never blocks on render work. Register this
// method as the FrameSource callback.
func (b *FrameBridge) OnHardwareFrame(f *Frame) {
	if f == nil {
		return
	}
	b.mu.Lock()
	if b.pending {
		b.stats.Dropped++
	}
	b.latest = f
	b.pending = true
	b.stats.Received++
	b.mu.Unlock()
}

// Take consumes the pending frame, if any. At most one frame is returned per
// pending window no matter how many arrived; the returned frame is always
// the newest.
func (b *FrameBridge) Take() (*Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending {
		return nil, false
	}
	b.pending = false
	b.stats.Emitted++
	return b.latest, true
}

// Pending reports whether an unconsumed frame is waiting.
func (b *FrameBridge) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Latest returns the most recent frame seen, consumed or not.
func (b *FrameBridge) Latest() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// Stats returns a copy of the traffic counters.
func (b *FrameBridge) Stats() BridgeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Run emits coalesced frames to emit at the bridge cadence until ctx is
// done. Ticks with no pending frame emit nothing. emit runs on Run's
// goroutine; for the full engine the Engine loop is used instead, which
// additionally services commands.
func (b *FrameBridge) Run(ctx context.Context, emit func(*Frame)) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f, ok := b.Take(); ok {
				emit(f)
			}
		}
	}
}
