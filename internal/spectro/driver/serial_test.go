package driver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/spectrum.report/internal/spectro"
)

func TestReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := &spectro.Frame{
		Seq:               42,
		ExposureTimeUS:    50000,
		Timestamp:         1700000000000000000,
		TriggerOccurred:   true,
		TriggerEventCount: 3,
		OverSaturated:     true,
		LightShieldValue:  420,
		Raw:               []float64{100, 200, 65535, 0, 4096},
	}
	if err := WriteFrame(&buf, in); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	f, err := ReadFrame(bufio.NewReader(&buf), spectro.DefaultSensorPixels)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Seq != 42 {
		t.Errorf("Seq = %d, want 42", f.Seq)
	}
	if f.Timestamp != in.Timestamp {
		t.Errorf("Timestamp = %d", f.Timestamp)
	}
	if f.ExposureTimeUS != 50000 {
		t.Errorf("ExposureTimeUS = %d, want 50000", f.ExposureTimeUS)
	}
	if !f.TriggerOccurred || !f.OverSaturated {
		t.Errorf("flags not decoded: trigger=%v oversat=%v", f.TriggerOccurred, f.OverSaturated)
	}
	if f.TriggerEventCount != 3 || f.LightShieldValue != 420 {
		t.Errorf("counters: trig=%d shield=%d", f.TriggerEventCount, f.LightShieldValue)
	}
	if len(f.Raw) != len(in.Raw) {
		t.Fatalf("len(Raw) = %d, want %d", len(f.Raw), len(in.Raw))
	}
	for i := range in.Raw {
		if f.Raw[i] != in.Raw[i] {
			t.Errorf("Raw[%d] = %v, want %v", i, f.Raw[i], in.Raw[i])
		}
	}
}

func TestWriteFrameClampsToADCRange(t *testing.T) {
	var buf bytes.Buffer
	in := &spectro.Frame{Seq: 1, Raw: []float64{-5, 70000, 1000.7}}
	if err := WriteFrame(&buf, in); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	f, err := ReadFrame(bufio.NewReader(&buf), 16)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	want := []float64{0, 65535, 1000}
	for i := range want {
		if f.Raw[i] != want[i] {
			t.Errorf("Raw[%d] = %v, want %v", i, f.Raw[i], want[i])
		}
	}
}

func TestReadFrameResyncsAfterGarbage(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x53, 0x50, 0x00}) // noise, including a partial magic
	if err := WriteFrame(&buf, &spectro.Frame{Seq: 7, Raw: []float64{1, 2, 3}}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	f, err := ReadFrame(bufio.NewReader(&buf), 16)
	if err != nil {
		t.Fatalf("ReadFrame after garbage: %v", err)
	}
	if f.Seq != 7 || len(f.Raw) != 3 {
		t.Errorf("got seq=%d pixels=%d, want seq=7 pixels=3", f.Seq, len(f.Raw))
	}
}

func TestReadFrameRejectsImplausiblePixelCount(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, &spectro.Frame{Seq: 1, Raw: make([]float64, 64)}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	if _, err := ReadFrame(bufio.NewReader(&buf), 32); err == nil {
		t.Fatal("expected error for pixel count over the limit")
	}
}

func TestReadFrameEOFMidStream(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, &spectro.Frame{Seq: 1, Raw: []float64{1, 2, 3, 4}}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-3]

	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(truncated)), 16)
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want EOF-ish", err)
	}
}

// scriptedPort is an in-memory port: reads block until a frame is queued on
// frames (or the port closes), writes land on the written channel.
type scriptedPort struct {
	frames  chan []byte
	written chan string
	closed  chan struct{}
	once    sync.Once
	pending []byte
}

func newScriptedPort() *scriptedPort {
	return &scriptedPort{
		frames:  make(chan []byte, 4),
		written: make(chan string, 16),
		closed:  make(chan struct{}),
	}
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case data := <-p.frames:
			p.pending = data
		case <-p.closed:
			return 0, io.ErrClosedPipe
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.written <- string(b)
	return len(b), nil
}

func (p *scriptedPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// The camera stays silent until commanded, so Monitor's read side parks on
// an empty port immediately. Grab and exposure commands must still reach the
// wire, and cancellation must unblock the parked read.
func TestMonitorWritesCommandsDuringBlockedRead(t *testing.T) {
	port := newScriptedPort()
	cam := newSerialCamera(port, 16, 0)

	received := make(chan *spectro.Frame, 1)
	cam.AddFrameCallback(func(f *spectro.Frame) { received <- f })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitorDone := make(chan error, 1)
	go func() { monitorDone <- cam.Monitor(ctx) }()

	if err := cam.SetExposure(50 * time.Millisecond); err != nil {
		t.Fatalf("SetExposure: %v", err)
	}
	if err := cam.StartGrab(spectro.GrabContinuous); err != nil {
		t.Fatalf("StartGrab: %v", err)
	}

	for _, want := range []string{"E50000\n", "GC\n"} {
		select {
		case got := <-port.written:
			if got != want {
				t.Errorf("command = %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("command %q never reached the port", want)
		}
	}

	// With the grab commanded, frames start flowing and get dispatched.
	var buf bytes.Buffer
	if err := WriteFrame(&buf, &spectro.Frame{Seq: 5, Raw: []float64{1, 2, 3}}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	port.frames <- buf.Bytes()
	select {
	case f := <-received:
		if f.Seq != 5 {
			t.Errorf("Seq = %d, want 5", f.Seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame never dispatched")
	}

	cancel()
	select {
	case err := <-monitorDone:
		if err != context.Canceled {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not stop after cancellation")
	}
}

func TestReadFrameBackToBack(t *testing.T) {
	var buf bytes.Buffer
	for seq := uint64(1); seq <= 3; seq++ {
		f := &spectro.Frame{Seq: seq, Raw: []float64{float64(seq), float64(seq * 2)}}
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	r := bufio.NewReader(&buf)
	for want := uint64(1); want <= 3; want++ {
		f, err := ReadFrame(r, 16)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", want, err)
		}
		if f.Seq != want {
			t.Errorf("Seq = %d, want %d", f.Seq, want)
		}
	}
	if _, err := ReadFrame(r, 16); !errors.Is(err, io.EOF) {
		t.Errorf("after last frame err = %v, want io.EOF", err)
	}
}
