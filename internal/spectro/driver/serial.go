// Package driver provides FrameSource implementations: a serial-port line
// camera for real hardware and a synthetic mock for dev mode and tests.
package driver

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/banshee-data/spectrum.report/internal/monitoring"
	"github.com/banshee-data/spectrum.report/internal/spectro"
)

// ErrGrabInProgress is returned when StartGrab is called while a grab is
// already active; callers must stop the existing grab first.
var ErrGrabInProgress = errors.New("frame grab already in progress")

// Wire format: each frame is a little-endian record of
//
//	magic      uint32  "SPFR"
//	seq        uint32  camera-side frame counter
//	timestamp  int64   unix nanoseconds
//	exposure   uint32  microseconds
//	flags      uint16  bit0 trigger occurred, bit1 oversaturated
//	trigCount  uint16
//	lightShld  uint16
//	pixels     uint16  sample count
//	data       pixels * uint16 ADC counts
//
// The reader resynchronises by scanning for the magic, so a frame lost to
// line noise costs one frame, not the session.
const frameMagic uint32 = 0x53504652 // "SPFR" big-endian byte order on the wire

const (
	flagTrigger      = 1 << 0
	flagOverSaturate = 1 << 1
)

type frameHeader struct {
	Seq          uint32
	Timestamp    int64
	Exposure     uint32
	Flags        uint16
	TriggerCount uint16
	LightShield  uint16
	Pixels       uint16
}

// ReadFrame scans r for the next frame record and decodes it. maxPixels
// bounds the accepted sample count so a corrupted header cannot trigger a
// giant allocation.
func ReadFrame(r *bufio.Reader, maxPixels int) (*spectro.Frame, error) {
	if err := seekMagic(r); err != nil {
		return nil, err
	}

	var hdr frameHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading frame header: %w", err)
	}
	if int(hdr.Pixels) == 0 || int(hdr.Pixels) > maxPixels {
		return nil, fmt.Errorf("implausible pixel count %d (max %d)", hdr.Pixels, maxPixels)
	}

	counts := make([]uint16, hdr.Pixels)
	if err := binary.Read(r, binary.LittleEndian, counts); err != nil {
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}

	raw := make([]float64, len(counts))
	for i, c := range counts {
		raw[i] = float64(c)
	}

	return &spectro.Frame{
		Seq:               uint64(hdr.Seq),
		ExposureTimeUS:    int(hdr.Exposure),
		Timestamp:         hdr.Timestamp,
		TriggerOccurred:   hdr.Flags&flagTrigger != 0,
		TriggerEventCount: int(hdr.TriggerCount),
		OverSaturated:     hdr.Flags&flagOverSaturate != 0,
		LightShieldValue:  int(hdr.LightShield),
		Raw:               raw,
	}, nil
}

// seekMagic consumes bytes until the magic sequence has been read.
func seekMagic(r *bufio.Reader) error {
	var window uint32
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		window = window<<8 | uint32(b)
		if window == frameMagic {
			return nil
		}
		if i > 1<<20 {
			return errors.New("no frame magic within 1MB of stream")
		}
	}
}

// WriteFrame encodes a frame record; used by tests and by the camera-sim
// firmware simulator. Raw values are clamped to the 16-bit ADC range.
func WriteFrame(w io.Writer, f *spectro.Frame) error {
	var flags uint16
	if f.TriggerOccurred {
		flags |= flagTrigger
	}
	if f.OverSaturated {
		flags |= flagOverSaturate
	}
	hdr := frameHeader{
		Seq:          uint32(f.Seq),
		Timestamp:    f.Timestamp,
		Exposure:     uint32(f.ExposureTimeUS),
		Flags:        flags,
		TriggerCount: uint16(f.TriggerEventCount),
		LightShield:  uint16(f.LightShieldValue),
		Pixels:       uint16(len(f.Raw)),
	}

	counts := make([]uint16, len(f.Raw))
	for i, v := range f.Raw {
		switch {
		case v < 0:
			counts[i] = 0
		case v > 65535:
			counts[i] = 65535
		default:
			counts[i] = uint16(v)
		}
	}

	var magic [4]byte
	binary.BigEndian.PutUint32(magic[:], frameMagic)
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, counts)
}

// SerialCameraConfig configures a SerialCamera.
type SerialCameraConfig struct {
	Port     string // e.g. /dev/ttyACM0
	Baud     int    // default 921600
	Pixels   int    // default spectro.DefaultSensorPixels
	CameraID int
}

// SerialCamera drives a line-scan spectrometer camera over a serial port.
// Frame records stream in continuously while a grab is active; control
// commands (exposure, grab start/stop) are short ASCII writes.
type SerialCamera struct {
	port     io.ReadWriteCloser
	pixels   int
	cameraID int

	commands chan string

	mu        sync.Mutex
	callbacks []func(*spectro.Frame)
	last      *spectro.Frame
	grabbing  bool
	session   uuid.UUID
}

// OpenSerialCamera opens the port and prepares the camera. Call Monitor to
// start the read loop.
func OpenSerialCamera(cfg SerialCameraConfig) (*SerialCamera, error) {
	if cfg.Baud <= 0 {
		cfg.Baud = 921600
	}
	if cfg.Pixels <= 0 {
		cfg.Pixels = spectro.DefaultSensorPixels
	}

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Port, err)
	}

	return newSerialCamera(port, cfg.Pixels, cfg.CameraID), nil
}

func newSerialCamera(port io.ReadWriteCloser, pixels, cameraID int) *SerialCamera {
	return &SerialCamera{
		port:     port,
		pixels:   pixels,
		cameraID: cameraID,
		commands: make(chan string, 8),
	}
}

// AddFrameCallback registers a callback invoked on the Monitor goroutine for
// every decoded frame.
func (c *SerialCamera) AddFrameCallback(fn func(*spectro.Frame)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// LastFrame returns the most recently decoded frame, or nil.
func (c *SerialCamera) LastFrame() *spectro.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// StartGrab commands the camera to begin acquisition.
func (c *SerialCamera) StartGrab(mode spectro.GrabMode) error {
	c.mu.Lock()
	if c.grabbing {
		c.mu.Unlock()
		return ErrGrabInProgress
	}
	c.grabbing = true
	c.session = uuid.New()
	session := c.session
	c.mu.Unlock()

	monitoring.Logf("starting %s grab session %s", mode, session)
	switch mode {
	case spectro.GrabSingle:
		c.commands <- "G1\n"
	default:
		c.commands <- "GC\n"
	}
	return nil
}

// StopGrab commands the camera to cease acquisition. Idempotent.
func (c *SerialCamera) StopGrab() {
	c.mu.Lock()
	wasGrabbing := c.grabbing
	c.grabbing = false
	c.mu.Unlock()
	if wasGrabbing {
		c.commands <- "GS\n"
	}
}

// IsGrabbing reports whether a grab session is active.
func (c *SerialCamera) IsGrabbing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grabbing
}

// SetExposure configures the sensor integration time.
func (c *SerialCamera) SetExposure(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("exposure must be positive, got %v", d)
	}
	c.commands <- fmt.Sprintf("E%d\n", d.Microseconds())
	return nil
}

// Monitor reads frame records from the port and dispatches them to the
// registered callbacks until ctx is done. Decode errors resynchronise on the
// next magic rather than aborting the session.
//
// Reads and command writes run on separate goroutines. The camera is
// quiescent until commanded, so a blocking read can sit forever on a silent
// port; serviced inline, the initial grab command would be queued behind a
// read that only completes once that command is written. The writer side
// also closes the port on cancellation to unblock an in-flight read.
func (c *SerialCamera) Monitor(ctx context.Context) error {
	defer c.port.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				c.port.Close()
				return
			case command := <-c.commands:
				if _, err := c.port.Write([]byte(command)); err != nil {
					monitoring.Logf("writing command %q: %v", command, err)
				}
			}
		}
	}()

	reader := bufio.NewReaderSize(c.port, 64*1024)
	for {
		f, err := ReadFrame(reader, c.pixels)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			monitoring.Debugf("frame decode error, resyncing: %v", err)
			continue
		}
		f.CameraID = c.cameraID
		c.dispatch(f)
	}
}

// Close closes the serial port.
func (c *SerialCamera) Close() error {
	return c.port.Close()
}

func (c *SerialCamera) dispatch(f *spectro.Frame) {
	c.mu.Lock()
	c.last = f
	cbs := make([]func(*spectro.Frame), len(c.callbacks))
	copy(cbs, c.callbacks)
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(f)
	}
}
