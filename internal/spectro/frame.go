// Package spectro implements the real-time plotting and calibration engine
// for a line-scan spectrometer camera: frame coalescing between the hardware
// callback and the render loop, a dual-trace store with background
// subtraction, pixel-to-wavelength polynomial calibration, and an
// index-addressed crosshair, composed behind the PlotSurface facade.
package spectro

import "time"

// DefaultSensorPixels is the pixel count of the supported line sensors
// (Toshiba TCD1304 class). Overridable through config for other sensors.
const DefaultSensorPixels = 3648

// GrabMode selects between one-shot and continuous acquisition.
type GrabMode int

const (
	// GrabSingle acquires exactly one frame.
	GrabSingle GrabMode = iota
	// GrabContinuous acquires frames until StopGrab.
	GrabContinuous
)

func (m GrabMode) String() string {
	switch m {
	case GrabSingle:
		return "single"
	case GrabContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// Frame is one hardware acquisition result. Frames are immutable once
// constructed; a newer frame supersedes rather than mutates its predecessor.
// Metadata fields mirror the camera SDK's frame property block as named
// fields.
type Frame struct {
	Seq               uint64
	CameraID          int
	ExposureTimeUS    int
	Timestamp         int64 // unix nanoseconds at acquisition
	TriggerOccurred   bool
	TriggerEventCount int
	OverSaturated     bool
	LightShieldValue  int

	// Raw holds one intensity per sensor pixel. Required.
	Raw []float64
	// Calibrated and AbsoluteIntensity are secondary SDK outputs; either
	// may be nil.
	Calibrated        []float64
	AbsoluteIntensity []float64
}

// FrameSource is the hardware-driver contract the engine consumes. Frame
// callbacks are invoked on the driver's goroutine and must stay O(1)
// non-blocking; FrameBridge.OnHardwareFrame satisfies that.
type FrameSource interface {
	// AddFrameCallback registers a callback for every acquired frame.
	AddFrameCallback(func(*Frame))
	// LastFrame returns the most recently acquired frame, or nil before
	// the first acquisition.
	LastFrame() *Frame
	// StartGrab begins acquisition. Fire-and-forget: completion is
	// observed only through subsequent frame delivery.
	StartGrab(mode GrabMode) error
	// StopGrab ceases acquisition. Idempotent.
	StopGrab()
	// SetExposure configures the sensor integration time.
	SetExposure(d time.Duration) error
}
