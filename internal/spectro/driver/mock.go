package driver

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/banshee-data/spectrum.report/internal/monitoring"
	"github.com/banshee-data/spectrum.report/internal/spectro"
)

// MockCameraConfig configures the synthetic camera.
type MockCameraConfig struct {
	Pixels   int           // default spectro.DefaultSensorPixels
	Interval time.Duration // frame period, default 10ms (~100fps, faster than the render tick on purpose)
	CameraID int
	Seed     int64 // 0 seeds from the clock
}

// mockPeak is one synthetic emission line.
type mockPeak struct {
	center    float64 // pixel position
	amplitude float64
	sigma     float64
}

// MockCamera is a FrameSource producing synthetic spectra: a handful of
// Gaussian emission lines over a dark baseline with shot-style noise and a
// slow amplitude drift, so live plots visibly move. Used by -dev mode and
// tests.
type MockCamera struct {
	pixels   int
	interval time.Duration
	cameraID int
	exposure time.Duration

	rng *rand.Rand

	mu        sync.Mutex
	callbacks []func(*spectro.Frame)
	last      *spectro.Frame
	seq       uint64
	stop      chan struct{}

	peaks []mockPeak
}

// NewMockCamera creates a synthetic camera.
func NewMockCamera(cfg MockCameraConfig) *MockCamera {
	if cfg.Pixels <= 0 {
		cfg.Pixels = spectro.DefaultSensorPixels
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Millisecond
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	n := float64(cfg.Pixels)
	return &MockCamera{
		pixels:   cfg.Pixels,
		interval: cfg.Interval,
		cameraID: cfg.CameraID,
		exposure: 50 * time.Millisecond,
		rng:      rand.New(rand.NewSource(seed)),
		// Positions loosely modelled on a neon calibration lamp.
		peaks: []mockPeak{
			{center: 0.18 * n, amplitude: 9000, sigma: 4},
			{center: 0.31 * n, amplitude: 21000, sigma: 3},
			{center: 0.47 * n, amplitude: 36000, sigma: 5},
			{center: 0.52 * n, amplitude: 15000, sigma: 3},
			{center: 0.73 * n, amplitude: 27000, sigma: 6},
			{center: 0.88 * n, amplitude: 11000, sigma: 4},
		},
	}
}

// AddFrameCallback registers a callback invoked on the acquisition
// goroutine for every synthetic frame.
func (m *MockCamera) AddFrameCallback(fn func(*spectro.Frame)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// LastFrame returns the most recent synthetic frame, or nil.
func (m *MockCamera) LastFrame() *spectro.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// StartGrab begins synthetic acquisition.
func (m *MockCamera) StartGrab(mode spectro.GrabMode) error {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return ErrGrabInProgress
	}
	if mode == spectro.GrabSingle {
		m.mu.Unlock()
		m.emit()
		return nil
	}
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()

	monitoring.Logf("mock camera grabbing continuously every %v", m.interval)
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.emit()
			}
		}
	}()
	return nil
}

// StopGrab ceases continuous acquisition. Idempotent.
func (m *MockCamera) StopGrab() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

// SetExposure scales the synthetic signal like a longer integration would.
func (m *MockCamera) SetExposure(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exposure = d
	return nil
}

func (m *MockCamera) emit() {
	// rng draws stay under the mutex: a single grab issued right after
	// stopping a continuous one can overlap an in-flight tick emit.
	m.mu.Lock()
	m.seq++
	seq := m.seq
	gain := float64(m.exposure) / float64(50*time.Millisecond)
	cbs := make([]func(*spectro.Frame), len(m.callbacks))
	copy(cbs, m.callbacks)
	raw := make([]float64, m.pixels)
	for i := range raw {
		raw[i] = 420 + m.rng.NormFloat64()*12 // dark baseline + read noise
	}
	m.mu.Unlock()

	drift := 1 + 0.05*math.Sin(float64(seq)/40)
	for _, p := range m.peaks {
		lo := int(p.center - 6*p.sigma)
		hi := int(p.center + 6*p.sigma)
		if lo < 0 {
			lo = 0
		}
		if hi > m.pixels-1 {
			hi = m.pixels - 1
		}
		for i := lo; i <= hi; i++ {
			d := (float64(i) - p.center) / p.sigma
			raw[i] += gain * drift * p.amplitude * math.Exp(-0.5*d*d)
		}
	}
	var saturated bool
	for i := range raw {
		if raw[i] > 65535 {
			raw[i] = 65535
			saturated = true
		}
	}

	f := &spectro.Frame{
		Seq:              seq,
		CameraID:         m.cameraID,
		ExposureTimeUS:   int(m.exposure.Microseconds()),
		Timestamp:        time.Now().UnixNano(),
		OverSaturated:    saturated,
		LightShieldValue: 420,
		Raw:              raw,
	}

	m.mu.Lock()
	m.last = f
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(f)
	}
}
