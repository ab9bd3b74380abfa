package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig represents the root configuration for the spectrometer engine.
// All fields are optional; the Get* accessors supply defaults so a partial
// JSON file is safe. The same schema backs both startup configuration and
// runtime inspection through the monitor endpoints.
type TuningConfig struct {
	// Acquisition params
	SensorPixels *int    `json:"sensor_pixels,omitempty"`
	ExposureTime *string `json:"exposure_time,omitempty"` // duration string like "50ms"

	// Render loop params
	TickInterval    *string  `json:"tick_interval,omitempty"` // duration string like "33ms"
	BoundsTolerance *float64 `json:"bounds_tolerance,omitempty"`
	PlotWidthPx     *int     `json:"plot_width_px,omitempty"`
	PlotHeightPx    *int     `json:"plot_height_px,omitempty"`

	// Crosshair params
	CrosshairHalfWidthPx  *float64 `json:"crosshair_half_width_px,omitempty"`
	CrosshairHalfHeightPx *float64 `json:"crosshair_half_height_px,omitempty"`

	// Serial driver params
	SerialBaud *int `json:"serial_baud,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SensorPixels != nil && *c.SensorPixels <= 0 {
		return fmt.Errorf("sensor_pixels must be positive, got %d", *c.SensorPixels)
	}

	if c.ExposureTime != nil && *c.ExposureTime != "" {
		if _, err := time.ParseDuration(*c.ExposureTime); err != nil {
			return fmt.Errorf("invalid exposure_time '%s': %w", *c.ExposureTime, err)
		}
	}

	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_interval must be positive, got %v", d)
		}
	}

	if c.BoundsTolerance != nil && *c.BoundsTolerance < 0 {
		return fmt.Errorf("bounds_tolerance must be non-negative, got %f", *c.BoundsTolerance)
	}

	if c.PlotWidthPx != nil && *c.PlotWidthPx < 100 {
		return fmt.Errorf("plot_width_px must be at least 100, got %d", *c.PlotWidthPx)
	}
	if c.PlotHeightPx != nil && *c.PlotHeightPx < 100 {
		return fmt.Errorf("plot_height_px must be at least 100, got %d", *c.PlotHeightPx)
	}

	if c.SerialBaud != nil && *c.SerialBaud <= 0 {
		return fmt.Errorf("serial_baud must be positive, got %d", *c.SerialBaud)
	}

	return nil
}

// GetSensorPixels returns the sensor pixel count or the default.
func (c *TuningConfig) GetSensorPixels() int {
	if c.SensorPixels == nil {
		return 3648 // Toshiba TCD1304-class line sensor
	}
	return *c.SensorPixels
}

// GetExposureTime parses and returns the ExposureTime as a time.Duration.
func (c *TuningConfig) GetExposureTime() time.Duration {
	if c.ExposureTime == nil || *c.ExposureTime == "" {
		return 50 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.ExposureTime)
	if err != nil {
		return 50 * time.Millisecond
	}
	return d
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *TuningConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return time.Second / 30
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil {
		return time.Second / 30
	}
	return d
}

// GetBoundsTolerance returns the axis-bounds comparison tolerance or the
// default. The value gates cheap incremental updates against full redraws;
// it is a performance knob, not a correctness one.
func (c *TuningConfig) GetBoundsTolerance() float64 {
	if c.BoundsTolerance == nil {
		return 1e-3
	}
	return *c.BoundsTolerance
}

// GetPlotWidthPx returns the render surface width in pixels or the default.
func (c *TuningConfig) GetPlotWidthPx() int {
	if c.PlotWidthPx == nil {
		return 900
	}
	return *c.PlotWidthPx
}

// GetPlotHeightPx returns the render surface height in pixels or the default.
func (c *TuningConfig) GetPlotHeightPx() int {
	if c.PlotHeightPx == nil {
		return 480
	}
	return *c.PlotHeightPx
}

// GetCrosshairHalfWidthPx returns the crosshair half-width in screen pixels.
func (c *TuningConfig) GetCrosshairHalfWidthPx() float64 {
	if c.CrosshairHalfWidthPx == nil {
		return 6
	}
	return *c.CrosshairHalfWidthPx
}

// GetCrosshairHalfHeightPx returns the crosshair half-height in screen pixels.
func (c *TuningConfig) GetCrosshairHalfHeightPx() float64 {
	if c.CrosshairHalfHeightPx == nil {
		return 6
	}
	return *c.CrosshairHalfHeightPx
}

// GetSerialBaud returns the serial baud rate or the default.
func (c *TuningConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 921600 // a 3648-pixel frame is ~7.3KB; 115200 baud cannot sustain 30fps
	}
	return *c.SerialBaud
}
