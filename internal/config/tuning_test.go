package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetSensorPixels(); got != 3648 {
		t.Errorf("GetSensorPixels default = %d, want 3648", got)
	}
	if got := cfg.GetTickInterval(); got != time.Second/30 {
		t.Errorf("GetTickInterval default = %v, want %v", got, time.Second/30)
	}
	if got := cfg.GetBoundsTolerance(); got != 1e-3 {
		t.Errorf("GetBoundsTolerance default = %g, want 1e-3", got)
	}
	if got := cfg.GetExposureTime(); got != 50*time.Millisecond {
		t.Errorf("GetExposureTime default = %v, want 50ms", got)
	}
	if got := cfg.GetPlotWidthPx(); got != 900 {
		t.Errorf("GetPlotWidthPx default = %d, want 900", got)
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{"tick_interval": "20ms", "sensor_pixels": 2048}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	if got := cfg.GetTickInterval(); got != 20*time.Millisecond {
		t.Errorf("GetTickInterval = %v, want 20ms", got)
	}
	if got := cfg.GetSensorPixels(); got != 2048 {
		t.Errorf("GetSensorPixels = %d, want 2048", got)
	}
	// Unset fields still fall back to defaults.
	if got := cfg.GetBoundsTolerance(); got != 1e-3 {
		t.Errorf("GetBoundsTolerance = %g, want default 1e-3", got)
	}
}

func TestLoadTuningConfigRoundTrip(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{"bounds_tolerance": 0.01, "plot_width_px": 640, "plot_height_px": 360}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	tol := 0.01
	w, h := 640, 360
	want := &TuningConfig{BoundsTolerance: &tol, PlotWidthPx: &w, PlotHeightPx: &h}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	path := writeConfig(t, "tuning.yaml", `tick_interval: 20ms`)
	if _, err := LoadTuningConfig(path); err == nil {
		t.Fatal("expected error for non-.json extension")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative pixels", `{"sensor_pixels": -1}`},
		{"bad exposure", `{"exposure_time": "soon"}`},
		{"zero tick", `{"tick_interval": "0s"}`},
		{"negative tolerance", `{"bounds_tolerance": -0.5}`},
		{"tiny plot", `{"plot_width_px": 10}`},
		{"zero baud", `{"serial_baud": 0}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "tuning.json", tc.body)
			if _, err := LoadTuningConfig(path); err == nil {
				t.Errorf("expected validation error for %s", tc.body)
			}
		})
	}
}
