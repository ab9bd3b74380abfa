package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/spectrum.report/internal/config"
	"github.com/banshee-data/spectrum.report/internal/monitoring"
	"github.com/banshee-data/spectrum.report/internal/spectro"
	"github.com/banshee-data/spectrum.report/internal/spectro/driver"
	"github.com/banshee-data/spectrum.report/internal/spectro/monitor"
	"github.com/banshee-data/spectrum.report/internal/spectro/render"
	"github.com/banshee-data/spectrum.report/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode with a synthetic camera")
	listen     = flag.String("listen", ":8080", "Listen address for the monitor server")
	serialPort = flag.String("port", "/dev/ttyACM0", "Serial port for the camera")
	configPath = flag.String("config", "", "Path to a tuning config JSON file")
	exposureMS = flag.Int("exposure-ms", 0, "Sensor exposure in milliseconds (overrides config)")
	debugLog   = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	monitoring.Debug = *debugLog

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	exposure := cfg.GetExposureTime()
	if *exposureMS > 0 {
		exposure = time.Duration(*exposureMS) * time.Millisecond
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	surf := render.NewSurface(render.SurfaceConfig{
		WidthPx:  cfg.GetPlotWidthPx(),
		HeightPx: cfg.GetPlotHeightPx(),
		Title:    "Spectrum",
		XLabel:   "Pixel",
		YLabel:   "Intensity",
		XMin:     0,
		XMax:     float64(cfg.GetSensorPixels() - 1),
	})

	ws := monitor.NewWebServer(monitor.WebServerConfig{Address: *listen})

	ps, err := spectro.NewPlotSurface(spectro.PlotSurfaceConfig{
		Surface:               surf,
		Sink:                  ws,
		BoundsTolerance:       cfg.GetBoundsTolerance(),
		CrosshairHalfWidthPx:  cfg.GetCrosshairHalfWidthPx(),
		CrosshairHalfHeightPx: cfg.GetCrosshairHalfHeightPx(),
	})
	if err != nil {
		log.Fatalf("failed to build plot surface: %v", err)
	}

	engine := spectro.NewEngine(spectro.NewFrameBridge(cfg.GetTickInterval()), ps)
	ws.AttachEngine(engine)

	var wg sync.WaitGroup

	// camera wiring: synthetic in dev mode, serial hardware otherwise
	if *devMode {
		cam := driver.NewMockCamera(driver.MockCameraConfig{
			Pixels: cfg.GetSensorPixels(),
		})
		engine.Attach(cam)
		if err := cam.SetExposure(exposure); err != nil {
			log.Fatalf("failed to set exposure: %v", err)
		}
		if err := cam.StartGrab(spectro.GrabContinuous); err != nil {
			log.Fatalf("failed to start grab: %v", err)
		}
		defer cam.StopGrab()
	} else {
		cam, err := driver.OpenSerialCamera(driver.SerialCameraConfig{
			Port:   *serialPort,
			Baud:   cfg.GetSerialBaud(),
			Pixels: cfg.GetSensorPixels(),
		})
		if err != nil {
			log.Fatalf("failed to open camera: %v", err)
		}
		engine.Attach(cam)

		// run the monitor routine to manage IO on the serial port
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := cam.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("camera monitor routine terminated")
		}()

		if err := cam.SetExposure(exposure); err != nil {
			log.Fatalf("failed to set exposure: %v", err)
		}
		if err := cam.StartGrab(spectro.GrabContinuous); err != nil {
			log.Fatalf("failed to start grab: %v", err)
		}
		defer cam.StopGrab()
	}

	// render loop goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("engine terminated: %v", err)
		}
		log.Print("render loop terminated")
	}()

	// HTTP monitor goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ws.Start(ctx); err != nil {
			log.Printf("monitor server error: %v", err)
		}
	}()

	log.Printf("spectrum.report %s: %d pixels, %v tick, monitor on %s",
		version.String(), cfg.GetSensorPixels(), cfg.GetTickInterval(), *listen)

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
