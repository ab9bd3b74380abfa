// camera-sim emulates the spectrometer camera firmware on a serial port:
// it answers the grab and exposure commands and streams synthetic frame
// records. Point the main binary at the other end of a virtual serial pair
// (e.g. socat -d -d pty,raw,echo=0 pty,raw,echo=0) to exercise the full
// wire path without hardware.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/banshee-data/spectrum.report/internal/spectro"
	"github.com/banshee-data/spectrum.report/internal/spectro/driver"
)

var (
	portName = flag.String("port", "", "Serial port to serve frames on (required)")
	baud     = flag.Int("baud", 921600, "Baud rate")
	pixels   = flag.Int("pixels", spectro.DefaultSensorPixels, "Sensor pixel count")
	interval = flag.Duration("interval", 33*time.Millisecond, "Frame period in continuous mode")
)

func main() {
	flag.Parse()

	if *portName == "" {
		log.Fatal("-port is required")
	}

	mode := &serial.Mode{
		BaudRate: *baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(*portName, mode)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *portName, err)
	}
	defer port.Close()

	cam := driver.NewMockCamera(driver.MockCameraConfig{
		Pixels:   *pixels,
		Interval: *interval,
	})

	// Frame callbacks arrive on the camera goroutine; serialise port writes.
	var writeMu sync.Mutex
	cam.AddFrameCallback(func(f *spectro.Frame) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := driver.WriteFrame(port, f); err != nil {
			log.Printf("failed to write frame: %v", err)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		cam.StopGrab()
		port.Close()
	}()

	log.Printf("camera-sim serving %d-pixel frames on %s", *pixels, *portName)

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		command := strings.TrimSpace(scanner.Text())
		switch {
		case command == "G1":
			if err := cam.StartGrab(spectro.GrabSingle); err != nil {
				log.Printf("single grab: %v", err)
			}
		case command == "GC":
			if err := cam.StartGrab(spectro.GrabContinuous); err != nil {
				log.Printf("continuous grab: %v", err)
			}
		case command == "GS":
			cam.StopGrab()
		case strings.HasPrefix(command, "E"):
			us, err := strconv.Atoi(command[1:])
			if err != nil || us <= 0 {
				log.Printf("bad exposure command %q", command)
				continue
			}
			if err := cam.SetExposure(time.Duration(us) * time.Microsecond); err != nil {
				log.Printf("set exposure: %v", err)
			}
		case command == "":
		default:
			log.Printf("unknown command %q", command)
		}
	}

	log.Print("camera-sim stopped")
}
