// Package monitor exposes the running engine over HTTP: JSON snapshots of
// the traces, render and bridge statistics, a PNG of the latest rendered
// surface, and control endpoints for calibration, background capture and
// crosshair moves.
package monitor

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"image"
	"image/draw"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/spectrum.report/internal/httputil"
	"github.com/banshee-data/spectrum.report/internal/monitoring"
	"github.com/banshee-data/spectrum.report/internal/spectro"
	"github.com/banshee-data/spectrum.report/internal/units"
	"github.com/banshee-data/spectrum.report/internal/version"
)

//go:embed status.html
var statusHTML embed.FS

// WebServer handles the HTTP interface for monitoring the plotting engine.
type WebServer struct {
	address string
	engine  *spectro.Engine
	server  *http.Server
	started time.Time

	mu        sync.Mutex
	lastImage *image.RGBA
	flushes   uint64
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Engine  *spectro.Engine
}

// NewWebServer creates a new web server with the provided configuration.
// Pass the returned server as the render sink so /spectrum.png serves the
// live surface. The engine may be attached after construction with
// AttachEngine when the sink has to exist before the plot surface does.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		engine:  config.Engine,
		started: time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// AttachEngine binds the engine the handlers talk to. Must be called before
// Start when the config did not carry one.
func (ws *WebServer) AttachEngine(e *spectro.Engine) {
	ws.engine = e
}

// Flush receives each rendered frame from the blit manager and keeps a copy
// for the PNG endpoint. Runs on the engine goroutine, so the copy is cheap
// and the lock is held briefly.
func (ws *WebServer) Flush(img image.Image) {
	b := img.Bounds()
	cp := image.NewRGBA(b)
	draw.Draw(cp, b, img, b.Min, draw.Src)

	ws.mu.Lock()
	ws.lastImage = cp
	ws.flushes++
	ws.mu.Unlock()
}

// Start begins the HTTP server in a goroutine and blocks until ctx is
// cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	return nil
}

// Close shuts down the web server immediately.
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/spectrum", ws.handleSpectrum)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/calibration", ws.handleCalibration)
	mux.HandleFunc("/api/background", ws.handleBackground)
	mux.HandleFunc("/api/crosshair", ws.handleCrosshair)
	mux.HandleFunc("/api/units", ws.handleUnits)
	mux.HandleFunc("/spectrum.png", ws.handleSpectrumPNG)
	mux.HandleFunc("/debug/spectrum/chart", ws.handleSpectrumChart)

	return mux
}

// selectorParam parses the trace query parameter; primary when absent.
func selectorParam(r *http.Request) (spectro.Selector, error) {
	switch r.URL.Query().Get("trace") {
	case "", "primary":
		return spectro.Primary, nil
	case "reference":
		return spectro.Reference, nil
	default:
		return 0, fmt.Errorf("unknown trace %q", r.URL.Query().Get("trace"))
	}
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "spectro", "version": "%s", "timestamp": "%s"}`,
		version.Version, time.Now().UTC().Format(time.RFC3339))
}

// handleSpectrum returns the full trace snapshot as JSON. Calibrated x
// values are nanometres; ?scale=nm|angstrom|um rescales any trace displaying
// wavelengths.
func (ws *WebServer) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	scale := r.URL.Query().Get("scale")
	switch scale {
	case "", units.NM, units.A, units.UM:
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown scale %q, valid scales: %s, %s, %s",
			scale, units.NM, units.A, units.UM))
		return
	}

	var snap spectro.Snapshot
	ws.engine.Do(func(ps *spectro.PlotSurface) { snap = ps.Snapshot() })
	if scale != "" && scale != units.NM {
		rescaleTrace(&snap.Primary, scale)
		rescaleTrace(&snap.Reference, scale)
	}
	httputil.WriteJSONOK(w, snap)
}

// rescaleTrace converts a wavelength-mode trace's x values out of
// nanometres. Pixel-mode traces pass through untouched.
func rescaleTrace(t *spectro.TraceSnapshot, scale string) {
	if t.Unit != units.Wavelength {
		return
	}
	for i, x := range t.X {
		t.X[i] = units.ConvertWavelength(x, scale)
	}
	t.Crosshair.DisplayX = units.ConvertWavelength(t.Crosshair.DisplayX, scale)
}

type statsResponse struct {
	Uptime      string              `json:"uptime"`
	Bridge      spectro.BridgeStats `json:"bridge"`
	FullRedraws uint64              `json:"full_redraws"`
	Updates     uint64              `json:"updates"`
	FramesSeen  uint64              `json:"frames_seen"`
	Flushes     uint64              `json:"flushes"`
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Uptime: time.Since(ws.started).Round(time.Second).String(),
		Bridge: ws.engine.Bridge().Stats(),
	}
	ws.engine.Do(func(ps *spectro.PlotSurface) {
		rs := ps.RenderStats()
		resp.FullRedraws = rs.FullRedraws
		resp.Updates = rs.Updates
		resp.FramesSeen = ps.FramesSeen()
	})
	ws.mu.Lock()
	resp.Flushes = ws.flushes
	ws.mu.Unlock()

	httputil.WriteJSONOK(w, resp)
}

type calibrationRequest struct {
	Pixels       []float64 `json:"pixels"`
	Wavelengths  []float64 `json:"wavelengths"`
	Coefficients []float64 `json:"coefficients"`
}

// handleCalibration fits or installs calibration coefficients for a trace.
// POST with pixel/wavelength pairs to fit, or with coefficients to install
// directly; GET returns the current coefficients.
func (ws *WebServer) handleCalibration(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		var coeffs [4]float64
		ws.engine.Do(func(ps *spectro.PlotSurface) { coeffs = ps.FittingParams(sel) })
		httputil.WriteJSONOK(w, map[string]any{"coefficients": coeffs})
	case http.MethodPost:
		var req calibrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("decoding request: %v", err))
			return
		}
		var opErr error
		ws.engine.Do(func(ps *spectro.PlotSurface) {
			if len(req.Coefficients) > 0 {
				opErr = ps.SetCoefficients(sel, req.Coefficients)
				return
			}
			opErr = ps.Fit(sel, req.Pixels, req.Wavelengths)
		})
		if opErr != nil {
			httputil.UnprocessableEntity(w, opErr.Error())
			return
		}
		var coeffs [4]float64
		ws.engine.Do(func(ps *spectro.PlotSurface) { coeffs = ps.FittingParams(sel) })
		httputil.WriteJSONOK(w, map[string]any{"coefficients": coeffs})
	default:
		httputil.MethodNotAllowed(w)
	}
}

type backgroundRequest struct {
	Capture  bool  `json:"capture"`
	Subtract *bool `json:"subtract"`
}

// handleBackground arms background capture and toggles subtraction.
func (ws *WebServer) handleBackground(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	sel, err := selectorParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	var req backgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("decoding request: %v", err))
		return
	}

	ws.engine.Do(func(ps *spectro.PlotSurface) {
		if req.Capture {
			ps.CaptureBackgroundFromNextFrame()
		}
		if req.Subtract != nil {
			ps.SetBackgroundSubtraction(sel, *req.Subtract)
		}
	})
	w.WriteHeader(http.StatusNoContent)
}

type crosshairRequest struct {
	Index *int `json:"index"` // absolute sample index
	Delta int  `json:"delta"` // relative shift, used when index is absent
}

// handleCrosshair places or shifts a crosshair (POST) or returns its readout
// (GET).
func (ws *WebServer) handleCrosshair(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if r.Method == http.MethodPost {
		var req crosshairRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("decoding request: %v", err))
			return
		}
		var opErr error
		ws.engine.Do(func(ps *spectro.PlotSurface) {
			if req.Index != nil {
				opErr = ps.SetCrosshairIndex(sel, *req.Index)
				return
			}
			ps.MoveCrosshair(sel, req.Delta)
		})
		if opErr != nil {
			httputil.UnprocessableEntity(w, opErr.Error())
			return
		}
	}

	var readout spectro.CrosshairReadout
	ws.engine.Do(func(ps *spectro.PlotSurface) { readout = ps.CrosshairReadout(sel) })
	httputil.WriteJSONOK(w, readout)
}

type unitsRequest struct {
	Unit string `json:"unit"` // "pixel" or "wavelength"
}

func (ws *WebServer) handleUnits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	sel, err := selectorParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	var req unitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("decoding request: %v", err))
		return
	}
	if !units.IsValid(req.Unit) {
		httputil.BadRequest(w, fmt.Sprintf("unknown unit %q, valid units: %s", req.Unit, units.GetValidUnitsString()))
		return
	}
	mode := spectro.UnitPixel
	if req.Unit == units.Wavelength {
		mode = spectro.UnitWavelength
	}
	ws.engine.Do(func(ps *spectro.PlotSurface) { ps.SetUnitMode(sel, mode) })
	w.WriteHeader(http.StatusNoContent)
}

// handleSpectrumPNG serves the last rendered surface.
func (ws *WebServer) handleSpectrumPNG(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	img := ws.lastImage
	ws.mu.Unlock()
	if img == nil {
		httputil.NotFound(w, "no frame rendered yet")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		monitoring.Logf("encoding PNG: %v", err)
	}
}

// handleStatus handles the main status page endpoint.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	var snap spectro.Snapshot
	var rstats struct{ FullRedraws, Updates uint64 }
	ws.engine.Do(func(ps *spectro.PlotSurface) {
		snap = ps.Snapshot()
		rs := ps.RenderStats()
		rstats.FullRedraws = rs.FullRedraws
		rstats.Updates = rs.Updates
	})
	bstats := ws.engine.Bridge().Stats()

	tmpl, err := template.ParseFS(statusHTML, "status.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		HTTPAddress string
		Uptime      string
		Received    string
		Emitted     string
		Dropped     string
		FullRedraws string
		Updates     string
		FramesSeen  string
		PrimaryUnit string
		Subtracting bool
	}{
		HTTPAddress: ws.address,
		Uptime:      time.Since(ws.started).Round(time.Second).String(),
		Received:    humanize.Comma(int64(bstats.Received)),
		Emitted:     humanize.Comma(int64(bstats.Emitted)),
		Dropped:     humanize.Comma(int64(bstats.Dropped)),
		FullRedraws: humanize.Comma(int64(rstats.FullRedraws)),
		Updates:     humanize.Comma(int64(rstats.Updates)),
		FramesSeen:  humanize.Comma(int64(snap.FramesSeen)),
		PrimaryUnit: snap.Primary.Unit,
		Subtracting: snap.Primary.Subtracting,
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}
