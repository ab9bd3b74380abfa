package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/spectrum.report/internal/httputil"
	"github.com/banshee-data/spectrum.report/internal/spectro"
	"github.com/banshee-data/spectrum.report/internal/units"
)

// handleSpectrumChart renders both traces as an interactive line chart using
// go-echarts. This is a debugging-only endpoint (no auth) to inspect live
// spectra without a frontend.
func (ws *WebServer) handleSpectrumChart(w http.ResponseWriter, r *http.Request) {
	var snap spectro.Snapshot
	ws.engine.Do(func(ps *spectro.PlotSurface) { snap = ps.Snapshot() })

	if len(snap.Primary.X) == 0 && len(snap.Reference.X) == 0 {
		httputil.NotFound(w, "no spectrum data available")
		return
	}

	xAxisName := "Pixel"
	if snap.Primary.Unit == units.Wavelength {
		xAxisName = "Wavelength (nm)"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Spectrum", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Live Spectrum",
			Subtitle: fmt.Sprintf("frames=%d unit=%s subtract=%v", snap.FramesSeen, snap.Primary.Unit, snap.Primary.Subtracting),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: xAxisName, NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Intensity", NameLocation: "middle", NameGap: 45}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)

	addTrace := func(ts spectro.TraceSnapshot, color string) {
		if len(ts.X) == 0 || !ts.Visible {
			return
		}
		xs := make([]string, len(ts.X))
		ys := make([]opts.LineData, len(ts.Y))
		for i := range ts.X {
			xs[i] = fmt.Sprintf("%.4g", ts.X[i])
			ys[i] = opts.LineData{Value: ts.Y[i]}
		}
		line.SetXAxis(xs)
		line.AddSeries(ts.Name, ys,
			charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		)
	}
	addTrace(snap.Primary, "#4fc3f7")
	addTrace(snap.Reference, "#ff5252")

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
