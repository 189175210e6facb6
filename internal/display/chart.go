package display

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/seatsense/internal/mlx"
	"github.com/banshee-data/seatsense/internal/monitoring"
	"github.com/banshee-data/seatsense/internal/units"
)

// ChartWriter renders the most recent grid as a standalone HTML heatmap,
// overwriting the same file each cycle so a browser refresh always shows the
// latest frame.
type ChartWriter struct {
	path  string
	units string
}

// NewChartWriter creates a writer storing the chart under dir.
func NewChartWriter(dir, displayUnits, sessionID string) (*ChartWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chart dir: %w", err)
	}
	return &ChartWriter{
		path:  filepath.Join(dir, sessionID+"_latest.html"),
		units: displayUnits,
	}, nil
}

// Render overwrites the chart file with the given grid. Failures are logged
// and swallowed.
func (w *ChartWriter) Render(g *mlx.TemperatureGrid) {
	f, err := os.Create(w.path)
	if err != nil {
		monitoring.Logf("chart render failed: %v", err)
		return
	}
	defer f.Close()

	if err := writeChart(g, w.units, f); err != nil {
		monitoring.Logf("chart render failed: %v", err)
	}
}

// writeChart renders one grid as an HTML heatmap to the given writer.
func writeChart(g *mlx.TemperatureGrid, displayUnits string, out io.Writer) error {
	min, max := g.MinMax()

	data := make([]opts.HeatMapData, 0, len(g.Cells))
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := units.ConvertTemperature(g.At(row, col), displayUnits)
			// ECharts rows grow upward; flip so sensor row 0 is at the top.
			data = append(data, opts.HeatMapData{Value: [3]interface{}{col, g.Rows - 1 - row, v}})
		}
	}

	xAxis := make([]int, g.Cols)
	for i := range xAxis {
		xAxis[i] = i
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Seat Thermal Grid", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Seat thermal grid",
			Subtitle: fmt.Sprintf("%dx%d device=%.2f°C range=[%.1f, %.1f]", g.Cols, g.Rows, g.DeviceTempC, min, max),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(units.ConvertTemperature(min, displayUnits)),
			Max:        float32(units.ConvertTemperature(max, displayUnits)),
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)

	hm.SetXAxis(xAxis).AddSeries("temperature", data)
	return hm.Render(out)
}
