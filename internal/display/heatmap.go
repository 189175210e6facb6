package display

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/seatsense/internal/mlx"
	"github.com/banshee-data/seatsense/internal/monitoring"
	"github.com/banshee-data/seatsense/internal/units"
)

// HeatmapWriter writes one PNG heatmap snapshot per rendered grid,
// annotated with the hottest cell the way the device LCD marks it.
type HeatmapWriter struct {
	dir       string
	units     string
	sessionID string
	frameIdx  int
}

// NewHeatmapWriter creates a writer that stores snapshots under dir.
func NewHeatmapWriter(dir, displayUnits, sessionID string) (*HeatmapWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	return &HeatmapWriter{dir: dir, units: displayUnits, sessionID: sessionID}, nil
}

// gridXYZ adapts a TemperatureGrid to the plotter's grid interface.
// Plot rows grow upward, sensor rows grow downward, so Y is flipped.
type gridXYZ struct {
	g     *mlx.TemperatureGrid
	units string
}

func (d gridXYZ) Dims() (c, r int) { return d.g.Cols, d.g.Rows }
func (d gridXYZ) X(c int) float64  { return float64(c) }
func (d gridXYZ) Y(r int) float64  { return float64(r) }
func (d gridXYZ) Z(c, r int) float64 {
	return units.ConvertTemperature(d.g.At(d.g.Rows-1-r, c), d.units)
}

// Render writes one snapshot. Failures are logged and swallowed: display is
// a side tap and must never disturb detection or actuation.
func (w *HeatmapWriter) Render(g *mlx.TemperatureGrid) {
	w.frameIdx++

	p := plot.New()
	min, max := g.MinMax()
	p.Title.Text = fmt.Sprintf("seat thermal frame %d (device %.1f°C)", w.frameIdx, g.DeviceTempC)
	p.X.Label.Text = "col"
	p.Y.Label.Text = "row"

	hm := plotter.NewHeatMap(gridXYZ{g: g, units: w.units}, palette.Heat(12, 1))
	p.Add(hm)

	// Mark the hottest cell, matching the device's LCD annotation.
	if labels, err := hotCellLabel(g, w.units, min, max); err == nil {
		p.Add(labels)
	}

	name := filepath.Join(w.dir, fmt.Sprintf("%s_frame%04d.png", w.sessionID, w.frameIdx))
	if err := p.Save(6*vg.Inch, 4.5*vg.Inch, name); err != nil {
		monitoring.Logf("heatmap snapshot failed: %v", err)
	}
}

func hotCellLabel(g *mlx.TemperatureGrid, displayUnits string, min, max float64) (*plotter.Labels, error) {
	if min == max {
		// Uniform grid: nothing worth marking.
		return plotter.NewLabels(plotter.XYLabels{})
	}

	hotRow, hotCol := 0, 0
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if g.At(row, col) == max {
				hotRow, hotCol = row, col
				row = g.Rows // stop at the first (topmost) occurrence
				break
			}
		}
	}

	return plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: float64(hotCol), Y: float64(g.Rows - 1 - hotRow)}},
		Labels: []string{fmt.Sprintf("%.1f°%s", units.ConvertTemperature(max, displayUnits), displayUnits)},
	})
}
