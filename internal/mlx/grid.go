package mlx

import "encoding/binary"

// TemperatureGrid is a fully populated 2-D array of calibrated per-pixel
// temperatures in °C, row-major. Grids are rebuilt whole each cycle and
// never patched incrementally; every cell is finite by construction.
type TemperatureGrid struct {
	Rows  int
	Cols  int
	Cells []float64

	// DeviceTempC is the sensor board temperature, for diagnostics only.
	DeviceTempC float64
}

// At returns the temperature at the given row and column.
func (g *TemperatureGrid) At(row, col int) float64 {
	return g.Cells[row*g.Cols+col]
}

// MinMax returns the coolest and hottest cell values, used for display
// scaling. A single-valued grid returns an equal min and max.
func (g *TemperatureGrid) MinMax() (min, max float64) {
	min, max = g.Cells[0], g.Cells[0]
	for _, v := range g.Cells[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Mapper converts validated frames into temperature grids by applying a
// linear transform to each raw sensor word: °C = raw×Scale + Offset. The
// transform constants come from configuration, never from the frame itself.
type Mapper struct {
	layout Layout
	scale  float64
	offset float64
}

// NewMapper creates a Mapper for the given layout and transform constants.
func NewMapper(layout Layout, scale, offset float64) *Mapper {
	return &Mapper{layout: layout, scale: scale, offset: offset}
}

// Map converts a validated frame into a temperature grid. It is pure and
// total: identical input always yields bit-identical output, and no frame
// that passed validation can fail to map.
func (m *Mapper) Map(f *ValidatedFrame) *TemperatureGrid {
	grid := &TemperatureGrid{
		Rows:        m.layout.Rows,
		Cols:        m.layout.Cols,
		Cells:       make([]float64, m.layout.Rows*m.layout.Cols),
		DeviceTempC: float64(f.DeviceTempRaw)*m.scale + m.offset,
	}

	for i := range grid.Cells {
		off := i * m.layout.WordSize
		raw := binary.LittleEndian.Uint16(f.Payload[off : off+2])
		grid.Cells[i] = float64(raw)*m.scale + m.offset
	}

	return grid
}
