// Package display renders temperature grids for humans. Sinks are a
// read-only side tap off the pipeline: they never feed back into detection,
// and a failing sink must never affect actuation.
package display

import (
	"sync"

	"github.com/banshee-data/seatsense/internal/mlx"
)

// Sink consumes temperature grids, fire-and-forget. Implementations handle
// their own failures; Render has no error return on purpose.
type Sink interface {
	Render(g *mlx.TemperatureGrid)
}

// Noop is the default sink: it discards every grid.
type Noop struct{}

// Render discards the grid.
func (Noop) Render(*mlx.TemperatureGrid) {}

// Multi fans a grid out to several sinks in order.
type Multi []Sink

// Render forwards the grid to each sink.
func (m Multi) Render(g *mlx.TemperatureGrid) {
	for _, s := range m {
		s.Render(g)
	}
}

// MockSink records rendered grids for testing.
type MockSink struct {
	mu    sync.Mutex
	grids []*mlx.TemperatureGrid
}

// NewMockSink creates a new MockSink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Render records the grid.
func (m *MockSink) Render(g *mlx.TemperatureGrid) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grids = append(m.grids, g)
}

// Count returns how many grids were rendered.
func (m *MockSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.grids)
}

// Last returns the most recently rendered grid, or nil.
func (m *MockSink) Last() *mlx.TemperatureGrid {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.grids) == 0 {
		return nil
	}
	return m.grids[len(m.grids)-1]
}
