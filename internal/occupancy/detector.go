// Package occupancy decides whether a temperature grid represents an
// occupied seat. The detector is the only component that carries state
// across acquisition cycles; everything downstream reads its DetectionState
// and nothing may bypass it to reach raw grid data.
package occupancy

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/seatsense/internal/mlx"
)

// Classification is the emitted seat state.
type Classification string

const (
	Occupied Classification = "occupied"
	Vacant   Classification = "vacant"
	// Unknown is the initial state and the degraded state after repeated
	// frame loss. It always renders as fail-safe (no actuation).
	Unknown Classification = "unknown"
)

// Cell identifies a grid position.
type Cell struct {
	Row int
	Col int
}

// State is the detector's per-cycle output and carried-over state.
type State struct {
	// Classification is the emitted, hysteresis-filtered classification.
	Classification Classification

	// Focal is the center of the detected heat signature, or nil when the
	// current frame has no qualifying cells.
	Focal *Cell

	// Confidence is the qualifying-cell count normalized against grid
	// size, clamped to [0,1].
	Confidence float64

	// PendingRaw and Agreement track the hysteresis window: the raw
	// classification currently accumulating consecutive agreement.
	PendingRaw Classification
	Agreement  int

	// Losses counts consecutive frame losses (timeouts and checksum
	// failures) since the last validated frame.
	Losses int
}

// InitialState returns the reset state: Unknown, no focal cell, no history.
func InitialState() State {
	return State{Classification: Unknown}
}

// Detector analyzes temperature grids against configured thresholds.
type Detector struct {
	occupiedTempDelta float64
	minOccupiedPixels int
	hysteresisFrames  int
	lossThreshold     int
}

// NewDetector creates a Detector. All parameters are fixed for the
// detector's lifetime; tuning changes require a restart.
func NewDetector(occupiedTempDelta float64, minOccupiedPixels, hysteresisFrames, lossThreshold int) *Detector {
	return &Detector{
		occupiedTempDelta: occupiedTempDelta,
		minOccupiedPixels: minOccupiedPixels,
		hysteresisFrames:  hysteresisFrames,
		lossThreshold:     lossThreshold,
	}
}

// Detect classifies one grid and folds the result into the prior state.
//
// The ambient baseline is the grid median, which a single hot cluster cannot
// skew the way it would a mean. Cells at least occupiedTempDelta above the
// baseline qualify; enough qualifying cells make the frame's raw
// classification Occupied. The emitted classification only changes once the
// raw classification has agreed for hysteresisFrames consecutive cycles, so
// a single noisy frame can never flip the output.
func (d *Detector) Detect(g *mlx.TemperatureGrid, prior State) State {
	baseline := gridMedian(g)

	var (
		count     int
		focal     *Cell
		focalTemp float64
	)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			temp := g.At(row, col)
			if temp-baseline < d.occupiedTempDelta {
				continue
			}
			count++
			// Strict > keeps the smallest row, then column, on ties:
			// cells are visited in row-major order.
			if focal == nil || temp > focalTemp {
				focal = &Cell{Row: row, Col: col}
				focalTemp = temp
			}
		}
	}

	raw := Vacant
	if count >= d.minOccupiedPixels {
		raw = Occupied
	}

	next := State{
		Classification: prior.Classification,
		Focal:          focal,
		Confidence:     clamp01(float64(count) / float64(g.Rows*g.Cols)),
	}

	if raw == prior.PendingRaw {
		next.PendingRaw = raw
		next.Agreement = prior.Agreement + 1
		if next.Agreement > d.hysteresisFrames {
			next.Agreement = d.hysteresisFrames // cap; only the threshold matters
		}
	} else {
		next.PendingRaw = raw
		next.Agreement = 1
	}

	if next.Agreement >= d.hysteresisFrames {
		next.Classification = raw
	}

	// A validated frame ends any loss streak.
	next.Losses = 0

	return next
}

// RecordLoss folds one lost acquisition cycle (timeout or checksum failure)
// into the state. Transient UART noise must not flip the output, so the
// classification only degrades to Unknown after lossThreshold consecutive
// losses.
func (d *Detector) RecordLoss(prior State) State {
	next := prior
	next.Losses++

	if next.Losses >= d.lossThreshold {
		next.Classification = Unknown
		next.Confidence = 0
		next.Focal = nil
		next.PendingRaw = ""
		next.Agreement = 0
	}

	return next
}

// gridMedian returns the median cell temperature.
func gridMedian(g *mlx.TemperatureGrid) float64 {
	sorted := make([]float64, len(g.Cells))
	copy(sorted, g.Cells)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
