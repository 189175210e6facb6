package pipeline

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/seatsense/internal/display"
	"github.com/banshee-data/seatsense/internal/haptics"
	"github.com/banshee-data/seatsense/internal/mlx"
	"github.com/banshee-data/seatsense/internal/occupancy"
	"github.com/banshee-data/seatsense/internal/timeutil"
	"github.com/banshee-data/seatsense/internal/transport"
)

// testLayout keeps frames small: 2×3 pixels, 20-byte frames.
var testLayout = mlx.Layout{Rows: 2, Cols: 3, WordSize: 2}

type harness struct {
	port     *transport.TestablePort
	actuator *haptics.MockActuator
	clock    *timeutil.MockClock
	sink     *display.MockSink
	pipe     *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	port := transport.NewTestablePort()
	actuator := haptics.NewMockActuator()
	clock := timeutil.NewMockClock(time.Unix(1_700_000_000, 0))
	sink := display.NewMockSink()

	pipe := New(
		port,
		mlx.NewAssembler(testLayout, mlx.Sum16),
		mlx.NewMapper(testLayout, 0.01, 0),
		occupancy.NewDetector(5.0, 2, 1, 3),
		haptics.NewController(actuator, clock, 0.2, 500*time.Millisecond),
		sink,
		"",
	)
	return &harness{port: port, actuator: actuator, clock: clock, sink: sink, pipe: pipe}
}

// buildFrame constructs a wire frame with a correct check field.
func buildFrame(t *testing.T, words []uint16, deviceTemp uint16) []byte {
	t.Helper()
	require.Len(t, words, testLayout.Rows*testLayout.Cols)

	frame := make([]byte, testLayout.FrameSize())
	frame[0] = mlx.StartFlag
	frame[1] = mlx.StartFlag
	binary.LittleEndian.PutUint16(frame[mlx.MarkerSize:], uint16(testLayout.PayloadSize()))
	for i, w := range words {
		binary.LittleEndian.PutUint16(frame[mlx.HeaderSize+i*testLayout.WordSize:], w)
	}
	payloadEnd := mlx.HeaderSize + testLayout.PayloadSize()
	binary.LittleEndian.PutUint16(frame[payloadEnd:], deviceTemp)
	sum := mlx.Sum16(frame[:len(frame)-mlx.CheckFieldSize])
	binary.LittleEndian.PutUint16(frame[len(frame)-mlx.CheckFieldSize:], sum)
	return frame
}

// vacantWords is a flat 22°C grid: nothing clears the occupancy delta.
func vacantWords() []uint16 {
	return []uint16{2200, 2200, 2200, 2200, 2200, 2200}
}

// occupiedWords has two 34°C cells against the 22°C background, enough for
// the harness detector's two-pixel minimum.
func occupiedWords() []uint16 {
	return []uint16{2200, 3400, 3400, 2200, 2200, 2200}
}

func TestRunOneCycleValidatedFrame(t *testing.T) {
	h := newHarness(t)
	h.port.AddChunk(buildFrame(t, vacantWords(), 3150))

	require.NoError(t, h.pipe.RunOneCycle(context.Background()))

	assert.Equal(t, occupancy.Vacant, h.pipe.State().Classification)
	require.Equal(t, 1, h.actuator.Count())
	assert.True(t, h.actuator.Last().Active)
	assert.InDelta(t, 1.0, h.actuator.Last().Intensity, 1e-9)
	require.Equal(t, 1, h.sink.Count())
	assert.InDelta(t, 22.0, h.sink.Last().At(0, 0), 1e-9)

	cycles, validated, losses := h.pipe.Stats()
	assert.Equal(t, uint64(1), cycles)
	assert.Equal(t, uint64(1), validated)
	assert.Equal(t, uint64(0), losses)
}

func TestRunOneCycleFrameSplitAcrossReads(t *testing.T) {
	h := newHarness(t)
	frame := buildFrame(t, vacantWords(), 3150)
	h.port.AddChunk(frame[:7])
	h.port.AddChunk(frame[7:13])
	h.port.AddChunk(frame[13:])

	ctx := context.Background()
	require.NoError(t, h.pipe.RunOneCycle(ctx))
	require.NoError(t, h.pipe.RunOneCycle(ctx))
	assert.Equal(t, 0, h.sink.Count(), "incomplete accumulation must not render")
	assert.Equal(t, 0, h.actuator.Count(), "incomplete accumulation must not actuate")

	require.NoError(t, h.pipe.RunOneCycle(ctx))
	assert.Equal(t, occupancy.Vacant, h.pipe.State().Classification)
	assert.Equal(t, 1, h.sink.Count())
}

func TestOccupancyTransitionFollowsArrivalOrder(t *testing.T) {
	h := newHarness(t)
	h.port.AddChunk(buildFrame(t, vacantWords(), 3150))
	h.port.AddChunk(buildFrame(t, occupiedWords(), 3150))

	ctx := context.Background()
	require.NoError(t, h.pipe.RunOneCycle(ctx))
	assert.Equal(t, occupancy.Vacant, h.pipe.State().Classification)

	require.NoError(t, h.pipe.RunOneCycle(ctx))
	st := h.pipe.State()
	assert.Equal(t, occupancy.Occupied, st.Classification)
	require.NotNil(t, st.Focal)
	assert.Equal(t, occupancy.Cell{Row: 0, Col: 1}, *st.Focal)

	// Vacant drove the motor on, occupancy shut it off.
	require.Equal(t, 2, h.actuator.Count())
	assert.False(t, h.actuator.Last().Active)
}

func TestChecksumFailuresDegradeToFailSafe(t *testing.T) {
	h := newHarness(t)
	h.port.AddChunk(buildFrame(t, vacantWords(), 3150))

	corrupt := buildFrame(t, vacantWords(), 3150)
	corrupt[mlx.HeaderSize] ^= 0xFF
	for i := 0; i < 3; i++ {
		h.port.AddChunk(append([]byte(nil), corrupt...))
	}

	ctx := context.Background()
	require.NoError(t, h.pipe.RunOneCycle(ctx))
	require.Equal(t, occupancy.Vacant, h.pipe.State().Classification)
	assert.True(t, h.actuator.Last().Active)

	require.NoError(t, h.pipe.RunOneCycle(ctx))
	require.NoError(t, h.pipe.RunOneCycle(ctx))
	assert.Equal(t, occupancy.Vacant, h.pipe.State().Classification,
		"two losses stay below the degradation threshold")

	require.NoError(t, h.pipe.RunOneCycle(ctx))
	assert.Equal(t, occupancy.Unknown, h.pipe.State().Classification)
	assert.False(t, h.actuator.Last().Active, "unknown occupancy must disable the motor")

	_, validated, losses := h.pipe.Stats()
	assert.Equal(t, uint64(1), validated)
	assert.Equal(t, uint64(3), losses)
}

func TestReadTimeoutDiscardsStalePartial(t *testing.T) {
	h := newHarness(t)
	frame := buildFrame(t, vacantWords(), 3150)
	h.port.AddChunk(frame[:9])
	// Script exhausted: the next read hits its deadline with (0, nil).

	ctx := context.Background()
	require.NoError(t, h.pipe.RunOneCycle(ctx))
	require.NoError(t, h.pipe.RunOneCycle(ctx))

	_, _, losses := h.pipe.Stats()
	assert.Equal(t, uint64(1), losses)

	// The discarded partial must not pollute the next complete frame.
	h.port.AddChunk(buildFrame(t, vacantWords(), 3150))
	require.NoError(t, h.pipe.RunOneCycle(ctx))
	assert.Equal(t, occupancy.Vacant, h.pipe.State().Classification)
}

func TestGarbageBeforeFrameIsSkippedWithoutLoss(t *testing.T) {
	h := newHarness(t)
	h.port.AddChunk([]byte{0x01, 0x02, 0x03, 0x04})
	h.port.AddChunk(buildFrame(t, vacantWords(), 3150))

	ctx := context.Background()
	require.NoError(t, h.pipe.RunOneCycle(ctx))
	require.NoError(t, h.pipe.RunOneCycle(ctx))

	_, validated, losses := h.pipe.Stats()
	assert.Equal(t, uint64(1), validated)
	assert.Equal(t, uint64(0), losses, "resync is alignment recovery, not signal loss")
	assert.Equal(t, occupancy.Vacant, h.pipe.State().Classification)
}

func TestRunStopsOnCancelAndDeactivates(t *testing.T) {
	h := newHarness(t)
	h.port.AddChunk(buildFrame(t, vacantWords(), 3150))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := h.pipe.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NotZero(t, h.actuator.Count())
	assert.False(t, h.actuator.Last().Active, "shutdown must leave the actuator off")
}

func TestSessionIDsAreUnique(t *testing.T) {
	a := newHarness(t)
	b := newHarness(t)
	assert.NotEmpty(t, a.pipe.SessionID())
	assert.NotEqual(t, a.pipe.SessionID(), b.pipe.SessionID())
}

func TestNilSinkDefaultsToNoop(t *testing.T) {
	port := transport.NewTestablePort()
	port.AddChunk(buildFrame(t, vacantWords(), 3150))
	actuator := haptics.NewMockActuator()
	pipe := New(
		port,
		mlx.NewAssembler(testLayout, mlx.Sum16),
		mlx.NewMapper(testLayout, 0.01, 0),
		occupancy.NewDetector(5.0, 2, 1, 3),
		haptics.NewController(actuator, timeutil.NewMockClock(time.Unix(0, 0)), 0.2, 0),
		nil,
		"",
	)

	require.NoError(t, pipe.RunOneCycle(context.Background()))
	assert.Equal(t, occupancy.Vacant, pipe.State().Classification)
}
