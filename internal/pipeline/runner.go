// Package pipeline drives the acquisition loop: it pulls bytes from the
// sensor port, reassembles and validates frames, maps them to temperature
// grids, updates the occupancy estimate, and keeps the haptic actuator in
// step with it. Display sinks observe validated grids as a side tap and
// never influence detection or actuation.
package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/banshee-data/seatsense/internal/display"
	"github.com/banshee-data/seatsense/internal/haptics"
	"github.com/banshee-data/seatsense/internal/mlx"
	"github.com/banshee-data/seatsense/internal/monitoring"
	"github.com/banshee-data/seatsense/internal/occupancy"
	"github.com/banshee-data/seatsense/internal/transport"
)

// Pipeline owns one sensor port and the state machine fed by it. It is not
// safe for concurrent use; Run is the single writer of all of its fields.
type Pipeline struct {
	port       transport.BytePort
	assembler  *mlx.Assembler
	mapper     *mlx.Mapper
	detector   *occupancy.Detector
	controller *haptics.Controller
	sink       display.Sink

	sessionID string
	readBuf   []byte
	state     occupancy.State

	cycles    uint64
	validated uint64
	losses    uint64
}

// New wires the acquisition stages together. A nil sink is replaced with
// display.Noop so callers without a display do not need to special-case it.
// An empty sessionID gets a generated one; callers that also stamp snapshot
// filenames pass the same ID to their sinks.
func New(port transport.BytePort, assembler *mlx.Assembler, mapper *mlx.Mapper, detector *occupancy.Detector, controller *haptics.Controller, sink display.Sink, sessionID string) *Pipeline {
	if sink == nil {
		sink = display.Noop{}
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	return &Pipeline{
		port:       port,
		assembler:  assembler,
		mapper:     mapper,
		detector:   detector,
		controller: controller,
		sink:       sink,
		sessionID:  sessionID,
		readBuf:    make([]byte, assembler.Layout().FrameSize()),
		state:      occupancy.InitialState(),
	}
}

// SessionID identifies this run in log lines and snapshot filenames.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// State returns the current occupancy estimate.
func (p *Pipeline) State() occupancy.State {
	return p.state
}

// Stats reports cycle counters for the current run.
func (p *Pipeline) Stats() (cycles, validated, losses uint64) {
	return p.cycles, p.validated, p.losses
}

// RunOneCycle performs a single bounded read and processes whatever it
// yields. A read that returns data advances frame reassembly; a read that
// hits its deadline discards any stale partial frame and counts as a signal
// loss, as does a completed frame that fails its integrity check. The
// actuator command is re-derived and applied after every state change.
func (p *Pipeline) RunOneCycle(ctx context.Context) error {
	p.cycles++

	n, err := p.port.Read(p.readBuf)
	if err != nil {
		monitoring.Logf("session %s: port read failed: %v", p.sessionID, err)
		return p.recordLoss(ctx)
	}
	if n == 0 {
		// Deadline hit with no bytes. Anything buffered belongs to a
		// frame whose tail never arrived.
		res := p.assembler.TimeoutReset()
		if res.Dropped > 0 {
			monitoring.Logf("session %s: read timeout, discarded %d bytes of stale partial frame", p.sessionID, res.Dropped)
		}
		return p.recordLoss(ctx)
	}

	res := p.assembler.Ingest(p.readBuf[:n])
	switch res.Status {
	case mlx.StatusValidated:
		if res.Dropped > 0 {
			monitoring.Logf("session %s: resynced past %d bytes before valid frame", p.sessionID, res.Dropped)
		}
		grid := p.mapper.Map(res.Frame)
		p.state = p.detector.Detect(grid, p.state)
		p.validated++
		if err := p.actuate(ctx); err != nil {
			return err
		}
		p.sink.Render(grid)
		return nil
	case mlx.StatusChecksumFailed:
		monitoring.Logf("session %s: frame failed checksum, dropped %d bytes", p.sessionID, res.Dropped)
		return p.recordLoss(ctx)
	case mlx.StatusResynced:
		monitoring.Logf("session %s: skipped %d misaligned bytes", p.sessionID, res.Dropped)
		return nil
	default:
		// Mid-frame accumulation. Nothing to do until more bytes arrive.
		return nil
	}
}

// Run loops until ctx is cancelled. Cancellation is observed only between
// cycles so a frame in flight is never half-processed. On exit the actuator
// is forced inactive regardless of the state the loop ended in.
func (p *Pipeline) Run(ctx context.Context) error {
	monitoring.Logf("session %s: acquisition loop started", p.sessionID)
	defer func() {
		// Use a fresh context: the loop's context is already done.
		if err := p.controller.Deactivate(context.Background()); err != nil {
			monitoring.Logf("session %s: failed to deactivate actuator on shutdown: %v", p.sessionID, err)
		}
		monitoring.Logf("session %s: acquisition loop stopped after %d cycles (%d frames, %d losses)",
			p.sessionID, p.cycles, p.validated, p.losses)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := p.RunOneCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			monitoring.Logf("session %s: cycle error: %v", p.sessionID, err)
		}
	}
}

func (p *Pipeline) recordLoss(ctx context.Context) error {
	p.losses++
	prior := p.state.Classification
	p.state = p.detector.RecordLoss(p.state)
	if p.state.Classification != prior {
		monitoring.Logf("session %s: %d consecutive losses, occupancy now %s", p.sessionID, p.state.Losses, p.state.Classification)
	}
	return p.actuate(ctx)
}

func (p *Pipeline) actuate(ctx context.Context) error {
	return p.controller.Apply(ctx, p.controller.Translate(p.state))
}
