// Package haptics translates detection states into actuator commands. The
// controller is the only path to the vibration motor: commands derive from
// DetectionState transitions alone, so haptic output can never bypass the
// detector's debouncing.
package haptics

import (
	"context"
	"time"

	"github.com/banshee-data/seatsense/internal/occupancy"
	"github.com/banshee-data/seatsense/internal/timeutil"
)

// Command is the desired actuator level.
type Command struct {
	Active bool

	// Intensity is the drive strength in [0,1]; meaningful only when Active.
	Intensity float64
}

// Inactive is the fail-safe command: motor off.
var Inactive = Command{}

// Actuator is the vibration motor driver. Drivers may model a level or a
// toggle; the controller only forwards changed commands, so repeating a
// command is always safe.
type Actuator interface {
	SetCommand(ctx context.Context, cmd Command) error
}

// Controller maps detection states to actuator commands with debouncing.
type Controller struct {
	actuator     Actuator
	clock        timeutil.Clock
	minIntensity float64
	repulse      time.Duration

	lastApplied *Command
	lastPulseAt time.Time
}

// NewController creates a Controller. minIntensity floors the drive strength
// for weak-but-agreed vacancy signals; repulse is the minimum interval
// between activations, carried over from the sensor unit's original
// vibration spacing.
func NewController(actuator Actuator, clock timeutil.Clock, minIntensity float64, repulse time.Duration) *Controller {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Controller{
		actuator:     actuator,
		clock:        clock,
		minIntensity: minIntensity,
		repulse:      repulse,
	}
}

// Translate maps a detection state to an actuator command.
//
// Occupied means the seat is taken: no alert. Unknown means the data is
// missing or corrupt: fail-safe, never vibrate on uncertainty. Vacant
// alerts with intensity rising monotonically with vacancy confidence.
func (c *Controller) Translate(s occupancy.State) Command {
	if s.Classification != occupancy.Vacant {
		return Inactive
	}

	vacancy := 1 - s.Confidence
	if vacancy < 0 {
		vacancy = 0
	}
	return Command{
		Active:    true,
		Intensity: c.minIntensity + (1-c.minIntensity)*vacancy,
	}
}

// Apply issues a command to the actuator. Repeating the previous command is
// a no-op, and activations are spaced at least the re-pulse interval apart;
// a deferred activation is retried naturally on the next cycle. Deactivation
// always goes through immediately.
func (c *Controller) Apply(ctx context.Context, cmd Command) error {
	if c.lastApplied != nil && *c.lastApplied == cmd {
		return nil
	}

	if cmd.Active && !c.lastPulseAt.IsZero() && c.clock.Since(c.lastPulseAt) < c.repulse {
		return nil
	}

	if err := c.actuator.SetCommand(ctx, cmd); err != nil {
		return err
	}

	applied := cmd
	c.lastApplied = &applied
	if cmd.Active {
		c.lastPulseAt = c.clock.Now()
	}
	return nil
}

// Deactivate forces the motor off, used on shutdown so the actuator is never
// left buzzing.
func (c *Controller) Deactivate(ctx context.Context) error {
	return c.Apply(ctx, Inactive)
}
