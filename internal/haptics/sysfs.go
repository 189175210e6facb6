package haptics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/banshee-data/seatsense/internal/monitoring"
)

// SysfsActuator drives a vibration motor through a Linux PWM channel
// exported under sysfs (for example /sys/class/pwm/pwmchip0/pwm0). Intensity
// maps linearly onto the duty cycle.
type SysfsActuator struct {
	dir    string
	period time.Duration
}

// DefaultPWMPeriod is a 25 kHz carrier, above the audible range of the
// coin motor used on the reference hardware.
const DefaultPWMPeriod = 40 * time.Microsecond

// NewSysfsActuator configures the PWM channel rooted at dir. The period file
// is written once here; SetCommand only touches duty_cycle and enable.
func NewSysfsActuator(dir string, period time.Duration) (*SysfsActuator, error) {
	if period <= 0 {
		period = DefaultPWMPeriod
	}
	a := &SysfsActuator{dir: dir, period: period}
	if err := a.writeAttr("period", strconv.FormatInt(period.Nanoseconds(), 10)); err != nil {
		return nil, fmt.Errorf("failed to configure pwm period: %w", err)
	}
	return a, nil
}

// SetCommand applies cmd to the channel. Duty cycle is written before enable
// so the motor never sees a stale duty value while on.
func (a *SysfsActuator) SetCommand(_ context.Context, cmd Command) error {
	duty := int64(0)
	if cmd.Active {
		duty = int64(cmd.Intensity * float64(a.period.Nanoseconds()))
	}
	if err := a.writeAttr("duty_cycle", strconv.FormatInt(duty, 10)); err != nil {
		return fmt.Errorf("failed to set pwm duty cycle: %w", err)
	}
	enable := "0"
	if cmd.Active {
		enable = "1"
	}
	if err := a.writeAttr("enable", enable); err != nil {
		return fmt.Errorf("failed to set pwm enable: %w", err)
	}
	return nil
}

func (a *SysfsActuator) writeAttr(name, value string) error {
	return os.WriteFile(filepath.Join(a.dir, name), []byte(value), 0644)
}

// LogActuator logs each command instead of driving hardware. Used in dev
// mode and as a fallback when no PWM channel is configured.
type LogActuator struct{}

func (LogActuator) SetCommand(_ context.Context, cmd Command) error {
	if cmd.Active {
		monitoring.Logf("haptics: active at intensity %.2f", cmd.Intensity)
	} else {
		monitoring.Logf("haptics: inactive")
	}
	return nil
}
