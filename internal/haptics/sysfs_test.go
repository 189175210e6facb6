package haptics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAttr(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestSysfsActuatorConfiguresPeriod(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSysfsActuator(dir, 40*time.Microsecond)
	require.NoError(t, err)
	assert.Equal(t, "40000", readAttr(t, dir, "period"))
}

func TestSysfsActuatorZeroPeriodUsesDefault(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSysfsActuator(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, "40000", readAttr(t, dir, "period"))
}

func TestSysfsActuatorActiveCommand(t *testing.T) {
	dir := t.TempDir()
	a, err := NewSysfsActuator(dir, 40*time.Microsecond)
	require.NoError(t, err)

	require.NoError(t, a.SetCommand(context.Background(), Command{Active: true, Intensity: 0.5}))
	assert.Equal(t, "20000", readAttr(t, dir, "duty_cycle"))
	assert.Equal(t, "1", readAttr(t, dir, "enable"))
}

func TestSysfsActuatorInactiveZeroesDuty(t *testing.T) {
	dir := t.TempDir()
	a, err := NewSysfsActuator(dir, 40*time.Microsecond)
	require.NoError(t, err)

	require.NoError(t, a.SetCommand(context.Background(), Command{Active: true, Intensity: 1}))
	require.NoError(t, a.SetCommand(context.Background(), Inactive))
	assert.Equal(t, "0", readAttr(t, dir, "duty_cycle"))
	assert.Equal(t, "0", readAttr(t, dir, "enable"))
}

func TestSysfsActuatorMissingChannel(t *testing.T) {
	_, err := NewSysfsActuator(filepath.Join(t.TempDir(), "missing"), time.Microsecond)
	assert.Error(t, err)
}

func TestLogActuatorNeverFails(t *testing.T) {
	a := LogActuator{}
	assert.NoError(t, a.SetCommand(context.Background(), Command{Active: true, Intensity: 0.7}))
	assert.NoError(t, a.SetCommand(context.Background(), Inactive))
}
