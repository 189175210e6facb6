package haptics

import (
	"context"
	"sync"
)

// MockActuator implements Actuator for testing, recording every command it
// receives.
type MockActuator struct {
	mu sync.Mutex

	// Commands records all commands in arrival order
	Commands []Command

	// Error is returned by the next SetCommand call if set
	Error error
}

// NewMockActuator creates a new MockActuator.
func NewMockActuator() *MockActuator {
	return &MockActuator{}
}

// SetCommand records the command or returns the configured error.
func (m *MockActuator) SetCommand(_ context.Context, cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Error != nil {
		err := m.Error
		m.Error = nil
		return err
	}

	m.Commands = append(m.Commands, cmd)
	return nil
}

// Last returns the most recently applied command, or the inactive command if
// none has been applied.
func (m *MockActuator) Last() Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Commands) == 0 {
		return Inactive
	}
	return m.Commands[len(m.Commands)-1]
}

// Count returns how many commands were applied.
func (m *MockActuator) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Commands)
}
