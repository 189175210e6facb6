package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerCaptures(t *testing.T) {
	defer SetLogger(nil)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	Logf("frame %d dropped", 7)
	if got != "frame 7 dropped" {
		t.Errorf("captured log = %q, want %q", got, "frame 7 dropped")
	}
}

func TestSetLoggerNilIsNoop(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Logf("ignored %v", 1)
	SetLogger(nil)
}
