package transport

import (
	"errors"
	"sync"
	"time"
)

// TestablePort implements BytePort with configurable behaviour for testing.
// It delivers data as scripted chunks so tests can exercise the frame
// assembler against arbitrary fragmentation, truncation, and noise.
type TestablePort struct {
	mu sync.Mutex

	// chunks holds the scripted read results, delivered one per Read call.
	chunks [][]byte

	// ReadLatency adds a delay to each Read call
	ReadLatency time.Duration

	// ReadError is returned by the next Read call if set
	ReadError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration
}

// NewTestablePort creates a new TestablePort for testing.
func NewTestablePort() *TestablePort {
	return &TestablePort{}
}

// AddChunk scripts one Read result. Each Read call consumes at most one
// chunk, so callers control exactly how the byte stream is fragmented.
func (t *TestablePort) AddChunk(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	chunk := make([]byte, len(data))
	copy(chunk, data)
	t.chunks = append(t.chunks, chunk)
}

// Read returns the next scripted chunk. An empty script simulates a read
// deadline expiring: (0, nil), the same as a timed-out serial read.
func (t *TestablePort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.ReadLatency > 0 {
		t.mu.Unlock()
		time.Sleep(t.ReadLatency)
		t.mu.Lock()
	}

	if len(t.chunks) == 0 {
		return 0, nil // timeout
	}

	chunk := t.chunks[0]
	n = copy(p, chunk)
	if n < len(chunk) {
		t.chunks[0] = chunk[n:]
	} else {
		t.chunks = t.chunks[1:]
	}
	return n, nil
}

// Close marks the port as closed.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	return t.CloseError
}

// SetReadTimeout records the requested timeout.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// Pending reports how many scripted chunks remain undelivered.
func (t *TestablePort) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.chunks)
}

// Reset clears all scripted data and state.
func (t *TestablePort) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.chunks = nil
	t.ReadCalls = 0
	t.Closed = false
	t.ReadError = nil
	t.CloseError = nil
	t.ReadLatency = 0
}

// MockOpener returns an Opener that always yields the given port and
// records the paths and modes it was asked for.
type MockOpener struct {
	mu sync.Mutex

	// Port is the port to return from calls to Open
	Port BytePort

	// Error is returned by Open if set
	Error error

	// OpenCalls records all Open calls
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path string
	Mode *PortMode
}

// NewMockOpener creates a MockOpener returning the given port.
func NewMockOpener(port BytePort) *MockOpener {
	return &MockOpener{Port: port}
}

// Open returns the configured port or error.
func (f *MockOpener) Open(path string, mode *PortMode) (BytePort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, MockOpenCall{Path: path, Mode: mode})

	if f.Error != nil {
		return nil, f.Error
	}
	return f.Port, nil
}

// LastCall returns the most recent Open call, or nil if none.
func (f *MockOpener) LastCall() *MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.OpenCalls) == 0 {
		return nil
	}
	return &f.OpenCalls[len(f.OpenCalls)-1]
}
