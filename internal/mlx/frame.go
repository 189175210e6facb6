// Package mlx implements frame assembly and temperature mapping for
// MLX90640-class thermal imagers behind a UART bridge.
//
// The sensor streams fixed-length binary frames:
//
//	├── Start marker (2 bytes)  - 0x5A 0x5A
//	├── Length field (2 bytes)  - declared payload length, little-endian (not trusted)
//	├── Pixel words  (rows × cols × 2 bytes) - uint16 LE, centi-°C, row-major
//	├── Device temp  (2 bytes)  - sensor board temperature word, uint16 LE
//	└── Check field  (2 bytes)  - checksum over all preceding bytes, uint16 LE
//
// The default 32×24 sensor therefore produces 1544-byte frames. The UART may
// deliver any chunk size, stall, or drop bytes; the Assembler reconstructs
// aligned frames and rejects corrupt ones so a single dropped byte never
// cascades into permanent misalignment.
package mlx

import (
	"encoding/binary"
	"fmt"
)

// StartFlag is the frame start marker byte, repeated twice at frame start.
const StartFlag = 0x5A

// Fixed wire-format field sizes in bytes.
const (
	MarkerSize     = 2
	LengthSize     = 2
	HeaderSize     = MarkerSize + LengthSize
	DeviceTempSize = 2
	CheckFieldSize = 2
)

// Layout describes the sensor's pixel array geometry on the wire.
type Layout struct {
	Rows     int
	Cols     int
	WordSize int
}

// DefaultLayout returns the MLX90640 geometry: 32×24 pixels, 16-bit words.
func DefaultLayout() Layout {
	return Layout{Rows: 24, Cols: 32, WordSize: 2}
}

// PayloadSize returns the pixel payload length in bytes.
func (l Layout) PayloadSize() int {
	return l.Rows * l.Cols * l.WordSize
}

// FrameSize returns the total wire frame length in bytes.
func (l Layout) FrameSize() int {
	return HeaderSize + l.PayloadSize() + DeviceTempSize + CheckFieldSize
}

// Checksum computes a 16-bit integrity value over a byte region.
// The region covers every frame byte before the trailing check field,
// including the start marker and length header.
type Checksum func(data []byte) uint16

// Sum16 is the sensor's native integrity function: the additive sum of all
// little-endian 16-bit words, modulo 0x10000.
func Sum16(data []byte) uint16 {
	var sum uint16
	for i := 0; i+1 < len(data); i += 2 {
		sum += binary.LittleEndian.Uint16(data[i : i+2])
	}
	return sum
}

// Xor16 is an alternate integrity function: XOR of all little-endian
// 16-bit words. Some UART bridge firmwares use it in place of Sum16.
func Xor16(data []byte) uint16 {
	var x uint16
	for i := 0; i+1 < len(data); i += 2 {
		x ^= binary.LittleEndian.Uint16(data[i : i+2])
	}
	return x
}

// ChecksumByName resolves a configuration selector to a Checksum.
func ChecksumByName(name string) (Checksum, error) {
	switch name {
	case "sum16":
		return Sum16, nil
	case "xor16":
		return Xor16, nil
	default:
		return nil, fmt.Errorf("unknown checksum algorithm %q (valid: sum16, xor16)", name)
	}
}

// ValidatedFrame is a frame that passed the integrity check. It is immutable
// once produced and consumed exactly once by the temperature mapper.
type ValidatedFrame struct {
	// Payload holds the pixel words only; marker, length, and check bytes
	// are stripped during validation.
	Payload []byte

	// DeviceTempRaw is the sensor board temperature word. It is reported
	// for diagnostics and display; it plays no role in detection.
	DeviceTempRaw uint16
}

// Status classifies the outcome of one Ingest or TimeoutReset call.
type Status int

const (
	// StatusIncomplete means a full frame has not yet accumulated.
	StatusIncomplete Status = iota
	// StatusValidated means a complete frame passed its integrity check.
	StatusValidated
	// StatusChecksumFailed means a complete accumulation failed its
	// integrity check and was discarded.
	StatusChecksumFailed
	// StatusResynced means misaligned bytes were skipped to regain frame
	// alignment, with no complete frame yet.
	StatusResynced
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusIncomplete:
		return "incomplete"
	case StatusValidated:
		return "validated"
	case StatusChecksumFailed:
		return "checksum-failed"
	case StatusResynced:
		return "resynced"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FrameResult reports the outcome of feeding bytes to the Assembler.
type FrameResult struct {
	Status Status

	// Frame is non-nil only when Status is StatusValidated.
	Frame *ValidatedFrame

	// Dropped counts bytes discarded during this call, either to regain
	// marker alignment or because a corrupt accumulation was thrown away.
	Dropped int
}

// Assembler accumulates transport bytes into validated frames. It owns a
// RawFrame only transiently: the accumulation buffer lives until the frame
// validates or is discarded, and no partial frame ever survives a timeout.
type Assembler struct {
	layout   Layout
	checksum Checksum
	buf      []byte
}

// NewAssembler creates an Assembler for the given wire layout and integrity
// function.
func NewAssembler(layout Layout, checksum Checksum) *Assembler {
	if checksum == nil {
		checksum = Sum16
	}
	return &Assembler{layout: layout, checksum: checksum}
}

// Buffered reports how many bytes are currently accumulated.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Layout returns the wire layout this assembler was built for.
func (a *Assembler) Layout() Layout {
	return a.layout
}

// Ingest feeds a chunk of transport bytes to the assembler. Chunks may be any
// size, including empty. Bytes beyond one complete frame stay buffered for
// the next call, so back-to-back frames in a single chunk are not lost.
func (a *Assembler) Ingest(p []byte) FrameResult {
	a.buf = append(a.buf, p...)

	dropped := a.align()

	frameSize := a.layout.FrameSize()
	if len(a.buf) < frameSize {
		if dropped > 0 {
			return FrameResult{Status: StatusResynced, Dropped: dropped}
		}
		return FrameResult{Status: StatusIncomplete}
	}

	frame := a.buf[:frameSize]
	checkRegion := frame[:frameSize-CheckFieldSize]
	want := binary.LittleEndian.Uint16(frame[frameSize-CheckFieldSize:])

	if got := a.checksum(checkRegion); got != want {
		// Discard the corrupt accumulation. The remainder (which may hold
		// the start of a genuine frame) is kept and realigned on the next
		// call, so one bad byte costs at most one frame.
		a.buf = a.buf[frameSize:]
		return FrameResult{Status: StatusChecksumFailed, Dropped: dropped + frameSize}
	}

	payloadEnd := HeaderSize + a.layout.PayloadSize()
	validated := &ValidatedFrame{
		Payload:       append([]byte(nil), frame[HeaderSize:payloadEnd]...),
		DeviceTempRaw: binary.LittleEndian.Uint16(frame[payloadEnd : payloadEnd+DeviceTempSize]),
	}
	a.buf = a.buf[frameSize:]

	return FrameResult{Status: StatusValidated, Frame: validated, Dropped: dropped}
}

// TimeoutReset discards any partial accumulation after the caller's read
// deadline elapsed. Bounding staleness this way means a frame started before
// a stall is never completed with bytes that arrive seconds later.
func (a *Assembler) TimeoutReset() FrameResult {
	dropped := len(a.buf)
	a.buf = a.buf[:0]
	return FrameResult{Status: StatusIncomplete, Dropped: dropped}
}

// align drops leading bytes until the buffer starts with the two-byte start
// marker (or with a trailing lone marker byte that may begin one). Returns
// the number of bytes dropped.
func (a *Assembler) align() int {
	dropped := 0
	for len(a.buf) > 0 {
		if a.buf[0] == StartFlag {
			if len(a.buf) == 1 || a.buf[1] == StartFlag {
				break
			}
			// Lone 0x5A not followed by its pair: skip it.
		}
		a.buf = a.buf[1:]
		dropped++
	}
	if dropped > 0 && len(a.buf) > 0 {
		// Avoid holding a reference into the discarded prefix.
		a.buf = append([]byte(nil), a.buf...)
	}
	return dropped
}
