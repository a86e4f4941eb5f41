package framing

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	// Boundary marks the start and the end of a frame.
	Boundary byte = 0x7E
	// Escape signals that the next byte is a masked literal.
	Escape byte = 0x7D
	// EscapeMask is XORed with escaped payload bytes.
	EscapeMask byte = 0x20

	// MinTransmitBufferSize is the smallest usable encode buffer: two
	// boundaries and one escaped payload byte.
	MinTransmitBufferSize = 4
	// MinReceiveBufferSize is the smallest usable decode buffer.
	MinReceiveBufferSize = 1
)

// ErrOverflow is returned when a frame does not fit the buffer it is
// being encoded into or decoded into.
var ErrOverflow = errors.New("frame exceeds buffer capacity")

// needsEscape reports whether b must be escaped inside a frame
func needsEscape(b byte) bool { return b == Boundary || b == Escape }

// EncodedLen returns the on-wire length of the frame carrying payload.
func EncodedLen(payload []byte) int {
	n := len(payload) + 2
	for _, b := range payload {
		if needsEscape(b) {
			n++
		}
	}
	return n
}

// Encode writes the frame for payload into dst and returns the number of
// bytes written. If dst is too small, ErrOverflow is returned and the
// content of dst is undefined.
func Encode(dst, payload []byte) (n int, err error) {
	put := func(b byte) bool {
		if n == len(dst) {
			return false
		}
		dst[n] = b
		n++
		return true
	}
	if !put(Boundary) {
		return 0, errors.WithStack(ErrOverflow)
	}
	for _, b := range payload {
		var ok bool
		if needsEscape(b) {
			ok = put(Escape) && put(b^EscapeMask)
		} else {
			ok = put(b)
		}
		if !ok {
			return 0, errors.WithStack(ErrOverflow)
		}
	}
	if !put(Boundary) {
		return 0, errors.WithStack(ErrOverflow)
	}
	return n, nil
}

// Append appends the frame for payload to dst, growing it as needed.
func Append(dst, payload []byte) []byte {
	dst = append(dst, Boundary)
	for _, b := range payload {
		if needsEscape(b) {
			dst = append(dst, Escape, b^EscapeMask)
		} else {
			dst = append(dst, b)
		}
	}
	return append(dst, Boundary)
}

// State is the Decoder's position relative to the frame stream.
type State int

const (
	// OutOfFrame discards everything but a Boundary.
	OutOfFrame State = iota
	// InFrame accumulates payload bytes.
	InFrame
	// InFrameEscaped unmasks the next byte.
	InFrameEscaped
)

func (s State) String() string {
	switch s {
	case OutOfFrame:
		return "out-of-frame"
	case InFrame:
		return "in-frame"
	case InFrameEscaped:
		return "in-frame-escaped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event is the outcome of a successful Decoder.Step.
type Event int

const (
	// Continue means more input is required.
	Continue Event = iota
	// FrameReady means Frame holds a complete (unvalidated) frame.
	FrameReady
)

// Decoder reconstructs frames one byte at a time into a fixed buffer.
//
// Its whole working state lives in the Decoder, so a frame may span any
// number of input chunks. Decoder is not safe for concurrent use.
type Decoder struct {
	buf   []byte
	n     int
	state State
}

// NewDecoder returns a Decoder accumulating frames into buf. Frames
// longer than len(buf) are rejected with ErrOverflow.
func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

// Step consumes b.
//
// After FrameReady, Frame returns the decoded payload until the next call
// to Step or Reset. When the buffer is full Step resets the Decoder and
// returns ErrOverflow; decoding resumes at the next Boundary. Two
// adjacent Boundary bytes yield no empty frame: the second opens the next.
func (d *Decoder) Step(b byte) (Event, error) {
	switch d.state {
	case OutOfFrame:
		if b == Boundary {
			d.state = InFrame
			d.n = 0
		}
	case InFrame:
		switch b {
		case Boundary:
			if d.n == 0 {
				// back to back boundaries; treat this one as an opener
				return Continue, nil
			}
			d.state = OutOfFrame
			return FrameReady, nil
		case Escape:
			d.state = InFrameEscaped
		default:
			return Continue, d.append(b)
		}
	case InFrameEscaped:
		d.state = InFrame
		return Continue, d.append(b ^ EscapeMask)
	}
	return Continue, nil
}

func (d *Decoder) append(b byte) error {
	if d.n == len(d.buf) {
		d.Reset()
		return errors.WithStack(ErrOverflow)
	}
	d.buf[d.n] = b
	d.n++
	return nil
}

// Frame returns the bytes accumulated so far. The slice aliases the
// Decoder's buffer.
func (d *Decoder) Frame() []byte { return d.buf[:d.n] }

// Len returns the number of accumulated payload bytes.
func (d *Decoder) Len() int { return d.n }

// Cap returns the decode buffer capacity.
func (d *Decoder) Cap() int { return len(d.buf) }

// State returns the current decoder state.
func (d *Decoder) State() State { return d.state }

// Reset discards any partial frame.
func (d *Decoder) Reset() {
	d.n = 0
	d.state = OutOfFrame
}
