package session

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/andaru/sdll/framing"
)

var (
	// ErrTransport is returned when the Transport fails or misbehaves.
	ErrTransport = errors.New("transport failure")
	// ErrNoProgress is returned when the Transport accepts no bytes and
	// reports no error.
	ErrNoProgress = errors.New("transport made no progress")
)

// SendError describes a send aborted by the Transport. Accepted bytes of
// the frame were already handed over and cannot be recalled.
type SendError struct {
	// Accepted is the number of frame bytes the Transport accepted
	// before the failure.
	Accepted int
	// Frame is the length of the encoded frame.
	Frame int
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send aborted after %d of %d frame bytes: %v", e.Accepted, e.Frame, e.Err)
}

// Unwrap returns the underlying cause
func (e *SendError) Unwrap() error { return e.Err }

// Is reports every SendError as an ErrTransport
func (e *SendError) Is(target error) bool { return target == ErrTransport }

// Cause returns the underlying cause, for github.com/pkg/errors users
func (e *SendError) Cause() error { return e.Err }

// Transmitter is the transmit session of a link.
type Transmitter struct {
	buf       []byte
	staged    int
	transport Transport
	onSent    SentHandler
}

// NewTransmitter returns a Transmitter for the configuration cfg. The
// caller is responsible for validating cfg.
func NewTransmitter(cfg TransmitterConfig) *Transmitter {
	return &Transmitter{buf: cfg.Buffer, transport: cfg.Transport, onSent: cfg.OnSent}
}

// Send frames payload and flushes it through the Transport, returning
// len(payload) once the whole frame was accepted.
//
// If the frame does not fit the staging buffer framing.ErrOverflow is
// returned and the Transport is not called. Transport failures are
// reported as a *SendError; errors.Is matches it against ErrTransport
// and against the Transport's own error, or ErrNoProgress.
func (t *Transmitter) Send(payload []byte) (int, error) {
	n, err := framing.Encode(t.buf, payload)
	if err != nil {
		return 0, err
	}
	t.staged = n
	defer func() { t.staged = 0 }()

	for off := 0; off < n; {
		remaining := t.buf[off:n]
		w, err := t.transport.Transmit(remaining)
		switch {
		case err != nil:
			if w > 0 {
				off += min(w, len(remaining))
			}
			return 0, &SendError{Accepted: off, Frame: n, Err: errors.WithStack(err)}
		case w <= 0:
			return 0, &SendError{Accepted: off, Frame: n, Err: errors.WithStack(ErrNoProgress)}
		case w > len(remaining):
			return 0, &SendError{
				Accepted: off,
				Frame:    n,
				Err:      errors.Wrapf(ErrTransport, "accepted %d of %d bytes offered", w, len(remaining)),
			}
		}
		off += w
	}
	return len(payload), nil
}

// Sent notifies the configured SentHandler, if any, that payload was sent.
func (t *Transmitter) Sent(payload []byte) {
	if t.onSent != nil {
		t.onSent.OnSent(payload)
	}
}

// Staged returns the length of the frame currently being flushed, or zero.
func (t *Transmitter) Staged() int { return t.staged }

// Cap returns the staging buffer capacity.
func (t *Transmitter) Cap() int { return len(t.buf) }
