package session

import (
	"fmt"

	"github.com/andaru/sdll/framing"
)

// Status describes how a call to Receiver.Feed ended.
type Status int

const (
	// FramePending means every byte was absorbed and no frame completed.
	FramePending Status = iota
	// FrameDelivered means a frame completed and was passed to the Handler.
	FrameDelivered
	// FrameDiscarded means a frame completed but the Validator rejected it.
	FrameDiscarded
)

func (s Status) String() string {
	switch s {
	case FramePending:
		return "pending"
	case FrameDelivered:
		return "delivered"
	case FrameDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Receiver is the receive session of a link.
type Receiver struct {
	dec       *framing.Decoder
	handler   Handler
	validator Validator
}

// NewReceiver returns a Receiver for the configuration cfg. The caller
// is responsible for validating cfg.
func NewReceiver(cfg ReceiverConfig) *Receiver {
	return &Receiver{
		dec:       framing.NewDecoder(cfg.Buffer),
		handler:   cfg.Handler,
		validator: cfg.Validator,
	}
}

// Feed consumes chunk until a frame completes or chunk is exhausted,
// returning the number of bytes consumed.
//
// When a frame completes Feed returns immediately after its closing
// boundary; the caller must feed chunk[n:] again to process the rest.
// If the frame overflows the buffer, the Receiver is reset and
// framing.ErrOverflow is returned; n includes the discarded byte.
func (r *Receiver) Feed(chunk []byte) (n int, st Status, err error) {
	for n < len(chunk) {
		ev, err := r.dec.Step(chunk[n])
		n++
		if err != nil {
			return n, FramePending, err
		}
		if ev == framing.FrameReady {
			return n, r.deliver(), nil
		}
	}
	return n, FramePending, nil
}

func (r *Receiver) deliver() (st Status) {
	frame := r.dec.Frame()
	if r.validator == nil || r.validator.Validate(frame) {
		r.handler.OnFrame(frame)
		st = FrameDelivered
	} else {
		st = FrameDiscarded
	}
	r.dec.Reset()
	return st
}

// Pending returns the number of bytes absorbed into the incomplete frame.
func (r *Receiver) Pending() int { return r.dec.Len() }

// Reset discards any partial frame.
func (r *Receiver) Reset() { r.dec.Reset() }
