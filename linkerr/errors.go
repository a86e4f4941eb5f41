package linkerr

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies link errors
type Kind int

const (
	// InvalidArgument reports a malformed request or configuration
	InvalidArgument Kind = iota
	// InvalidHandle reports an unknown, stale or closed handle
	InvalidHandle
	// ReceiverDisabled reports a receive on a link without a receiver
	ReceiverDisabled
	// TransmitterDisabled reports a send on a link without a transmitter
	TransmitterDisabled
	// ResourceExhausted reports that no link slot is free
	ResourceExhausted
	// BufferTooSmall reports a received frame exceeding the receive buffer
	BufferTooSmall
	// Overflow reports a frame exceeding the transmit staging buffer
	Overflow
	// TransportFailure reports a failed or stalled transport
	TransportFailure
	// Busy reports a lock or queue that could not be acquired in time
	Busy
)

var kindNames = [...]string{
	InvalidArgument:     "invalid-argument",
	InvalidHandle:       "invalid-handle",
	ReceiverDisabled:    "receiver-disabled",
	TransmitterDisabled: "transmitter-disabled",
	ResourceExhausted:   "resource-exhausted",
	BufferTooSmall:      "buffer-too-small",
	Overflow:            "overflow",
	TransportFailure:    "transport-failure",
	Busy:                "busy",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	b = bytes.TrimSpace(b)
	for i, name := range kindNames {
		if string(b) == name {
			*k = Kind(i)
			return nil
		}
	}
	return errors.Errorf("unknown kind %q", b)
}

// Error is a link error.
type Error struct {
	Kind Kind `json:"kind"`
	// Op names the registry operation, e.g. "receive"
	Op string `json:"op,omitempty"`
	// Handle is the link handle involved, if any
	Handle uint32 `json:"handle,omitempty"`
	// Count is a byte count: input consumed for BufferTooSmall, frame
	// bytes accepted for TransportFailure
	Count   int    `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
	// Err is the underlying cause
	Err error `json:"-"`
}

func (e Error) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Handle != 0 {
		s += fmt.Sprintf(" handle:%#x", e.Handle)
	}
	if e.Count != 0 {
		s += fmt.Sprintf(" count:%d", e.Count)
	}
	if e.Message != "" {
		s += " " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause
func (e Error) Unwrap() error { return e.Err }

// Is reports whether any error in err's chain is a link error of kind k.
func Is(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

// KindOf returns the Kind of the first link error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func newError(k Kind, opts []Option) *Error {
	e := &Error{Kind: k}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func NewInvalidArgument(opts ...Option) *Error { return newError(InvalidArgument, opts) }

func NewInvalidHandle(h uint32, opts ...Option) *Error {
	e := newError(InvalidHandle, opts)
	e.Handle = h
	return e
}

func NewReceiverDisabled(opts ...Option) *Error { return newError(ReceiverDisabled, opts) }

func NewTransmitterDisabled(opts ...Option) *Error { return newError(TransmitterDisabled, opts) }

func NewResourceExhausted(opts ...Option) *Error { return newError(ResourceExhausted, opts) }

// NewBufferTooSmall reports a receive overflow after consumed bytes of
// input were processed.
func NewBufferTooSmall(consumed int, opts ...Option) *Error {
	e := newError(BufferTooSmall, opts)
	e.Count = consumed
	return e
}

func NewOverflow(opts ...Option) *Error { return newError(Overflow, opts) }

func NewTransportFailure(opts ...Option) *Error { return newError(TransportFailure, opts) }

func NewBusy(opts ...Option) *Error { return newError(Busy, opts) }
