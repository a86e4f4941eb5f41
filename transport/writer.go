package transport

import (
	"io"

	"github.com/pkg/errors"
)

// Writer is a session.Transport writing to an io.Writer.
type Writer struct {
	dst io.Writer
}

// NewWriter returns a new Writer for dst.
func NewWriter(dst io.Writer) *Writer {
	if dst == nil {
		panic("NewWriter: dst must be non-nil")
	}
	return &Writer{dst: dst}
}

// Transmit writes p to the destination. A short write that made
// progress is not an error; the transmit session offers the remainder
// again.
func (w *Writer) Transmit(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	if err == io.ErrShortWrite && n > 0 {
		return n, nil
	}
	if err != nil {
		return n, errors.Wrap(err, "write")
	}
	return n, nil
}
