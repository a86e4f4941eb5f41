package transport

import (
	"io"

	"github.com/pkg/errors"

	"github.com/andaru/sdll/linkerr"
	"github.com/andaru/sdll/registry"
)

// Receiver consumes raw link input. *registry.Registry implements it.
type Receiver interface {
	Receive(h registry.Handle, p []byte) (int, error)
}

// Pump copies a byte stream into the receive session of a link.
type Pump struct {
	dst        Receiver
	h          registry.Handle
	src        io.Reader
	buf        []byte
	onOverflow func(err error)
}

// PumpOption is a constructor option for a Pump
type PumpOption func(*Pump)

const defaultPumpBufsize = 4096

// WithPumpBufferSize sets the size of reads from the source.
//
// Size has a floor of 1 byte.
func WithPumpBufferSize(size int) PumpOption {
	return func(p *Pump) {
		if size < 1 {
			size = 1
		}
		p.buf = make([]byte, size)
	}
}

// WithOverflowHandler sets a function called with each BufferTooSmall
// error. The Pump continues after the oversized frame regardless.
func WithOverflowHandler(fn func(err error)) PumpOption {
	return func(p *Pump) { p.onOverflow = fn }
}

// NewPump returns a new Pump reading src into link h of dst.
func NewPump(dst Receiver, h registry.Handle, src io.Reader, opts ...PumpOption) *Pump {
	if dst == nil || src == nil {
		panic("NewPump: both dst and src must be non-nil")
	}
	p := &Pump{dst: dst, h: h, src: src}
	for _, opt := range opts {
		opt(p)
	}
	if p.buf == nil {
		p.buf = make([]byte, defaultPumpBufsize)
	}
	return p
}

// Run reads the source until EOF, which is not an error. Any partial
// frame left at EOF stays pending in the receive session.
func (p *Pump) Run() error {
	for {
		n, rerr := p.src.Read(p.buf)
		if n > 0 {
			if err := p.feed(p.buf[:n]); err != nil {
				return err
			}
		}
		switch {
		case rerr == io.EOF:
			return nil
		case rerr != nil:
			return errors.Wrap(rerr, "read")
		}
	}
}

func (p *Pump) feed(chunk []byte) error {
	for len(chunk) > 0 {
		_, err := p.dst.Receive(p.h, chunk)
		if err == nil {
			return nil
		}
		var le *linkerr.Error
		if !errors.As(err, &le) || le.Kind != linkerr.BufferTooSmall {
			return err
		}
		if p.onOverflow != nil {
			p.onOverflow(err)
		}
		chunk = chunk[le.Count:]
	}
	return nil
}
