package registry

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/andaru/sdll/dispatch"
	"github.com/andaru/sdll/linkerr"
)

// ReceiveAsync queues a copy of p for Receive on h. Argument errors are
// returned at once; processing errors go to the ErrorHandler. Input
// following an oversized frame is still processed.
func (r *Registry) ReceiveAsync(h Handle, p []byte) error {
	l, err := r.resolve(h, OpReceiveAsync)
	if err != nil {
		return err
	}
	if err := r.checkReceive(l, OpReceiveAsync, p); err != nil {
		return err
	}
	buf := append([]byte(nil), p...)
	return r.submit(l, OpReceiveAsync, func(context.Context) {
		if !r.stillOpen(h, OpReceiveAsync) {
			return
		}
		for len(buf) > 0 {
			_, err := r.receive(l, OpReceiveAsync, buf)
			if err == nil {
				return
			}
			r.report(h, OpReceiveAsync, err)
			var le *linkerr.Error
			if !errors.As(err, &le) || le.Kind != linkerr.BufferTooSmall {
				return
			}
			buf = buf[le.Count:]
		}
	})
}

// SendAsync queues a copy of p for Send on h. Once the frame was sent,
// the link's SentHandler, if any, is called with the payload.
func (r *Registry) SendAsync(h Handle, p []byte) error {
	l, err := r.resolve(h, OpSendAsync)
	if err != nil {
		return err
	}
	if err := r.checkSend(l, OpSendAsync, p); err != nil {
		return err
	}
	buf := append([]byte(nil), p...)
	return r.submit(l, OpSendAsync, func(context.Context) {
		if !r.stillOpen(h, OpSendAsync) {
			return
		}
		if _, err := r.send(l, OpSendAsync, buf); err != nil {
			r.report(h, OpSendAsync, err)
			return
		}
		l.tx.Sent(buf)
	})
}

func (r *Registry) submit(l *link, op string, job dispatch.Job) error {
	if r.dispatcher == nil {
		return r.fail(linkerr.NewInvalidArgument(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h)),
			linkerr.WithMessage("asynchronous operation not enabled")))
	}
	err := r.dispatcher.Submit(uint32(l.h), job)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dispatch.ErrQueueFull):
		return r.fail(linkerr.NewBusy(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h)), linkerr.WithCause(err)))
	default:
		return r.fail(linkerr.NewInvalidArgument(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h)), linkerr.WithCause(err)))
	}
}

// stillOpen reports whether h is open when queued work starts; links
// closed meanwhile get an InvalidHandle report instead.
func (r *Registry) stillOpen(h Handle, op string) bool {
	if _, err := r.resolve(h, op); err != nil {
		r.report(h, op, err)
		return false
	}
	return true
}

func (r *Registry) report(h Handle, op string, err error) {
	r.log.Error("asynchronous operation failed", zap.Stringer("handle", h), zap.String("op", op), zap.Error(err))
	if r.onError != nil {
		r.onError(h, op, err)
	}
}
