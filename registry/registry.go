package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/andaru/sdll/dispatch"
	"github.com/andaru/sdll/framing"
	"github.com/andaru/sdll/linkerr"
	"github.com/andaru/sdll/session"
)

// Operation names used in errors, logs and metrics.
const (
	OpOpen         = "open"
	OpClose        = "close"
	OpReceive      = "receive"
	OpSend         = "send"
	OpReceiveAsync = "receive-async"
	OpSendAsync    = "send-async"
)

// link is an open link context. Once resolved it stays usable by the
// caller holding it even if the slot is closed concurrently.
type link struct {
	h      Handle
	rx     *session.Receiver
	tx     *session.Transmitter
	rxLock *semaphore.Weighted
	txLock *semaphore.Weighted
}

type slot struct {
	gen  uint16
	link *link
}

// Registry is a fixed capacity table of links.
type Registry struct {
	concurrent bool
	timeout    time.Duration
	clock      clock.Clock
	log        *zap.Logger
	registerer prometheus.Registerer
	metrics    *metrics
	dispatcher *dispatch.Dispatcher
	onError    ErrorHandler
	stopOnce   sync.Once

	mu    sync.RWMutex
	slots []slot
	live  int
}

// New returns a Registry with room for capacity links. It panics if
// capacity is not between 1 and 65535.
func New(capacity int, opts ...Option) *Registry {
	if capacity < 1 || capacity > maxSlots {
		panic(fmt.Sprintf("registry: capacity %d out of range", capacity))
	}
	r := &Registry{
		clock: clock.New(),
		log:   zap.NewNop(),
		slots: make([]slot, capacity),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.metrics = newMetrics(r.registerer)
	return r
}

// Cap returns the number of link slots.
func (r *Registry) Cap() int { return len(r.slots) }

// Len returns the number of open links.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

func (r *Registry) fail(err *linkerr.Error) error {
	r.metrics.failed(err)
	return err
}

// Open claims a free slot for a link with the given sessions, at least
// one of which must be set. The configurations are copied; their
// buffers are owned by the link until Close.
func (r *Registry) Open(rx *session.ReceiverConfig, tx *session.TransmitterConfig) (Handle, error) {
	if msg := checkConfig(rx, tx); msg != "" {
		r.log.Debug("open rejected", zap.String("reason", msg))
		return 0, r.fail(linkerr.NewInvalidArgument(linkerr.WithOp(OpOpen), linkerr.WithMessage(msg)))
	}
	l := &link{}
	if rx != nil {
		l.rx = session.NewReceiver(*rx)
	}
	if tx != nil {
		l.tx = session.NewTransmitter(*tx)
	}
	if r.concurrent || r.dispatcher != nil {
		l.rxLock = semaphore.NewWeighted(1)
		l.txLock = semaphore.NewWeighted(1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		s := &r.slots[i]
		if s.link != nil {
			continue
		}
		if s.gen == 0 {
			s.gen = 1
		}
		l.h = makeHandle(s.gen, i)
		s.link = l
		r.live++
		r.metrics.linksOpen.Inc()
		r.log.Debug("link opened", zap.Stringer("handle", l.h),
			zap.Bool("receiver", l.rx != nil), zap.Bool("transmitter", l.tx != nil))
		return l.h, nil
	}
	return 0, r.fail(linkerr.NewResourceExhausted(linkerr.WithOp(OpOpen),
		linkerr.WithMessage(fmt.Sprintf("all %d slots in use", len(r.slots)))))
}

func checkConfig(rx *session.ReceiverConfig, tx *session.TransmitterConfig) string {
	switch {
	case rx == nil && tx == nil:
		return "no receiver or transmitter"
	case rx != nil && len(rx.Buffer) < framing.MinReceiveBufferSize:
		return "receive buffer is empty"
	case rx != nil && rx.Handler == nil:
		return "receive handler is nil"
	case tx != nil && len(tx.Buffer) < framing.MinTransmitBufferSize:
		return fmt.Sprintf("transmit buffer is shorter than %d bytes", framing.MinTransmitBufferSize)
	case tx != nil && tx.Transport == nil:
		return "transport is nil"
	}
	return ""
}

// lookup returns the slot addressed by h. r.mu must be held.
func (r *Registry) lookup(h Handle) *slot {
	i := h.index()
	if i >= len(r.slots) || h.generation() == 0 {
		return nil
	}
	s := &r.slots[i]
	if s.link == nil || s.gen != h.generation() {
		return nil
	}
	return s
}

func (r *Registry) resolve(h Handle, op string) (*link, error) {
	var l *link
	r.mu.RLock()
	if s := r.lookup(h); s != nil {
		l = s.link
	}
	r.mu.RUnlock()
	if l == nil {
		return nil, r.fail(linkerr.NewInvalidHandle(uint32(h), linkerr.WithOp(op)))
	}
	return l, nil
}

// Close releases the slot of h. Calls already in progress on the link
// complete normally; subsequent calls with h fail with InvalidHandle.
func (r *Registry) Close(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(h)
	if s == nil {
		return r.fail(linkerr.NewInvalidHandle(uint32(h), linkerr.WithOp(OpClose)))
	}
	r.release(s)
	r.log.Debug("link closed", zap.Stringer("handle", h))
	return nil
}

// release frees s. r.mu must be held.
func (r *Registry) release(s *slot) {
	s.link = nil
	s.gen = nextGeneration(s.gen)
	r.live--
	r.metrics.linksOpen.Dec()
}

// acquire takes sem, waiting at most the configured timeout. Without
// WithConcurrency the lock only orders calls against queued work on the
// same link, and acquire waits for that work to finish.
func (r *Registry) acquire(sem *semaphore.Weighted) bool {
	if sem == nil || sem.TryAcquire(1) {
		return true
	}
	if !r.concurrent {
		return sem.Acquire(context.Background(), 1) == nil
	}
	if r.timeout <= 0 {
		return false
	}
	ctx, cancel := r.clock.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return sem.Acquire(ctx, 1) == nil
}

func release(sem *semaphore.Weighted) {
	if sem != nil {
		sem.Release(1)
	}
}

// Receive feeds p to the receive session of h, delivering every frame
// that completes within p. It returns the number of bytes held in the
// incomplete frame that follows.
//
// If a frame overflows the receive buffer, Receive stops and returns a
// BufferTooSmall error whose Count is the number of bytes of p consumed,
// the faulting byte included. The session has been reset; the caller
// may continue with the rest of p.
func (r *Registry) Receive(h Handle, p []byte) (int, error) {
	l, err := r.resolve(h, OpReceive)
	if err != nil {
		return 0, err
	}
	if err := r.checkReceive(l, OpReceive, p); err != nil {
		return 0, err
	}
	return r.receive(l, OpReceive, p)
}

func (r *Registry) checkReceive(l *link, op string, p []byte) error {
	if len(p) == 0 {
		return r.fail(linkerr.NewInvalidArgument(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h)),
			linkerr.WithMessage("empty input")))
	}
	if l.rx == nil {
		return r.fail(linkerr.NewReceiverDisabled(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h))))
	}
	return nil
}

func (r *Registry) receive(l *link, op string, p []byte) (int, error) {
	if !r.acquire(l.rxLock) {
		return 0, r.fail(linkerr.NewBusy(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h))))
	}
	defer release(l.rxLock)

	consumed := 0
	for consumed < len(p) {
		n, st, err := l.rx.Feed(p[consumed:])
		consumed += n
		if err != nil {
			r.log.Warn("receiver failure", zap.Stringer("handle", l.h),
				zap.Int("consumed", consumed), zap.Error(err))
			return 0, r.fail(linkerr.NewBufferTooSmall(consumed, linkerr.WithOp(op),
				linkerr.WithHandle(uint32(l.h)), linkerr.WithCause(err)))
		}
		switch st {
		case session.FrameDelivered:
			r.metrics.framesReceived.Inc()
		case session.FrameDiscarded:
			r.metrics.framesDiscarded.Inc()
			r.log.Debug("frame discarded", zap.Stringer("handle", l.h))
		}
	}
	return l.rx.Pending(), nil
}

// Send frames p and writes it through the transport of h, returning
// len(p) once the transport accepted the whole frame.
//
// A frame larger than the transmit buffer fails with Overflow before
// the transport is called. A transport failure fails with
// TransportFailure whose Count is the number of frame bytes already
// accepted; these are not recalled.
func (r *Registry) Send(h Handle, p []byte) (int, error) {
	l, err := r.resolve(h, OpSend)
	if err != nil {
		return 0, err
	}
	if err := r.checkSend(l, OpSend, p); err != nil {
		return 0, err
	}
	return r.send(l, OpSend, p)
}

func (r *Registry) checkSend(l *link, op string, p []byte) error {
	if len(p) == 0 {
		return r.fail(linkerr.NewInvalidArgument(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h)),
			linkerr.WithMessage("empty payload")))
	}
	if l.tx == nil {
		return r.fail(linkerr.NewTransmitterDisabled(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h))))
	}
	return nil
}

func (r *Registry) send(l *link, op string, p []byte) (int, error) {
	if !r.acquire(l.txLock) {
		return 0, r.fail(linkerr.NewBusy(linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h))))
	}
	defer release(l.txLock)

	n, err := l.tx.Send(p)
	if err != nil {
		opts := []linkerr.Option{linkerr.WithOp(op), linkerr.WithHandle(uint32(l.h)), linkerr.WithCause(err)}
		if errors.Is(err, framing.ErrOverflow) {
			return 0, r.fail(linkerr.NewOverflow(append(opts,
				linkerr.WithMessage(fmt.Sprintf("frame needs %d bytes, buffer has %d", framing.EncodedLen(p), l.tx.Cap())))...))
		}
		var se *session.SendError
		if errors.As(err, &se) {
			opts = append(opts, linkerr.WithCount(se.Accepted))
		}
		r.log.Warn("transport failure", zap.Stringer("handle", l.h), zap.Error(err))
		return 0, r.fail(linkerr.NewTransportFailure(opts...))
	}
	r.metrics.framesSent.Inc()
	r.metrics.bytesSent.Add(float64(framing.EncodedLen(p)))
	return n, nil
}

// Shutdown drains the dispatcher, if any, then closes every open link.
// Later calls only close links opened since.
func (r *Registry) Shutdown() error {
	var err error
	if r.dispatcher != nil {
		r.stopOnce.Do(func() { err = multierr.Append(err, r.dispatcher.Close()) })
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	closed := 0
	for i := range r.slots {
		if s := &r.slots[i]; s.link != nil {
			r.release(s)
			closed++
		}
	}
	r.log.Debug("registry shut down", zap.Int("closed", closed), zap.Error(err))
	return err
}
