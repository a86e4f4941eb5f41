package registry

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andaru/sdll/dispatch"
)

// ErrorHandler receives failures of asynchronous operations.
type ErrorHandler func(h Handle, op string, err error)

// Option is a Registry option function
type Option func(*Registry)

// WithConcurrency enables per-session locking. A call waits at most
// timeout for a session lock; zero means fail at once if it is held.
func WithConcurrency(timeout time.Duration) Option {
	return func(r *Registry) {
		r.concurrent = true
		r.timeout = timeout
	}
}

// WithClock sets the clock used to time lock waits
func WithClock(c clock.Clock) Option { return func(r *Registry) { r.clock = c } }

// WithLogger sets the Registry's logger
func WithLogger(l *zap.Logger) Option { return func(r *Registry) { r.log = l } }

// WithMetrics registers the Registry's collectors with reg
func WithMetrics(reg prometheus.Registerer) Option { return func(r *Registry) { r.registerer = reg } }

// WithDispatcher enables ReceiveAsync and SendAsync. The Registry takes
// ownership of d and closes it on Shutdown. Links opened with a
// dispatcher always lock their sessions, so queued work and direct calls
// on one link do not overlap.
func WithDispatcher(d *dispatch.Dispatcher) Option { return func(r *Registry) { r.dispatcher = d } }

// WithErrorHandler sets the callback for asynchronous failures
func WithErrorHandler(fn ErrorHandler) Option { return func(r *Registry) { r.onError = fn } }
