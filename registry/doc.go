/*
Package registry multiplexes independent framed links over one engine.

A Registry owns a fixed table of link slots. Open claims a slot for a
receive session, a transmit session or both, and returns a Handle;
every other operation addresses the link by that Handle. Handles carry a
slot generation, so a Handle kept after Close is rejected even once the
slot has been reused.

	reg := registry.New(4, registry.WithConcurrency(100*time.Millisecond))
	h, err := reg.Open(&session.ReceiverConfig{
		Buffer:  make([]byte, 256),
		Handler: session.HandlerFunc(func(frame []byte) { ... }),
	}, nil)
	...
	pending, err := reg.Receive(h, chunk)

Concurrency

Without WithConcurrency the caller serialises its own calls on each
link; with a dispatcher configured, calls still wait for queued work on
the same link, so callbacks must not re-enter their own session. With
WithConcurrency, the receive and the transmit session of a link each
have their own lock, held for the duration of the call including
Handler and Transport callbacks. A call that cannot take the lock within
the configured timeout fails with a linkerr.Busy error; a callback
re-entering its own session therefore fails instead of deadlocking.

Asynchronous calls

ReceiveAsync and SendAsync copy their input and queue the work on a
dispatch.Dispatcher keyed by Handle, so work on one link runs in order.
Failures are reported to the ErrorHandler.
*/
package registry
