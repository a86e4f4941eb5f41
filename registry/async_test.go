package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/andaru/sdll/dispatch"
	"github.com/andaru/sdll/linkerr"
	"github.com/andaru/sdll/session"
)

// asyncErrors collects ErrorHandler reports.
type asyncErrors struct {
	mu   sync.Mutex
	errs []error
}

func (a *asyncErrors) handle(_ Handle, _ string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs = append(a.errs, err)
}

func newAsyncRegistry(t *testing.T, capacity int, errs *asyncErrors) *Registry {
	log := zaptest.NewLogger(t)
	return New(capacity,
		WithLogger(log),
		WithConcurrency(0),
		WithDispatcher(dispatch.New(2, 16, dispatch.WithLogger(log))),
		WithErrorHandler(errs.handle),
	)
}

func TestReceiveAsync(t *testing.T) {
	ck := assert.New(t)
	errs := &asyncErrors{}
	r := newAsyncRegistry(t, 1, errs)
	var got frames
	h, err := r.Open(rxConfig(4, &got), nil)
	require.NoError(t, err)

	chunk := []byte{B, 0x01, B, B, 0x02}
	ck.NoError(r.ReceiveAsync(h, chunk))
	chunk[1] = 0xFF // the input was copied
	ck.NoError(r.ReceiveAsync(h, []byte{0x03, B}))
	ck.NoError(r.Shutdown())

	ck.Equal(frames{{0x01}, {0x02, 0x03}}, got)
	ck.Empty(errs.errs)
}

func TestReceiveAsyncOverflow(t *testing.T) {
	ck := assert.New(t)
	errs := &asyncErrors{}
	r := newAsyncRegistry(t, 1, errs)
	var got frames
	h, err := r.Open(rxConfig(2, &got), nil)
	require.NoError(t, err)

	ck.NoError(r.ReceiveAsync(h, []byte{B, 0x01, 0x02, 0x03, B, 0x04, B, B, 0x05, 0x06, 0x07, B, 0x08, B}))
	ck.NoError(r.Shutdown())

	ck.Equal(frames{{0x04}, {0x08}}, got)
	if ck.Len(errs.errs, 2) {
		for _, err := range errs.errs {
			assertKind(t, err, linkerr.BufferTooSmall)
		}
	}
}

func TestSendAsync(t *testing.T) {
	ck := assert.New(t)
	errs := &asyncErrors{}
	r := newAsyncRegistry(t, 1, errs)
	tr := &wireTransport{chunk: 3}
	var sent [][]byte
	h, err := r.Open(nil, &session.TransmitterConfig{
		Buffer:    make([]byte, 8),
		Transport: tr,
		OnSent:    session.SentHandlerFunc(func(p []byte) { sent = append(sent, p) }),
	})
	require.NoError(t, err)

	ck.NoError(r.SendAsync(h, []byte{0x01, 0x02}))
	ck.NoError(r.SendAsync(h, []byte{E}))
	ck.NoError(r.SendAsync(h, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}))
	ck.NoError(r.Shutdown())

	ck.Equal([]byte{B, 0x01, 0x02, B, B, E, E ^ M, B}, tr.wire)
	ck.Equal([][]byte{{0x01, 0x02}, {E}}, sent)
	if ck.Len(errs.errs, 1) {
		assertKind(t, errs.errs[0], linkerr.Overflow)
	}
}

func TestAsyncArguments(t *testing.T) {
	ck := assert.New(t)
	var got frames

	r := newRegistry(t, 1)
	h, err := r.Open(rxConfig(4, &got), txConfig(4, &wireTransport{}))
	require.NoError(t, err)
	assertKind(t, r.ReceiveAsync(h, []byte{B}), linkerr.InvalidArgument)
	assertKind(t, r.SendAsync(h, []byte{0x01}), linkerr.InvalidArgument)

	errs := &asyncErrors{}
	r = newAsyncRegistry(t, 2, errs)
	rxOnly, err := r.Open(rxConfig(4, &got), nil)
	require.NoError(t, err)
	assertKind(t, r.SendAsync(rxOnly, []byte{0x01}), linkerr.TransmitterDisabled)
	assertKind(t, r.ReceiveAsync(rxOnly, nil), linkerr.InvalidArgument)
	assertKind(t, r.ReceiveAsync(rxOnly+1, []byte{B}), linkerr.InvalidHandle)

	ck.NoError(r.Shutdown())
	err = r.ReceiveAsync(mustOpen(t, r, &got), []byte{B})
	assertKind(t, err, linkerr.InvalidArgument)
	ck.True(errors.Is(err, dispatch.ErrClosed))
}

func mustOpen(t *testing.T, r *Registry, h session.Handler) Handle {
	handle, err := r.Open(rxConfig(4, h), nil)
	require.NoError(t, err)
	return handle
}

func TestAsyncQueueFull(t *testing.T) {
	ck := assert.New(t)
	d := dispatch.New(1, 1)
	r := New(1, WithDispatcher(d))
	var got frames
	h := mustOpen(t, r, &got)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, d.Submit(0, func(_ context.Context) {
		close(started)
		<-release
	}))
	<-started
	ck.NoError(r.ReceiveAsync(h, []byte{B, 0x01, B}))
	assertKind(t, r.ReceiveAsync(h, []byte{B, 0x02, B}), linkerr.Busy)
	close(release)
	ck.NoError(r.Shutdown())
	ck.Equal(frames{{0x01}}, got)
}

func TestAsyncAfterClose(t *testing.T) {
	ck := assert.New(t)
	d := dispatch.New(1, 4)
	errs := &asyncErrors{}
	r := New(1, WithDispatcher(d), WithErrorHandler(errs.handle))
	var got frames
	h := mustOpen(t, r, &got)

	release := make(chan struct{})
	require.NoError(t, d.Submit(uint32(h), func(context.Context) { <-release }))
	ck.NoError(r.ReceiveAsync(h, []byte{B, 0x01, B}))
	ck.NoError(r.Close(h))
	close(release)
	ck.NoError(r.Shutdown())

	ck.Empty(got)
	if ck.Len(errs.errs, 1) {
		assertKind(t, errs.errs[0], linkerr.InvalidHandle)
	}
}

func TestAsyncAndDirectCallsOnOneLink(t *testing.T) {
	ck := assert.New(t)
	errs := &asyncErrors{}
	log := zaptest.NewLogger(t)
	r := New(1,
		WithLogger(log),
		WithDispatcher(dispatch.New(1, 256, dispatch.WithLogger(log))),
		WithErrorHandler(errs.handle),
	)
	var got frames
	tr := &wireTransport{chunk: 2}
	h, err := r.Open(rxConfig(8, &got), txConfig(8, tr))
	require.NoError(t, err)

	const rounds = 50
	for i := 0; i < rounds; i++ {
		require.NoError(t, r.ReceiveAsync(h, []byte{B, 0x01, 0x02, 0x03, B}))
		pending, err := r.Receive(h, []byte{B, 0x04, 0x05, 0x06, B})
		require.NoError(t, err)
		ck.Zero(pending)

		require.NoError(t, r.SendAsync(h, []byte{0x01}))
		_, err = r.Send(h, []byte{0x02})
		require.NoError(t, err)
	}
	ck.NoError(r.Shutdown())
	ck.Empty(errs.errs)

	count := map[byte]int{}
	for _, f := range got {
		if ck.Len(f, 3) {
			count[f[0]]++
		}
	}
	ck.Equal(map[byte]int{0x01: rounds, 0x04: rounds}, count)

	// frames from both paths never interleave on the wire
	if ck.Len(tr.wire, rounds*2*3) {
		count = map[byte]int{}
		for i := 0; i < len(tr.wire); i += 3 {
			ck.Equal(B, tr.wire[i])
			ck.Equal(B, tr.wire[i+2])
			count[tr.wire[i+1]]++
		}
		ck.Equal(map[byte]int{0x01: rounds, 0x02: rounds}, count)
	}
}

func TestShutdownTwice(t *testing.T) {
	ck := assert.New(t)
	errs := &asyncErrors{}
	r := newAsyncRegistry(t, 2, errs)
	var got frames
	mustOpen(t, r, &got)
	ck.NoError(r.Shutdown())
	ck.Equal(0, r.Len())

	mustOpen(t, r, &got)
	ck.NoError(r.Shutdown())
	ck.Equal(0, r.Len())
	ck.Empty(errs.errs)
}
