package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

func TestOrderPerKey(t *testing.T) {
	d := New(3, 64, WithLogger(zaptest.NewLogger(t)))
	var mu sync.Mutex
	got := map[uint32][]int{}
	for i := 0; i < 50; i++ {
		for key := uint32(0); key < 4; key++ {
			key, i := key, i
			require.NoError(t, d.Submit(key, func(context.Context) {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			}))
		}
	}
	require.NoError(t, d.Close())

	ck := assert.New(t)
	for key := uint32(0); key < 4; key++ {
		if ck.Len(got[key], 50) {
			for i, v := range got[key] {
				ck.Equal(i, v)
			}
		}
	}
}

func TestQueueFull(t *testing.T) {
	ck := assert.New(t)
	d := New(1, 1)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, d.Submit(0, func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	// the worker is busy; one job fits the queue
	ck.NoError(d.Submit(0, func(context.Context) {}))
	ck.True(errors.Is(d.Submit(0, func(context.Context) {}), ErrQueueFull))
	close(release)
	ck.NoError(d.Close())
}

func TestClose(t *testing.T) {
	ck := assert.New(t)
	d := New(2, 8)
	ck.Equal(2, d.Workers())
	ran := 0
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		ck.NoError(d.Submit(1, func(context.Context) {
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}
	ck.NoError(d.Close())
	ck.Equal(8, ran, "queued jobs are drained")
	ck.True(errors.Is(d.Submit(1, func(context.Context) {}), ErrClosed))
	ck.True(errors.Is(d.Close(), ErrClosed))
}

func TestPanicRecovered(t *testing.T) {
	ck := assert.New(t)
	d := New(1, 4, WithLogger(zaptest.NewLogger(t)))
	ck.NoError(d.Submit(0, func(context.Context) { panic("boom") }))
	var after bool
	ck.NoError(d.Submit(0, func(context.Context) { after = true }))
	err := d.Close()
	ck.Error(err)
	ck.Len(multierr.Errors(err), 1)
	ck.Contains(err.Error(), "boom")
	ck.True(after, "worker survives a panicking job")
}

func TestNewPanics(t *testing.T) {
	assert.Panics(t, func() { New(0, 1) })
	assert.Panics(t, func() { New(1, 0) })
}
