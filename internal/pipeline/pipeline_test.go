package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startPipeline(t *testing.T, queueSize int) *Pipeline {
	t.Helper()
	p := New(queueSize, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p
}

func TestDo_ResolvesResult(t *testing.T) {
	p := startPipeline(t, 8)

	result, err := p.Do(context.Background(), "job", func(context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestDo_PropagatesJobError(t *testing.T) {
	p := startPipeline(t, 8)
	boom := errors.New("boom")

	_, err := p.Do(context.Background(), "job", func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_FIFOOrder(t *testing.T) {
	p := New(64, discardLogger())

	var mu sync.Mutex
	var order []int
	var handles []*Handle

	// Enqueue before the worker starts so arrival order is unambiguous.
	for i := 0; i < 10; i++ {
		i := i
		h, err := p.Submit("job", func(context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
		require.NoError(t, err)
		handles = append(handles, h)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = p.Run(ctx) }()
	defer cancel()

	for _, h := range handles {
		_, err := h.Wait(context.Background())
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestProcess_PanicBecomesErrInternal(t *testing.T) {
	p := startPipeline(t, 8)

	_, err := p.Do(context.Background(), "panics", func(context.Context) (any, error) {
		panic("kaboom")
	})
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "kaboom")

	// The worker survives and the next job runs normally.
	result, err := p.Do(context.Background(), "next", func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestSubmit_QueueFull(t *testing.T) {
	// No worker running: the queue fills and stays full.
	p := New(2, discardLogger())
	noop := func(context.Context) (any, error) { return nil, nil }

	_, err := p.Submit("a", noop)
	require.NoError(t, err)
	_, err = p.Submit("b", noop)
	require.NoError(t, err)

	_, err = p.Submit("c", noop)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestSubmit_AfterStop(t *testing.T) {
	p := New(2, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	_, err := p.Submit("late", func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRun_FailsQueuedJobsOnShutdown(t *testing.T) {
	p := New(8, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	inflight, err := p.Submit("inflight", func(jobCtx context.Context) (any, error) {
		close(started)
		<-jobCtx.Done()
		return "released", nil
	})
	require.NoError(t, err)

	queued, err := p.Submit("queued", func(context.Context) (any, error) {
		return "never runs", nil
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	<-started
	cancel()
	<-done

	// The in-flight job finished normally; the queued one was failed
	// rather than left unresolved.
	result, err := inflight.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "released", result)

	_, err = queued.Wait(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestWait_ResolvesAfterWorkerExit(t *testing.T) {
	// A waiter already blocked on a queued handle is released by shutdown
	// instead of hanging until its own context expires.
	p := New(8, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	_, err := p.Submit("inflight", func(jobCtx context.Context) (any, error) {
		close(started)
		<-jobCtx.Done()
		return nil, nil
	})
	require.NoError(t, err)

	queued, err := p.Submit("queued", func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() {
		_, werr := queued.Wait(context.Background())
		waitErr <- werr
	}()

	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	<-started
	cancel()
	<-done

	assert.ErrorIs(t, <-waitErr, ErrStopped)
}

func TestWait_HonorsCallerContext(t *testing.T) {
	// No worker: the job never resolves, but the waiter's context does.
	p := New(2, discardLogger())
	h, err := p.Submit("stuck", func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandle_HasID(t *testing.T) {
	p := New(2, discardLogger())
	h, err := p.Submit("job", func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID())
}
