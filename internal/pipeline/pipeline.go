// Package pipeline funnels concurrent external requests into a strictly
// ordered internal queue processed by a single worker. Per-process
// serialization of all train/encode/predict work removes data races on the
// artifact store and encoder vocabularies without locks, trading away
// parallel inference.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskmindhq/taskmind/internal/metrics"
)

var (
	// ErrQueueFull is returned by Submit when the queue has no capacity.
	ErrQueueFull = errors.New("pipeline queue is full")

	// ErrStopped is returned by Submit after the pipeline has shut down.
	ErrStopped = errors.New("pipeline is stopped")

	// ErrInternal wraps a recovered panic from a job. The worker survives
	// and continues with the next queued item.
	ErrInternal = errors.New("internal pipeline failure")
)

// DefaultQueueSize is the default job queue capacity.
const DefaultQueueSize = 256

// Job is one unit of work executed by the worker. The context passed in is
// the pipeline's run context, not the submitter's: an enqueued job is either
// processed or failed with ErrStopped at shutdown, never silently dropped,
// even if the original caller has gone away.
type Job func(ctx context.Context) (any, error)

// Handle is the caller-visible placeholder for a submitted job, resolved
// exactly once with either a value or a typed failure.
type Handle struct {
	id      string
	name    string
	done    chan struct{}
	stopped chan struct{}
	result  any
	err     error
}

// ID returns the job's request identity.
func (h *Handle) ID() string { return h.id }

// Wait blocks until the job is resolved or ctx is done. Abandoning the wait
// does not cancel the job.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.stopped:
		// The worker has exited. A resolution may have raced the stop;
		// prefer it over the stop signal.
		select {
		case <-h.done:
			return h.result, h.err
		default:
			return nil, ErrStopped
		}
	}
}

func (h *Handle) resolve(result any, err error) {
	h.result = result
	h.err = err
	close(h.done)
}

// Pipeline is the serialized request funnel. One worker goroutine dequeues
// jobs in strict FIFO arrival order; there is no priority, no preemption,
// and no per-job timeout.
type Pipeline struct {
	submit  chan submission
	stopped chan struct{}
	logger  *slog.Logger
}

type submission struct {
	handle *Handle
	job    Job
}

// New creates a pipeline with the given queue capacity (0 = DefaultQueueSize).
func New(queueSize int, logger *slog.Logger) *Pipeline {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Pipeline{
		submit:  make(chan submission, queueSize),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Submit enqueues a job and returns its result handle. Requests are
// processed in arrival order relative to all other submissions.
func (p *Pipeline) Submit(name string, job Job) (*Handle, error) {
	h := &Handle{
		id:      uuid.NewString(),
		name:    name,
		done:    make(chan struct{}),
		stopped: p.stopped,
	}
	select {
	case <-p.stopped:
		return nil, ErrStopped
	default:
	}
	select {
	case p.submit <- submission{handle: h, job: job}:
		metrics.PipelineDepth.Add(1)
		return h, nil
	default:
		return nil, ErrQueueFull
	}
}

// Run processes queued jobs until ctx is done. It is the only goroutine that
// touches the stores behind the jobs, which is what makes the single-writer
// invariant hold. On cancellation Run fails any still-queued submissions
// with ErrStopped and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.drain()
	defer close(p.stopped)
	for {
		// Cancellation wins over queued work so shutdown is prompt.
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		select {
		case <-ctx.Done():
			return nil
		case sub := <-p.submit:
			p.process(ctx, sub)
		}
	}
}

// drain resolves submissions still queued after the worker exits so their
// callers do not block until their own contexts expire.
func (p *Pipeline) drain() {
	for {
		select {
		case sub := <-p.submit:
			metrics.PipelineDepth.Add(-1)
			sub.handle.resolve(nil, ErrStopped)
		default:
			return
		}
	}
}

// process executes one job, converting panics into typed failures so the
// worker loop always proceeds to the next item.
func (p *Pipeline) process(ctx context.Context, sub submission) {
	defer metrics.PipelineDepth.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			metrics.Inc(metrics.PipelineFailures)
			p.logger.Error("job panicked", "job", sub.handle.name, "id", sub.handle.id, "panic", r)
			sub.handle.resolve(nil, fmt.Errorf("%w: %v", ErrInternal, r))
		}
	}()

	result, err := sub.job(ctx)
	if err != nil {
		metrics.Inc(metrics.PipelineFailures)
		p.logger.Warn("job failed", "job", sub.handle.name, "id", sub.handle.id, "error", err)
	}
	sub.handle.resolve(result, err)
}

// Do submits a job and waits for its resolution. This is the common path for
// request handlers: enqueue, then suspend on the handle.
func (p *Pipeline) Do(ctx context.Context, name string, job Job) (any, error) {
	h, err := p.Submit(name, job)
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}
