package jobqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

var errQueueClosed = errors.New("queue closed")

// Handler processes one delivered job. A nil return completes the job; an
// error triggers the retry policy.
type Handler func(ctx context.Context, job *Job) error

// FailureCallback is invoked once when a job exhausts its attempts.
type FailureCallback func(job *Job, err error)

type Config struct {
	// MaxAttempts bounds deliveries per job, first attempt included.
	MaxAttempts int
	Backoff     BackoffPolicy
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Backoff:     DefaultBackoffPolicy(),
	}
}

// Queue decouples ingress latency from execution latency: Enqueue returns
// as soon as the store accepts the job, workers process jobs one at a time
// and failed jobs are redelivered with exponential backoff until the
// attempt cap.
type Queue struct {
	store Store
	cfg   Config

	onPermanentFailure FailureCallback

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(store Store, cfg Config) *Queue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff.BaseDelay <= 0 {
		cfg.Backoff = DefaultBackoffPolicy()
	}
	return &Queue{
		store: store,
		cfg:   cfg,
	}
}

// OnPermanentFailure registers a callback for jobs that exhausted all
// attempts. Register before workers start.
func (q *Queue) OnPermanentFailure(cb FailureCallback) {
	q.onPermanentFailure = cb
}

// Enqueue accepts an order for eventual processing. It returns once the
// store has durably accepted the job.
func (q *Queue) Enqueue(ctx context.Context, order *model.Order) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errQueueClosed
	}
	q.mu.Unlock()

	job := &Job{
		ID:          order.OrderID,
		Order:       order,
		Attempt:     1,
		MaxAttempts: q.cfg.MaxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := q.store.Push(ctx, job); err != nil {
		return err
	}
	zap.S().Infof("order %s added to queue", order.OrderID)
	return nil
}

// RegisterWorker starts concurrency workers pulling jobs until ctx is
// cancelled. Each delivered job runs through handler exactly once per
// attempt.
func (q *Queue) RegisterWorker(ctx context.Context, concurrency int, handler Handler) {
	if concurrency <= 0 {
		concurrency = 10
	}
	for i := 0; i < concurrency; i++ {
		q.wg.Add(1)
		go func(workerID int) {
			defer q.wg.Done()
			q.runWorker(ctx, workerID, handler)
		}(i)
	}
}

// Stop marks the queue closed for new jobs and waits for workers to drain.
// Cancel the context passed to RegisterWorker before calling Stop.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) runWorker(ctx context.Context, workerID int, handler Handler) {
	for {
		job, err := q.store.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.S().Errorf("worker %d pop failed: %v", workerID, err)
			continue
		}

		err = handler(ctx, job)
		if err == nil {
			if ackErr := q.store.Ack(ctx, job); ackErr != nil {
				zap.S().Errorf("worker %d ack job %s: %v", workerID, job.ID, ackErr)
			}
			zap.S().Infof("job %s (order %s) has completed", job.ID, job.Order.OrderID)
			continue
		}

		q.retryOrFail(ctx, job, err)
	}
}

func (q *Queue) retryOrFail(ctx context.Context, job *Job, handlerErr error) {
	// The delivered copy is acked either way; a retried job re-enters the
	// store as a new delayed delivery with a bumped attempt count.
	if ackErr := q.store.Ack(ctx, job); ackErr != nil {
		zap.S().Errorf("ack job %s: %v", job.ID, ackErr)
	}

	if job.FinalAttempt() {
		zap.S().Warnf("job %s (order %s) permanently failed after %d attempts: %v",
			job.ID, job.Order.OrderID, job.Attempt, handlerErr)
		if q.onPermanentFailure != nil {
			q.onPermanentFailure(job, handlerErr)
		}
		return
	}

	delay := q.cfg.Backoff.Delay(job.Attempt)
	retry := *job
	retry.Attempt++
	if err := q.store.PushDelayed(ctx, &retry, time.Now().Add(delay)); err != nil {
		zap.S().Errorf("requeue job %s: %v", job.ID, err)
		return
	}
	zap.S().Infof("job %s (order %s) failed attempt %d/%d, retrying in %s: %v",
		job.ID, job.Order.OrderID, job.Attempt, job.MaxAttempts, delay, handlerErr)
}
