package jobqueue

import (
	"context"
	"time"
)

// Store is the queue's durable backend. Delivery is at-least-once: a job
// popped but never acked may be redelivered after a crash, so handlers
// must tolerate duplicate execution.
type Store interface {
	// Push makes the job immediately available for delivery.
	Push(ctx context.Context, job *Job) error

	// PushDelayed holds the job back until readyAt.
	PushDelayed(ctx context.Context, job *Job, readyAt time.Time) error

	// Pop blocks until a job is available or ctx is done.
	Pop(ctx context.Context) (*Job, error)

	// Ack marks a delivered job as fully processed.
	Ack(ctx context.Context, job *Job) error
}
