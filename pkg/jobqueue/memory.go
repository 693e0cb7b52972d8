package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// MemoryStore is an in-process Store. It keeps the queue's at-least-once
// contract within a single process and backs tests and redis-less runs.
type MemoryStore struct {
	mu     sync.Mutex
	ready  deque.Deque[*Job]
	notify chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notify: make(chan struct{}, 1),
	}
}

func (s *MemoryStore) Push(ctx context.Context, job *Job) error {
	s.mu.Lock()
	s.ready.PushBack(job)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (s *MemoryStore) PushDelayed(ctx context.Context, job *Job, readyAt time.Time) error {
	delay := time.Until(readyAt)
	if delay <= 0 {
		return s.Push(ctx, job)
	}
	time.AfterFunc(delay, func() {
		_ = s.Push(context.Background(), job)
	})
	return nil
}

func (s *MemoryStore) Pop(ctx context.Context) (*Job, error) {
	for {
		s.mu.Lock()
		if s.ready.Len() > 0 {
			job := s.ready.PopFront()
			remaining := s.ready.Len()
			s.mu.Unlock()
			if remaining > 0 {
				// Wake another waiter for the jobs still queued.
				select {
				case s.notify <- struct{}{}:
				default:
				}
			}
			return job, nil
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *MemoryStore) Ack(ctx context.Context, job *Job) error {
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.Len()
}
