package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps jobs in redis: a ready list consumed with BLMOVE into a
// per-consumer processing list, and a delayed zset scored by ready time.
// Jobs survive process restarts; anything left in the processing list is
// requeued on the next Start.
type RedisStore struct {
	client *redis.Client
	name   string
}

func NewRedisStore(client *redis.Client, queueName string) *RedisStore {
	return &RedisStore{
		client: client,
		name:   queueName,
	}
}

func (s *RedisStore) readyKey() string      { return s.name + ":ready" }
func (s *RedisStore) delayedKey() string    { return s.name + ":delayed" }
func (s *RedisStore) processingKey() string { return s.name + ":processing" }

// Recover requeues jobs abandoned in the processing list by a previous
// process. Call once on startup, before workers begin popping.
func (s *RedisStore) Recover(ctx context.Context) error {
	for {
		err := s.client.LMove(ctx, s.processingKey(), s.readyKey(), "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("recover processing jobs: %w", err)
		}
	}
}

func (s *RedisStore) Push(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := s.client.LPush(ctx, s.readyKey(), payload).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) PushDelayed(ctx context.Context, job *Job, readyAt time.Time) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	err = s.client.ZAdd(ctx, s.delayedKey(), redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("push delayed job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) Pop(ctx context.Context) (*Job, error) {
	for {
		if err := s.promoteDue(ctx); err != nil {
			return nil, err
		}

		raw, err := s.client.BLMove(ctx, s.readyKey(), s.processingKey(), "RIGHT", "LEFT", time.Second).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("pop job: %w", err)
		}

		job := &Job{}
		if err := json.Unmarshal([]byte(raw), job); err != nil {
			// Drop a payload we cannot decode instead of poisoning the loop.
			s.client.LRem(ctx, s.processingKey(), 1, raw)
			return nil, fmt.Errorf("unmarshal job payload: %w", err)
		}
		return job, nil
	}
}

func (s *RedisStore) Ack(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := s.client.LRem(ctx, s.processingKey(), 1, payload).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", job.ID, err)
	}
	return nil
}

// promoteDue moves delayed jobs whose ready time has passed onto the ready
// list. ZREM before LPUSH keeps concurrent consumers from double-promoting
// the same member.
func (s *RedisStore) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := s.client.ZRangeByScore(ctx, s.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("scan delayed jobs: %w", err)
	}

	for _, member := range members {
		removed, err := s.client.ZRem(ctx, s.delayedKey(), member).Result()
		if err != nil {
			return fmt.Errorf("promote delayed job: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := s.client.LPush(ctx, s.readyKey(), member).Err(); err != nil {
			return fmt.Errorf("promote delayed job: %w", err)
		}
	}
	return nil
}
