package jobqueue

import "time"

// BackoffPolicy computes the redelivery delay after a failed attempt:
// BaseDelay * Multiplier^(attempt-1), capped at MaxDelay.
type BackoffPolicy struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		BaseDelay:  time.Second,
		Multiplier: 2,
		MaxDelay:   60 * time.Second,
	}
}

// Delay returns the backoff for the given failed attempt (1-based).
func (b BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return b.BaseDelay
	}
	delay := b.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * b.Multiplier)
		if delay >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if delay > b.MaxDelay {
		return b.MaxDelay
	}
	return delay
}
