package jobqueue

import (
	"time"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

// Job wraps one order for queue transport. Attempt starts at 1 and is
// incremented on each redelivery.
type Job struct {
	ID          string       `json:"id"`
	Order       *model.Order `json:"order"`
	Attempt     int          `json:"attempt"`
	MaxAttempts int          `json:"maxAttempts"`
	EnqueuedAt  time.Time    `json:"enqueuedAt"`
}

// FinalAttempt reports whether this delivery is the job's last one.
func (j *Job) FinalAttempt() bool {
	return j.Attempt >= j.MaxAttempts
}
