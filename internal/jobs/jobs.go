// Package jobs is the background queue for the side effects that follow a
// committed state transition: notification emails and audit fan-out. The
// queue lives in the same SQLite database; failed jobs retry with backoff
// and land in a dead-letter table after max attempts. Nothing here can roll
// back the domain write that enqueued it.
package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// Job types handled by the worker pool.
const (
	TypeEmail = "notify.email"
	TypeAudit = "audit.event"
)

type Job struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *Job) error

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if max := 5 * time.Minute; d > max {
		return max
	}
	return d
}
