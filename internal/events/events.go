// Package events publishes job lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ILLUVRSE/trip-planner/internal/models"
)

const (
	TypeQueued    = "plan.job.queued"
	TypeRunning   = "plan.job.running"
	TypeSucceeded = "plan.job.succeeded"
	TypeFailed    = "plan.job.failed"
)

// Event is the payload written for every job state change.
type Event struct {
	Type     string          `json:"type"`
	JobID    uuid.UUID       `json:"jobId"`
	State    models.JobState `json:"state"`
	Error    string          `json:"error,omitempty"`
	Degraded bool            `json:"degraded,omitempty"`
	At       time.Time       `json:"at"`
}

// ForJob builds the event describing the job's current state.
func ForJob(job models.Job) Event {
	ev := Event{JobID: job.ID, State: job.State, Error: job.Error, At: job.UpdatedAt}
	switch job.State {
	case models.JobQueued:
		ev.Type = TypeQueued
	case models.JobRunning:
		ev.Type = TypeRunning
	case models.JobSucceeded:
		ev.Type = TypeSucceeded
		ev.Degraded = degraded(job.Output)
	case models.JobFailed:
		ev.Type = TypeFailed
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}

// degraded reports whether a stored plan is a failures-only output.
func degraded(output json.RawMessage) bool {
	if len(output) == 0 {
		return false
	}
	var plan struct {
		Failures []json.RawMessage `json:"failures"`
	}
	if err := json.Unmarshal(output, &plan); err != nil {
		return false
	}
	return len(plan.Failures) > 0
}

// Publisher delivers events. Publishing is best-effort: callers log errors
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards events. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
