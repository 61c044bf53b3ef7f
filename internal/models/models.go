package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Terminal states are written once and never change afterwards.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Job is the persisted record of one asynchronous pipeline execution.
type Job struct {
	ID        uuid.UUID       `json:"id"`
	State     JobState        `json:"state"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TripRequest decodes the job input.
func (j Job) TripRequest() (TripRequest, error) {
	var req TripRequest
	if err := json.Unmarshal(j.Input, &req); err != nil {
		return TripRequest{}, fmt.Errorf("decode job %s input: %w", j.ID, err)
	}
	return req, nil
}
