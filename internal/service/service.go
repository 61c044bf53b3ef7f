package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/ILLUVRSE/trip-planner/internal/events"
	"github.com/ILLUVRSE/trip-planner/internal/models"
	"github.com/ILLUVRSE/trip-planner/internal/store"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"

	processingMessage = "Agents are working..."
)

// NotFoundError is returned for job ids the store does not know.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %s not found", e.ID)
}

type Service struct {
	store  store.Store
	events events.Publisher
	logger *log.Logger
}

func New(st store.Store, pub events.Publisher, logger *log.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[service] ", log.LstdFlags)
	}
	return &Service{store: st, events: pub, logger: logger}
}

// JobHandle is returned by Submit.
type JobHandle struct {
	Status  string    `json:"status"`
	TaskID  uuid.UUID `json:"task_id"`
	Message string    `json:"message"`
}

// Submit validates the request and queues it. It never runs the pipeline.
func (s *Service) Submit(ctx context.Context, req models.TripRequest) (JobHandle, error) {
	req = req.Normalize()
	if err := models.Validate(req); err != nil {
		return JobHandle{}, err
	}
	input, err := json.Marshal(req)
	if err != nil {
		return JobHandle{}, fmt.Errorf("encode trip request: %w", err)
	}
	job, err := s.store.CreateJob(ctx, store.JobInput{Input: input})
	if err != nil {
		return JobHandle{}, err
	}
	if err := s.events.Publish(ctx, events.ForJob(job)); err != nil {
		s.logger.Printf("publish queued event for %s: %v", job.ID, err)
	}
	return JobHandle{
		Status:  StatusQueued,
		TaskID:  job.ID,
		Message: fmt.Sprintf("Plan is generating in the background. Poll /plan/status/%s", job.ID),
	}, nil
}

// StatusView is what a poller sees for a job.
type StatusView struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Plan    json.RawMessage `json:"plan,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Status reports a job's state. It only reads.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (StatusView, error) {
	job, err := s.Job(ctx, id)
	if err != nil {
		return StatusView{}, err
	}
	return View(job), nil
}

// View maps a job record to its status view.
func View(job models.Job) StatusView {
	switch job.State {
	case models.JobQueued:
		return StatusView{Status: StatusProcessing, Message: processingMessage}
	case models.JobSucceeded:
		return StatusView{Status: StatusCompleted, Plan: job.Output}
	case models.JobFailed:
		return StatusView{Status: StatusFailed, Error: job.Error}
	default:
		return StatusView{Status: string(job.State)}
	}
}

// Job returns the raw persisted record.
func (s *Service) Job(ctx context.Context, id uuid.UUID) (models.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Job{}, &NotFoundError{ID: id.String()}
	}
	if err != nil {
		return models.Job{}, err
	}
	return job, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
