package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ILLUVRSE/trip-planner/internal/models"
)

type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]models.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[uuid.UUID]models.Job{}}
}

func copyJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneJob(job models.Job) models.Job {
	job.Input = copyJSON(job.Input)
	job.Output = copyJSON(job.Output)
	return job
}

func (m *MemoryStore) CreateJob(ctx context.Context, in JobInput) (models.Job, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	now := time.Now().UTC()
	job := models.Job{
		ID:        in.ID,
		State:     models.JobQueued,
		Input:     copyJSON(in.Input),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return cloneJob(job), nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id uuid.UUID) (models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return cloneJob(job), nil
}

func (m *MemoryStore) ClaimNextJob(ctx context.Context) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		selected models.Job
		found    bool
	)
	for _, job := range m.jobs {
		if job.State != models.JobQueued {
			continue
		}
		if !found || job.CreatedAt.Before(selected.CreatedAt) {
			selected = job
			found = true
		}
	}
	if !found {
		return models.Job{}, ErrNotFound
	}
	selected.State = models.JobRunning
	selected.UpdatedAt = time.Now().UTC()
	m.jobs[selected.ID] = selected
	return cloneJob(selected), nil
}

func (m *MemoryStore) CompleteJob(ctx context.Context, in CompletionInput) (models.Job, error) {
	if err := in.validate(); err != nil {
		return models.Job{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[in.ID]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	if job.State != models.JobRunning {
		return models.Job{}, ErrConflict
	}
	job.State = in.State
	job.Output = copyJSON(in.Output)
	job.Error = in.Error
	job.UpdatedAt = time.Now().UTC()
	m.jobs[in.ID] = job
	return cloneJob(job), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
