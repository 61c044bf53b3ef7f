package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ILLUVRSE/trip-planner/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a terminal write targets a job that is
	// not running.
	ErrConflict = errors.New("job is not running")
)

// Store owns every job state transition.
type Store interface {
	CreateJob(ctx context.Context, in JobInput) (models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (models.Job, error)
	// ClaimNextJob atomically moves the oldest queued job to running.
	ClaimNextJob(ctx context.Context) (models.Job, error)
	// CompleteJob writes the single terminal state of a running job.
	CompleteJob(ctx context.Context, in CompletionInput) (models.Job, error)
	Ping(ctx context.Context) error
}

type JobInput struct {
	ID    uuid.UUID
	Input json.RawMessage
}

type CompletionInput struct {
	ID     uuid.UUID
	State  models.JobState
	Output json.RawMessage
	Error  string
}

func (in CompletionInput) validate() error {
	if !in.State.Terminal() {
		return fmt.Errorf("complete job %s: %q is not a terminal state", in.ID, in.State)
	}
	return nil
}

type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS plan_jobs (
  id uuid PRIMARY KEY,
  state text NOT NULL CHECK (state IN ('queued','running','succeeded','failed')),
  input jsonb NOT NULL,
  output jsonb,
  error text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_plan_jobs_queued ON plan_jobs (created_at) WHERE state = 'queued';
`

// EnsureSchema creates the plan_jobs table when it does not exist yet.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure plan_jobs: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const jobColumns = `id, state, input, output, error, created_at, updated_at`

func scanJob(row rowScanner) (models.Job, error) {
	var (
		job    models.Job
		state  string
		input  []byte
		output []byte
	)
	if err := row.Scan(
		&job.ID,
		&state,
		&input,
		&output,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return models.Job{}, err
	}
	job.State = models.JobState(state)
	job.Input = append(json.RawMessage(nil), input...)
	if len(output) > 0 {
		job.Output = append(json.RawMessage(nil), output...)
	}
	return job, nil
}

func (s *PGStore) CreateJob(ctx context.Context, in JobInput) (models.Job, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	query := `
		INSERT INTO plan_jobs (id, state, input)
		VALUES ($1,$2,$3)
		RETURNING ` + jobColumns
	job, err := scanJob(s.db.QueryRowContext(ctx, query, in.ID, string(models.JobQueued), []byte(in.Input)))
	if err != nil {
		return models.Job{}, fmt.Errorf("insert plan job: %w", err)
	}
	return job, nil
}

func (s *PGStore) GetJob(ctx context.Context, id uuid.UUID) (models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM plan_jobs WHERE id=$1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Job{}, ErrNotFound
		}
		return models.Job{}, fmt.Errorf("get plan job: %w", err)
	}
	return job, nil
}

func (s *PGStore) ClaimNextJob(ctx context.Context) (models.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Job{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const selectQueued = `
		SELECT id FROM plan_jobs
		WHERE state='queued'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`
	var jobID uuid.UUID
	if err := tx.QueryRowContext(ctx, selectQueued).Scan(&jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Job{}, ErrNotFound
		}
		return models.Job{}, fmt.Errorf("select queued job: %w", err)
	}

	claimQuery := `
		UPDATE plan_jobs
		SET state='running', updated_at=NOW()
		WHERE id=$1
		RETURNING ` + jobColumns
	job, err := scanJob(tx.QueryRowContext(ctx, claimQuery, jobID))
	if err != nil {
		return models.Job{}, fmt.Errorf("claim job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Job{}, fmt.Errorf("commit claim: %w", err)
	}
	return job, nil
}

func (s *PGStore) CompleteJob(ctx context.Context, in CompletionInput) (models.Job, error) {
	if err := in.validate(); err != nil {
		return models.Job{}, err
	}
	var output interface{}
	if len(in.Output) > 0 {
		output = []byte(in.Output)
	}
	query := `
		UPDATE plan_jobs
		SET state=$2, output=$3, error=$4, updated_at=NOW()
		WHERE id=$1 AND state='running'
		RETURNING ` + jobColumns
	job, err := scanJob(s.db.QueryRowContext(ctx, query, in.ID, string(in.State), output, in.Error))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, fmt.Errorf("complete plan job: %w", err)
	}
	if _, gerr := s.GetJob(ctx, in.ID); gerr != nil {
		return models.Job{}, gerr
	}
	return models.Job{}, ErrConflict
}

func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
