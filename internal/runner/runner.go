package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ILLUVRSE/trip-planner/internal/canonical"
	"github.com/ILLUVRSE/trip-planner/internal/events"
	"github.com/ILLUVRSE/trip-planner/internal/models"
	"github.com/ILLUVRSE/trip-planner/internal/store"
)

// Pipeline produces the itinerary for one job.
type Pipeline interface {
	Run(ctx context.Context, jobID string, req models.TripRequest) (models.FinalItineraryOutput, error)
}

type Config struct {
	PollInterval time.Duration
	Events       events.Publisher
	Logger       *log.Logger
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Events == nil {
		c.Events = events.Noop{}
	}
	if c.Logger == nil {
		c.Logger = log.New(os.Stdout, "[worker] ", log.LstdFlags)
	}
	return c
}

// RunWorker continuously polls for queued plan jobs and executes them until ctx is cancelled.
func RunWorker(ctx context.Context, p Pipeline, st store.Store, cfg Config) {
	cfg = cfg.withDefaults()
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := ProcessNextJob(ctx, p, st, cfg)
		if err != nil {
			cfg.Logger.Printf("process plan job: %v", err)
		}
		if !processed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.PollInterval):
			}
		}
	}
}

// ProcessNextJob claims one queued job, runs the pipeline and writes the
// job's single terminal state. It reports whether a job was claimed. A job
// that fails is not an error here; only store failures are returned.
func ProcessNextJob(ctx context.Context, p Pipeline, st store.Store, cfg Config) (bool, error) {
	cfg = cfg.withDefaults()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	job, err := st.ClaimNextJob(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	publish(ctx, cfg, job)

	completion := store.CompletionInput{ID: job.ID}
	output, runErr := execute(ctx, p, job)
	if runErr != nil {
		cfg.Logger.Printf("job %s failed: %v", job.ID, runErr)
		completion.State = models.JobFailed
		completion.Error = runErr.Error()
	} else {
		completion.State = models.JobSucceeded
		completion.Output = output
	}

	// The terminal write must land even if the worker is shutting down.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	done, err := st.CompleteJob(writeCtx, completion)
	if err != nil {
		return true, fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	publish(writeCtx, cfg, done)
	return true, nil
}

func execute(ctx context.Context, p Pipeline, job models.Job) (output []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	req, err := job.TripRequest()
	if err != nil {
		return nil, err
	}
	// A claimed job runs to its terminal state; worker shutdown does not
	// reach the provider calls.
	plan, err := p.Run(context.WithoutCancel(ctx), job.ID.String(), req)
	if err != nil {
		return nil, err
	}
	plain, err := canonical.ToMap(plan)
	if err != nil {
		return nil, fmt.Errorf("serialize plan: %w", err)
	}
	return canonical.Marshal(plain)
}

func publish(ctx context.Context, cfg Config, job models.Job) {
	if err := cfg.Events.Publish(ctx, events.ForJob(job)); err != nil {
		cfg.Logger.Printf("publish event for %s: %v", job.ID, err)
	}
}
