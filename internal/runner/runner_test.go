package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
	"github.com/ILLUVRSE/trip-planner/internal/events"
	"github.com/ILLUVRSE/trip-planner/internal/models"
	"github.com/ILLUVRSE/trip-planner/internal/pipeline"
	"github.com/ILLUVRSE/trip-planner/internal/providers"
	"github.com/ILLUVRSE/trip-planner/internal/runner"
	"github.com/ILLUVRSE/trip-planner/internal/store"
)

type pipelineFunc func(context.Context, string, models.TripRequest) (models.FinalItineraryOutput, error)

func (f pipelineFunc) Run(ctx context.Context, jobID string, req models.TripRequest) (models.FinalItineraryOutput, error) {
	return f(ctx, jobID, req)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func quietConfig(pub events.Publisher) runner.Config {
	return runner.Config{PollInterval: 10 * time.Millisecond, Events: pub, Logger: log.New(io.Discard, "", 0)}
}

func queueSample(t *testing.T, st store.Store) models.Job {
	t.Helper()
	req := models.TripRequest{
		Source: "New Delhi", Destination: "Mumbai",
		StartDate: "2025-12-01", EndDate: "2025-12-04",
		NumTravelers: 2, Budget: budget.Units(1500),
		Interests:     models.Interests{"food", "forts"},
		GroupCategory: models.GroupCouple, Currency: "USD",
	}
	input, err := json.Marshal(req)
	require.NoError(t, err)
	job, err := st.CreateJob(context.Background(), store.JobInput{Input: input})
	require.NoError(t, err)
	return job
}

func staticPipeline(t *testing.T) *pipeline.Orchestrator {
	t.Helper()
	c := providers.NewStaticCatalog()
	o, err := pipeline.New(pipeline.Config{
		Providers: providers.Set{Flights: c, Hotels: c, Activities: c},
		Logger:    log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	return o
}

func TestProcessNextJobStoresPlainPlan(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	job := queueSample(t, st)

	processed, err := runner.ProcessNextJob(ctx, staticPipeline(t), st, quietConfig(pub))
	require.NoError(t, err)
	require.True(t, processed)

	done, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, done.State)
	assert.Empty(t, done.Error)

	var plan map[string]any
	require.NoError(t, json.Unmarshal(done.Output, &plan))
	assert.Equal(t, "Mumbai", plan["destination"])
	assert.EqualValues(t, 1000, plan["total_cost"])
	assert.EqualValues(t, 500, plan["remaining_budget"])
	assert.NotContains(t, plan, "failures")

	assert.Equal(t, []string{events.TypeRunning, events.TypeSucceeded}, pub.types())
}

func TestProcessNextJobIdle(t *testing.T) {
	processed, err := runner.ProcessNextJob(context.Background(), staticPipeline(t), store.NewMemoryStore(), quietConfig(nil))
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessNextJobMarksFailure(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	job := queueSample(t, st)
	p := pipelineFunc(func(context.Context, string, models.TripRequest) (models.FinalItineraryOutput, error) {
		return models.FinalItineraryOutput{}, errors.New("flight research: booking fault: credentials rejected")
	})

	processed, err := runner.ProcessNextJob(ctx, p, st, quietConfig(pub))
	require.NoError(t, err)
	require.True(t, processed)

	done, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, done.State)
	assert.Equal(t, "flight research: booking fault: credentials rejected", done.Error)
	assert.Nil(t, done.Output)
	assert.Equal(t, []string{events.TypeRunning, events.TypeFailed}, pub.types())
}

func TestProcessNextJobRecoversPanic(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	job := queueSample(t, st)
	p := pipelineFunc(func(context.Context, string, models.TripRequest) (models.FinalItineraryOutput, error) {
		panic("nil map")
	})

	processed, err := runner.ProcessNextJob(ctx, p, st, quietConfig(nil))
	require.NoError(t, err)
	require.True(t, processed)

	done, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, done.State)
	assert.Contains(t, done.Error, "nil map")
}

func TestWorkersRunEachJobOnce(t *testing.T) {
	st := store.NewMemoryStore()
	const jobs = 20
	for i := 0; i < jobs; i++ {
		queueSample(t, st)
	}

	var (
		mu   sync.Mutex
		runs = map[string]int{}
		done int32
	)
	p := pipelineFunc(func(_ context.Context, jobID string, req models.TripRequest) (models.FinalItineraryOutput, error) {
		mu.Lock()
		runs[jobID]++
		mu.Unlock()
		atomic.AddInt32(&done, 1)
		return models.FinalItineraryOutput{Destination: req.Destination, Failures: []models.AssemblyFailure{{Component: "flights", Reason: "none"}}}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.RunWorker(ctx, p, st, quietConfig(nil))
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&done) == jobs }, 5*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, runs, jobs)
	for id, n := range runs {
		assert.Equal(t, 1, n, "job %s ran %d times", id, n)
	}
}

type shutdownFlights struct {
	*providers.StaticCatalog
	started chan struct{}
}

func (s shutdownFlights) SearchFlights(ctx context.Context, q providers.FlightQuery) ([]contracts.FlightOffer, error) {
	close(s.started)
	select {
	case <-ctx.Done():
		return nil, &providers.ProviderError{Provider: "booking", Op: "search flights", Err: ctx.Err()}
	case <-time.After(100 * time.Millisecond):
	}
	return s.StaticCatalog.SearchFlights(ctx, q)
}

func TestProcessNextJobFinishesAfterShutdown(t *testing.T) {
	st := store.NewMemoryStore()
	job := queueSample(t, st)
	c := providers.NewStaticCatalog()
	flights := shutdownFlights{StaticCatalog: c, started: make(chan struct{})}
	o, err := pipeline.New(pipeline.Config{
		Providers: providers.Set{Flights: flights, Hotels: c, Activities: c},
		Logger:    log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := runner.ProcessNextJob(ctx, o, st, quietConfig(nil))
		result <- err
	}()
	<-flights.started
	cancel()
	require.NoError(t, <-result)

	done, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, done.State)
	var plan map[string]any
	require.NoError(t, json.Unmarshal(done.Output, &plan))
	assert.NotContains(t, plan, "failures")
	assert.EqualValues(t, 500, plan["remaining_budget"])
}
