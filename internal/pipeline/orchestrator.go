// Package pipeline runs one trip request through planning, flight research,
// hotel research, activity planning and assembly. Stage failures are carried
// as data to assembly; only infrastructure faults are returned as errors.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/canonical"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
	"github.com/ILLUVRSE/trip-planner/internal/engine"
	"github.com/ILLUVRSE/trip-planner/internal/models"
	"github.com/ILLUVRSE/trip-planner/internal/providers"
)

// Archiver stores a stage output and returns the key it was written under.
type Archiver interface {
	ArchiveStage(ctx context.Context, jobID string, stage contracts.Stage, body []byte) (string, error)
}

type Config struct {
	Split     budget.Split
	Providers providers.Set
	Engine    engine.Engine
	Archiver  Archiver
	Logger    *log.Logger
}

type Orchestrator struct {
	split     budget.Split
	providers providers.Set
	engine    engine.Engine
	archiver  Archiver
	logger    *log.Logger
}

func New(cfg Config) (*Orchestrator, error) {
	split := cfg.Split
	if split == (budget.Split{}) {
		split = budget.DefaultSplit
	}
	if err := split.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Providers.Validate(); err != nil {
		return nil, err
	}
	eng := cfg.Engine
	if eng == nil {
		eng = engine.NewRules()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[pipeline] ", log.LstdFlags)
	}
	return &Orchestrator{
		split:     split,
		providers: cfg.Providers,
		engine:    eng,
		archiver:  cfg.Archiver,
		logger:    logger,
	}, nil
}

// State is owned by a single Run and never shared.
type State struct {
	JobID      string
	Request    models.TripRequest
	Ledger     budget.Ledger
	Allocation budget.Allocation
	Planning   contracts.PlanningOutput
	Flight     contracts.StageResult[contracts.FlightResearchOutput]
	Hotel      contracts.StageResult[contracts.HotelResearchOutput]
	Activities contracts.StageResult[contracts.ActivityPlanningOutput]
	Trace      map[string]string
	history    []budget.Amount
}

// advance moves the ledger forward. The remaining budget may never grow.
func (s *State) advance(next budget.Ledger) error {
	if next.Remaining() > s.Ledger.Remaining() {
		return fmt.Errorf("ledger grew from %s to %s", s.Ledger.Remaining(), next.Remaining())
	}
	s.Ledger = next
	s.history = append(s.history, next.Remaining())
	return nil
}

// RemainingHistory lists the remaining budget after each stage, starting with
// the total.
func (s *State) RemainingHistory() []budget.Amount {
	return append([]budget.Amount(nil), s.history...)
}

// Run executes the pipeline for one request.
func (o *Orchestrator) Run(ctx context.Context, jobID string, req models.TripRequest) (models.FinalItineraryOutput, error) {
	out, _, err := o.RunWithState(ctx, jobID, req)
	return out, err
}

// RunWithState is Run that also returns the final pipeline state.
func (o *Orchestrator) RunWithState(ctx context.Context, jobID string, req models.TripRequest) (models.FinalItineraryOutput, *State, error) {
	st := &State{JobID: jobID, Request: req.Normalize()}

	if err := o.plan(st); err != nil {
		return models.FinalItineraryOutput{}, st, err
	}
	if err := o.researchFlights(ctx, st); err != nil {
		return models.FinalItineraryOutput{}, st, fmt.Errorf("flight research: %w", err)
	}
	if err := o.researchHotels(ctx, st); err != nil {
		return models.FinalItineraryOutput{}, st, fmt.Errorf("hotel research: %w", err)
	}
	if err := o.planActivities(ctx, st); err != nil {
		return models.FinalItineraryOutput{}, st, fmt.Errorf("activity planning: %w", err)
	}
	out, err := o.assemble(st)
	if err != nil {
		return models.FinalItineraryOutput{}, st, fmt.Errorf("assembly: %w", err)
	}
	if out.Degraded() {
		o.logger.Printf("job %s: assembled with %d failure(s)", jobID, len(out.Failures))
	} else {
		o.logger.Printf("job %s: assembled, total %s, remaining %s", jobID, *out.TotalCost, *out.RemainingBudget)
	}
	return out, st, nil
}

func (o *Orchestrator) archive(ctx context.Context, st *State, stage contracts.Stage, traceKey string, v any) {
	if o.archiver == nil {
		return
	}
	body, err := canonical.Marshal(v)
	if err != nil {
		o.logger.Printf("job %s: encode %s for archive: %v", st.JobID, stage, err)
		return
	}
	key, err := o.archiver.ArchiveStage(ctx, st.JobID, stage, body)
	if err != nil {
		o.logger.Printf("job %s: archive %s: %v", st.JobID, stage, err)
		return
	}
	if st.Trace == nil {
		st.Trace = map[string]string{}
	}
	st.Trace[traceKey] = key
}
