package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/events"
	"github.com/ILLUVRSE/trip-planner/internal/models"
	"github.com/ILLUVRSE/trip-planner/internal/service"
	"github.com/ILLUVRSE/trip-planner/internal/store"
)

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func sampleRequest() models.TripRequest {
	return models.TripRequest{
		Source:        "New Delhi",
		Destination:   "Mumbai",
		StartDate:     "2025-12-01",
		EndDate:       "2025-12-04",
		NumTravelers:  2,
		Budget:        budget.Units(1500),
		Interests:     models.Interests{"food", "forts"},
		GroupCategory: models.GroupCouple,
		Currency:      "usd",
	}
}

func newService(st store.Store, pub events.Publisher) *service.Service {
	return service.New(st, pub, log.New(io.Discard, "", 0))
}

func TestSubmitQueuesJob(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := newService(st, pub)

	handle, err := svc.Submit(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "queued", handle.Status)
	assert.Contains(t, handle.Message, "/plan/status/"+handle.TaskID.String())

	job, err := st.GetJob(ctx, handle.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.State)
	req, err := job.TripRequest()
	require.NoError(t, err)
	assert.Equal(t, "USD", req.Currency)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeQueued, pub.events[0].Type)
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(st, nil)
	req := sampleRequest()
	req.NumTravelers = 0

	_, err := svc.Submit(context.Background(), req)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "num_travelers", verr.Field)

	_, err = st.ClaimNextJob(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmitSurvivesPublishFailure(t *testing.T) {
	svc := newService(store.NewMemoryStore(), &recordingPublisher{err: errors.New("broker down")})
	_, err := svc.Submit(context.Background(), sampleRequest())
	require.NoError(t, err)
}

func TestStatusViews(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(st, nil)

	handle, err := svc.Submit(ctx, sampleRequest())
	require.NoError(t, err)

	view, err := svc.Status(ctx, handle.TaskID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusView{Status: "processing", Message: "Agents are working..."}, view)

	_, err = st.ClaimNextJob(ctx)
	require.NoError(t, err)
	view, err = svc.Status(ctx, handle.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "running", view.Status)

	plan := json.RawMessage(`{"destination":"Mumbai"}`)
	_, err = st.CompleteJob(ctx, store.CompletionInput{ID: handle.TaskID, State: models.JobSucceeded, Output: plan})
	require.NoError(t, err)

	first, err := svc.Status(ctx, handle.TaskID)
	require.NoError(t, err)
	second, err := svc.Status(ctx, handle.TaskID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "completed", first.Status)
	assert.JSONEq(t, string(plan), string(first.Plan))
}

func TestStatusFailedJob(t *testing.T) {
	view := service.View(models.Job{State: models.JobFailed, Error: "flight research: boom"})
	assert.Equal(t, service.StatusView{Status: "failed", Error: "flight research: boom"}, view)
}

func TestStatusUnknownJob(t *testing.T) {
	svc := newService(store.NewMemoryStore(), nil)
	_, err := svc.Status(context.Background(), uuid.New())
	var nf *service.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSubmitRejectsInvertedDates(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(st, nil)
	req := sampleRequest()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate

	_, err := svc.Submit(context.Background(), req)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end_date", verr.Field)

	_, err = st.ClaimNextJob(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
