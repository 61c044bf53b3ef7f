package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ILLUVRSE/trip-planner/internal/auth"
	"github.com/ILLUVRSE/trip-planner/internal/httpserver"
	"github.com/ILLUVRSE/trip-planner/internal/pipeline"
	"github.com/ILLUVRSE/trip-planner/internal/providers"
	"github.com/ILLUVRSE/trip-planner/internal/runner"
	"github.com/ILLUVRSE/trip-planner/internal/service"
	"github.com/ILLUVRSE/trip-planner/internal/store"
)

const sampleBody = `{
	"source": "New Delhi",
	"destination": "Mumbai",
	"start_date": "2025-12-01",
	"end_date": "2025-12-04",
	"num_travelers": 2,
	"budget": 1500,
	"interests": "food, forts",
	"group_category": "couple",
	"currency": "USD"
}`

var quiet = log.New(io.Discard, "", 0)

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Ping(context.Context) error { return errors.New("connection refused") }

func newServer(t *testing.T, st store.Store, cfg auth.Config) *httptest.Server {
	t.Helper()
	verifier, err := auth.NewVerifier(cfg)
	require.NoError(t, err)
	svc := service.New(st, nil, quiet)
	srv := httptest.NewServer(httpserver.New(svc, verifier, quiet).Router())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func submit(t *testing.T, srv *httptest.Server, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/plan", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore(), auth.Config{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["ok"])
}

func TestHealthReportsDatabase(t *testing.T) {
	srv := newServer(t, failingStore{store.NewMemoryStore()}, auth.Config{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "connection refused", body["db"])
}

func TestSubmitAndPoll(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newServer(t, st, auth.Config{})

	resp := submit(t, srv, sampleBody, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	handle := decode(t, resp)
	assert.Equal(t, "queued", handle["status"])
	taskID, ok := handle["task_id"].(string)
	require.True(t, ok)

	resp, err := http.Get(srv.URL + "/plan/status/" + taskID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", decode(t, resp)["status"])

	c := providers.NewStaticCatalog()
	o, err := pipeline.New(pipeline.Config{
		Providers: providers.Set{Flights: c, Hotels: c, Activities: c},
		Logger:    quiet,
	})
	require.NoError(t, err)
	processed, err := runner.ProcessNextJob(context.Background(), o, st, runner.Config{Logger: quiet})
	require.NoError(t, err)
	require.True(t, processed)

	resp, err = http.Get(srv.URL + "/plan/status/" + taskID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode(t, resp)
	assert.Equal(t, "completed", view["status"])
	plan, ok := view["plan"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Mumbai", plan["destination"])
	assert.EqualValues(t, 500, plan["remaining_budget"])

	resp, err = http.Get(srv.URL + "/plan/jobs/" + taskID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "succeeded", decode(t, resp)["state"])
}

func TestSubmitValidation(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore(), auth.Config{})

	resp := submit(t, srv, strings.Replace(sampleBody, `"num_travelers": 2`, `"num_travelers": 0`, 1), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "num_travelers", decode(t, resp)["field"])

	resp = submit(t, srv, `{"source":`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["error"], "invalid request body")
}

func TestStatusUnknownTask(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore(), auth.Config{})

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		resp, err := http.Get(srv.URL + "/plan/status/" + id)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "task not found", decode(t, resp)["error"])
	}
}

func TestSubmitRequiresAuth(t *testing.T) {
	srv := newServer(t, store.NewMemoryStore(), auth.Config{AllowDebugToken: true, DebugToken: "letmein"})

	resp := submit(t, srv, sampleBody, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = submit(t, srv, sampleBody, http.Header{auth.DebugTokenHeader: {"letmein"}})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
}
