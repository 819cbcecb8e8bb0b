package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/cost"
	"github.com/jonathan/workflow-generator/internal/jobs"
	"github.com/jonathan/workflow-generator/internal/observability"
	"github.com/jonathan/workflow-generator/internal/pipeline"
	"github.com/jonathan/workflow-generator/internal/server/ratelimit"
	"github.com/jonathan/workflow-generator/internal/types"
)

// stubGenerator completes every job with a one-node workflow.
type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, job *types.Job, onProgress pipeline.ProgressCallback) *types.GenerationResult {
	for _, stage := range []string{pipeline.StageAnalyze, pipeline.StageBlueprint, pipeline.StageComplete} {
		def, _ := pipeline.LookupStage(stage)
		onProgress(pipeline.ProgressEvent{JobID: job.ID, Stage: stage, Category: def.Category, Progress: def.Progress})
	}
	return &types.GenerationResult{
		Workflow: &types.WorkflowDraft{
			Name:  "Fetch and transform",
			Nodes: []types.Node{{ID: "trigger", Type: types.NodeWebhook, Name: "Webhook"}},
		},
		Validation: &types.ValidationResult{Valid: true, Errors: []types.ValidationIssue{}, RepairsApplied: []types.RepairRecord{}},
	}
}

type testServer struct {
	*Server
	jobs    *jobs.Service
	monitor *cost.Monitor
}

func newTestServer(t *testing.T, rl *ratelimit.Config, checks map[string]HealthCheck) *testServer {
	t.Helper()
	logger := observability.Discard()
	svc := jobs.NewService(stubGenerator{}, jobs.NewMemoryStore(), jobs.Options{MaxConcurrent: 2, Logger: logger})
	monitor := cost.NewMonitor(cost.Limits{DailyLimitUSD: 5, PerCallLimitUSD: 0.5})
	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	s := New(Config{Port: 0, RateLimit: rl}, Deps{
		Jobs:         svc,
		Budget:       monitor,
		Metrics:      observability.NewMetrics(),
		Logger:       logger,
		HealthChecks: checks,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &testServer{Server: s, jobs: svc, monitor: monitor}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

const validBody = `{
	"process_description": "fetch data from REST API and transform it",
	"automation_opportunities": [
		{"title": "Fetch orders", "step_type": "http"},
		{"title": "Normalize orders", "step_type": "transform"}
	]
}`

func TestSubmitAndPoll(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(http.MethodPost, "/jobs", validBody)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var submitted SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	assert.NotEmpty(t, submitted.JobID)
	assert.Equal(t, types.StatusQueued, submitted.Status)
	assert.Equal(t, "/jobs/"+submitted.JobID, rec.Header().Get("Location"))

	var status JobStatusResponse
	require.Eventually(t, func() bool {
		rec := ts.do(http.MethodGet, "/jobs/"+submitted.JobID, "")
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == types.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.Result)
	assert.Equal(t, "Fetch and transform", status.Result.Workflow.Name)
	assert.Nil(t, status.Error)

	list := ts.do(http.MethodGet, "/jobs?limit=5", "")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), submitted.JobID)
	assert.NotContains(t, list.Body.String(), `"result"`)
}

func TestSubmit_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"malformed json", `{"process_description":`, ""},
		{"missing description", `{"automation_opportunities": []}`, "process_description"},
		{"untitled opportunity", `{"process_description": "fetch data from REST API and transform it", "automation_opportunities": [{"step_type": "http"}]}`, "automation_opportunities[0].title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/jobs", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.wantField != "" {
				require.NotEmpty(t, body.Fields)
				assert.Equal(t, tt.wantField, body.Fields[0].Field)
			}
		})
	}
}

func TestGetJob_NotFound(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(http.MethodGet, "/jobs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs_BadLimit(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/jobs?limit=zero", "").Code)
}

func TestStreamJob(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(http.MethodPost, "/jobs/stream", validBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event: progress\n"))
	assert.Contains(t, body, "event: result\n")
	assert.True(t, strings.HasPrefix(body, "id: 1\nevent: progress\n"))
	assert.Contains(t, body, "id: 5\nevent: complete\n")
	assert.Contains(t, body, `"status":"completed"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), `"status":"completed"}`))
	assert.Less(t, strings.Index(body, `"stage":"analyze"`), strings.Index(body, `"stage":"complete"`))
}

func TestStreamJob_InvalidIsPlainJSON(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(http.MethodPost, "/jobs/stream", `{"process_description": "short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestBudget(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.monitor.Record(nil, types.GenerationAttempt{CostUSD: 1.25, Outcome: types.OutcomeSuccess})

	rec := ts.do(http.MethodGet, "/budget", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state cost.BudgetState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.InDelta(t, 1.25, state.DailySpendUSD, 1e-9)
	assert.Equal(t, 5.0, state.DailyLimitUSD)
	assert.Equal(t, 1, state.Attempts)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	degraded := newTestServer(t, nil, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	rec = degraded.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"ok","redis":"connection refused"}}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.do(http.MethodGet, "/health", "")

	rec := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `workflowgen_http_requests_total{code="200",route="GET /health"} 1`)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/jobs", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	}, nil)

	first := ts.do(http.MethodPost, "/jobs", validBody)
	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := ts.do(http.MethodPost, "/jobs", validBody)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "rate_limit_exceeded")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(http.MethodOptions, "/jobs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSubmit_AfterShutdown(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	require.NoError(t, ts.jobs.Shutdown(context.Background()))

	rec := ts.do(http.MethodPost, "/jobs", validBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&jobs.InvalidJobError{Fields: []jobs.FieldError{{Field: "x", Message: "y"}}}, http.StatusBadRequest},
		{jobs.ErrJobNotFound, http.StatusNotFound},
		{jobs.ErrShuttingDown, http.StatusServiceUnavailable},
		{&jobs.StoreError{Message: "down", Cause: errors.New("conn reset")}, http.StatusInternalServerError},
		{errors.New("anything"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}

	assert.Equal(t, "internal server error", toErrorResponse(errors.New("secret detail")).Error)
}
