package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/workflow-generator/internal/jobs"
	"github.com/jonathan/workflow-generator/internal/pipeline"
	"github.com/jonathan/workflow-generator/internal/types"
)

// maxBodyBytes bounds an intake request body.
const maxBodyBytes = 1 << 20

// SubmitResponse is the body of a 202 from POST /jobs.
type SubmitResponse struct {
	JobID     string          `json:"job_id"`
	Status    types.JobStatus `json:"status"`
	StatusURL string          `json:"status_url"`
}

// JobStatusResponse is the body of GET /jobs/{id}.
type JobStatusResponse struct {
	JobID       string                  `json:"job_id"`
	Status      types.JobStatus         `json:"status"`
	Progress    int                     `json:"progress"`
	Stage       string                  `json:"stage,omitempty"`
	Result      *types.GenerationResult `json:"result,omitempty"`
	Error       *types.Failure          `json:"error,omitempty"`
	SubmittedAt time.Time               `json:"submitted_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func newJobStatusResponse(rec *types.JobRecord) JobStatusResponse {
	return JobStatusResponse{
		JobID:       rec.ID,
		Status:      rec.Status,
		Progress:    rec.Progress,
		Stage:       rec.Stage,
		Result:      rec.Result,
		Error:       rec.Error,
		SubmittedAt: rec.SubmittedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func (s *Server) decodeIntake(w http.ResponseWriter, r *http.Request) (jobs.IntakeRequest, bool) {
	var req jobs.IntakeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

// handleSubmitJob accepts a job and returns before generation starts.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeIntake(w, r)
	if !ok {
		return
	}

	rec, err := s.jobs.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	statusURL := "/jobs/" + rec.ID
	w.Header().Set("Location", statusURL)
	s.jsonResponse(w, http.StatusAccepted, SubmitResponse{
		JobID:     rec.ID,
		Status:    rec.Status,
		StatusURL: statusURL,
	})
}

// handleGetJob returns the status of one job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	rec, err := s.jobs.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newJobStatusResponse(rec))
}

// handleListJobs returns recent jobs without their results.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	recs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]JobStatusResponse, 0, len(recs))
	for _, rec := range recs {
		resp := newJobStatusResponse(rec)
		resp.Result = nil
		out = append(out, resp)
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": out})
}

// handleStreamJob runs a job synchronously and streams progress as SSE.
// Disconnecting the client cancels the run.
func (s *Server) handleStreamJob(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeIntake(w, r)
	if !ok {
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	rec, err := s.jobs.Run(r.Context(), req, func(e pipeline.ProgressEvent) {
		if err := stream.send(eventProgress, e); err != nil {
			s.logger.Debug("failed to write progress event", "job_id", e.JobID, "error", err)
		}
	})
	switch {
	case err != nil && !stream.open():
		s.writeError(w, r, err)
	case err != nil:
		stream.fail(toErrorResponse(err).Error)
	case rec == nil:
		stream.fail("job record unavailable")
	default:
		if err := stream.send(eventResult, newJobStatusResponse(rec)); err != nil {
			s.logger.Debug("failed to write result event", "job_id", rec.ID, "error", err)
		}
		stream.finish(rec.ID, string(rec.Status))
	}
}

// handleBudget returns the current spend window.
func (s *Server) handleBudget(w http.ResponseWriter, _ *http.Request) {
	if s.budget == nil {
		s.errorResponse(w, http.StatusNotFound, "budget tracking is not configured")
		return
	}
	s.jsonResponse(w, http.StatusOK, s.budget.Snapshot())
}

// handleHealth reports ok, or 503 when a dependency check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.healthChecks))
	for name, check := range s.healthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]any{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	s.jsonResponse(w, status, body)
}
