package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/workflow-generator/internal/pipeline"
	"github.com/jonathan/workflow-generator/internal/types"
)

// IntakeRequest is the body of a job submission.
type IntakeRequest struct {
	ProcessDescription      string                        `json:"process_description"`
	BusinessContext         *types.BusinessContext        `json:"business_context,omitempty"`
	AutomationOpportunities []types.AutomationOpportunity `json:"automation_opportunities"`
	PatternHint             string                        `json:"pattern_hint,omitempty"`
}

// Generator runs one job. pipeline.Coordinator implements it.
type Generator interface {
	Generate(ctx context.Context, job *types.Job, onProgress pipeline.ProgressCallback) *types.GenerationResult
}

// Options configures a Service.
type Options struct {
	MaxConcurrent int
	// JobTimeout bounds one run end to end. Zero means no bound.
	JobTimeout time.Duration
	Logger     *slog.Logger
}

// Service validates submissions and runs them on a bounded pool.
type Service struct {
	gen      Generator
	store    Store
	validate *validator.Validate
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService creates a Service.
func NewService(gen Generator, store Store, opts Options) *Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if store == nil {
		store = NewMemoryStore()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		gen:      gen,
		store:    store,
		validate: v,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		timeout:  opts.JobTimeout,
		logger:   opts.Logger,
		now:      time.Now,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// NewJob validates a request and turns it into an immutable Job.
func (s *Service) NewJob(req IntakeRequest) (*types.Job, error) {
	job := &types.Job{
		ID:                      uuid.NewString(),
		ProcessDescription:      strings.TrimSpace(req.ProcessDescription),
		BusinessContext:         req.BusinessContext,
		AutomationOpportunities: req.AutomationOpportunities,
		PatternHint:             strings.TrimSpace(req.PatternHint),
		SubmittedAt:             s.now().UTC(),
	}
	if err := s.validate.Struct(job); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, toInvalidJobError(verrs)
		}
		return nil, fmt.Errorf("failed to validate job: %w", err)
	}
	return job, nil
}

// Submit validates the request, records it as queued, and starts processing
// in the background. It returns as soon as the job is recorded.
func (s *Service) Submit(ctx context.Context, req IntakeRequest) (*types.JobRecord, error) {
	job, err := s.NewJob(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShuttingDown
	}
	// Counted before the store write so Shutdown waits for it.
	s.wg.Add(1)
	s.mu.Unlock()

	rec := s.newRecord(job)
	if err := s.store.Create(ctx, rec); err != nil {
		s.wg.Done()
		return nil, &StoreError{Message: "failed to record job", Cause: err}
	}

	go s.process(job)

	s.logger.Info("job queued", "job_id", job.ID)
	return rec, nil
}

// Run processes a job synchronously, forwarding progress to onProgress.
// Cancelling ctx cancels the run.
func (s *Service) Run(ctx context.Context, req IntakeRequest, onProgress pipeline.ProgressCallback) (*types.JobRecord, error) {
	job, err := s.NewJob(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShuttingDown
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	rec := s.newRecord(job)
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, &StoreError{Message: "failed to record job", Cause: err}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return s.fail(job.ID, err), nil
	}
	defer s.sem.Release(1)

	return s.execute(ctx, job, onProgress), nil
}

// Status returns the current record of a job.
func (s *Service) Status(ctx context.Context, id string) (*types.JobRecord, error) {
	return s.store.Get(ctx, id)
}

// List returns recent jobs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*types.JobRecord, error) {
	return s.store.List(ctx, limit)
}

// Shutdown stops accepting jobs and waits for in-flight ones. If ctx ends
// first, in-flight runs are cancelled.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Service) newRecord(job *types.Job) *types.JobRecord {
	return &types.JobRecord{
		ID:          job.ID,
		Status:      types.StatusQueued,
		Job:         job,
		SubmittedAt: job.SubmittedAt,
		UpdatedAt:   job.SubmittedAt,
	}
}

func (s *Service) process(job *types.Job) {
	defer s.wg.Done()

	if err := s.sem.Acquire(s.baseCtx, 1); err != nil {
		s.fail(job.ID, err)
		return
	}
	defer s.sem.Release(1)

	s.execute(s.baseCtx, job, nil)
}

func (s *Service) execute(ctx context.Context, job *types.Job, onProgress pipeline.ProgressCallback) *types.JobRecord {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.update(job.ID, func(rec *types.JobRecord) {
		rec.Status = types.StatusProcessing
	})

	result := s.gen.Generate(ctx, job, func(e pipeline.ProgressEvent) {
		s.update(job.ID, func(rec *types.JobRecord) {
			rec.Progress = e.Progress
			rec.Stage = e.Stage
		})
		if onProgress != nil {
			onProgress(e)
		}
	})

	return s.update(job.ID, func(rec *types.JobRecord) {
		rec.Result = result
		rec.Progress = 100
		rec.Error = result.Failure
		if result.Succeeded() {
			rec.Status = types.StatusCompleted
		} else {
			rec.Status = types.StatusFailed
		}
	})
}

func (s *Service) fail(id string, err error) *types.JobRecord {
	return s.update(id, func(rec *types.JobRecord) {
		rec.Status = types.StatusFailed
		rec.Progress = 100
		rec.Error = &types.Failure{Reason: types.ReasonCancelled, Message: err.Error()}
	})
}

// update applies fn to the stored record. Store failures are logged, not
// returned, so a flaky store never aborts a run.
func (s *Service) update(id string, fn func(rec *types.JobRecord)) *types.JobRecord {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("failed to load job record", "job_id", id, "error", err)
		return nil
	}
	fn(rec)
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, rec); err != nil {
		s.logger.Error("failed to update job record", "job_id", id, "error", err)
	}
	return rec
}

func toInvalidJobError(verrs validator.ValidationErrors) *InvalidJobError {
	out := &InvalidJobError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe.Namespace()), Message: describe(fe)})
	}
	return out
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must have at least %s items", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must have at most %s items", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
