package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/workflow-generator/internal/jobs"
	"github.com/jonathan/workflow-generator/internal/llm"
	"github.com/jonathan/workflow-generator/internal/types"
)

// JobStore persists job records. It implements jobs.Store.
type JobStore struct {
	db *DB
}

// NewJobStore creates a JobStore over an open connection.
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

var _ jobs.Store = (*JobStore)(nil)

const jobColumns = `id, status, progress, stage, job, result, failure, submitted_at, updated_at`

// jobRow holds the encoded JSONB columns of one record.
type jobRow struct {
	job     []byte
	result  []byte
	failure []byte
}

func encodeRecord(rec *types.JobRecord) (*jobRow, error) {
	var row jobRow
	var err error
	if row.job, err = json.Marshal(rec.Job); err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	if rec.Result != nil {
		if row.result, err = json.Marshal(rec.Result); err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
	}
	if rec.Error != nil {
		if row.failure, err = json.Marshal(rec.Error); err != nil {
			return nil, fmt.Errorf("failed to marshal failure: %w", err)
		}
	}
	return &row, nil
}

func decodeRecord(rec *types.JobRecord, row *jobRow) error {
	if len(row.job) > 0 {
		if err := json.Unmarshal(row.job, &rec.Job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}
	}
	if len(row.result) > 0 {
		if err := json.Unmarshal(row.result, &rec.Result); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	if len(row.failure) > 0 {
		if err := json.Unmarshal(row.failure, &rec.Error); err != nil {
			return fmt.Errorf("failed to unmarshal failure: %w", err)
		}
	}
	return nil
}

// Create inserts a new record.
func (s *JobStore) Create(ctx context.Context, rec *types.JobRecord) error {
	row, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO generation_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Status, rec.Progress, rec.Stage, row.job, row.result, row.failure,
		rec.SubmittedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", rec.ID, err)
	}
	return nil
}

// Update replaces the mutable columns of a record. When the record carries a
// result, its attempts are written to generation_attempts in the same
// transaction.
func (s *JobStore) Update(ctx context.Context, rec *types.JobRecord) error {
	row, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE generation_jobs
		 SET status = $2, progress = $3, stage = $4, result = $5, failure = $6, updated_at = $7
		 WHERE id = $1`,
		rec.ID, rec.Status, rec.Progress, rec.Stage, row.result, row.failure, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return jobs.ErrJobNotFound
	}

	if rec.Result != nil && len(rec.Result.Attempts) > 0 {
		if err := writeAttempts(ctx, tx, rec.ID, rec.Result.Attempts); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit job %s: %w", rec.ID, err)
	}
	return nil
}

func writeAttempts(ctx context.Context, tx pgx.Tx, jobID string, attempts []types.GenerationAttempt) error {
	if _, err := tx.Exec(ctx, `DELETE FROM generation_attempts WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to clear attempts for %s: %w", jobID, err)
	}

	batch := &pgx.Batch{}
	for i, a := range attempts {
		var errMsg *string
		if a.Error != "" {
			errMsg = &a.Error
		}
		batch.Queue(
			`INSERT INTO generation_attempts (job_id, seq, tier, provider, model, prompt_tokens,
			        completion_tokens, cost_usd, duration_ms, outcome, error_message, attempted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			jobID, i, string(a.Tier), a.Provider, a.Model, a.PromptTokens,
			a.CompletionTokens, a.CostUSD, a.DurationMs, string(a.Outcome), errMsg, a.At,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save attempts for %s: %w", jobID, err)
	}
	return nil
}

// Get retrieves a record by id. Unknown ids return jobs.ErrJobNotFound.
func (s *JobStore) Get(ctx context.Context, id string) (*types.JobRecord, error) {
	rec, err := scanRecord(s.db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobs.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return rec, nil
}

// List returns the most recently submitted records first.
func (s *JobStore) List(ctx context.Context, limit int) ([]*types.JobRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs ORDER BY submitted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []*types.JobRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return out, nil
}

// ListAttempts returns the stored attempts of a job in call order.
func (s *JobStore) ListAttempts(ctx context.Context, jobID string) ([]types.GenerationAttempt, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT tier, provider, model, prompt_tokens, completion_tokens, cost_usd,
		        duration_ms, outcome, COALESCE(error_message, ''), attempted_at
		 FROM generation_attempts WHERE job_id = $1 ORDER BY seq`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts for %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []types.GenerationAttempt
	for rows.Next() {
		a := types.GenerationAttempt{JobID: jobID}
		var tier, outcome string
		if err := rows.Scan(&tier, &a.Provider, &a.Model, &a.PromptTokens, &a.CompletionTokens,
			&a.CostUSD, &a.DurationMs, &outcome, &a.Error, &a.At); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Tier = llm.ModelTier(tier)
		a.Outcome = types.AttemptOutcome(outcome)
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*types.JobRecord, error) {
	var rec types.JobRecord
	var raw jobRow
	var status string
	if err := row.Scan(&rec.ID, &status, &rec.Progress, &rec.Stage, &raw.job, &raw.result,
		&raw.failure, &rec.SubmittedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = types.JobStatus(status)
	if err := decodeRecord(&rec, &raw); err != nil {
		return nil, err
	}
	return &rec, nil
}
