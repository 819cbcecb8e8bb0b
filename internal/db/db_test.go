package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/workflow-generator/internal/types"
)

func TestEncodeDecodeRecord(t *testing.T) {
	rec := &types.JobRecord{
		ID:     "job-1",
		Status: types.StatusFailed,
		Job:    &types.Job{ID: "job-1", ProcessDescription: "sync the CRM to the warehouse"},
		Result: &types.GenerationResult{
			Attempts: []types.GenerationAttempt{{Provider: "google", Model: "gemini-2.5-flash", Outcome: types.OutcomeTimeout}},
		},
		Error: &types.Failure{Reason: types.ReasonChainExhausted, Message: "no model succeeded"},
	}

	row, err := encodeRecord(rec)
	require.NoError(t, err)
	assert.NotEmpty(t, row.job)
	assert.NotEmpty(t, row.result)
	assert.NotEmpty(t, row.failure)

	var out types.JobRecord
	require.NoError(t, decodeRecord(&out, row))
	assert.Equal(t, rec.Job.ProcessDescription, out.Job.ProcessDescription)
	assert.Equal(t, types.ReasonChainExhausted, out.Error.Reason)
	require.Len(t, out.Result.Attempts, 1)
	assert.Equal(t, types.OutcomeTimeout, out.Result.Attempts[0].Outcome)
}

func TestEncodeRecord_OptionalColumnsStayNull(t *testing.T) {
	row, err := encodeRecord(&types.JobRecord{ID: "job-2", Job: &types.Job{ID: "job-2"}, SubmittedAt: time.Now()})
	require.NoError(t, err)
	assert.Nil(t, row.result)
	assert.Nil(t, row.failure)
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS generation_jobs")
	assert.Contains(t, schemaSQL, "generation_attempts")
}
