package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_OutcomeExclusivity(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("task error clears a previous outcome", func(t *testing.T) {
		r := &ValidationResult{ID: 1}
		r.ApplyOutcome(&ValidationReport{Errors: 2, Warnings: 1}, at)
		require.True(t, r.HasErrors())

		r.ApplyTaskError("validator crashed", at.Add(time.Minute))

		assert.False(t, r.HasOutcome())
		assert.Nil(t, r.Warnings)
		require.NotNil(t, r.TaskError)
		assert.Equal(t, "validator crashed", *r.TaskError)
		assert.True(t, r.IsCompleted())
	})

	t.Run("successful retry overwrites an earlier task error", func(t *testing.T) {
		r := &ValidationResult{ID: 2}
		r.ApplyTaskError("timeout", at)

		r.ApplyOutcome(&ValidationReport{Errors: 0, Warnings: 3}, at.Add(time.Minute))

		assert.Nil(t, r.TaskError)
		require.True(t, r.HasOutcome())
		assert.False(t, r.HasErrors())
		assert.Equal(t, 3, *r.Warnings)
		assert.Equal(t, at.Add(time.Minute), *r.Completed)
	})

	t.Run("nil report is an empty outcome", func(t *testing.T) {
		r := &ValidationResult{}
		r.ApplyOutcome(nil, at)
		require.True(t, r.HasOutcome())
		assert.Equal(t, 0, *r.Errors)
	})
}

func TestResultCounts_AllCompleted(t *testing.T) {
	tests := []struct {
		counts ResultCounts
		want   bool
	}{
		{ResultCounts{}, false},
		{ResultCounts{Total: 2, Completed: 2}, true},
		{ResultCounts{Total: 2, Completed: 1}, false},
		{ResultCounts{Total: 2, Completed: 2, ExpandChunks: 2, PendingExpansions: 1}, false},
		{ResultCounts{ExpandChunks: 2, PendingExpansions: 1}, false},
		{ResultCounts{ExpandChunks: 2}, true},
		{ResultCounts{Total: 3, Completed: 3, ExpandChunks: 2}, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.counts.AllCompleted(), "%+v", tt.counts)
	}
}

func TestFileStatus_Sets(t *testing.T) {
	tests := []struct {
		status      FileStatus
		public      bool
		preliminary bool
		eligible    bool
	}{
		{FileStatusPublic, true, false, false},
		{FileStatusLite, false, true, false},
		{FileStatusLiteAndNominated, false, true, true},
		{FileStatusUnreviewed, false, false, true},
		{FileStatusNominated, false, false, true},
		{FileStatusBeta, false, false, true},
		{FileStatusPending, false, false, false},
		{FileStatusDisabled, false, false, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.public, tt.status.IsPublic(), "public %d", tt.status)
		assert.Equal(t, tt.preliminary, tt.status.IsPreliminary(), "preliminary %d", tt.status)
		assert.Equal(t, tt.eligible, tt.status.IsPreliminaryEligible(), "eligible %d", tt.status)
	}
}

func TestCreateTaskRequest_Validate(t *testing.T) {
	valid := CreateTaskRequest{Type: TaskTypeValidateFile, Payload: []byte(`{"result_id":1}`)}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.Type = "browser"
	require.Error(t, bad.Validate())

	bad = valid
	bad.Payload = []byte(`{`)
	require.Error(t, bad.Validate())

	bad = valid
	bad.Priority = 101
	require.Error(t, bad.Validate())
}

func TestValidateStruct(t *testing.T) {
	req := CreateValidationJobRequest{
		ApplicationID:    1,
		CurrMaxVersionID: 10,
		TargetVersionID:  11,
		FinishEmail:      "ops@example.com",
		AddonIDs:         []int64{3, 4},
	}
	require.NoError(t, ValidateStruct(req))

	same := req
	same.TargetVersionID = same.CurrMaxVersionID
	require.Error(t, ValidateStruct(same))

	badEmail := req
	badEmail.FinishEmail = "not-an-email"
	err := ValidateStruct(badEmail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finish_email")

	noAddons := req
	noAddons.AddonIDs = nil
	require.Error(t, ValidateStruct(noAddons))
}
