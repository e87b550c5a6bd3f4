package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/mocks"
	"github.com/target/mmk-bulkval/internal/testutil"
)

func expanderJob() *model.ValidationJob {
	return &model.ValidationJob{
		ID:             3,
		ApplicationID:  1,
		CurrMaxVersion: model.AppVersion{ID: 10, ApplicationID: 1, Version: "3.6"},
		TargetVersion:  model.AppVersion{ID: 20, ApplicationID: 1, Version: "4.0"},
	}
}

func newTestTallier(t *testing.T, jobs core.ValidationJobRepository, results core.ValidationResultRepository) *Tallier {
	t.Helper()
	tallier, err := NewTallier(TallierOptions{Jobs: jobs, Results: results})
	require.NoError(t, err)
	return tallier
}

func TestExpander_SeedsSelectionAndEnqueuesIncomplete(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockValidationJobRepository(ctrl)
	results := mocks.NewMockValidationResultRepository(ctrl)
	catalog := mocks.NewMockCatalogRepository(ctrl)
	enqueuer := mocks.NewMockTaskEnqueuer(ctrl)
	ctx := context.Background()

	jobs.EXPECT().GetByID(ctx, int64(3)).Return(expanderJob(), nil)
	catalog.EXPECT().GetAddon(ctx, int64(42)).Return(&model.Addon{ID: 42, Slug: "tab-mix"}, nil)
	catalog.EXPECT().ListCandidateFiles(ctx, core.CandidateQuery{AddonID: 42, ApplicationID: 1, CurrMaxVersionID: 10}).
		Return([]model.CandidateFile{
			{VersionID: 1, FileID: 3, Status: model.FileStatusPublic},
			{VersionID: 2, FileID: 5, Status: model.FileStatusPublic},
			{VersionID: 3, FileID: 7, Status: model.FileStatusUnreviewed},
			{VersionID: 3, FileID: 8, Status: model.FileStatusDisabled},
		}, nil)

	done := testutil.TestTime()
	results.EXPECT().Seed(ctx, int64(3), []int64{5, 7}).Return([]*model.ValidationResult{
		{ID: 100, JobID: 3, FileID: 5, Completed: &done},
		{ID: 101, JobID: 3, FileID: 7},
	}, nil)
	enqueuer.EXPECT().Enqueue(ctx, model.TaskTypeValidateFile, model.ValidateFilePayload{ResultID: 101},
		core.EnqueueOptions{Priority: 4, DedupeKey: "validate_file:101"}).Return(&model.Task{ID: "t1"}, nil)

	exp, err := NewExpander(ExpanderOptions{
		Jobs: jobs, Results: results, Catalog: catalog, Enqueuer: enqueuer,
		ValidatePriority: 4, Tallier: newTestTallier(t, jobs, results),
	})
	require.NoError(t, err)

	sum, err := exp.Expand(ctx, 3, []int64{42})
	require.NoError(t, err)
	assert.Equal(t, ExpandSummary{Addons: 1, Results: 2, Enqueued: 1}, sum)
}

func TestExpander_SkipsMissingAddonsAndEmptySelections(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockValidationJobRepository(ctrl)
	results := mocks.NewMockValidationResultRepository(ctrl)
	catalog := mocks.NewMockCatalogRepository(ctrl)
	enqueuer := mocks.NewMockTaskEnqueuer(ctrl)
	ctx := context.Background()

	jobs.EXPECT().GetByID(ctx, int64(3)).Return(expanderJob(), nil)
	catalog.EXPECT().GetAddon(ctx, int64(1)).Return(nil, model.ErrAddonNotFound)
	catalog.EXPECT().GetAddon(ctx, int64(2)).Return(&model.Addon{ID: 2}, nil)
	catalog.EXPECT().ListCandidateFiles(ctx, gomock.Any()).Return(nil, nil)
	results.EXPECT().Seed(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	enqueuer.EXPECT().Enqueue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	exp, err := NewExpander(ExpanderOptions{
		Jobs: jobs, Results: results, Catalog: catalog, Enqueuer: enqueuer,
		Tallier: newTestTallier(t, jobs, results),
	})
	require.NoError(t, err)

	sum, err := exp.Expand(ctx, 3, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, ExpandSummary{Addons: 1, Skipped: 1}, sum)
}

func TestExpander_PropagatesStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockValidationJobRepository(ctrl)
	results := mocks.NewMockValidationResultRepository(ctrl)
	catalog := mocks.NewMockCatalogRepository(ctrl)
	enqueuer := mocks.NewMockTaskEnqueuer(ctrl)
	boom := errors.New("deadlock detected")

	jobs.EXPECT().GetByID(gomock.Any(), int64(3)).Return(expanderJob(), nil)
	catalog.EXPECT().GetAddon(gomock.Any(), int64(42)).Return(&model.Addon{ID: 42}, nil)
	catalog.EXPECT().ListCandidateFiles(gomock.Any(), gomock.Any()).
		Return([]model.CandidateFile{{VersionID: 1, FileID: 9, Status: model.FileStatusPublic}}, nil)
	results.EXPECT().Seed(gomock.Any(), int64(3), []int64{9}).Return(nil, boom)

	exp, err := NewExpander(ExpanderOptions{
		Jobs: jobs, Results: results, Catalog: catalog, Enqueuer: enqueuer,
		Tallier: newTestTallier(t, jobs, results),
	})
	require.NoError(t, err)

	_, err = exp.Expand(context.Background(), 3, []int64{42})
	require.ErrorIs(t, err, boom)
}

func TestExpander_RerunIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.addApp(1, "Firefox", "{app}")
	store.addAppVersion(10, 1, "3.6")
	store.addAppVersion(20, 1, "4.0")
	store.addAddon(42, "tab-mix", "author@example.com")
	store.addVersion(7, 42, "1.4")
	store.addFile(70, 7, model.FileStatusPublic)
	store.addFile(71, 7, model.FileStatusPublic)
	store.addCompat(1, 7, 1, 10, 10)
	job := store.addJob(1, 10, 20, nil)
	queue := newMemQueue()

	exp, err := NewExpander(ExpanderOptions{
		Jobs: store, Results: store, Catalog: store, Enqueuer: queue, Tallier: newTestTallier(t, store, store),
	})
	require.NoError(t, err)

	for range 2 {
		_, err := exp.Expand(context.Background(), job.ID, []int64{42})
		require.NoError(t, err)
	}

	counts, err := store.Counts(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total, "duplicate seeding must not create rows")
	assert.Len(t, queue.ofType(model.TaskTypeValidateFile), 2, "dedupe keys keep one task per result")
}

func TestNewExpander_RequiresTallier(t *testing.T) {
	store := newMemStore()
	_, err := NewExpander(ExpanderOptions{Jobs: store, Results: store, Catalog: store, Enqueuer: newMemQueue()})
	require.Error(t, err)
}

func TestExpander_Handle(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockValidationJobRepository(ctrl)
	results := mocks.NewMockValidationResultRepository(ctrl)
	catalog := mocks.NewMockCatalogRepository(ctrl)
	exp, err := NewExpander(ExpanderOptions{
		Jobs:     jobs,
		Results:  results,
		Catalog:  catalog,
		Enqueuer: mocks.NewMockTaskEnqueuer(ctrl),
		Tallier:  newTestTallier(t, jobs, results),
	})
	require.NoError(t, err)

	_, err = exp.Handle(context.Background(), &model.Task{Payload: []byte(`{"job_id":3,"addon_ids":[]}`)})
	require.Error(t, err, "an empty batch fails payload validation")

	// Another chunk is still pending, so the job is not tallied.
	jobs.EXPECT().GetByID(gomock.Any(), int64(3)).Return(expanderJob(), nil)
	catalog.EXPECT().GetAddon(gomock.Any(), int64(9)).Return(nil, model.ErrAddonNotFound)
	jobs.EXPECT().MarkChunkExpanded(gomock.Any(), int64(3), 1).Return(1, nil)
	res, err := exp.Handle(context.Background(), &model.Task{Payload: []byte(`{"job_id":3,"chunk":1,"addon_ids":[9]}`)})
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSucceeded, res.Status)

	// The last chunk tallies, and a job with nothing to validate completes.
	jobs.EXPECT().GetByID(gomock.Any(), int64(3)).Return(expanderJob(), nil)
	catalog.EXPECT().GetAddon(gomock.Any(), int64(8)).Return(nil, model.ErrAddonNotFound)
	jobs.EXPECT().MarkChunkExpanded(gomock.Any(), int64(3), 0).Return(0, nil)
	results.EXPECT().Counts(gomock.Any(), int64(3)).Return(model.ResultCounts{ExpandChunks: 2}, nil)
	jobs.EXPECT().MarkCompleted(gomock.Any(), int64(3)).Return(true, nil)
	res, err = exp.Handle(context.Background(), &model.Task{Payload: []byte(`{"job_id":3,"addon_ids":[8]}`)})
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSucceeded, res.Status)
}

func TestExpander_ExpandChunkFailureLeavesChunkPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockValidationJobRepository(ctrl)
	results := mocks.NewMockValidationResultRepository(ctrl)
	boom := errors.New("connection reset")

	jobs.EXPECT().GetByID(gomock.Any(), int64(3)).Return(nil, boom)
	jobs.EXPECT().MarkChunkExpanded(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	results.EXPECT().Counts(gomock.Any(), gomock.Any()).Times(0)

	exp, err := NewExpander(ExpanderOptions{
		Jobs:     jobs,
		Results:  results,
		Catalog:  mocks.NewMockCatalogRepository(ctrl),
		Enqueuer: mocks.NewMockTaskEnqueuer(ctrl),
		Tallier:  newTestTallier(t, jobs, results),
	})
	require.NoError(t, err)

	_, err = exp.ExpandChunk(context.Background(), 3, 0, []int64{42})
	require.ErrorIs(t, err, boom)
}
