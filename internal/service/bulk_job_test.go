package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-bulkval/internal/domain/model"
	apperrors "github.com/target/mmk-bulkval/internal/errors"
	"github.com/target/mmk-bulkval/internal/mocks"
)

func newJobStore() *memStore {
	store := newMemStore()
	store.addApp(1, "Firefox", "{ec8030f7}")
	store.addApp(2, "Thunderbird", "{3550f703}")
	store.addAppVersion(10, 1, "3.6")
	store.addAppVersion(20, 1, "4.0")
	store.addAppVersion(90, 2, "3.1")
	return store
}

func newJobService(t *testing.T, store *memStore, q *memQueue, progress *mocks.MockProgressCache) *ValidationJobService {
	t.Helper()
	opts := ValidationJobServiceOptions{
		Jobs: store, Results: store, Catalog: store, Enqueuer: q,
		ExpandPriority: 10,
	}
	if progress != nil {
		opts.Progress = progress
	}
	svc, err := NewValidationJobService(opts)
	require.NoError(t, err)
	return svc
}

func TestValidationJobService_CreateChunksAddons(t *testing.T) {
	store := newJobStore()
	q := newMemQueue()
	svc := newJobService(t, store, q, nil)

	ids := make([]int64, 0, 252)
	for i := int64(250); i >= 1; i-- {
		ids = append(ids, i)
	}
	ids = append(ids, 5, 5)

	job, err := svc.Create(context.Background(), &model.CreateValidationJobRequest{
		ApplicationID: 1, CurrMaxVersionID: 10, TargetVersionID: 20,
		FinishEmail: "ops@example.org", AddonIDs: ids,
	})
	require.NoError(t, err)
	assert.Equal(t, "Firefox", job.ApplicationName)
	require.NotNil(t, job.FinishEmail)

	tasks := q.ofType(model.TaskTypeExpand)
	require.Len(t, tasks, 3)
	sizes := []int{100, 100, 50}
	for i, task := range tasks {
		require.NotNil(t, task.DedupeKey)
		assert.Equal(t, fmt.Sprintf("expand:%d:%d", job.ID, i), *task.DedupeKey)
		assert.Equal(t, 10, task.Priority)
		p := decodeTask[model.ExpandPayload](t, task)
		assert.Equal(t, job.ID, p.JobID)
		assert.Equal(t, i, p.Chunk)
		assert.Len(t, p.AddonIDs, sizes[i])
	}
	stored, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.ExpandChunks)
	assert.Equal(t, 3, stored.PendingExpansions)
	first := decodeTask[model.ExpandPayload](t, tasks[0])
	assert.Equal(t, int64(1), first.AddonIDs[0])

	// Restarting enqueues nothing new.
	require.NoError(t, svc.Start(context.Background(), job.ID, ids))
	assert.Len(t, q.ofType(model.TaskTypeExpand), 3)
}

func TestValidationJobService_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   *model.CreateValidationJobRequest
		field string
		isErr error
	}{
		{
			name: "nil request",
		},
		{
			name: "same versions",
			req:  &model.CreateValidationJobRequest{ApplicationID: 1, CurrMaxVersionID: 10, TargetVersionID: 10, AddonIDs: []int64{1}},
		},
		{
			name: "no addons",
			req:  &model.CreateValidationJobRequest{ApplicationID: 1, CurrMaxVersionID: 10, TargetVersionID: 20},
		},
		{
			name: "bad finish email",
			req: &model.CreateValidationJobRequest{
				ApplicationID: 1, CurrMaxVersionID: 10, TargetVersionID: 20, AddonIDs: []int64{1}, FinishEmail: "nope",
			},
		},
		{
			name:  "target from another application",
			req:   &model.CreateValidationJobRequest{ApplicationID: 1, CurrMaxVersionID: 10, TargetVersionID: 90, AddonIDs: []int64{1}},
			field: "target_version_id",
		},
		{
			name:  "current from another application",
			req:   &model.CreateValidationJobRequest{ApplicationID: 2, CurrMaxVersionID: 10, TargetVersionID: 90, AddonIDs: []int64{1}},
			field: "curr_max_version_id",
		},
		{
			name:  "unknown application",
			req:   &model.CreateValidationJobRequest{ApplicationID: 3, CurrMaxVersionID: 10, TargetVersionID: 20, AddonIDs: []int64{1}},
			isErr: model.ErrApplicationNotFound,
		},
		{
			name:  "unknown version",
			req:   &model.CreateValidationJobRequest{ApplicationID: 1, CurrMaxVersionID: 10, TargetVersionID: 77, AddonIDs: []int64{1}},
			isErr: model.ErrAppVersionNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newJobStore()
			q := newMemQueue()
			svc := newJobService(t, store, q, nil)

			job, err := svc.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, job)
			if tt.isErr != nil {
				require.ErrorIs(t, err, tt.isErr)
			} else {
				assert.True(t, apperrors.IsValidation(err), "got %v", err)
			}
			if tt.field != "" {
				assert.Equal(t, tt.field, apperrors.Field(err))
			}
			assert.Empty(t, q.ofType(model.TaskTypeExpand))
		})
	}
}

func TestValidationJobService_StartPropagatesEnqueueErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	enq := mocks.NewMockTaskEnqueuer(ctrl)
	store := newJobStore()
	svc, err := NewValidationJobService(ValidationJobServiceOptions{
		Jobs: store, Results: store, Catalog: store, Enqueuer: enq, ChunkSize: 1,
	})
	require.NoError(t, err)

	job := store.addJob(1, 10, 20, nil)

	boom := errors.New("queue down")
	gomock.InOrder(
		enq.EXPECT().Enqueue(gomock.Any(), model.TaskTypeExpand, model.ExpandPayload{JobID: job.ID, AddonIDs: []int64{1}}, gomock.Any()).
			Return(&model.Task{}, nil),
		enq.EXPECT().Enqueue(gomock.Any(), model.TaskTypeExpand, gomock.Any(), gomock.Any()).Return(nil, boom),
	)
	err = svc.Start(context.Background(), job.ID, []int64{2, 1, 3})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "chunk 1")
}

func TestValidationJobService_StartRecordsChunksBeforeEnqueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockValidationJobRepository(ctrl)
	enq := mocks.NewMockTaskEnqueuer(ctrl)
	store := newJobStore()
	svc, err := NewValidationJobService(ValidationJobServiceOptions{
		Jobs: jobs, Results: store, Catalog: store, Enqueuer: enq, ChunkSize: 2,
	})
	require.NoError(t, err)

	gomock.InOrder(
		jobs.EXPECT().SetExpandChunks(gomock.Any(), int64(4), 2).Return(nil),
		enq.EXPECT().Enqueue(gomock.Any(), model.TaskTypeExpand,
			model.ExpandPayload{JobID: 4, AddonIDs: []int64{1, 2}, Chunk: 0}, gomock.Any()).Return(&model.Task{}, nil),
		enq.EXPECT().Enqueue(gomock.Any(), model.TaskTypeExpand,
			model.ExpandPayload{JobID: 4, AddonIDs: []int64{3}, Chunk: 1}, gomock.Any()).Return(&model.Task{}, nil),
	)
	require.NoError(t, svc.Start(context.Background(), 4, []int64{3, 2, 1}))

	boom := errors.New("db down")
	jobs.EXPECT().SetExpandChunks(gomock.Any(), int64(5), 1).Return(boom)
	enq.EXPECT().Enqueue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	err = svc.Start(context.Background(), 5, []int64{1})
	require.ErrorIs(t, err, boom)
}

func TestValidationJobService_StatusUsesProgressCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockProgressCache(ctrl)
	store := newJobStore()
	store.addAddon(42, "tab-mix")
	store.addVersion(7, 42, "1.4")
	store.addFile(70, 7, model.FileStatusPublic)
	store.addFile(71, 7, model.FileStatusPublic)
	job := store.addJob(1, 10, 20, nil)
	seeded, err := store.Seed(context.Background(), job.ID, []int64{70, 71})
	require.NoError(t, err)
	seeded[0].ApplyTaskError("boom", store.now)
	require.NoError(t, store.Save(context.Background(), seeded[0]))

	svc := newJobService(t, store, newMemQueue(), cache)

	// miss: read through and store
	cache.EXPECT().Get(gomock.Any(), job.ID).Return(nil, nil)
	cache.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *model.JobProgress) error {
		assert.Equal(t, 2, p.Total)
		return nil
	})
	st, err := svc.Status(context.Background(), job.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, &model.JobProgress{JobID: job.ID, Total: 2, Completed: 1, Errored: 1}, st.Progress)
	require.Len(t, st.TaskErrors, 1)
	assert.Equal(t, seeded[0].ID, st.TaskErrors[0].ID)

	// hit: served from cache
	cached := &model.JobProgress{JobID: job.ID, Total: 2, Completed: 2, Passing: 2}
	cache.EXPECT().Get(gomock.Any(), job.ID).Return(cached, nil)
	st, err = svc.Status(context.Background(), job.ID, 10)
	require.NoError(t, err)
	assert.Same(t, cached, st.Progress)
	assert.Empty(t, st.TaskErrors)

	// cache failures fall back to the store
	cache.EXPECT().Get(gomock.Any(), job.ID).Return(nil, errors.New("redis down"))
	cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
	p, err := svc.Progress(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Total)
}

func TestValidationJobService_StatusUnknownJob(t *testing.T) {
	svc := newJobService(t, newJobStore(), newMemQueue(), nil)
	_, err := svc.Status(context.Background(), 404, 5)
	require.ErrorIs(t, err, model.ErrValidationJobNotFound)
}
