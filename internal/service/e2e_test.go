package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/mocks"
)

// TestBulkValidation_EndToEnd drives a job from creation through validation,
// completion and the success notification with in-memory stores.
func TestBulkValidation_EndToEnd(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	store := newMemStore()
	store.addApp(1, "Firefox", "{ec8030f7}")
	store.addAppVersion(10, 1, "1.0")
	store.addAppVersion(20, 1, "2.0")
	store.addAddon(42, "tab-mix", "dev@example.com")
	store.addVersion(6, 42, "3.1")
	store.addVersion(7, 42, "3.2")
	store.addFile(60, 6, model.FileStatusDisabled)
	store.addFile(70, 7, model.FileStatusPublic)
	store.addCompat(600, 6, 1, 10, 10)
	store.addCompat(700, 7, 1, 10, 10)
	q := newMemQueue()

	validator := mocks.NewMockValidator(ctrl)
	validator.EXPECT().Validate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.ValidateRequest) (*model.ValidationReport, error) {
			assert.Equal(t, "/srv/files/file-70.xpi", req.FilePath)
			assert.Equal(t, map[string]string{"{ec8030f7}": "2.0"}, req.Overrides)
			return &model.ValidationReport{}, nil
		})

	operator := mocks.NewMockMailer(ctrl)
	operator.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg model.Message) error {
		assert.Equal(t, []string{"ops@example.org"}, msg.To)
		assert.Equal(t, "Behold! Validation results for Firefox 1.0->2.0", msg.Subject)
		return nil
	})
	authors := mocks.NewMockMailer(ctrl)
	authors.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg model.Message) error {
		assert.Equal(t, []string{"dev@example.com"}, msg.To)
		assert.Equal(t, "tab-mix 3.2 is compatible with Firefox 2.0", msg.Subject)
		return nil
	})
	audit := mocks.NewMockAuditLogger(ctrl)
	audit.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e model.AuditEntry) error {
		assert.Equal(t, model.AuditBulkValidationUpdated, e.Action)
		assert.Equal(t, "2.0", e.Details["target"])
		return nil
	})

	jobs, err := NewValidationJobService(ValidationJobServiceOptions{Jobs: store, Results: store, Catalog: store, Enqueuer: q})
	require.NoError(t, err)
	tallier, err := NewTallier(TallierOptions{Jobs: store, Results: store, Mailer: operator, Links: testLinks})
	require.NoError(t, err)
	expander, err := NewExpander(ExpanderOptions{Jobs: store, Results: store, Catalog: store, Enqueuer: q, Tallier: tallier})
	require.NoError(t, err)
	worker, err := NewValidationWorker(ValidationWorkerOptions{Results: store, Validator: validator, Tallier: tallier})
	require.NoError(t, err)
	notifier, err := NewOutcomeNotifier(OutcomeNotifierOptions{
		Jobs: store, Results: store, Catalog: store,
		Mailer: authors, Previews: mocks.NewMockPreviewMailer(ctrl), Audit: audit,
		Links: testLinks, DefaultActor: model.Actor{UserID: 1},
	})
	require.NoError(t, err)
	handlers := map[model.TaskType]core.TaskHandler{
		model.TaskTypeExpand:        expander,
		model.TaskTypeValidateFile:  worker,
		model.TaskTypeNotifySuccess: notifier.SuccessHandler(),
	}

	job, err := jobs.Create(ctx, &model.CreateValidationJobRequest{
		ApplicationID: 1, CurrMaxVersionID: 10, TargetVersionID: 20,
		FinishEmail: "ops@example.org", AddonIDs: []int64{42},
	})
	require.NoError(t, err)
	q.drain(t, handlers)

	st, err := jobs.Status(ctx, job.ID, 10)
	require.NoError(t, err)
	assert.True(t, st.Job.IsCompleted())
	assert.Equal(t, 1, st.Progress.Total, "files before the public anchor are not validated")
	assert.Equal(t, 1, st.Progress.Passing)

	_, err = q.Enqueue(ctx, model.TaskTypeNotifySuccess, model.NotifySuccessPayload{
		JobID: job.ID, VersionIDs: []int64{7}, Template: testTemplate,
	}, core.EnqueueOptions{})
	require.NoError(t, err)
	q.drain(t, handlers)

	assert.Equal(t, int64(20), store.compatMax(700))
	assert.Equal(t, int64(10), store.compatMax(600))
	assert.Equal(t, int32(1), store.markCalls.Load())
}

// chunkedPipeline wires a job service, expander, worker and tallier over a memStore
// with one add-on per expand chunk. Operator emails are counted.
type chunkedPipeline struct {
	store     *memStore
	queue     *memQueue
	jobs      *ValidationJobService
	handlers  map[model.TaskType]core.TaskHandler
	operator  *mocks.MockMailer
	validator *mocks.MockValidator
}

func newChunkedPipeline(t *testing.T) *chunkedPipeline {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := newMemStore()
	store.addApp(1, "Firefox", "{ec8030f7}")
	store.addAppVersion(5, 1, "0.9")
	store.addAppVersion(10, 1, "1.0")
	store.addAppVersion(20, 1, "2.0")
	q := newMemQueue()

	p := &chunkedPipeline{
		store:     store,
		queue:     q,
		operator:  mocks.NewMockMailer(ctrl),
		validator: mocks.NewMockValidator(ctrl),
	}
	var err error
	p.jobs, err = NewValidationJobService(ValidationJobServiceOptions{
		Jobs: store, Results: store, Catalog: store, Enqueuer: q, ChunkSize: 1,
	})
	require.NoError(t, err)
	tallier, err := NewTallier(TallierOptions{Jobs: store, Results: store, Mailer: p.operator, Links: testLinks})
	require.NoError(t, err)
	expander, err := NewExpander(ExpanderOptions{Jobs: store, Results: store, Catalog: store, Enqueuer: q, Tallier: tallier})
	require.NoError(t, err)
	worker, err := NewValidationWorker(ValidationWorkerOptions{Results: store, Validator: p.validator, Tallier: tallier})
	require.NoError(t, err)
	p.handlers = map[model.TaskType]core.TaskHandler{
		model.TaskTypeExpand:       expander,
		model.TaskTypeValidateFile: worker,
	}
	return p
}

// addAddon adds an add-on with one public file whose compat entry ends at maxID.
func (p *chunkedPipeline) addAddon(id, maxID int64) {
	p.store.addAddon(id, fmt.Sprintf("addon-%d", id), fmt.Sprintf("dev%d@example.com", id))
	p.store.addVersion(id*10, id, "1.0")
	p.store.addFile(id*100, id*10, model.FileStatusPublic)
	p.store.addCompat(id*1000, id*10, 1, 5, maxID)
}

func (p *chunkedPipeline) create(t *testing.T, addonIDs ...int64) *model.ValidationJob {
	t.Helper()
	job, err := p.jobs.Create(context.Background(), &model.CreateValidationJobRequest{
		ApplicationID: 1, CurrMaxVersionID: 10, TargetVersionID: 20,
		FinishEmail: "ops@example.org", AddonIDs: addonIDs,
	})
	require.NoError(t, err)
	return job
}

func TestBulkValidation_CompletesOnlyAfterEveryChunkExpands(t *testing.T) {
	p := newChunkedPipeline(t)
	p.addAddon(42, 10)
	p.addAddon(43, 10)
	p.validator.EXPECT().Validate(gomock.Any(), gomock.Any()).Times(2).Return(&model.ValidationReport{}, nil)
	var operatorEmails int
	p.operator.EXPECT().Send(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(context.Context, model.Message) error {
			operatorEmails++
			return nil
		})

	job := p.create(t, 42, 43)
	require.Len(t, p.queue.ofType(model.TaskTypeExpand), 2)

	// Chunk 0 is expanded and fully validated while chunk 1 is still queued.
	require.True(t, p.queue.runNext(t, p.handlers, model.TaskTypeExpand))
	require.True(t, p.queue.runNext(t, p.handlers, model.TaskTypeValidateFile))

	got, err := p.store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted())
	assert.Equal(t, 1, got.PendingExpansions)
	assert.Zero(t, operatorEmails)

	p.queue.drain(t, p.handlers)

	got, err = p.store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())
	assert.Zero(t, got.PendingExpansions)
	assert.Equal(t, 1, operatorEmails)
}

func TestBulkValidation_JobWithoutEligibleFilesCompletes(t *testing.T) {
	p := newChunkedPipeline(t)
	// Neither add-on is marked compatible up to the current max.
	p.addAddon(42, 5)
	p.addAddon(43, 5)
	p.validator.EXPECT().Validate(gomock.Any(), gomock.Any()).Times(0)
	p.operator.EXPECT().Send(gomock.Any(), gomock.Any()).Times(1).Return(nil)

	job := p.create(t, 42, 43)
	p.queue.drain(t, p.handlers)

	st, err := p.jobs.Status(context.Background(), job.ID, 10)
	require.NoError(t, err)
	assert.True(t, st.Job.IsCompleted())
	assert.Zero(t, st.Progress.Total)
	assert.Empty(t, p.queue.ofType(model.TaskTypeValidateFile))
}
