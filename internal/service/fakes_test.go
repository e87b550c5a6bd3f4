package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// memStore is an in-memory job, result and catalog store. Job completion uses a
// compare-and-swap per job, mirroring the conditional UPDATE in Postgres.
type memStore struct {
	mu  sync.Mutex
	now time.Time

	jobs       map[int64]*model.ValidationJob
	jobDone    map[int64]*atomic.Bool
	chunks     map[int64]int
	expanded   map[int64]map[int]bool
	results    map[int64]*model.ValidationResult
	nextJob    int64
	nextResult int64

	apps        map[int64]model.Application
	appVersions map[int64]model.AppVersion
	addons      map[int64]model.Addon
	versions    map[int64]model.Version
	files       map[int64]model.File
	compat      map[int64]*model.CompatEntry
	authors     map[int64][]model.Author

	markCalls atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{
		now:         time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		jobs:        map[int64]*model.ValidationJob{},
		jobDone:     map[int64]*atomic.Bool{},
		chunks:      map[int64]int{},
		expanded:    map[int64]map[int]bool{},
		results:     map[int64]*model.ValidationResult{},
		apps:        map[int64]model.Application{},
		appVersions: map[int64]model.AppVersion{},
		addons:      map[int64]model.Addon{},
		versions:    map[int64]model.Version{},
		files:       map[int64]model.File{},
		compat:      map[int64]*model.CompatEntry{},
		authors:     map[int64][]model.Author{},
	}
}

var (
	_ core.ValidationJobRepository    = (*memStore)(nil)
	_ core.ValidationResultRepository = (*memStore)(nil)
	_ core.CatalogRepository          = (*memStore)(nil)
)

// catalog fixtures

func (s *memStore) addApp(id int64, name, guid string) {
	s.apps[id] = model.Application{ID: id, Name: name, GUID: guid}
}

func (s *memStore) addAppVersion(id, appID int64, version string) {
	s.appVersions[id] = model.AppVersion{ID: id, ApplicationID: appID, Version: version}
}

func (s *memStore) addAddon(id int64, slug string, authors ...string) {
	s.addons[id] = model.Addon{ID: id, Slug: slug, Name: slug}
	for i, email := range authors {
		s.authors[id] = append(s.authors[id], model.Author{ID: id*100 + int64(i), Email: email})
	}
}

func (s *memStore) addVersion(id, addonID int64, version string) {
	s.versions[id] = model.Version{ID: id, AddonID: addonID, Version: version}
}

func (s *memStore) addFile(id, versionID int64, status model.FileStatus) {
	name := fmt.Sprintf("file-%d.xpi", id)
	s.files[id] = model.File{ID: id, VersionID: versionID, Filename: name, FilePath: "/srv/files/" + name, Status: status}
}

func (s *memStore) addCompat(id, versionID, appID, minID, maxID int64) {
	s.compat[id] = &model.CompatEntry{ID: id, VersionID: versionID, ApplicationID: appID, MinVersionID: minID, MaxVersionID: maxID}
}

// addJob inserts a job directly, bypassing validation.
func (s *memStore) addJob(appID, currID, targetID int64, finishEmail *string) *model.ValidationJob {
	job, err := s.Create(context.Background(), &model.CreateValidationJobRequest{
		ApplicationID: appID, CurrMaxVersionID: currID, TargetVersionID: targetID,
	})
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.jobs[job.ID].FinishEmail = finishEmail
	s.mu.Unlock()
	job.FinishEmail = finishEmail
	return job
}

// ValidationJobRepository

func (s *memStore) Create(_ context.Context, req *model.CreateValidationJobRequest) (*model.ValidationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextJob++
	app := s.apps[req.ApplicationID]
	job := &model.ValidationJob{
		ID:              s.nextJob,
		ApplicationID:   req.ApplicationID,
		CurrMaxVersion:  s.appVersions[req.CurrMaxVersionID],
		TargetVersion:   s.appVersions[req.TargetVersionID],
		ApplicationName: app.Name,
		ApplicationGUID: app.GUID,
		CreatedAt:       s.now,
	}
	if req.FinishEmail != "" {
		email := req.FinishEmail
		job.FinishEmail = &email
	}
	s.jobs[job.ID] = job
	s.jobDone[job.ID] = &atomic.Bool{}
	cp := *job
	return &cp, nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*model.ValidationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, model.ErrValidationJobNotFound
	}
	cp := *job
	cp.ExpandChunks = s.chunks[id]
	cp.PendingExpansions = s.pendingLocked(id)
	return &cp, nil
}

func (s *memStore) pendingLocked(id int64) int {
	return s.chunks[id] - len(s.expanded[id])
}

func (s *memStore) SetExpandChunks(_ context.Context, id int64, chunks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return model.ErrValidationJobNotFound
	}
	s.chunks[id] = chunks
	return nil
}

func (s *memStore) MarkChunkExpanded(_ context.Context, id int64, chunk int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return 0, model.ErrValidationJobNotFound
	}
	if s.expanded[id] == nil {
		s.expanded[id] = map[int]bool{}
	}
	s.expanded[id][chunk] = true
	return max(s.pendingLocked(id), 0), nil
}

func (s *memStore) List(_ context.Context, _, _ int) ([]*model.ValidationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ValidationJob
	for _, j := range s.jobs {
		cp := *j
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.ValidationJob) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (s *memStore) MarkCompleted(_ context.Context, id int64) (bool, error) {
	s.markCalls.Add(1)
	s.mu.Lock()
	done, ok := s.jobDone[id]
	ready := s.pendingLocked(id) <= 0
	for _, r := range s.results {
		if r.JobID == id && !r.IsCompleted() {
			ready = false
		}
	}
	s.mu.Unlock()
	if !ok {
		return false, model.ErrValidationJobNotFound
	}
	if !ready {
		return false, nil
	}
	if !done.CompareAndSwap(false, true) {
		return false, nil
	}
	s.mu.Lock()
	at := s.now
	s.jobs[id].CompletedAt = &at
	s.mu.Unlock()
	return true, nil
}

// ValidationResultRepository

func (s *memStore) Seed(ctx context.Context, jobID int64, fileIDs []int64) ([]*model.ValidationResult, error) {
	s.mu.Lock()
	for _, f := range fileIDs {
		if s.findResult(jobID, f) != nil {
			continue
		}
		s.nextResult++
		s.results[s.nextResult] = &model.ValidationResult{ID: s.nextResult, JobID: jobID, FileID: f, CreatedAt: s.now}
	}
	s.mu.Unlock()
	return s.ListForFiles(ctx, jobID, fileIDs)
}

func (s *memStore) findResult(jobID, fileID int64) *model.ValidationResult {
	for _, r := range s.results {
		if r.JobID == jobID && r.FileID == fileID {
			return r
		}
	}
	return nil
}

func (s *memStore) GetTarget(_ context.Context, resultID int64) (*model.ResultTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[resultID]
	if !ok {
		return nil, model.ErrValidationResultNotFound
	}
	job := s.jobs[r.JobID]
	f := s.files[r.FileID]
	return &model.ResultTarget{
		Result:          *r,
		FilePath:        f.FilePath,
		Filename:        f.Filename,
		ApplicationGUID: job.ApplicationGUID,
		TargetVersion:   job.TargetVersion.Version,
	}, nil
}

func (s *memStore) Save(_ context.Context, res *model.ValidationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[res.ID]; !ok {
		return model.ErrValidationResultNotFound
	}
	cp := *res
	s.results[res.ID] = &cp
	return nil
}

func (s *memStore) Counts(_ context.Context, jobID int64) (model.ResultCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.ResultCounts{ExpandChunks: s.chunks[jobID], PendingExpansions: s.pendingLocked(jobID)}
	for _, r := range s.results {
		if r.JobID != jobID {
			continue
		}
		c.Total++
		if r.IsCompleted() {
			c.Completed++
		}
	}
	return c, nil
}

func (s *memStore) collect(match func(*model.ValidationResult) bool) []*model.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ValidationResult
	for _, r := range s.results {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.ValidationResult) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *memStore) ListForVersion(_ context.Context, jobID, versionID int64) ([]*model.ValidationResult, error) {
	return s.collect(func(r *model.ValidationResult) bool {
		return r.JobID == jobID && s.files[r.FileID].VersionID == versionID
	}), nil
}

func (s *memStore) ListForFiles(_ context.Context, jobID int64, fileIDs []int64) ([]*model.ValidationResult, error) {
	return s.collect(func(r *model.ValidationResult) bool {
		return r.JobID == jobID && slices.Contains(fileIDs, r.FileID)
	}), nil
}

func (s *memStore) ListTaskErrors(_ context.Context, jobID int64, _ int) ([]*model.ValidationResult, error) {
	return s.collect(func(r *model.ValidationResult) bool {
		return r.JobID == jobID && r.TaskError != nil
	}), nil
}

func (s *memStore) Progress(_ context.Context, jobID int64) (*model.JobProgress, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return nil, model.ErrValidationJobNotFound
	}
	p := &model.JobProgress{JobID: jobID, FinishedAt: job.CompletedAt}
	for _, r := range s.collect(func(r *model.ValidationResult) bool { return r.JobID == jobID }) {
		p.Total++
		if r.IsCompleted() {
			p.Completed++
		}
		switch {
		case r.TaskError != nil:
			p.Errored++
		case r.HasErrors():
			p.Failing++
		case r.HasOutcome():
			p.Passing++
		}
	}
	return p, nil
}

// CatalogRepository

func (s *memStore) GetApplication(_ context.Context, id int64) (*model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, model.ErrApplicationNotFound
	}
	return &a, nil
}

func (s *memStore) GetAppVersion(_ context.Context, id int64) (*model.AppVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.appVersions[id]
	if !ok {
		return nil, model.ErrAppVersionNotFound
	}
	return &v, nil
}

func (s *memStore) GetAddon(_ context.Context, id int64) (*model.Addon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addons[id]
	if !ok {
		return nil, fmt.Errorf("get addon %d: %w", id, model.ErrAddonNotFound)
	}
	return &a, nil
}

func (s *memStore) ListCandidateFiles(_ context.Context, q core.CandidateQuery) ([]model.CandidateFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CandidateFile
	for _, e := range s.compat {
		v := s.versions[e.VersionID]
		if v.AddonID != q.AddonID || e.ApplicationID != q.ApplicationID || e.MaxVersionID != q.CurrMaxVersionID {
			continue
		}
		for _, f := range s.files {
			if f.VersionID == v.ID {
				out = append(out, model.CandidateFile{VersionID: v.ID, FileID: f.ID, Status: f.Status})
			}
		}
	}
	slices.SortFunc(out, func(a, b model.CandidateFile) int {
		return cmp.Or(cmp.Compare(a.VersionID, b.VersionID), cmp.Compare(a.FileID, b.FileID))
	})
	return out, nil
}

func (s *memStore) GetVersionDetail(_ context.Context, versionID int64) (*model.VersionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[versionID]
	if !ok {
		return nil, model.ErrVersionNotFound
	}
	return &model.VersionDetail{Version: v, Addon: s.addons[v.AddonID]}, nil
}

func (s *memStore) GetFileDetail(_ context.Context, fileID int64) (*model.FileDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return nil, model.ErrFileNotFound
	}
	v := s.versions[f.VersionID]
	return &model.FileDetail{File: f, Version: v, Addon: s.addons[v.AddonID]}, nil
}

func (s *memStore) ListCompatEntries(_ context.Context, versionID, applicationID int64) ([]*model.CompatEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.CompatEntry
	for _, e := range s.compat {
		if e.VersionID == versionID && e.ApplicationID == applicationID {
			cp := *e
			cp.MaxVersion = s.appVersions[e.MaxVersionID].Version
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.CompatEntry) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *memStore) SetCompatMax(_ context.Context, entryID, maxVersionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.compat[entryID]
	if !ok {
		return model.ErrVersionNotFound
	}
	e.MaxVersionID = maxVersionID
	return nil
}

func (s *memStore) ListAuthors(_ context.Context, addonID int64) ([]model.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.authors[addonID]), nil
}

func (s *memStore) compatMax(entryID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compat[entryID].MaxVersionID
}

func (s *memStore) result(id int64) model.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.results[id]
}

// memQueue is a TaskEnqueuer that keeps tasks in memory and honours dedupe keys.
type memQueue struct {
	mu      sync.Mutex
	tasks   []*model.Task
	keys    map[string]bool
	pending []*model.Task
}

func newMemQueue() *memQueue { return &memQueue{keys: map[string]bool{}} }

func (q *memQueue) Enqueue(_ context.Context, taskType model.TaskType, payload any, opts core.EnqueueOptions) (*model.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if opts.DedupeKey != "" {
		if q.keys[opts.DedupeKey] {
			for _, t := range q.tasks {
				if t.DedupeKey != nil && *t.DedupeKey == opts.DedupeKey {
					return t, nil
				}
			}
		}
		q.keys[opts.DedupeKey] = true
	}
	t := &model.Task{
		ID:       fmt.Sprintf("task-%d", len(q.tasks)+1),
		Type:     taskType,
		Status:   model.TaskStatusPending,
		Priority: opts.Priority,
		Payload:  b,
	}
	if opts.DedupeKey != "" {
		key := opts.DedupeKey
		t.DedupeKey = &key
	}
	q.tasks = append(q.tasks, t)
	q.pending = append(q.pending, t)
	return t, nil
}

func (q *memQueue) ofType(taskType model.TaskType) []*model.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*model.Task
	for _, t := range q.tasks {
		if t.Type == taskType {
			out = append(out, t)
		}
	}
	return out
}

// drain runs pending tasks in FIFO order until none are left.
func (q *memQueue) drain(t *testing.T, handlers map[model.TaskType]core.TaskHandler) {
	t.Helper()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		h, ok := handlers[task.Type]
		require.True(t, ok, "no handler for %s", task.Type)
		res, err := h.Handle(context.Background(), task)
		require.NoError(t, err)
		require.False(t, res.Retryable(), "task %s asked for a retry: %s", task.ID, res.Trace)
		task.Status = model.TaskStatusCompleted
	}
}

// runNext runs the oldest pending task of the given type and reports whether one
// was found. Other pending tasks keep their order.
func (q *memQueue) runNext(t *testing.T, handlers map[model.TaskType]core.TaskHandler, taskType model.TaskType) bool {
	t.Helper()
	q.mu.Lock()
	idx := slices.IndexFunc(q.pending, func(task *model.Task) bool { return task.Type == taskType })
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	task := q.pending[idx]
	q.pending = slices.Delete(q.pending, idx, idx+1)
	q.mu.Unlock()

	res, err := handlers[taskType].Handle(context.Background(), task)
	require.NoError(t, err)
	require.False(t, res.Retryable(), "task %s asked for a retry: %s", task.ID, res.Trace)
	task.Status = model.TaskStatusCompleted
	return true
}

func decodeTask[T any](t *testing.T, task *model.Task) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(task.Payload, &v))
	return v
}
