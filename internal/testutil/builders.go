package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/target/mmk-bulkval/internal/domain/model"
)

// TaskRequestBuilder provides a fluent interface for building CreateTaskRequest in tests.
type TaskRequestBuilder struct {
	req *model.CreateTaskRequest
}

// NewTaskRequest creates a builder for a validate_file task with sensible defaults.
func NewTaskRequest() *TaskRequestBuilder {
	return &TaskRequestBuilder{
		req: &model.CreateTaskRequest{
			Type:       model.TaskTypeValidateFile,
			Payload:    json.RawMessage(`{"result_id":1}`),
			MaxRetries: 3,
		},
	}
}

// WithType sets the task type.
func (b *TaskRequestBuilder) WithType(t model.TaskType) *TaskRequestBuilder {
	b.req.Type = t
	return b
}

// WithPayload marshals v as the task payload.
func (b *TaskRequestBuilder) WithPayload(v any) *TaskRequestBuilder {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal payload: %v", err))
	}
	b.req.Payload = raw
	return b
}

// WithPriority sets the priority.
func (b *TaskRequestBuilder) WithPriority(p int) *TaskRequestBuilder {
	b.req.Priority = p
	return b
}

// WithDedupeKey sets the dedupe key.
func (b *TaskRequestBuilder) WithDedupeKey(key string) *TaskRequestBuilder {
	b.req.DedupeKey = key
	return b
}

// WithMaxRetries sets the retry budget.
func (b *TaskRequestBuilder) WithMaxRetries(n int) *TaskRequestBuilder {
	b.req.MaxRetries = n
	return b
}

// Build returns the request.
func (b *TaskRequestBuilder) Build() *model.CreateTaskRequest {
	return b.req
}

// Catalog inserts catalog rows for integration tests.
type Catalog struct {
	t  TestingTB
	db *sql.DB
}

// NewCatalog returns a fixture writer bound to db.
func NewCatalog(t TestingTB, db *sql.DB) *Catalog {
	return &Catalog{t: t, db: db}
}

func (c *Catalog) insert(query string, args ...any) int64 {
	c.t.Helper()
	var id int64
	if err := c.db.QueryRowContext(context.Background(), query, args...).Scan(&id); err != nil {
		c.t.Fatalf("catalog fixture: %v", err)
	}
	return id
}

// Application inserts an application.
func (c *Catalog) Application(guid, name string) int64 {
	c.t.Helper()
	return c.insert(`INSERT INTO applications (guid, name) VALUES ($1, $2) RETURNING id`, guid, name)
}

// AppVersion inserts an application version.
func (c *Catalog) AppVersion(appID int64, version string) int64 {
	c.t.Helper()
	return c.insert(`INSERT INTO app_versions (application_id, version) VALUES ($1, $2) RETURNING id`,
		appID, version)
}

// Addon inserts an add-on.
func (c *Catalog) Addon(slug, name string) int64 {
	c.t.Helper()
	return c.insert(`INSERT INTO addons (slug, name) VALUES ($1, $2) RETURNING id`, slug, name)
}

// Author inserts a user and lists it as an author of addonID at position.
func (c *Catalog) Author(addonID int64, email string, position int) int64 {
	c.t.Helper()
	userID := c.insert(`INSERT INTO users (email) VALUES ($1) RETURNING id`, email)
	if _, err := c.db.ExecContext(context.Background(),
		`INSERT INTO addon_users (addon_id, user_id, position) VALUES ($1, $2, $3)`,
		addonID, userID, position); err != nil {
		c.t.Fatalf("catalog fixture: %v", err)
	}
	return userID
}

// Version inserts an add-on version.
func (c *Catalog) Version(addonID int64, version string) int64 {
	c.t.Helper()
	return c.insert(`INSERT INTO versions (addon_id, version) VALUES ($1, $2) RETURNING id`, addonID, version)
}

// File inserts a file of versionID with the given review status.
func (c *Catalog) File(versionID int64, filename string, status model.FileStatus) int64 {
	c.t.Helper()
	return c.insert(`INSERT INTO files (version_id, filename, file_path, status)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		versionID, filename, "/srv/files/"+filename, int16(status))
}

// Compat inserts a compatibility range for versionID.
func (c *Catalog) Compat(versionID, appID, minID, maxID int64) int64 {
	c.t.Helper()
	return c.insert(`INSERT INTO applications_versions (version_id, application_id, min_id, max_id)
		VALUES ($1, $2, $3, $4) RETURNING id`, versionID, appID, minID, maxID)
}

// Scenario is a ready-made catalog: one application with three versions and one
// add-on whose single version supports up to Curr.
type Scenario struct {
	AppID     int64
	Min       int64
	Curr      int64
	Target    int64
	AddonID   int64
	VersionID int64
	FileID    int64
	CompatID  int64
	AuthorID  int64
}

// SeedScenario inserts a Scenario.
func (c *Catalog) SeedScenario() Scenario {
	c.t.Helper()
	s := Scenario{AppID: c.Application("{ec8030f7-c20a-464f-9b0e-13a3a9e97384}", "Firefox")}
	s.Min = c.AppVersion(s.AppID, "3.0")
	s.Curr = c.AppVersion(s.AppID, "3.6")
	s.Target = c.AppVersion(s.AppID, "4.0")
	s.AddonID = c.Addon("tab-mix", "Tab Mix")
	s.AuthorID = c.Author(s.AddonID, "author@example.com", 0)
	s.VersionID = c.Version(s.AddonID, "1.4")
	s.FileID = c.File(s.VersionID, "tab-mix-1.4.xpi", model.FileStatusPublic)
	s.CompatID = c.Compat(s.VersionID, s.AppID, s.Min, s.Curr)
	return s
}
