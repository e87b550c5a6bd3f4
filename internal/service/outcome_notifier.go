package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/mailtmpl"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// NotifyRequest is the input of NotifySuccess and NotifyFailed.
type NotifyRequest struct {
	JobID       int64
	VersionIDs  []int64 // NotifySuccess
	FileIDs     []int64 // NotifyFailed
	Template    model.NotifyTemplate
	PreviewOnly bool
	Actor       model.Actor
}

// OutcomeNotifierOptions groups dependencies for OutcomeNotifier.
type OutcomeNotifierOptions struct {
	Jobs      core.ValidationJobRepository
	Results   core.ValidationResultRepository
	Catalog   core.CatalogRepository
	Mailer    core.Mailer
	Previews  core.PreviewMailer
	Audit     core.AuditLogger
	Links     Links
	FromEmail string
	// DefaultActor is used when a request carries no actor.
	DefaultActor model.Actor
	Logger       *slog.Logger
}

// OutcomeNotifier bumps compatibility for passing versions and emails authors.
type OutcomeNotifier struct {
	jobs         core.ValidationJobRepository
	results      core.ValidationResultRepository
	catalog      core.CatalogRepository
	mailer       core.Mailer
	previews     core.PreviewMailer
	audit        core.AuditLogger
	links        Links
	from         string
	defaultActor model.Actor
	logger       *slog.Logger
}

// NewOutcomeNotifier constructs an OutcomeNotifier.
func NewOutcomeNotifier(opts OutcomeNotifierOptions) (*OutcomeNotifier, error) {
	switch {
	case opts.Jobs == nil || opts.Results == nil || opts.Catalog == nil:
		return nil, errors.New("outcome notifier requires job, result and catalog repositories")
	case opts.Mailer == nil || opts.Previews == nil:
		return nil, errors.New("outcome notifier requires a mailer and a preview mailer")
	case opts.Audit == nil:
		return nil, errors.New("outcome notifier requires an audit logger")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomeNotifier{
		jobs:         opts.Jobs,
		results:      opts.Results,
		catalog:      opts.Catalog,
		mailer:       opts.Mailer,
		previews:     opts.Previews,
		audit:        opts.Audit,
		links:        opts.Links,
		from:         opts.FromEmail,
		defaultActor: opts.DefaultActor,
		logger:       logger.With("component", "outcome_notifier"),
	}, nil
}

// PreviewTopic names the preview bucket of a job and outcome kind.
func PreviewTopic(jobID int64, kind string) string {
	return fmt.Sprintf("validation-job-%d-%s", jobID, kind)
}

// Preview kinds.
const (
	PreviewSuccess = "success"
	PreviewFailure = "failure"
)

func dryRunMark(preview bool, mark string) string {
	if preview {
		return " " + mark
	}
	return ""
}

// NotifySuccess emails the authors of every passing version, then raises its max
// compatible version. A version with any failing file is left untouched.
func (n *OutcomeNotifier) NotifySuccess(ctx context.Context, req NotifyRequest) error {
	if err := model.ValidateStruct(req.Template); err != nil {
		return err
	}
	job, err := n.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return fmt.Errorf("notify success for job %d: %w", req.JobID, err)
	}
	n.logger.InfoContext(ctx, "updating max version", "job_id", job.ID, "versions", len(req.VersionIDs))

	for _, versionID := range req.VersionIDs {
		if err := n.notifyVersion(ctx, job, versionID, req); err != nil {
			return err
		}
	}
	return nil
}

func (n *OutcomeNotifier) notifyVersion(ctx context.Context, job *model.ValidationJob, versionID int64, req NotifyRequest) error {
	detail, err := n.catalog.GetVersionDetail(ctx, versionID)
	if errors.Is(err, model.ErrVersionNotFound) {
		n.logger.WarnContext(ctx, "skipping missing version", "job_id", job.ID, "version_id", versionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load version %d: %w", versionID, err)
	}
	addon := detail.Addon

	results, err := n.results.ListForVersion(ctx, job.ID, versionID)
	if err != nil {
		return fmt.Errorf("list results for version %d: %w", versionID, err)
	}
	for _, r := range results {
		if r.HasErrors() {
			n.logger.InfoContext(ctx, "version not updated, one of the files did not pass validation",
				"job_id", job.ID, "version_id", versionID, "addon_id", addon.ID)
			return nil
		}
	}

	entries, err := n.catalog.ListCompatEntries(ctx, versionID, job.ApplicationID)
	if err != nil {
		return fmt.Errorf("list compat entries for version %d: %w", versionID, err)
	}
	var eligible []*model.CompatEntry
	for _, e := range entries {
		if e.MaxVersion != job.CurrMaxVersion.Version || job.TargetVersion.Version == e.MaxVersion {
			n.logger.InfoContext(ctx, fmt.Sprintf("version not updated, current max version is %s not %s",
				e.MaxVersion, job.CurrMaxVersion.Version),
				"job_id", job.ID, "version_id", versionID, "addon_id", addon.ID)
			continue
		}
		eligible = append(eligible, e)
	}
	if len(eligible) == 0 {
		return nil
	}

	// Mail and audit precede the bump; a retry skips entries already at the target.
	mailCtx := n.context(job, detail.Addon, detail.Version, results)
	msg := n.render(req.Template, mailCtx)
	if err := n.sendToAuthors(ctx, addon, msg, req.PreviewOnly, PreviewTopic(job.ID, PreviewSuccess),
		"job_id", job.ID, "version_id", versionID); err != nil {
		return err
	}
	if !req.PreviewOnly {
		if err := n.record(ctx, model.AuditEntry{
			Action:   model.AuditBulkValidationUpdated,
			Actor:    n.actor(req.Actor),
			Subjects: []model.AuditSubject{model.AddonSubject(addon.ID), model.VersionSubject(versionID)},
			Details: map[string]string{
				"version": detail.Version.Version,
				"target":  job.TargetVersion.Version,
			},
		}); err != nil {
			return err
		}
	}

	for _, e := range eligible {
		n.logger.InfoContext(ctx, "updating max version"+dryRunMark(req.PreviewOnly, "[DRY RUN]"),
			"job_id", job.ID, "version_id", versionID, "addon_id", addon.ID,
			"from", job.CurrMaxVersion.Version, "to", job.TargetVersion.Version)
		if req.PreviewOnly {
			continue
		}
		if err := n.catalog.SetCompatMax(ctx, e.ID, job.TargetVersion.ID); err != nil {
			return fmt.Errorf("bump compat entry %d: %w", e.ID, err)
		}
	}
	return nil
}

// NotifyFailed emails the authors of every listed file that has a result in the job.
func (n *OutcomeNotifier) NotifyFailed(ctx context.Context, req NotifyRequest) error {
	if err := model.ValidateStruct(req.Template); err != nil {
		return err
	}
	job, err := n.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return fmt.Errorf("notify failed for job %d: %w", req.JobID, err)
	}
	results, err := n.results.ListForFiles(ctx, job.ID, req.FileIDs)
	if err != nil {
		return fmt.Errorf("list results for job %d: %w", job.ID, err)
	}
	n.logger.InfoContext(ctx, "notifying failed", "job_id", job.ID, "results", len(results))

	for _, r := range results {
		detail, err := n.catalog.GetFileDetail(ctx, r.FileID)
		if err != nil {
			return fmt.Errorf("load file %d: %w", r.FileID, err)
		}
		mailCtx := n.context(job, detail.Addon, detail.Version, []*model.ValidationResult{r})
		msg := n.render(req.Template, mailCtx)
		if err := n.sendToAuthors(ctx, detail.Addon, msg, req.PreviewOnly, PreviewTopic(job.ID, PreviewFailure),
			"job_id", job.ID, "file_id", r.FileID); err != nil {
			return err
		}
		if req.PreviewOnly {
			continue
		}
		if err := n.record(ctx, model.AuditEntry{
			Action:   model.AuditBulkValidationEmailed,
			Actor:    n.actor(req.Actor),
			Subjects: []model.AuditSubject{model.AddonSubject(detail.Addon.ID), model.VersionSubject(detail.Version.ID)},
			Details: map[string]string{
				"version": detail.Version.Version,
				"file":    detail.File.Filename,
				"target":  job.TargetVersion.Version,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (n *OutcomeNotifier) context(
	job *model.ValidationJob,
	addon model.Addon,
	version model.Version,
	results []*model.ValidationResult,
) map[string]string {
	links := make([]string, 0, len(results))
	for _, r := range results {
		links = append(links, n.links.Result(addon.Slug, r.ID))
	}
	return map[string]string{
		mailtmpl.KeyAddonName:    addon.Name,
		mailtmpl.KeyAddonVersion: version.Version,
		mailtmpl.KeyApplication:  job.ApplicationName,
		mailtmpl.KeyCompatLink:   n.links.Compat(addon.ID, version.ID),
		mailtmpl.KeyResultLinks:  strings.Join(links, " "),
		mailtmpl.KeyVersion:      job.TargetVersion.Version,
	}
}

func (n *OutcomeNotifier) render(tmpl model.NotifyTemplate, ctx map[string]string) model.Message {
	return model.Message{
		Subject: mailtmpl.Render(tmpl.Subject, ctx),
		Body:    mailtmpl.Render(tmpl.Text, ctx),
		From:    n.from,
	}
}

func (n *OutcomeNotifier) sendToAuthors(
	ctx context.Context,
	addon model.Addon,
	msg model.Message,
	preview bool,
	topic string,
	logAttrs ...any,
) error {
	authors, err := n.catalog.ListAuthors(ctx, addon.ID)
	if err != nil {
		return fmt.Errorf("list authors of addon %d: %w", addon.ID, err)
	}
	for _, a := range authors {
		m := msg
		m.To = []string{a.Email}
		n.logger.InfoContext(ctx, "emailing author"+dryRunMark(preview, "[PREVIEW]"),
			append([]any{"email", a.Email, "addon_id", addon.ID}, logAttrs...)...)
		if preview {
			err = n.previews.PreviewSend(ctx, topic, m)
		} else {
			err = n.mailer.Send(ctx, m)
		}
		if err != nil {
			return fmt.Errorf("email %s: %w", a.Email, err)
		}
	}
	return nil
}

func (n *OutcomeNotifier) actor(a model.Actor) model.Actor {
	if a.UserID > 0 {
		return a
	}
	return n.defaultActor
}

func (n *OutcomeNotifier) record(ctx context.Context, entry model.AuditEntry) error {
	if err := n.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("record %s: %w", entry.Action, err)
	}
	return nil
}

// SuccessHandler runs notify_success tasks.
func (n *OutcomeNotifier) SuccessHandler() core.TaskHandler {
	return core.TaskHandlerFunc(func(ctx context.Context, task *model.Task) (model.AttemptResult, error) {
		p, err := core.DecodePayload[model.NotifySuccessPayload](task)
		if err != nil {
			return model.AttemptResult{}, fmt.Errorf("decode notify_success payload: %w", err)
		}
		err = n.NotifySuccess(ctx, NotifyRequest{
			JobID: p.JobID, VersionIDs: p.VersionIDs, Template: p.Template, PreviewOnly: p.PreviewOnly, Actor: p.Actor,
		})
		if err != nil {
			return model.AttemptResult{}, err
		}
		return model.AttemptResult{Status: model.AttemptSucceeded}, nil
	})
}

// FailedHandler runs notify_failed tasks.
func (n *OutcomeNotifier) FailedHandler() core.TaskHandler {
	return core.TaskHandlerFunc(func(ctx context.Context, task *model.Task) (model.AttemptResult, error) {
		p, err := core.DecodePayload[model.NotifyFailedPayload](task)
		if err != nil {
			return model.AttemptResult{}, fmt.Errorf("decode notify_failed payload: %w", err)
		}
		err = n.NotifyFailed(ctx, NotifyRequest{
			JobID: p.JobID, FileIDs: p.FileIDs, Template: p.Template, PreviewOnly: p.PreviewOnly, Actor: p.Actor,
		})
		if err != nil {
			return model.AttemptResult{}, err
		}
		return model.AttemptResult{Status: model.AttemptSucceeded}, nil
	})
}
