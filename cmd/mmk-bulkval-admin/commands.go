package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/service"
)

const defaultMigrationTimeout = 5 * time.Minute

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(s *adminServices) error {
				mctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				if err := s.Migrate(mctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "Migration timeout")
	return cmd
}

func newCreateJobCommand(ctx *commandContext) *cobra.Command {
	var (
		req        model.CreateValidationJobRequest
		addonsFile string
	)
	cmd := &cobra.Command{
		Use:   "create-job",
		Short: "Create a validation job and queue its add-ons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addonsFile != "" {
				ids, err := readIDsFile(addonsFile)
				if err != nil {
					return err
				}
				req.AddonIDs = append(req.AddonIDs, ids...)
			}
			if err := model.ValidateStruct(&req); err != nil {
				return err
			}
			return ctx.withServices(cmd, func(s *adminServices) error {
				job, err := s.Jobs.Create(cmd.Context(), &req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created validation job %d for %d add-ons (%s %s -> %s)\n",
					job.ID, len(req.AddonIDs), job.ApplicationName, job.CurrMaxVersion.Version, job.TargetVersion.Version)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&req.ApplicationID, "app", 0, "Application id")
	f.Int64Var(&req.CurrMaxVersionID, "curr-max", 0, "Current max app version id")
	f.Int64Var(&req.TargetVersionID, "target", 0, "Target app version id")
	f.StringVar(&req.FinishEmail, "finish-email", "", "Address notified when the job completes")
	f.Int64SliceVar(&req.AddonIDs, "addons", nil, "Comma separated add-on ids")
	f.StringVar(&addonsFile, "addons-file", "", "File with one add-on id per line")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var errLimit int
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the progress of a validation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(s *adminServices) error {
				st, err := s.Jobs.Status(cmd.Context(), jobID, errLimit)
				if err != nil {
					return err
				}
				return renderStatus(cmd.OutOrStdout(), st)
			})
		},
	}
	cmd.Flags().IntVar(&errLimit, "errors", 20, "Task errors to list")
	return cmd
}

type notifyFlags struct {
	jobID    int64
	ids      []int64
	subject  string
	text     string
	textFile string
	preview  bool
	actorID  int64
}

func (f *notifyFlags) register(cmd *cobra.Command, idsFlag, idsUsage string) {
	fs := cmd.Flags()
	fs.Int64Var(&f.jobID, "job", 0, "Validation job id")
	fs.Int64SliceVar(&f.ids, idsFlag, nil, idsUsage)
	fs.StringVar(&f.subject, "subject", "", "Email subject template")
	fs.StringVar(&f.text, "text", "", "Email body template")
	fs.StringVar(&f.textFile, "text-file", "", "File holding the email body template")
	fs.BoolVar(&f.preview, "preview", false, "Store emails as previews without changing anything")
	fs.Int64Var(&f.actorID, "actor", 0, "User id recorded in the audit log (defaults to TASK_USER_ID)")
}

func (f *notifyFlags) template() (model.NotifyTemplate, error) {
	text := f.text
	if f.textFile != "" {
		if text != "" {
			return model.NotifyTemplate{}, errors.New("--text and --text-file are mutually exclusive")
		}
		b, err := os.ReadFile(f.textFile)
		if err != nil {
			return model.NotifyTemplate{}, fmt.Errorf("read text file: %w", err)
		}
		text = string(b)
	}
	tmpl := model.NotifyTemplate{Subject: f.subject, Text: text}
	if err := model.ValidateStruct(tmpl); err != nil {
		return model.NotifyTemplate{}, err
	}
	return tmpl, nil
}

func (f *notifyFlags) actor() model.Actor {
	return model.Actor{UserID: f.actorID}
}

func enqueueNotify(
	cmd *cobra.Command,
	ctx *commandContext,
	taskType model.TaskType,
	payload any,
	jobID int64,
	preview bool,
) error {
	if err := model.ValidateStruct(payload); err != nil {
		return err
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	return ctx.withServices(cmd, func(s *adminServices) error {
		task, err := s.Enqueuer.Enqueue(cmd.Context(), taskType, payload, core.EnqueueOptions{
			Priority: cfg.Runners.Notify.Priority,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "queued %s task %s for job %d\n", taskType, task.ID, jobID)
		if preview {
			kind := service.PreviewSuccess
			if taskType == model.TaskTypeNotifyFailed {
				kind = service.PreviewFailure
			}
			fmt.Fprintf(out, "[PREVIEW] emails will be stored under topic %s\n", service.PreviewTopic(jobID, kind))
		}
		return nil
	})
}

func newNotifySuccessCommand(ctx *commandContext) *cobra.Command {
	var f notifyFlags
	cmd := &cobra.Command{
		Use:   "notify-success",
		Short: "Bump compatibility of passing versions and email their authors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := f.template()
			if err != nil {
				return err
			}
			return enqueueNotify(cmd, ctx, model.TaskTypeNotifySuccess, &model.NotifySuccessPayload{
				JobID:       f.jobID,
				VersionIDs:  f.ids,
				Template:    tmpl,
				PreviewOnly: f.preview,
				Actor:       f.actor(),
			}, f.jobID, f.preview)
		},
	}
	f.register(cmd, "versions", "Comma separated add-on version ids")
	return cmd
}

func newNotifyFailedCommand(ctx *commandContext) *cobra.Command {
	var f notifyFlags
	cmd := &cobra.Command{
		Use:   "notify-failed",
		Short: "Email authors of files that failed validation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := f.template()
			if err != nil {
				return err
			}
			return enqueueNotify(cmd, ctx, model.TaskTypeNotifyFailed, &model.NotifyFailedPayload{
				JobID:       f.jobID,
				FileIDs:     f.ids,
				Template:    tmpl,
				PreviewOnly: f.preview,
				Actor:       f.actor(),
			}, f.jobID, f.preview)
		},
	}
	f.register(cmd, "files", "Comma separated file ids")
	return cmd
}

func newPreviewsCommand(ctx *commandContext) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "previews <job-id>",
		Short: "List emails captured by preview runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if kind != service.PreviewSuccess && kind != service.PreviewFailure {
				return fmt.Errorf("--kind must be %s or %s", service.PreviewSuccess, service.PreviewFailure)
			}
			return ctx.withServices(cmd, func(s *adminServices) error {
				previews, err := s.Previews.List(cmd.Context(), service.PreviewTopic(jobID, kind))
				if err != nil {
					return err
				}
				return renderPreviews(cmd.OutOrStdout(), previews)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", service.PreviewSuccess, "success or failure")
	return cmd
}

func newTaskStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "task-stats",
		Short: "Show queue counts per task type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(s *adminServices) error {
				rows := make([]taskStatsRow, 0, len(model.AllTaskTypes()))
				for _, tt := range model.AllTaskTypes() {
					st, err := s.Tasks.Stats(cmd.Context(), tt)
					if err != nil {
						return fmt.Errorf("stats for %s: %w", tt, err)
					}
					rows = append(rows, taskStatsRow{Type: tt, Stats: *st})
				}
				return renderTaskStats(cmd.OutOrStdout(), rows)
			})
		},
	}
}

func newReapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Run one task reaper sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(s *adminServices) error {
				if err := s.Sweep(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "reaper sweep complete")
				return nil
			})
		},
	}
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var allowRemote bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a demo catalog into a development database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if isLikelyRemoteHost(cfg.Postgres.Host) && !allowRemote {
				return fmt.Errorf(
					"refusing to seed potentially remote database host %q; re-run with --allow-remote if this is intentional",
					cfg.Postgres.Host,
				)
			}
			return ctx.withServices(cmd, func(s *adminServices) error {
				res, err := s.Seed(cmd.Context())
				if err != nil {
					return fmt.Errorf("seed data: %w", err)
				}
				ids := make([]string, len(res.AddonIDs))
				for i, id := range res.AddonIDs {
					ids[i] = strconv.FormatInt(id, 10)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "seeded demo catalog (application %d, %d add-ons)\n", res.ApplicationID, len(ids))
				fmt.Fprintf(out, "try: mmk-bulkval-admin create-job --app %d --curr-max %d --target %d --addons %s\n",
					res.ApplicationID, res.CurrMaxVersionID, res.TargetVersionID, strings.Join(ids, ","))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&allowRemote, "allow-remote", false, "Allow seeding a non-local database host")
	return cmd
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	switch {
	case h == "", h == "localhost", strings.HasSuffix(h, ".local"):
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// readIDsFile reads one id per line. Blank lines and lines starting with # are skipped.
func readIDsFile(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ids file: %w", err)
	}
	defer f.Close()
	return readIDs(f)
}

func readIDs(r io.Reader) ([]int64, error) {
	var ids []int64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, err := parseID(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	return ids, nil
}
