package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/service"
)

// tableWriter collects the first write error so renderers stay linear.
type tableWriter struct {
	tw  *tabwriter.Writer
	err error
}

func newTableWriter(out io.Writer) *tableWriter {
	return &tableWriter{tw: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)}
}

func (w *tableWriter) row(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.tw, format+"\n", args...)
}

func (w *tableWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// formatElapsed rounds to seconds; sub-second runs keep millisecond precision.
func formatElapsed(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Truncate(time.Millisecond).String()
	default:
		return d.Truncate(time.Second).String()
	}
}

func renderStatus(out io.Writer, st *service.JobStatus) error {
	job, p := st.Job, st.Progress
	w := newTableWriter(out)
	w.row("Job\t%d", job.ID)
	w.row("Application\t%s %s -> %s", job.ApplicationName, job.CurrMaxVersion.Version, job.TargetVersion.Version)
	if job.FinishEmail != nil {
		w.row("Finish email\t%s", *job.FinishEmail)
	}
	w.row("Created\t%s", formatTime(&job.CreatedAt))
	w.row("Completed\t%s", formatTime(job.CompletedAt))
	if job.CompletedAt != nil {
		w.row("Elapsed\t%s", formatElapsed(job.CompletedAt.Sub(job.CreatedAt)))
	}
	if p != nil {
		pct := 0.0
		if p.Total > 0 {
			pct = float64(p.Completed) * 100 / float64(p.Total)
		}
		w.row("Progress\t%d/%d (%.1f%%)", p.Completed, p.Total, pct)
		w.row("Passing\t%d", p.Passing)
		w.row("Failing\t%d", p.Failing)
		w.row("Task errors\t%d", p.Errored)
	}
	if err := w.flush(); err != nil {
		return fmt.Errorf("write status: %w", err)
	}

	if len(st.TaskErrors) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	w = newTableWriter(out)
	w.row("Result\tFile\tError")
	for _, r := range st.TaskErrors {
		msg := ""
		if r.TaskError != nil {
			msg, _, _ = strings.Cut(*r.TaskError, "\n")
		}
		w.row("%d\t%d\t%s", r.ID, r.FileID, msg)
	}
	if err := w.flush(); err != nil {
		return fmt.Errorf("write task errors: %w", err)
	}
	return nil
}

func renderPreviews(out io.Writer, previews []*model.EmailPreview) error {
	if len(previews) == 0 {
		_, err := fmt.Fprintln(out, "No previews stored")
		return err
	}
	for i, p := range previews {
		if i > 0 {
			if _, err := fmt.Fprintln(out, strings.Repeat("-", 40)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(out, "To: %s\nFrom: %s\nSubject: %s\n\n%s\n",
			p.Recipient, p.FromEmail, p.Subject, strings.TrimRight(p.Body, "\n")); err != nil {
			return fmt.Errorf("write preview %d: %w", p.ID, err)
		}
	}
	return nil
}

type taskStatsRow struct {
	Type  model.TaskType
	Stats model.TaskStats
}

func renderTaskStats(out io.Writer, rows []taskStatsRow) error {
	w := newTableWriter(out)
	w.row("Type\tPending\tRunning\tCompleted\tFailed")
	for _, r := range rows {
		w.row("%s\t%d\t%d\t%d\t%d", r.Type, r.Stats.Pending, r.Stats.Running, r.Stats.Completed, r.Stats.Failed)
	}
	if err := w.flush(); err != nil {
		return fmt.Errorf("write task stats: %w", err)
	}
	return nil
}
