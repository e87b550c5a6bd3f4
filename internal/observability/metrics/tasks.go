// Package metrics emits task lifecycle metrics through statsd.
package metrics

import (
	"time"

	obserrors "github.com/target/mmk-bulkval/internal/observability/errors"
	"github.com/target/mmk-bulkval/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultRetry   = "retry"
)

// Task lifecycle transitions.
const (
	TransitionReserved  = "reserved"
	TransitionCompleted = "completed"
	TransitionFailed    = "failed"
)

// TaskMetric captures one task lifecycle event.
type TaskMetric struct {
	TaskType   string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitTaskLifecycle emits a count and, when a duration is known, a timing for the event.
func EmitTaskLifecycle(sink statsd.Sink, in TaskMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"task_type":  in.TaskType,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && (in.Result == ResultError || in.Result == ResultRetry) {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("task.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("task.duration", in.Duration, CloneTags(tags))
	}
}

// EmitJobCompleted counts a validation job reaching completion.
func EmitJobCompleted(sink statsd.Sink, total int) {
	if sink == nil {
		return
	}
	sink.Count("validation_job.completed", 1, nil)
	sink.Gauge("validation_job.results", float64(total), nil)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
