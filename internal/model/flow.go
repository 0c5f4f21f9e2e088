package model

import (
	"time"

	"github.com/google/uuid"
)

// Flow is a named, ordered run of Tasks, ported from orch.models.flow.Flow.
// Tasks must always be kept sorted by Ordering; every helper below assumes
// that invariant holds.
type Flow struct {
	ID         uuid.UUID `db:"id"`
	Name       string    `db:"name"`
	Args       JSONMap   `db:"args"`
	WebhookURL *string   `db:"webhook_url"`
	CreatedAt  time.Time `db:"created_at"`
	Priority   int       `db:"priority"`

	Tasks []Task `db:"-"`
}

// Status derives the Flow's status from its tasks' statuses.
func (f Flow) Status() Status {
	return FlowStatus(f.Tasks)
}

// FlattenedOutputs merges every non-pending task's output into a single map,
// last-writer-wins on key collision by Ordering, matching the
// `{key: val for outs in outputs.values() for key, val in outs.items()}`
// flattening the original task runner performs before invoking the next
// task.
func (f Flow) FlattenedOutputs() JSONMap {
	merged := JSONMap{}
	for _, t := range f.Tasks {
		if t.Status == StatusPending {
			continue
		}
		for k, v := range t.Output {
			merged[k] = v
		}
	}

	return merged
}

// FinalOutput returns the last task's output, or nil if the flow has no
// tasks.
func (f Flow) FinalOutput() JSONMap {
	if len(f.Tasks) == 0 {
		return nil
	}

	return f.Tasks[len(f.Tasks)-1].Output
}

// NextBlockedTask returns the first BLOCKED task in ordering, if any.
func (f Flow) NextBlockedTask() *Task {
	for i := range f.Tasks {
		if f.Tasks[i].Status == StatusBlocked {
			return &f.Tasks[i]
		}
	}

	return nil
}

// Duration reports how long a SUCCESS flow took. onlyTasks sums each task's
// own running time rather than measuring wall-clock from creation to the
// last finished task, matching Flow.duration(only_tasks=True).
func (f Flow) Duration(onlyTasks bool) *time.Duration {
	if f.Status() != StatusSuccess || len(f.Tasks) == 0 {
		return nil
	}

	if onlyTasks {
		var total time.Duration
		for _, t := range f.Tasks {
			if d := t.Duration(); d != nil {
				total += *d
			}
		}
		return &total
	}

	var last time.Time
	for _, t := range f.Tasks {
		if t.FinishedAt != nil && t.FinishedAt.After(last) {
			last = *t.FinishedAt
		}
	}
	if last.IsZero() {
		return nil
	}

	d := last.Sub(f.CreatedAt)
	return &d
}
