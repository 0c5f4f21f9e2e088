package model

import (
	"time"

	"github.com/google/uuid"
)

// Task is a single step of a Flow, ported from orch.models.task.Task. A
// Task's persisted Status is authoritative; Flow-level status is derived
// from the set of its tasks (see FlowStatus).
type Task struct {
	ID     uuid.UUID `db:"id"`
	FlowID uuid.UUID `db:"flow_id"`
	Name   string    `db:"name"`

	// Ordering is the Task's position within its Flow; tasks run strictly
	// in this order, one per advancement.
	Ordering int    `db:"ordering"`
	Status   Status `db:"status"`

	Args   JSONMap `db:"args"`
	Output JSONMap `db:"output"`

	UpdatedAt  time.Time  `db:"updated_at"`
	StartedAt  *time.Time `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// IsDone reports whether the Task has left the PENDING/BLOCKED states.
func (t Task) IsDone() bool {
	return t.Status != StatusPending && t.Status != StatusBlocked
}

// Duration returns how long the Task ran, or nil if it hasn't finished.
func (t Task) Duration() *time.Duration {
	if !t.IsDone() || t.StartedAt == nil || t.FinishedAt == nil {
		return nil
	}

	d := t.FinishedAt.Sub(*t.StartedAt)
	return &d
}
