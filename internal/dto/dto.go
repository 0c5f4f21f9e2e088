// Package dto holds the wire representations shared by the HTTP API Shim
// and the Webhook Notifier, ported from orch.schemas.ResponseFlow/
// ResponseTask. Keeping them here (rather than in internal/httpapi) lets
// internal/webhook serialize a flow snapshot without importing the HTTP
// layer.
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/orch/internal/model"
)

// Task is the external representation of a model.Task.
type Task struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	Ordering   int           `json:"ordering"`
	Status     string        `json:"status"`
	Args       model.JSONMap `json:"args"`
	Output     model.JSONMap `json:"output"`
	UpdatedAt  time.Time     `json:"updated_at"`
	FinishedAt *time.Time    `json:"finished_at"`
}

// TaskFromModel converts a model.Task to its wire shape.
func TaskFromModel(t model.Task) Task {
	return Task{
		ID:         t.ID,
		Name:       t.Name,
		Ordering:   t.Ordering,
		Status:     string(t.Status),
		Args:       t.Args,
		Output:     t.Output,
		UpdatedAt:  t.UpdatedAt,
		FinishedAt: t.FinishedAt,
	}
}

// Flow is the external representation of a model.Flow, ported from
// orch.schemas.ResponseFlow.from_model.
type Flow struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	Args       model.JSONMap `json:"args"`
	WebhookURL *string       `json:"webhook_url,omitempty"`
	Priority   int           `json:"priority"`
	CreatedAt  time.Time     `json:"created_at"`
	Status     string        `json:"status"`
	Tasks      []Task        `json:"tasks"`
	Output     model.JSONMap `json:"output"`
}

// FlowFromModel converts a model.Flow to its wire shape.
func FlowFromModel(f model.Flow) Flow {
	tasks := make([]Task, 0, len(f.Tasks))
	for _, t := range f.Tasks {
		tasks = append(tasks, TaskFromModel(t))
	}

	return Flow{
		ID:         f.ID,
		Name:       f.Name,
		Args:       f.Args,
		WebhookURL: f.WebhookURL,
		Priority:   f.Priority,
		CreatedAt:  f.CreatedAt,
		Status:     string(f.Status()),
		Tasks:      tasks,
		Output:     f.FinalOutput(),
	}
}

// ExecutedFlows wraps a bounded list of flows with its total count, ported
// from orch.schemas.ResponseExecutedFlows.
type ExecutedFlows struct {
	Count int    `json:"count"`
	Flows []Flow `json:"flows"`
}
