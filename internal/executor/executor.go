// Package executor implements the Task Executor (SPEC_FULL §4.C): it runs a
// single Task against its template, turning whatever the template returns
// into one of the three outcomes a run can produce (SUCCESS, FAILURE or
// BLOCKED). Ported from
// Task.run in orch.models.task.
package executor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/orcherr"
	"github.com/jordigilh/orch/internal/template"
)

// TaskError is a domain-level task failure, analogous to the original's
// OrchException: its Message is persisted verbatim into task.output.error
// and returned to API callers inside a 200 flow snapshot, never surfaced as
// an HTTP error status on its own. It is deliberately not an
// *orcherr.AppError — orcherr.SafeErrorMessage exists to keep internal
// detail out of HTTP error responses, which is the wrong behavior here: a
// task author's message is meant to reach the caller unchanged.
type TaskError struct {
	Message string
}

func (e *TaskError) Error() string { return e.Message }

// NewTaskError builds a TaskError with message.
func NewTaskError(message string) *TaskError {
	return &TaskError{Message: message}
}

// Executor runs tasks against the template registry.
type Executor struct {
	registry *template.Registry
	logger   *zap.Logger
}

// New builds an Executor backed by registry.
func New(registry *template.Registry, logger *zap.Logger) *Executor {
	return &Executor{registry: registry, logger: logger}
}

// Outcome is the result of advancing a single task.
type Outcome struct {
	Status Status
	Output model.JSONMap
}

// Status names the outcome of one run of a task (SUCCESS, FAILURE or
// BLOCKED). It is an alias of model.Status, so a run's outcome is the same
// value that gets persisted as the task's status.
type Status = model.Status

// Run instantiates task by name+args and executes it against ctxValues
// (flow_id plus every prior task's flattened output), returning the
// resulting status and output. It never returns a non-nil error for a
// domain-level task failure: those come back as Outcome{Status: FAILURE}.
// A non-nil error here means the task template itself could not be
// constructed (bad args, unknown template) and is an internal/validation
// problem, not a task-level failure.
func (e *Executor) Run(ctx context.Context, taskName string, args model.JSONMap, ctxValues model.JSONMap) (Outcome, error) {
	task, err := e.registry.NewTask(taskName, args)
	if err != nil {
		return Outcome{}, err
	}

	started := time.Now()
	result, err := task.Run(ctx, ctxValues)
	duration := time.Since(started)

	logger := e.logger.With(zap.String("task_name", taskName), zap.Duration("task_duration", duration))

	if err != nil {
		logger.Error("task error", zap.String("error", err.Error()))

		message := orcherr.SafeErrorMessage(err)
		var taskErr *TaskError
		if errors.As(err, &taskErr) {
			message = taskErr.Message
		}

		return Outcome{
			Status: model.StatusFailure,
			Output: model.JSONMap{"error": message},
		}, nil
	}

	if result == nil || result.Blocked {
		logger.Info("task blocked")
		return Outcome{Status: model.StatusBlocked, Output: model.JSONMap{}}, nil
	}

	logger.Info("task finished", zap.String("task_status", string(model.StatusSuccess)))
	return Outcome{Status: model.StatusSuccess, Output: result.Output}, nil
}
