package tasks

import (
	"context"

	"github.com/jordigilh/orch/internal/executor"
	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/template"
)

type exampleFailureTask struct{}

func newExampleFailure(model.JSONMap) (template.Task, error) {
	return &exampleFailureTask{}, nil
}

// Run always fails, matching orch.tasks.example_failure.Task: a deliberate
// domain error, used by the example_failure flow to exercise the cascade
// invariant.
func (t *exampleFailureTask) Run(context.Context, model.JSONMap) (*template.TaskResult, error) {
	return nil, executor.NewTaskError("failed on purpose")
}
