package flows

import (
	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/template"
)

// exampleBlockedFlow ports orch.flows.example_blocked: a single task that
// only the webhook unblock path can complete.
type exampleBlockedFlow struct{}

func newExampleBlocked(model.JSONMap) (template.Flow, error) {
	return &exampleBlockedFlow{}, nil
}

func (f *exampleBlockedFlow) Tasks() ([]template.TaskSpec, error) {
	return []template.TaskSpec{{Name: "example_blocked", Args: model.JSONMap{}}}, nil
}
