package flows

import (
	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/template"
)

// exampleFailureArgs ports orch.flows.example_failure: a failing task
// followed by a task that would otherwise succeed, to exercise the cascade
// invariant (a FAILURE forces every later PENDING task to FAILURE too).
type exampleFailureArgs struct {
	WaitTimeMS int `json:"wait_time" validate:"gte=0,lte=3600000"`
}

type exampleFailureFlow struct {
	args exampleFailureArgs
}

func newExampleFailure(raw model.JSONMap) (template.Flow, error) {
	var args exampleFailureArgs
	if err := template.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return &exampleFailureFlow{args: args}, nil
}

func (f *exampleFailureFlow) Tasks() ([]template.TaskSpec, error) {
	exampleArgs, err := template.ToJSONMap(struct {
		WaitTimeMS int `json:"wait_time"`
		UniqueID   int `json:"unique_id"`
	}{WaitTimeMS: f.args.WaitTimeMS, UniqueID: 1})
	if err != nil {
		return nil, err
	}

	return []template.TaskSpec{
		{Name: "example_failure", Args: model.JSONMap{}},
		{Name: "example", Args: exampleArgs},
	}, nil
}
