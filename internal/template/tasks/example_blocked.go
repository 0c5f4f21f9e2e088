package tasks

import (
	"context"

	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/template"
)

// exampleBlockedArgs mirrors orch.tasks.example_blocked.Task:
// webhook_request_body is nil until a webhook unblocks the task, at which
// point the advancer overwrites these args with the payload (SPEC_FULL §4.D).
type exampleBlockedArgs struct {
	WebhookRequestBody model.JSONMap `json:"webhook_request_body"`
}

type exampleBlockedTask struct {
	args exampleBlockedArgs
}

func newExampleBlocked(raw model.JSONMap) (template.Task, error) {
	var args exampleBlockedArgs
	if err := template.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return &exampleBlockedTask{args: args}, nil
}

// Run reports itself blocked until webhook_request_body is present, then
// reports that body back as its output.
func (t *exampleBlockedTask) Run(_ context.Context, _ model.JSONMap) (*template.TaskResult, error) {
	if t.args.WebhookRequestBody == nil {
		return &template.TaskResult{Blocked: true}, nil
	}

	output, err := template.ToJSONMap(struct {
		UnblockedDueTo model.JSONMap `json:"unblocked_due_to"`
	}{UnblockedDueTo: t.args.WebhookRequestBody})
	if err != nil {
		return nil, err
	}

	return &template.TaskResult{Output: output}, nil
}
