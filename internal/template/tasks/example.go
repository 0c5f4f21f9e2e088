package tasks

import (
	"context"
	"time"

	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/template"
)

// exampleArgs mirrors orch.tasks.example.Task: wait_time in milliseconds,
// plus an opaque unique_id used only to tell instances of this task apart
// in their output.
type exampleArgs struct {
	WaitTimeMS int `json:"wait_time" validate:"gte=0"`
	UniqueID   int `json:"unique_id"`
}

type exampleTask struct {
	args exampleArgs
}

func newExample(raw model.JSONMap) (template.Task, error) {
	var args exampleArgs
	if err := template.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return &exampleTask{args: args}, nil
}

// Run sleeps for wait_time milliseconds and reports how long it actually
// slept, exactly like Task.__call__ in orch.tasks.example.
func (t *exampleTask) Run(ctx context.Context, _ model.JSONMap) (*template.TaskResult, error) {
	started := time.Now()

	select {
	case <-time.After(time.Duration(t.args.WaitTimeMS) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	sleptMS := float64(time.Since(started).Microseconds()) / 1000.0

	output, err := template.ToJSONMap(struct {
		DummyID    int     `json:"dummy_id"`
		DummySlept float64 `json:"dummy_slept"`
	}{DummyID: t.args.UniqueID, DummySlept: sleptMS})
	if err != nil {
		return nil, err
	}

	return &template.TaskResult{Output: output}, nil
}
