package flows

import (
	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/template"
)

// exampleArgs generalizes orch.flows.example and orch.flows.example_large
// into a single template: num_of_tasks defaults to 2, matching example's
// always-two-task split; any other num_of_tasks reproduces example_large's
// evenly-divided N-task split.
type exampleArgs struct {
	WaitTimeMS int `json:"wait_time" validate:"gte=0,lte=3600000"`
	NumOfTasks int `json:"num_of_tasks" validate:"gte=1,lte=50"`
}

type exampleFlow struct {
	args exampleArgs
}

func newExample(raw model.JSONMap) (template.Flow, error) {
	args := exampleArgs{NumOfTasks: 2}
	if err := template.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return &exampleFlow{args: args}, nil
}

func (f *exampleFlow) Tasks() ([]template.TaskSpec, error) {
	durations := make([]int, f.args.NumOfTasks)
	if f.args.NumOfTasks == 2 {
		// Matches orch.flows.example's wait_time/3, wait_time/3*2 split,
		// using integer truncation so the two durations always sum to
		// wait_time exactly (the original's float division is not
		// reproduced).
		durations[0] = f.args.WaitTimeMS / 3
		durations[1] = f.args.WaitTimeMS - durations[0]
	} else {
		delay := f.args.WaitTimeMS / f.args.NumOfTasks
		for i := range durations {
			durations[i] = delay
		}
	}

	specs := make([]template.TaskSpec, f.args.NumOfTasks)
	for i, d := range durations {
		args, err := template.ToJSONMap(struct {
			WaitTimeMS int `json:"wait_time"`
			UniqueID   int `json:"unique_id"`
		}{WaitTimeMS: d, UniqueID: i})
		if err != nil {
			return nil, err
		}
		specs[i] = template.TaskSpec{Name: "example", Args: args}
	}

	return specs, nil
}
