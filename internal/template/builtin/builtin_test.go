package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordigilh/orch/internal/model"
)

func TestExampleFlowSpreadsWaitTimeAcrossTasks(t *testing.T) {
	r := Registry()

	flow, err := r.NewFlow("example", model.JSONMap{"wait_time": 900.0, "num_of_tasks": 3.0})
	require.NoError(t, err)

	specs, err := flow.Tasks()
	require.NoError(t, err)
	require.Len(t, specs, 3)

	for _, s := range specs {
		assert.Equal(t, "example", s.Name)
		assert.EqualValues(t, 300, s.Args["wait_time"])
	}
}

func TestExampleTaskRunsAndProducesOutput(t *testing.T) {
	r := Registry()

	task, err := r.NewTask("example", model.JSONMap{"wait_time": 1.0, "unique_id": 7.0})
	require.NoError(t, err)

	result, err := task.Run(context.Background(), model.JSONMap{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Blocked)
	assert.EqualValues(t, 7, result.Output["dummy_id"])
}

func TestExampleBlockedTaskBlocksUntilUnblocked(t *testing.T) {
	r := Registry()

	task, err := r.NewTask("example_blocked", model.JSONMap{})
	require.NoError(t, err)

	result, err := task.Run(context.Background(), model.JSONMap{})
	require.NoError(t, err)
	assert.True(t, result.Blocked)

	unblocked, err := r.NewTask("example_blocked", model.JSONMap{
		"webhook_request_body": model.JSONMap{"approved": true},
	})
	require.NoError(t, err)

	result, err = unblocked.Run(context.Background(), model.JSONMap{})
	require.NoError(t, err)
	assert.False(t, result.Blocked)
}

func TestExampleFailureTaskAlwaysFails(t *testing.T) {
	r := Registry()

	task, err := r.NewTask("example_failure", model.JSONMap{})
	require.NoError(t, err)

	_, err = task.Run(context.Background(), model.JSONMap{})
	assert.Error(t, err)
}

func TestRejectsUnknownArguments(t *testing.T) {
	r := Registry()

	_, err := r.NewFlow("example", model.JSONMap{"wait_time": 1.0, "bogus": true})
	assert.Error(t, err)
}
