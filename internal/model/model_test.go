package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTask(status Status, ordering int, output JSONMap) Task {
	return Task{
		ID:       uuid.New(),
		Name:     "t",
		Ordering: ordering,
		Status:   status,
		Output:   output,
	}
}

func TestFlowStatusPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		tasks  []Task
		expect Status
	}{
		{"empty", nil, StatusSuccess},
		{"all success", []Task{newTask(StatusSuccess, 0, nil), newTask(StatusSuccess, 1, nil)}, StatusSuccess},
		{"one pending", []Task{newTask(StatusSuccess, 0, nil), newTask(StatusPending, 1, nil)}, StatusPending},
		{"one blocked beats pending absence", []Task{newTask(StatusSuccess, 0, nil), newTask(StatusBlocked, 1, nil)}, StatusBlocked},
		{"failure beats everything", []Task{newTask(StatusFailure, 0, nil), newTask(StatusPending, 1, nil), newTask(StatusBlocked, 2, nil)}, StatusFailure},
		{"pending beats blocked", []Task{newTask(StatusBlocked, 0, nil), newTask(StatusPending, 1, nil)}, StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, FlowStatus(tc.tasks))
		})
	}
}

func TestFlowFlattenedOutputsLastWriterWins(t *testing.T) {
	f := Flow{
		Tasks: []Task{
			newTask(StatusSuccess, 0, JSONMap{"a": 1.0, "b": 2.0}),
			newTask(StatusSuccess, 1, JSONMap{"b": 3.0}),
			newTask(StatusPending, 2, JSONMap{"b": 99.0}),
		},
	}

	got := f.FlattenedOutputs()
	assert.Equal(t, JSONMap{"a": 1.0, "b": 3.0}, got)
}

func TestFlowFinalOutput(t *testing.T) {
	f := Flow{Tasks: []Task{
		newTask(StatusSuccess, 0, JSONMap{"a": 1.0}),
		newTask(StatusSuccess, 1, JSONMap{"b": 2.0}),
	}}

	assert.Equal(t, JSONMap{"b": 2.0}, f.FinalOutput())
	assert.Nil(t, Flow{}.FinalOutput())
}

func TestFlowNextBlockedTask(t *testing.T) {
	blocked := newTask(StatusBlocked, 1, nil)
	f := Flow{Tasks: []Task{newTask(StatusSuccess, 0, nil), blocked, newTask(StatusPending, 2, nil)}}

	got := f.NextBlockedTask()
	assert.NotNil(t, got)
	assert.Equal(t, blocked.ID, got.ID)
}

func TestTaskIsDoneAndDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	finish := start.Add(5 * time.Second)

	pending := Task{Status: StatusPending}
	assert.False(t, pending.IsDone())
	assert.Nil(t, pending.Duration())

	done := Task{Status: StatusSuccess, StartedAt: &start, FinishedAt: &finish}
	assert.True(t, done.IsDone())
	assert.Equal(t, 5*time.Second, *done.Duration())
}

func TestJSONMapRoundTrip(t *testing.T) {
	m := JSONMap{"a": 1.0, "b": "x", "c": true, "nested": map[string]any{"d": 2.0}}

	v, err := m.Value()
	assert.NoError(t, err)

	var out JSONMap
	assert.NoError(t, out.Scan(v))
	assert.Equal(t, m, out)
}

func TestJSONMapScanNil(t *testing.T) {
	var out JSONMap
	assert.NoError(t, out.Scan(nil))
	assert.Equal(t, JSONMap{}, out)
}
