package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jordigilh/orch/internal/model"
)

func TestRegisterFlowRejectsBadName(t *testing.T) {
	r := NewRegistry()

	assert.Panics(t, func() {
		r.RegisterFlow("BadName", func(model.JSONMap) (Flow, error) { return nil, nil })
	})
}

func TestRegisterFlowRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	factory := func(model.JSONMap) (Flow, error) { return nil, nil }

	r.RegisterFlow("example", factory)
	assert.Panics(t, func() { r.RegisterFlow("example", factory) })
}

func TestNewFlowUnknownName(t *testing.T) {
	r := NewRegistry()

	_, err := r.NewFlow("nope", model.JSONMap{})
	assert.Error(t, err)
}

func TestHasFlowAndFlowNames(t *testing.T) {
	r := NewRegistry()
	r.RegisterFlow("example", func(model.JSONMap) (Flow, error) { return nil, nil })

	assert.True(t, r.HasFlow("example"))
	assert.False(t, r.HasFlow("other"))
	assert.Equal(t, []string{"example"}, r.FlowNames())
}
