// Package builtin wires the orchestrator's built-in flow and task templates
// into a single Registry. It is kept separate from internal/template itself
// so that internal/template/flows and internal/template/tasks can import
// internal/template without a cycle.
package builtin

import (
	"github.com/jordigilh/orch/internal/template"
	"github.com/jordigilh/orch/internal/template/flows"
	"github.com/jordigilh/orch/internal/template/tasks"
)

// Registry returns a Registry populated with every built-in flow and task
// template.
func Registry() *template.Registry {
	r := template.NewRegistry()
	tasks.Register(r)
	flows.Register(r)
	return r
}
