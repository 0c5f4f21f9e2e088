// Package tasks holds the orchestrator's built-in task templates, ported
// from orch.tasks.example/example_blocked/example_failure.
package tasks

import "github.com/jordigilh/orch/internal/template"

// Register adds every built-in task template to r.
func Register(r *template.Registry) {
	r.RegisterTask("example", newExample)
	r.RegisterTask("example_blocked", newExampleBlocked)
	r.RegisterTask("example_failure", newExampleFailure)
}
