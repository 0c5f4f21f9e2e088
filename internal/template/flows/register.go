// Package flows holds the orchestrator's built-in flow templates, ported
// from orch.flows.example/example_large/example_blocked/example_failure.
package flows

import "github.com/jordigilh/orch/internal/template"

// Register adds every built-in flow template to r.
func Register(r *template.Registry) {
	r.RegisterFlow("example", newExample)
	r.RegisterFlow("example_blocked", newExampleBlocked)
	r.RegisterFlow("example_failure", newExampleFailure)
}
