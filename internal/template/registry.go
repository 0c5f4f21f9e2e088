package template

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/orcherr"
)

var (
	flowNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]+$`)
	taskNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]+$`)
)

// TaskSpec is one task a FlowTemplate wants instantiated, in order.
type TaskSpec struct {
	Name string
	Args model.JSONMap
}

// Flow is an instantiated flow template: its validated arguments already
// decoded, ready to be asked for its task list.
type Flow interface {
	// Tasks returns, in order, the tasks this flow run consists of.
	Tasks() ([]TaskSpec, error)
}

// TaskResult is what a Task execution produced. Blocked means the task
// returned no output and is waiting on an external actor (a webhook);
// Output is only meaningful when !Blocked.
type TaskResult struct {
	Blocked bool
	Output  model.JSONMap
}

// Task is an instantiated task template, ready to run against a merged
// context of flow_id plus every prior task's flattened output.
type Task interface {
	// Run executes the task. ctxValues holds "flow_id" plus every preceding
	// task's flattened output, last-writer-wins on key collision, per
	// SPEC_FULL §4.C.
	Run(ctx context.Context, ctxValues model.JSONMap) (*TaskResult, error)
}

// FlowFactory builds a Flow from a flow run's raw JSON arguments.
type FlowFactory func(args model.JSONMap) (Flow, error)

// TaskFactory builds a Task from a task run's raw JSON arguments.
type TaskFactory func(args model.JSONMap) (Task, error)

// Registry holds the fixed set of Flow/Task templates the orchestrator
// knows how to run. Unlike orch.flows/orch.tasks, which populate themselves
// by globbing their package directory at import time, registration here is
// explicit: builtin.Registry calls flows.Register and tasks.Register, which
// call Register* for each built-in template, so `go build` is the only thing
// that decides what's compiled in.
type Registry struct {
	flows map[string]FlowFactory
	tasks map[string]TaskFactory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{flows: map[string]FlowFactory{}, tasks: map[string]TaskFactory{}}
}

// RegisterFlow adds a flow template under name. It panics on a malformed or
// duplicate name: both are programming errors caught at process startup,
// not runtime conditions to recover from.
func (r *Registry) RegisterFlow(name string, factory FlowFactory) {
	if !flowNameRe.MatchString(name) {
		panic(fmt.Sprintf("template: bad flow name %q", name))
	}
	if _, exists := r.flows[name]; exists {
		panic(fmt.Sprintf("template: duplicate flow name %q", name))
	}
	r.flows[name] = factory
}

// RegisterTask adds a task template under name.
func (r *Registry) RegisterTask(name string, factory TaskFactory) {
	if !taskNameRe.MatchString(name) {
		panic(fmt.Sprintf("template: bad task name %q", name))
	}
	if _, exists := r.tasks[name]; exists {
		panic(fmt.Sprintf("template: duplicate task name %q", name))
	}
	r.tasks[name] = factory
}

// NewFlow instantiates the named flow template with args, returning a
// NotFound AppError if name is unknown.
func (r *Registry) NewFlow(name string, args model.JSONMap) (Flow, error) {
	factory, ok := r.flows[name]
	if !ok {
		return nil, orcherr.NewNotFoundError(fmt.Sprintf("flow template %q", name))
	}
	return factory(args)
}

// NewTask instantiates the named task template with args.
func (r *Registry) NewTask(name string, args model.JSONMap) (Task, error) {
	factory, ok := r.tasks[name]
	if !ok {
		return nil, orcherr.NewNotFoundError(fmt.Sprintf("task template %q", name))
	}
	return factory(args)
}

// HasFlow reports whether name is a registered flow template.
func (r *Registry) HasFlow(name string) bool {
	_, ok := r.flows[name]
	return ok
}

// FlowNames returns every registered flow template name.
func (r *Registry) FlowNames() []string {
	names := make([]string, 0, len(r.flows))
	for name := range r.flows {
		names = append(names, name)
	}
	return names
}
