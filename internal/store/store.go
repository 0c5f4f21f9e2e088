// Package store is the read-side repository behind the HTTP API's flow
// listing and lookup endpoints, ported from the select-based queries in
// orch.routes (get_flow_by_id, get_executed_flows).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/orcherr"
)

// Store is the read-side flow repository.
type Store struct {
	db *sqlx.DB
}

// New wraps db as a Store.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// NewTask describes one task row to insert as part of CreateFlow, built
// from a flow template's TaskSpec list.
type NewTask struct {
	Name string
	Args model.JSONMap
}

// CreateFlow inserts a new flow and its tasks (PENDING, in order) inside a
// single transaction, ported from the flow-plus-tasks insert in
// orch.routes.create_flow.
func (s *Store) CreateFlow(ctx context.Context, name string, args model.JSONMap, webhookURL *string, priority int, tasks []NewTask) (*model.Flow, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, orcherr.NewDatabaseError("begin create flow transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	flow := model.Flow{
		ID:         uuid.New(),
		Name:       name,
		Args:       args,
		WebhookURL: webhookURL,
		Priority:   priority,
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO flows (id, name, args, webhook_url, priority) VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		flow.ID, flow.Name, flow.Args, flow.WebhookURL, flow.Priority).Scan(&flow.CreatedAt)
	if err != nil {
		return nil, orcherr.NewDatabaseError("insert flow", err)
	}

	flow.Tasks = make([]model.Task, 0, len(tasks))
	for i, t := range tasks {
		task := model.Task{
			ID:       uuid.New(),
			FlowID:   flow.ID,
			Name:     t.Name,
			Ordering: i,
			Status:   model.StatusPending,
			Args:     t.Args,
			Output:   model.JSONMap{},
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO tasks (id, flow_id, name, ordering, status, args, output) VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING updated_at`,
			task.ID, task.FlowID, task.Name, task.Ordering, string(task.Status), task.Args, task.Output).Scan(&task.UpdatedAt)
		if err != nil {
			return nil, orcherr.NewDatabaseError("insert task", err)
		}

		flow.Tasks = append(flow.Tasks, task)
	}

	if err := tx.Commit(); err != nil {
		return nil, orcherr.NewDatabaseError("commit create flow transaction", err)
	}
	committed = true

	return &flow, nil
}

// ListFilter narrows ListFlows the same way the query params on GET /flows
// do in the original implementation.
type ListFilter struct {
	Name        *string
	IDs         []uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Priority    *int
}

// ListFlows returns every flow matching filter, newest first, each with its
// tasks populated in ordering order.
func (s *Store) ListFlows(ctx context.Context, filter ListFilter) ([]model.Flow, error) {
	var clauses []string
	var args []any

	add := func(column string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.Name != nil {
		add("name", *filter.Name)
	}
	if len(filter.IDs) > 0 {
		args = append(args, pq.Array(filter.IDs))
		clauses = append(clauses, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Priority != nil {
		add("priority", *filter.Priority)
	}

	query := "SELECT id, name, args, webhook_url, created_at, priority FROM flows"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var flowRows []model.Flow
	if err := s.db.SelectContext(ctx, &flowRows, query, args...); err != nil {
		return nil, orcherr.NewDatabaseError("list flows", err)
	}
	if len(flowRows) == 0 {
		return flowRows, nil
	}

	ids := make([]uuid.UUID, len(flowRows))
	for i, f := range flowRows {
		ids[i] = f.ID
	}

	tasksByFlow, err := s.tasksForFlows(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range flowRows {
		flowRows[i].Tasks = tasksByFlow[flowRows[i].ID]
	}

	return flowRows, nil
}

// GetFlowByID returns a single flow with its tasks, or a NotFound AppError.
func (s *Store) GetFlowByID(ctx context.Context, id uuid.UUID) (*model.Flow, error) {
	var flow model.Flow
	err := s.db.GetContext(ctx, &flow,
		`SELECT id, name, args, webhook_url, created_at, priority FROM flows WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, orcherr.NewNotFoundError("flow")
		}
		return nil, orcherr.NewDatabaseError("get flow by id", err)
	}

	tasks, err := s.tasksForFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	flow.Tasks = tasks

	return &flow, nil
}

func (s *Store) tasksForFlow(ctx context.Context, flowID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	err := s.db.SelectContext(ctx, &tasks,
		`SELECT id, flow_id, name, ordering, status, args, output, updated_at, started_at, finished_at
		 FROM tasks WHERE flow_id = $1 ORDER BY ordering ASC`, flowID)
	if err != nil {
		return nil, orcherr.NewDatabaseError("list tasks for flow", err)
	}

	return tasks, nil
}

// tasksForFlows batches tasksForFlow across every id in one round trip, so
// ListFlows doesn't issue one query per returned flow.
func (s *Store) tasksForFlows(ctx context.Context, flowIDs []uuid.UUID) (map[uuid.UUID][]model.Task, error) {
	var tasks []model.Task
	err := s.db.SelectContext(ctx, &tasks,
		`SELECT id, flow_id, name, ordering, status, args, output, updated_at, started_at, finished_at
		 FROM tasks WHERE flow_id = ANY($1) ORDER BY flow_id, ordering ASC`, pq.Array(flowIDs))
	if err != nil {
		return nil, orcherr.NewDatabaseError("list tasks for flows", err)
	}

	byFlow := make(map[uuid.UUID][]model.Task, len(flowIDs))
	for _, t := range tasks {
		byFlow[t.FlowID] = append(byFlow[t.FlowID], t)
	}

	return byFlow, nil
}
