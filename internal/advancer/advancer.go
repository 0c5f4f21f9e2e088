// Package advancer implements the Flow Advancer (SPEC_FULL §4.D): advancing
// exactly one task of a claimed flow per call, applying the cascade
// invariant on failure, and the webhook unblock protocol. Ported from
// Flow.run_next_task/set_pending_tasks_failed/get_next_blocked_task in
// orch.models.flow.
package advancer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/database"
	"github.com/jordigilh/orch/internal/executor"
	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/orcherr"
)

// Pool is the subset of *pgxpool.Pool the Advancer needs. It exists so
// tests can substitute github.com/pashagolub/pgxmock instead of a live
// database, the same way the pack's materials store tests do.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Advancer advances one task of one flow at a time, inside its own
// transaction.
type Advancer struct {
	pool     Pool
	executor *executor.Executor
	logger   *zap.Logger
}

// New builds an Advancer.
func New(pool Pool, exec *executor.Executor, logger *zap.Logger) *Advancer {
	return &Advancer{pool: pool, executor: exec, logger: logger}
}

// Advance runs the next eligible task of flowID: the first PENDING task,
// provided no earlier task is BLOCKED or FAILURE (in which case nothing runs
// and that status is returned). It returns the resulting task status and
// whether the flow as
// a whole is now fully SUCCESS (every task SUCCESS), which is what tells
// the caller whether to fire the flow's completion webhook.
func (a *Advancer) Advance(ctx context.Context, flowID uuid.UUID) (model.Status, bool, error) {
	acqCtx, cancel := database.AcquireContext(ctx)
	tx, err := a.pool.Begin(acqCtx)
	cancel()
	if err != nil {
		return "", false, orcherr.NewDatabaseError("begin advance transaction", err)
	}
	committed := false
	defer database.RollbackUnlessCommitted(ctx, tx, &committed)

	status, flowDone, err := a.advanceTx(ctx, tx, flowID)
	if err != nil {
		return "", false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, orcherr.NewDatabaseError("commit advance transaction", err)
	}
	committed = true

	return status, flowDone, nil
}

// AdvanceTx runs the same advancement logic as Advance but inside a
// transaction the caller already holds and will commit itself. The
// scheduler's tick loop uses this to claim a flow (eligibility.ClaimNext)
// and advance it within a single transaction, so the claim's
// FOR UPDATE SKIP LOCKED lock is held across both steps — splitting claim
// and advance into separate transactions would let two replicas claim the
// same flow before either advances it (SPEC_FULL §4.E/§4.F).
func (a *Advancer) AdvanceTx(ctx context.Context, tx pgx.Tx, flowID uuid.UUID) (model.Status, bool, error) {
	return a.advanceTx(ctx, tx, flowID)
}

// advanceTx holds Advance/AdvanceTx's shared logic. It neither commits nor
// rolls tx back; the caller owns the transaction's lifetime.
func (a *Advancer) advanceTx(ctx context.Context, tx pgx.Tx, flowID uuid.UUID) (model.Status, bool, error) {
	tasks, err := loadTasksForUpdate(ctx, tx, flowID)
	if err != nil {
		return "", false, err
	}

	flow := model.Flow{ID: flowID, Tasks: tasks}

	var target *model.Task
	for i := range flow.Tasks {
		t := &flow.Tasks[i]
		switch t.Status {
		case model.StatusSuccess:
			continue
		case model.StatusBlocked:
			// A blocked flow waits for its webhook; nothing to advance.
			return model.StatusBlocked, false, nil
		case model.StatusFailure:
			a.logger.Warn("will not rerun failed task", zap.String("task_name", t.Name))
			return model.StatusFailure, false, nil
		default: // PENDING
			target = t
		}
		break
	}

	if target == nil {
		return model.StatusSuccess, flow.Status() == model.StatusSuccess, nil
	}

	now := time.Now()
	if err := markStarted(ctx, tx, target.ID, now); err != nil {
		return "", false, err
	}

	ctxValues := flow.FlattenedOutputs()
	ctxValues["flow_id"] = flowID.String()

	outcome, err := a.executor.Run(ctx, target.Name, target.Args, ctxValues)
	if err != nil {
		return "", false, err
	}

	finishedAt := time.Now()
	if err := persistOutcome(ctx, tx, target.ID, outcome, finishedAt); err != nil {
		return "", false, err
	}
	target.Status = outcome.Status

	if outcome.Status == model.StatusFailure {
		if err := cascadeFailure(ctx, tx, flowID); err != nil {
			return "", false, err
		}
		for i := range flow.Tasks {
			if flow.Tasks[i].Status == model.StatusPending {
				flow.Tasks[i].Status = model.StatusFailure
			}
		}
	}

	return outcome.Status, flow.Status() == model.StatusSuccess, nil
}

func loadTasksForUpdate(ctx context.Context, tx pgx.Tx, flowID uuid.UUID) ([]model.Task, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, flow_id, name, ordering, status, args, output, updated_at, started_at, finished_at
		 FROM tasks WHERE flow_id = $1 ORDER BY ordering ASC FOR UPDATE`, flowID)
	if err != nil {
		return nil, orcherr.NewDatabaseError("load tasks for advance", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var status string
		var args, output []byte
		if err := rows.Scan(&t.ID, &t.FlowID, &t.Name, &t.Ordering, &status, &args, &output, &t.UpdatedAt, &t.StartedAt, &t.FinishedAt); err != nil {
			return nil, orcherr.NewDatabaseError("scan task row", err)
		}
		t.Status = model.Status(status)
		if err := t.Args.Scan(args); err != nil {
			return nil, orcherr.NewDatabaseError("decode task args", err)
		}
		if err := t.Output.Scan(output); err != nil {
			return nil, orcherr.NewDatabaseError("decode task output", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, orcherr.NewDatabaseError("iterate task rows", err)
	}

	return tasks, nil
}

func markStarted(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, now time.Time) error {
	_, err := tx.Exec(ctx, `UPDATE tasks SET started_at = $1, finished_at = NULL, updated_at = $1 WHERE id = $2`, now, taskID)
	if err != nil {
		return orcherr.NewDatabaseError("mark task started", err)
	}
	return nil
}

func persistOutcome(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, outcome executor.Outcome, now time.Time) error {
	var finishedAt *time.Time
	if outcome.Status != model.StatusBlocked {
		finishedAt = &now
	}

	output, err := outcome.Output.Value()
	if err != nil {
		return fmt.Errorf("encode task output: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE tasks SET status = $1, output = $2, updated_at = $3, finished_at = $4 WHERE id = $5`,
		string(outcome.Status), output, now, finishedAt, taskID)
	if err != nil {
		return orcherr.NewDatabaseError("persist task outcome", err)
	}

	return nil
}

// cascadeFailure sets every still-PENDING task of flowID to FAILURE, per the
// original's set_pending_tasks_failed: once one task fails, later tasks must
// never be picked up as eligible again.
func cascadeFailure(ctx context.Context, tx pgx.Tx, flowID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE tasks SET status = $1, started_at = NULL, finished_at = NULL, output = '{}', updated_at = now()
		 WHERE flow_id = $2 AND status = $3`,
		string(model.StatusFailure), flowID, string(model.StatusPending))
	if err != nil {
		return orcherr.NewDatabaseError("cascade failure", err)
	}
	return nil
}

// Unblock resets the first BLOCKED task of flowID to PENDING with its args
// replaced by {"webhook_request_body": payload}, per the webhook unblock
// protocol (SPEC_FULL §4.D). It returns a Conflict AppError if the flow has
// no blocked task.
func (a *Advancer) Unblock(ctx context.Context, flowID uuid.UUID, payload model.JSONMap) error {
	acqCtx, cancel := database.AcquireContext(ctx)
	tx, err := a.pool.Begin(acqCtx)
	cancel()
	if err != nil {
		return orcherr.NewDatabaseError("begin unblock transaction", err)
	}
	committed := false
	defer database.RollbackUnlessCommitted(ctx, tx, &committed)

	var taskID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM tasks WHERE flow_id = $1 AND status = $2 ORDER BY ordering ASC LIMIT 1 FOR UPDATE SKIP LOCKED`,
		flowID, string(model.StatusBlocked)).Scan(&taskID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return orcherr.NewConflictError("flow has no blocked task to unblock")
		}
		return orcherr.NewDatabaseError("find blocked task", err)
	}

	args := model.JSONMap{"webhook_request_body": payload}
	value, err := args.Value()
	if err != nil {
		return fmt.Errorf("encode webhook args: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE tasks SET args = $1, status = $2, updated_at = now() WHERE id = $3`,
		value, string(model.StatusPending), taskID)
	if err != nil {
		return orcherr.NewDatabaseError("unblock task", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return orcherr.NewDatabaseError("commit unblock transaction", err)
	}
	committed = true

	return nil
}

// RetryFailed resets every FAILURE task of flowID back to PENDING, clearing
// its output/timestamps, per POST /retry/{flow_id} in the original
// implementation. It returns a Conflict AppError if the flow has no failed
// task.
func (a *Advancer) RetryFailed(ctx context.Context, flowID uuid.UUID) error {
	acqCtx, cancel := database.AcquireContext(ctx)
	tx, err := a.pool.Begin(acqCtx)
	cancel()
	if err != nil {
		return orcherr.NewDatabaseError("begin retry transaction", err)
	}
	committed := false
	defer database.RollbackUnlessCommitted(ctx, tx, &committed)

	tag, err := tx.Exec(ctx,
		`UPDATE tasks SET status = $1, output = '{}', updated_at = now(), started_at = NULL, finished_at = NULL
		 WHERE flow_id = $2 AND status = $3`,
		string(model.StatusPending), flowID, string(model.StatusFailure))
	if err != nil {
		return orcherr.NewDatabaseError("retry failed tasks", err)
	}
	if tag.RowsAffected() == 0 {
		return orcherr.NewConflictError("flow has no failed tasks to retry")
	}

	if err := tx.Commit(ctx); err != nil {
		return orcherr.NewDatabaseError("commit retry transaction", err)
	}
	committed = true

	return nil
}
