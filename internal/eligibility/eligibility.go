// Package eligibility implements the cooperative scheduler's claim query
// (SPEC_FULL §4.E): finding and locking the next flow any replica may
// advance, ported from Flow.get_next_eligible in orch.models.flow.
package eligibility

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordigilh/orch/internal/database"
	"github.com/jordigilh/orch/internal/orcherr"
)

// Pool is the subset of *pgxpool.Pool ClaimNextWithPool needs.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ClaimNext finds the highest-priority flow with a PENDING task and no
// BLOCKED task, locks it with SELECT ... FOR UPDATE SKIP LOCKED so no other
// replica can claim it concurrently, and returns its id. It returns
// (uuid.Nil, nil) when nothing is eligible.
//
// The caller must run this inside the same transaction it uses to advance
// the flow: the lock is only held for the lifetime of that transaction.
func ClaimNext(ctx context.Context, tx pgx.Tx) (uuid.UUID, error) {
	const query = `
		SELECT f.id
		FROM flows f
		JOIN tasks t ON t.flow_id = f.id
		WHERE t.status = 'PENDING'
		  AND NOT EXISTS (
		      SELECT 1 FROM tasks bt WHERE bt.flow_id = f.id AND bt.status = 'BLOCKED'
		  )
		ORDER BY f.priority DESC
		LIMIT 1
		FOR UPDATE OF f SKIP LOCKED
	`

	var id uuid.UUID
	err := tx.QueryRow(ctx, query).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, nil
		}
		return uuid.Nil, orcherr.NewDatabaseError("claim next eligible flow", err)
	}

	return id, nil
}

// ClaimNextWithPool opens and commits its own transaction around ClaimNext,
// for callers (tests, one-off tooling) that don't already hold one. The
// scheduler's tick loop uses ClaimNext directly inside its own
// claim-then-advance transaction instead.
func ClaimNextWithPool(ctx context.Context, pool Pool) (uuid.UUID, error) {
	acqCtx, cancel := database.AcquireContext(ctx)
	tx, err := pool.Begin(acqCtx)
	cancel()
	if err != nil {
		return uuid.Nil, orcherr.NewDatabaseError("begin claim transaction", err)
	}
	defer tx.Rollback(ctx)

	id, err := ClaimNext(ctx, tx)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, orcherr.NewDatabaseError("commit claim transaction", err)
	}

	return id, nil
}
