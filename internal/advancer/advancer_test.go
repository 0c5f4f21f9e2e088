package advancer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/executor"
	"github.com/jordigilh/orch/internal/template/builtin"
)

func taskColumns() []string {
	return []string{"id", "flow_id", "name", "ordering", "status", "args", "output", "updated_at", "started_at", "finished_at"}
}

func TestAdvanceReportsFlowDoneWhenEveryTaskAlreadySuccess(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	flowID := uuid.New()
	taskID := uuid.New()
	now := time.Now()

	pool.ExpectBegin()
	pool.ExpectQuery("SELECT id, flow_id, name, ordering, status, args, output, updated_at, started_at, finished_at").
		WithArgs(flowID).
		WillReturnRows(pgxmock.NewRows(taskColumns()).AddRow(
			taskID, flowID, "example", 0, "SUCCESS", []byte(`{}`), []byte(`{}`), now, &now, &now,
		))
	pool.ExpectCommit()

	adv := New(pool, executor.New(builtin.Registry(), zap.NewNop()), zap.NewNop())

	status, done, err := adv.Advance(context.Background(), flowID)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", string(status))
	assert.True(t, done)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestAdvanceStopsOnBlockedTask(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	flowID := uuid.New()
	taskID := uuid.New()
	now := time.Now()

	pool.ExpectBegin()
	pool.ExpectQuery("SELECT id, flow_id, name, ordering, status, args, output, updated_at, started_at, finished_at").
		WithArgs(flowID).
		WillReturnRows(pgxmock.NewRows(taskColumns()).AddRow(
			taskID, flowID, "example_blocked", 0, "BLOCKED", []byte(`{}`), []byte(`{}`), now, nil, nil,
		))
	pool.ExpectCommit()

	adv := New(pool, executor.New(builtin.Registry(), zap.NewNop()), zap.NewNop())

	status, done, err := adv.Advance(context.Background(), flowID)
	require.NoError(t, err)
	assert.Equal(t, "BLOCKED", string(status))
	assert.False(t, done)
}
