package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestGetFlowByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, name, args, webhook_url, created_at, priority FROM flows").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := s.GetFlowByID(context.Background(), id)
	assert.Error(t, err)
}

func TestGetFlowByIDPopulatesTasks(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now()

	flowCols := []string{"id", "name", "args", "webhook_url", "created_at", "priority"}
	mock.ExpectQuery("SELECT id, name, args, webhook_url, created_at, priority FROM flows").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(flowCols).AddRow(id, "example", []byte(`{}`), nil, now, 0))

	taskCols := []string{"id", "flow_id", "name", "ordering", "status", "args", "output", "updated_at", "started_at", "finished_at"}
	mock.ExpectQuery("SELECT id, flow_id, name, ordering, status, args, output, updated_at, started_at, finished_at").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(taskCols).AddRow(uuid.New(), id, "example", 0, "SUCCESS", []byte(`{}`), []byte(`{}`), now, now, now))

	flow, err := s.GetFlowByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "example", flow.Name)
	assert.Len(t, flow.Tasks, 1)
}

func TestCreateFlowInsertsFlowAndTasks(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO flows").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	flow, err := s.CreateFlow(context.Background(), "example", map[string]any{"wait_time": 0}, nil, 0,
		[]NewTask{{Name: "example", Args: map[string]any{"wait_time": 0, "unique_id": 0}}})
	require.NoError(t, err)
	assert.Equal(t, "example", flow.Name)
	require.Len(t, flow.Tasks, 1)
	assert.Equal(t, 0, flow.Tasks[0].Ordering)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFlowsAppliesFilters(t *testing.T) {
	s, mock := newMockStore(t)
	name := "example"

	mock.ExpectQuery("SELECT id, name, args, webhook_url, created_at, priority FROM flows WHERE name = \\$1 ORDER BY created_at DESC").
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "args", "webhook_url", "created_at", "priority"}))

	flows, err := s.ListFlows(context.Background(), ListFilter{Name: &name})
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestListFlowsBatchesTaskLookupAcrossFlows(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	flowA, flowB := uuid.New(), uuid.New()

	flowCols := []string{"id", "name", "args", "webhook_url", "created_at", "priority"}
	mock.ExpectQuery("SELECT id, name, args, webhook_url, created_at, priority FROM flows").
		WillReturnRows(sqlmock.NewRows(flowCols).
			AddRow(flowA, "example", []byte(`{}`), nil, now, 0).
			AddRow(flowB, "example", []byte(`{}`), nil, now, 0))

	taskCols := []string{"id", "flow_id", "name", "ordering", "status", "args", "output", "updated_at", "started_at", "finished_at"}
	// A single batched query covers every flow's tasks, not one query per flow.
	mock.ExpectQuery("SELECT id, flow_id, name, ordering, status, args, output, updated_at, started_at, finished_at FROM tasks WHERE flow_id = ANY").
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(uuid.New(), flowA, "example", 0, "SUCCESS", []byte(`{}`), []byte(`{}`), now, now, now).
			AddRow(uuid.New(), flowB, "example", 0, "PENDING", []byte(`{}`), []byte(`{}`), now, nil, nil))

	flows, err := s.ListFlows(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Len(t, flows[0].Tasks, 1)
	assert.Len(t, flows[1].Tasks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
