package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/advancer"
	"github.com/jordigilh/orch/internal/executor"
	"github.com/jordigilh/orch/internal/store"
	"github.com/jordigilh/orch/internal/template/builtin"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := builtin.Registry()
	st := store.New(sqlx.NewDb(db, "postgres"))
	adv := advancer.New(nil, executor.New(registry, zap.NewNop()), zap.NewNop())

	return New(registry, st, adv, zap.NewNop()), mock
}

func TestHandleIndex(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCheckHealthy(t *testing.T) {
	s, mock := newTestServer(t)
	mock.ExpectQuery("SELECT id, name, args, webhook_url, created_at, priority FROM flows").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "args", "webhook_url", "created_at", "priority"}))

	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGetFlowNotFound(t *testing.T) {
	s, mock := newTestServer(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, name, args, webhook_url, created_at, priority FROM flows").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(nil))

	req := httptest.NewRequest(http.MethodGet, "/flows/"+id.String(), nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusNotFound, body.StatusCode)
}

func TestHandleCreateFlowRejectsUnknownTemplate(t *testing.T) {
	s, _ := newTestServer(t)

	payload, _ := json.Marshal(map[string]any{"name": "no_such_flow", "args": map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/flows", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCreateFlowSucceeds(t *testing.T) {
	s, mock := newTestServer(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO flows").WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectQuery("INSERT INTO tasks").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	payload, _ := json.Marshal(map[string]any{"name": "example", "args": map[string]any{"wait_time": 0, "num_of_tasks": 1}})
	req := httptest.NewRequest(http.MethodPost, "/flows", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
