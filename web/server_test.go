// ABOUTME: Tests for the webhook and run endpoints
// ABOUTME: Uses httptest with an in-memory ledger and a stub status setter
package web

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSetter struct {
	taskID, status string
	updated        int
	err            error
}

func (s *stubSetter) SetClickUpStatus(ctx context.Context, clickUpID, status string) (int, error) {
	s.taskID, s.status = clickUpID, status
	return s.updated, s.err
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.InitSchema(database))
	return database
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := NewServer(setupTestDB(t), &stubSetter{}, "", zerolog.Nop())
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestClickUpWebhookTaskStatusUpdated(t *testing.T) {
	database := setupTestDB(t)
	setter := &stubSetter{updated: 2}
	s := NewServer(database, setter, "", zerolog.Nop())

	body := `{"event":"taskStatusUpdated","task_id":"cu-1","history_items":[{"field":"status","after":{"status":"in progress"}}]}`
	rec := do(t, s.Handler(), http.MethodPost, "/webhooks/clickup", body, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())
	assert.Equal(t, "cu-1", setter.taskID)
	assert.Equal(t, "in progress", setter.status)

	state, err := db.GetSyncState(database, db.ServiceClickUp)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.SyncStatusIdle, state.Status)
}

func TestClickUpWebhookFlatBody(t *testing.T) {
	setter := &stubSetter{updated: 1}
	s := NewServer(setupTestDB(t), setter, "", zerolog.Nop())

	rec := do(t, s.Handler(), http.MethodPost, "/webhooks/clickup", `{"task_id":"cu-2","status":"done"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", setter.status)
}

func TestClickUpWebhookRejectsBadInput(t *testing.T) {
	s := NewServer(setupTestDB(t), &stubSetter{}, "", zerolog.Nop())

	assert.Equal(t, http.StatusBadRequest, do(t, s.Handler(), http.MethodPost, "/webhooks/clickup", `not json`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s.Handler(), http.MethodPost, "/webhooks/clickup", `{"task_id":"cu-1"}`, nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s.Handler(), http.MethodGet, "/webhooks/clickup", "", nil).Code)
}

func TestClickUpWebhookSignature(t *testing.T) {
	setter := &stubSetter{}
	s := NewServer(setupTestDB(t), setter, "shh", zerolog.Nop())
	body := `{"task_id":"cu-1","status":"done"}`

	rec := do(t, s.Handler(), http.MethodPost, "/webhooks/clickup", body, map[string]string{"X-Signature": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, setter.taskID)

	mac := hmac.New(sha256.New, []byte("shh"))
	mac.Write([]byte(body))
	sig := hex.EncodeToString(mac.Sum(nil))

	rec = do(t, s.Handler(), http.MethodPost, "/webhooks/clickup", body, map[string]string{"X-Signature": sig})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cu-1", setter.taskID)
}

func TestClickUpWebhookUpstreamError(t *testing.T) {
	database := setupTestDB(t)
	s := NewServer(database, &stubSetter{err: errors.New("hubspot down")}, "", zerolog.Nop())

	rec := do(t, s.Handler(), http.MethodPost, "/webhooks/clickup", `{"task_id":"cu-1","status":"done"}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	state, err := db.GetSyncState(database, db.ServiceClickUp)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, state.Status)
}

func TestRunsEndpoints(t *testing.T) {
	database := setupTestDB(t)
	require.NoError(t, db.StartRun(database, "run-1", time.Now()))
	require.NoError(t, db.RecordDealOutcome(database, "run-1", &models.DealOutcome{
		DealID: "d1", DealName: "Acme", Outcome: models.OutcomeProcessed, CompanyID: "c1", ContractID: "k1",
	}))
	require.NoError(t, db.FinishRun(database, "run-1", nil, time.Now()))

	s := NewServer(database, &stubSetter{}, "", zerolog.Nop())
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/runs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []models.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Processed)

	rec = do(t, h, http.MethodGet, "/runs/run-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail runDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "run-1", detail.Run.ID)
	require.Len(t, detail.Deals, 1)
	assert.Len(t, detail.Links, 2)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/runs/missing", "", nil).Code)

	rec = do(t, h, http.MethodGet, "/runs/run-1/graph", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deal_d1")

	rec = do(t, h, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "DEALBRIDGE DASHBOARD")
}

func TestEmptyRunsIsArray(t *testing.T) {
	s := NewServer(setupTestDB(t), &stubSetter{}, "", zerolog.Nop())
	rec := do(t, s.Handler(), http.MethodGet, "/runs", "", nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}
