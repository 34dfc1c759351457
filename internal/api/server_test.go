package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/app"
	"github.com/JakeFAU/laborsync/internal/config"
	"github.com/JakeFAU/laborsync/internal/pipeline"
	"github.com/JakeFAU/laborsync/internal/runstore"
	"github.com/JakeFAU/laborsync/internal/syncer"
)

type fakeSyncRunner struct {
	stats syncer.Stats
	err   error
}

func (f *fakeSyncRunner) Run(_ context.Context) (syncer.Stats, error) {
	return f.stats, f.err
}

type fakeIngestionRunner struct {
	result app.IngestionResult
}

func (f *fakeIngestionRunner) Run(_ context.Context) app.IngestionResult {
	return f.result
}

type fakeAnalyticsRunner struct {
	result app.AnalyticsResult
}

func (f *fakeAnalyticsRunner) Run(_ context.Context) app.AnalyticsResult {
	return f.result
}

func newTestServer(runs runstore.Store) *Server {
	return NewServer(
		&fakeSyncRunner{stats: syncer.Stats{Uploaded: 1, Skipped: 2}},
		&fakeIngestionRunner{result: app.IngestionResult{RunID: "run-1", Success: true}},
		&fakeAnalyticsRunner{result: app.AnalyticsResult{RunID: "run-2", Success: true}},
		runs,
		config.Config{Server: config.ServerConfig{Port: 8080}},
		zap.NewNop(),
	)
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := newTestServer(runstore.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	server := newTestServer(runstore.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RunSync_ReturnsStats(t *testing.T) {
	t.Parallel()

	server := newTestServer(runstore.NewMemoryStore())
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/sync/run", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats syncer.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 1, stats.Uploaded)
	require.Equal(t, 2, stats.Skipped)
}

func TestServer_RunSync_Failure(t *testing.T) {
	t.Parallel()

	server := NewServer(
		&fakeSyncRunner{err: errors.New("remote listing unavailable")},
		&fakeIngestionRunner{},
		&fakeAnalyticsRunner{},
		runstore.NewMemoryStore(),
		config.Config{},
		zap.NewNop(),
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/sync/run", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "remote listing unavailable")
}

func TestServer_RunIngestion(t *testing.T) {
	t.Parallel()

	server := newTestServer(runstore.NewMemoryStore())
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/ingestion/run", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "run-1")
}

func TestServer_RunAnalytics_FailureStatus(t *testing.T) {
	t.Parallel()

	server := NewServer(
		&fakeSyncRunner{},
		&fakeIngestionRunner{},
		&fakeAnalyticsRunner{result: app.AnalyticsResult{RunID: "run-9", Error: "load time series: no data", Success: false}},
		runstore.NewMemoryStore(),
		config.Config{},
		zap.NewNop(),
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/pipelines/analytics/run", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "load time series")
}

func TestServer_GetRun_ReturnsDetailAsJSON(t *testing.T) {
	t.Parallel()

	runs := runstore.NewMemoryStore()
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, runs.CreateRun(context.Background(), pipeline.Run{
		ID:      "run-detail",
		Kind:    pipeline.RunKindAnalytics,
		Status:  pipeline.RunStatusRunning,
		Started: started,
	}))
	finished := started.Add(time.Minute)
	require.NoError(t, runs.FinishRun(context.Background(), "run-detail",
		pipeline.RunStatusSucceeded, finished, []byte(`{"success":true}`)))

	server := newTestServer(runs)
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-detail", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "run-detail", body["id"])
	detail, ok := body["detail"].(map[string]any)
	require.True(t, ok, "detail should render as a JSON object, got %T", body["detail"])
	require.Equal(t, true, detail["success"])
}

func TestServer_GetRun_NotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(runstore.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/missing", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListRuns_MostRecentFirst(t *testing.T) {
	t.Parallel()

	runs := runstore.NewMemoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b"} {
		require.NoError(t, runs.CreateRun(context.Background(), pipeline.Run{
			ID:      id,
			Kind:    pipeline.RunKindIngestion,
			Status:  pipeline.RunStatusRunning,
			Started: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	server := newTestServer(runs)
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=1", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []pipeline.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	require.Equal(t, "run-b", body.Runs[0].ID)
}

func TestServer_ListRuns_RejectsBadLimit(t *testing.T) {
	t.Parallel()

	server := newTestServer(runstore.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=nope", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_APIKeyMiddleware(t *testing.T) {
	t.Parallel()

	server := NewServer(
		&fakeSyncRunner{},
		&fakeIngestionRunner{},
		&fakeAnalyticsRunner{},
		runstore.NewMemoryStore(),
		config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "secret"}},
		zap.NewNop(),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestIDHeader(t *testing.T) {
	t.Parallel()

	server := newTestServer(runstore.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
