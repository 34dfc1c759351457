package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	Init()
	Init()

	// Recording after double Init must not panic.
	ObservePipelineRun("ingestion", "succeeded")
	ObserveSyncFiles(1, 2, 0, 0)
	ObserveIngest("UPDATED")
	ObserveReport("task_a", "SUCCESS")
	ObserveHTTPRequest(http.MethodGet, "/healthz", http.StatusOK, 5*time.Millisecond)
}

func TestHandlerServesScrapePayload(t *testing.T) {
	t.Parallel()

	Init()
	ObservePipelineRun("analytics", "succeeded")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "laborsync_pipeline_runs_total")
}
