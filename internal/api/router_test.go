package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/segfetch/internal/api/controllers"
	"github.com/datallboy/segfetch/internal/app"
	"github.com/datallboy/segfetch/internal/domain"
	"github.com/datallboy/segfetch/internal/infra/config"
	"github.com/datallboy/segfetch/internal/infra/logger"
	"github.com/datallboy/segfetch/internal/store"
)

func newTestServer(t *testing.T) (*echo.Echo, *store.HistoryStore, *bytes.Buffer) {
	t.Helper()

	hist, err := store.NewHistoryStore(filepath.Join(t.TempDir(), "segfetch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	var logs bytes.Buffer
	appCtx := app.NewContext(&config.Config{}, logger.NewWithWriter(&logs, logger.LevelInfo))
	appCtx.History = hist

	e := echo.New()
	RegisterRoutes(e, appCtx)
	return e, hist, &logs
}

func serve(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListRuns(t *testing.T) {
	e, hist, logs := newTestServer(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, hist.CreateRun(ctx, &domain.RunRecord{Template: "https://x/{index}.ts", Stop: i, Workers: 1}))
	}

	rec := serve(e, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var body controllers.RunList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Runs, 3)

	assert.Contains(t, logs.String(), "GET /api/runs | 200")
}

func TestListRunsLimit(t *testing.T) {
	e, hist, _ := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, hist.CreateRun(ctx, &domain.RunRecord{Template: "t", Workers: 1}))
	}

	rec := serve(e, "/api/runs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body controllers.RunList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rec = serve(e, "/api/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRunsEmpty(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := serve(e, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[],"count":0}`, rec.Body.String())
}

func TestGetRun(t *testing.T) {
	e, hist, _ := newTestServer(t)
	ctx := context.Background()

	run := &domain.RunRecord{Template: "https://x/{index}.ts", Stop: 10, Workers: 2}
	require.NoError(t, hist.CreateRun(ctx, run))
	run.Status = domain.RunPartial
	run.FailedIndices = []int{3, 7}
	require.NoError(t, hist.FinishRun(ctx, run))

	rec := serve(e, "/api/runs/"+run.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, domain.RunPartial, got.Status)
	assert.Equal(t, []int{3, 7}, got.FailedIndices)
}

func TestGetRunNotFound(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := serve(e, "/api/runs/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"run not found"}`, rec.Body.String())
}
