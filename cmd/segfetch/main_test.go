package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/segfetch/internal/domain"
	"github.com/datallboy/segfetch/internal/engine"
	"github.com/datallboy/segfetch/internal/infra/logger"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SEGFETCH_STORE_SQLITE_PATH", filepath.Join(dir, "data", "segfetch.db"))
	t.Setenv("SEGFETCH_DOWNLOAD_PROGRESS", "false")
	t.Setenv("SEGFETCH_LOG_INCLUDE_STDOUT", "false")
	t.Setenv("SEGFETCH_LOG_PATH", filepath.Join(dir, "segfetch.log"))
	configPath = ""
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootHasCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"fetch", "runs", "serve"})
}

func TestFetchRequiresURL(t *testing.T) {
	isolate(t)

	out, err := execute(t, "fetch")
	require.Error(t, err)
	assert.Contains(t, out, "source url is required")
}

func TestFetchRejectsBadBalance(t *testing.T) {
	isolate(t)

	_, err := execute(t, "fetch", "https://x/seg-1.ts", "--balance", "sideways")
	assert.Error(t, err)
}

func TestFetchEndToEnd(t *testing.T) {
	dir := isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var i int
		if _, err := fmt.Sscanf(r.URL.Path, "/v/seg-%d.ts", &i); err != nil || i >= 25 {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			fmt.Fprintf(w, "<%d>", i)
		}
	}))
	defer srv.Close()

	output := filepath.Join(dir, "show", "out.ts")
	_, err := execute(t, "fetch", srv.URL+"/v/seg-3.ts", "--out", output, "--workers", "4")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var want strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&want, "<%d>", i)
	}
	assert.Equal(t, want.String(), string(data))

	out, err := execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "[0:25)")
}

func TestReportRunError(t *testing.T) {
	partial := fmt.Errorf("run: %w", &domain.PartialFailureError{Failed: []domain.FailedSegment{{Index: 4}}})

	var logs bytes.Buffer
	log := logger.NewWithWriter(&logs, logger.LevelInfo)

	reportRunError(log, &engine.RunResult{ID: "2abc"}, partial)
	assert.Contains(t, logs.String(), "Run 2abc incomplete")

	logs.Reset()
	assert.NotPanics(t, func() { reportRunError(log, nil, partial) })
	assert.Contains(t, logs.String(), "Run (unrecorded) incomplete")

	logs.Reset()
	reportRunError(log, nil, fmt.Errorf("boom"))
	assert.Contains(t, logs.String(), "Fetch failed: boom")
}
