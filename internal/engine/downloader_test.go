package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/segfetch/internal/app"
	"github.com/datallboy/segfetch/internal/assembler"
	"github.com/datallboy/segfetch/internal/domain"
	"github.com/datallboy/segfetch/internal/infra/config"
	"github.com/datallboy/segfetch/internal/infra/logger"
	"github.com/datallboy/segfetch/internal/source"
	"github.com/datallboy/segfetch/internal/store"
)

// origin serves /seg-<i>.ts for every i below count.
type origin struct {
	count int
	fail  map[int]bool
	gets  atomic.Int64
	heads atomic.Int64
}

func (o *origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/seg-"), ".ts")
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 || i >= o.count {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodHead {
		o.heads.Add(1)
		w.WriteHeader(http.StatusOK)
		return
	}

	o.gets.Add(1)
	if o.fail[i] {
		http.NotFound(w, r)
		return
	}
	fmt.Fprintf(w, "[%d]", i)
}

type memHistory struct {
	runs map[string]*domain.RunRecord
}

func (m *memHistory) CreateRun(_ context.Context, rec *domain.RunRecord) error {
	cp := *rec
	m.runs[rec.ID] = &cp
	return nil
}

func (m *memHistory) FinishRun(_ context.Context, rec *domain.RunRecord) error {
	cp := *rec
	m.runs[rec.ID] = &cp
	return nil
}

func (m *memHistory) GetRun(_ context.Context, id string) (*domain.RunRecord, error) {
	return m.runs[id], nil
}

func (m *memHistory) ListRuns(context.Context, int) ([]*domain.RunRecord, error) {
	return nil, nil
}

func testContext(t *testing.T) (*app.Context, *memHistory, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	cfg := &config.Config{
		Source:   config.SourceConfig{Extension: ".ts"},
		Probe:    config.ProbeConfig{InitialLow: 1, Ceiling: 10000},
		Retry:    config.RetryConfig{Attempts: 1, Backoff: time.Millisecond, MaxBackoff: time.Millisecond},
		Download: config.DownloadConfig{PadWidth: 4},
	}
	appCtx := app.NewContext(cfg, logger.NewWithWriter(&logs, logger.LevelDebug))
	hist := &memHistory{runs: map[string]*domain.RunRecord{}}
	appCtx.History = hist
	return appCtx, hist, &logs
}

func newTestRun(t *testing.T, srvURL string, stop int) domain.RunConfig {
	t.Helper()
	tpl, err := domain.ParseTemplate(srvURL+"/seg-0.ts", ".ts")
	require.NoError(t, err)

	dir := t.TempDir()
	return domain.RunConfig{
		Template: tpl,
		Stop:     stop,
		OutDir:   filepath.Join(dir, "segments"),
		Output:   filepath.Join(dir, "out.ts"),
		Workers:  4,
		Balance:  domain.BalanceRemainderLast,
	}
}

func expectedOutput(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[%d]", i)
	}
	return b.String()
}

func TestDownloaderLocatesFetchesAndConcats(t *testing.T) {
	o := &origin{count: 37}
	srv := httptest.NewServer(o)
	defer srv.Close()

	appCtx, hist, logs := testContext(t)
	d := NewDownloader(appCtx, source.NewClient(source.DefaultOptions()), assembler.ByteConcat{})

	cfg := newTestRun(t, srv.URL, 0)
	res, err := d.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, domain.Range{Start: 0, Stop: 37}, res.Range)
	assert.Equal(t, 37, res.Report.Fetched)
	require.NotNil(t, res.Manifest)
	assert.True(t, res.Manifest.Complete())

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, expectedOutput(37), string(data))

	rec := hist.runs[res.ID]
	require.NotNil(t, rec)
	assert.Equal(t, domain.RunCompleted, rec.Status)
	assert.Equal(t, 37, rec.Fetched)
	assert.NotNil(t, rec.FinishedAt)

	assert.Contains(t, logs.String(), "DONE: 37 segment(s) over 4 worker(s)")
}

func TestDownloaderResumes(t *testing.T) {
	o := &origin{count: 20}
	srv := httptest.NewServer(o)
	defer srv.Close()

	appCtx, _, _ := testContext(t)
	d := NewDownloader(appCtx, source.NewClient(source.DefaultOptions()), assembler.Noop{})
	cfg := newTestRun(t, srv.URL, 20)

	// Pre-seed half of the range.
	segs, err := store.OpenSegmentStore(cfg.OutDir, store.SegmentOptions{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, segs.Write(context.Background(), i, []byte(fmt.Sprintf("[%d]", i))))
	}
	require.NoError(t, segs.Close())

	res, err := d.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Report.Skipped)
	assert.Equal(t, 10, res.Report.Fetched)
	assert.Equal(t, int64(10), o.gets.Load())

	o.gets.Store(0)
	res, err = d.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Report.Skipped)
	assert.Equal(t, int64(0), o.gets.Load())
}

func TestDownloaderPartialFailureSkipsReassembly(t *testing.T) {
	o := &origin{count: 12, fail: map[int]bool{5: true}}
	srv := httptest.NewServer(o)
	defer srv.Close()

	appCtx, hist, _ := testContext(t)
	d := NewDownloader(appCtx, source.NewClient(source.DefaultOptions()), assembler.ByteConcat{})
	cfg := newTestRun(t, srv.URL, 12)

	res, err := d.Run(context.Background(), cfg)

	var partial *domain.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []int{5}, partial.Indices())
	assert.Equal(t, 11, res.Report.Fetched)

	_, statErr := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(statErr))

	rec := hist.runs[res.ID]
	require.NotNil(t, rec)
	assert.Equal(t, domain.RunPartial, rec.Status)
	assert.Equal(t, []int{5}, rec.FailedIndices)
}

func TestDownloaderInvalidStop(t *testing.T) {
	o := &origin{count: 10}
	srv := httptest.NewServer(o)
	defer srv.Close()

	appCtx, hist, _ := testContext(t)
	d := NewDownloader(appCtx, source.NewClient(source.DefaultOptions()), nil)

	_, err := d.Run(context.Background(), newTestRun(t, srv.URL, 50))
	assert.ErrorIs(t, err, domain.ErrInvalidBound)
	assert.Empty(t, hist.runs)
}

func TestDownloaderNothingFound(t *testing.T) {
	srv := httptest.NewServer(&origin{count: 0})
	defer srv.Close()

	appCtx, _, _ := testContext(t)
	d := NewDownloader(appCtx, source.NewClient(source.DefaultOptions()), nil)

	_, err := d.Run(context.Background(), newTestRun(t, srv.URL, 0))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDownloaderOutDirCreationFails(t *testing.T) {
	srv := httptest.NewServer(&origin{count: 3})
	defer srv.Close()

	appCtx, _, _ := testContext(t)
	d := NewDownloader(appCtx, source.NewClient(source.DefaultOptions()), nil)

	cfg := newTestRun(t, srv.URL, 3)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	cfg.OutDir = filepath.Join(blocker, "segments")

	_, err := d.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out_dir")
}

func TestDownloaderRendersProgress(t *testing.T) {
	srv := httptest.NewServer(&origin{count: 8})
	defer srv.Close()

	appCtx, _, _ := testContext(t)
	appCtx.Config.Download.Progress = true

	var out bytes.Buffer
	d := NewDownloader(appCtx, source.NewClient(source.DefaultOptions()), nil)
	d.ProgressOut = &out

	_, err := d.Run(context.Background(), newTestRun(t, srv.URL, 8))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "100.0%")
	assert.Contains(t, out.String(), "8/8 seg")
}

func TestNewReassembler(t *testing.T) {
	assert.IsType(t, assembler.ByteConcat{}, NewReassembler(config.ReassembleConcat))
	assert.IsType(t, assembler.ConcatList{}, NewReassembler(config.ReassembleList))
	assert.IsType(t, assembler.Noop{}, NewReassembler(config.ReassembleNone))
}
