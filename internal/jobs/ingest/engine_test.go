package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/jobs/runlog"
	"github.com/ternarybob/colligo/internal/models"
)

type fakeStore struct {
	dataGrid  [][]string
	appendErr error

	appended    [][]string
	logActions  []string
	copyCalls   [][4]int
	formatCalls int
}

func (f *fakeStore) ReadRange(ctx context.Context, sheetName string, rng models.CellRange) ([][]string, error) {
	return f.dataGrid, nil
}

func (f *fakeStore) WriteRange(ctx context.Context, sheetName string, rng models.CellRange, grid [][]string, mode interfaces.WriteMode) error {
	return nil
}

func (f *fakeStore) AppendRows(ctx context.Context, sheetName string, grid [][]string) error {
	if sheetName == "Logs" {
		for _, row := range grid {
			f.logActions = append(f.logActions, row[1])
		}
		return nil
	}
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, grid...)
	return nil
}

func (f *fakeStore) ClearRange(ctx context.Context, sheetName string, rng models.CellRange) error {
	return nil
}

func (f *fakeStore) EnsureHeader(ctx context.Context, sheetName string, header []string) ([]string, error) {
	return header, nil
}

func (f *fakeStore) CopyFormulaDown(ctx context.Context, sheetName string, sourceRow, startCol, endCol, destRowEnd int) error {
	f.copyCalls = append(f.copyCalls, [4]int{sourceRow, startCol, endCol, destRowEnd})
	return nil
}

func (f *fakeStore) SetNumberFormat(ctx context.Context, sheetName string, col, startRow, endRow int, pattern string) error {
	f.formatCalls++
	return nil
}

// jobScript describes one submission's lifecycle on the fake provider.
type jobScript struct {
	submitErr    error
	statuses     []interfaces.JobStatus
	statusErr    error
	fetchRetries int
	fetchErr     error
	records      []models.RawRecord
}

type jobState struct {
	script     jobScript
	statusIdx  int
	fetchCalls int
}

type fakeProvider struct {
	scripts   []jobScript
	submitted []interfaces.JobRequest
	jobs      map[string]*jobState
}

func (f *fakeProvider) Submit(ctx context.Context, req interfaces.JobRequest) (string, error) {
	idx := len(f.submitted)
	f.submitted = append(f.submitted, req)
	script := f.scripts[idx]
	if script.submitErr != nil {
		return "", script.submitErr
	}
	if f.jobs == nil {
		f.jobs = make(map[string]*jobState)
	}
	id := fmt.Sprintf("job-%d", idx)
	f.jobs[id] = &jobState{script: script}
	return id, nil
}

func (f *fakeProvider) Status(ctx context.Context, jobID string) (interfaces.JobStatus, error) {
	state := f.jobs[jobID]
	if state.script.statusErr != nil {
		return interfaces.JobStatusUnknown, state.script.statusErr
	}
	idx := state.statusIdx
	if idx >= len(state.script.statuses) {
		idx = len(state.script.statuses) - 1
	}
	state.statusIdx++
	return state.script.statuses[idx], nil
}

func (f *fakeProvider) Fetch(ctx context.Context, jobID string) ([]models.RawRecord, error) {
	state := f.jobs[jobID]
	if state.fetchCalls < state.script.fetchRetries {
		state.fetchCalls++
		return nil, interfaces.ErrRetryAfter
	}
	if state.script.fetchErr != nil {
		return nil, state.script.fetchErr
	}
	return state.script.records, nil
}

func newTestEngine(store *fakeStore, provider *fakeProvider, cap int) (*Engine, *[]time.Duration) {
	logger := common.GetLogger()
	engine := NewEngine(store, provider, runlog.NewWriter(store, "Logs", logger), Config{
		DataSheet:    "Data",
		SourceName:   "YouTube",
		LimitPerItem: 50,
		ClusterCap:   cap,
	}, logger)

	engine.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	sleeps := &[]time.Duration{}
	engine.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return engine, sleeps
}

func rec(url string) models.RawRecord {
	return models.RawRecord{"url": url, "views": float64(100)}
}

func TestProcessAppendsAndDeduplicates(t *testing.T) {
	store := &fakeStore{dataGrid: [][]string{
		models.Header(),
		models.NormalizeRow([]string{"https://example.com/old"}, len(models.Header())),
	}}
	provider := &fakeProvider{scripts: []jobScript{
		{
			statuses: []interfaces.JobStatus{interfaces.JobStatusReady},
			records: []models.RawRecord{
				rec("https://example.com/old"), // already on the sheet
				rec("https://example.com/v1"),
				rec("https://example.com/v2"),
			},
		},
		{
			statuses: []interfaces.JobStatus{interfaces.JobStatusReady},
			records: []models.RawRecord{
				rec("https://example.com/v2"), // merged earlier this run
				rec("https://example.com/v3"),
				{"views": float64(5)}, // no primary key
			},
		},
	}}
	engine, _ := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{
		Name:   "A",
		Active: true,
		Mode:   models.CollectByURL,
		Items:  []string{"https://youtube.com/@one", "https://youtube.com/@two"},
	}

	result, err := engine.Process(context.Background(), cluster, models.Settings{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Appended)
	assert.Equal(t, 2, result.SkippedDuplicate)
	assert.Equal(t, 1, result.SkippedNoKey)
	assert.Equal(t, 2, result.ItemsProcessed)

	require.Len(t, store.appended, 3)
	width := len(models.Header())
	for _, row := range store.appended {
		assert.Len(t, row, width)
	}
	assert.Equal(t, "https://example.com/v1", store.appended[0][models.ColURL])
	assert.Equal(t, "2025-06-01 12:00 | YouTube | A", store.appended[0][models.ColBatch])

	assert.Equal(t, "US", provider.submitted[0].Region)
	assert.Equal(t, 50, provider.submitted[0].PerItemLimit)

	// formula touch-up over header + 1 existing + 3 appended rows
	require.Len(t, store.copyCalls, 1)
	assert.Equal(t, [4]int{2, width + 1, width + 2, 5}, store.copyCalls[0])
	assert.Equal(t, 1, store.formatCalls)
}

func TestProcessClusterCap(t *testing.T) {
	store := &fakeStore{dataGrid: [][]string{models.Header()}}
	provider := &fakeProvider{scripts: []jobScript{
		{
			statuses: []interfaces.JobStatus{interfaces.JobStatusReady},
			records: []models.RawRecord{
				rec("https://example.com/v1"),
				rec("https://example.com/v2"),
				rec("https://example.com/v3"),
			},
		},
		{statuses: []interfaces.JobStatus{interfaces.JobStatusReady}},
	}}
	engine, _ := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{
		Name:  "A",
		Mode:  models.CollectByURL,
		Items: []string{"https://youtube.com/@one", "https://youtube.com/@two"},
	}
	settings := models.Settings{models.SettingClusterCap: "2"}

	result, err := engine.Process(context.Background(), cluster, settings)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Appended, "download truncated to the cap")
	assert.Equal(t, 1, result.ItemsProcessed)
	require.Len(t, provider.submitted, 1, "second item skipped once the cap is spent")
	assert.Equal(t, 2, provider.submitted[0].PerItemLimit, "per-item limit shrunk to the remaining budget")
}

func TestProcessSubmitRejectedContinues(t *testing.T) {
	store := &fakeStore{dataGrid: [][]string{models.Header()}}
	provider := &fakeProvider{scripts: []jobScript{
		{submitErr: fmt.Errorf("bad input: %w", interfaces.ErrProviderRejected)},
		{
			statuses: []interfaces.JobStatus{interfaces.JobStatusReady},
			records:  []models.RawRecord{rec("https://example.com/v1")},
		},
	}}
	engine, _ := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{
		Name:  "A",
		Mode:  models.CollectByURL,
		Items: []string{"bad", "good"},
	}

	result, err := engine.Process(context.Background(), cluster, models.Settings{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Appended)
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Contains(t, store.logActions, "job_rejected")
}

func TestProcessFailedJobAbandonsItem(t *testing.T) {
	store := &fakeStore{dataGrid: [][]string{models.Header()}}
	provider := &fakeProvider{scripts: []jobScript{
		{statuses: []interfaces.JobStatus{interfaces.JobStatusPending, interfaces.JobStatusFailed}},
	}}
	engine, _ := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{Name: "A", Mode: models.CollectByURL, Items: []string{"x"}}

	result, err := engine.Process(context.Background(), cluster, models.Settings{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.ItemsProcessed)
	assert.Empty(t, store.appended)
	assert.Contains(t, store.logActions, "job_failed")
	assert.Equal(t, 0, provider.jobs["job-0"].fetchCalls, "failed job is never downloaded")
}

func TestProcessJobTimeout(t *testing.T) {
	store := &fakeStore{dataGrid: [][]string{models.Header()}}
	provider := &fakeProvider{scripts: []jobScript{
		{statuses: []interfaces.JobStatus{interfaces.JobStatusPending}},
	}}
	engine, _ := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{Name: "A", Mode: models.CollectByURL, Items: []string{"x"}}
	settings := models.Settings{models.SettingProviderWaitMin: "0"}

	result, err := engine.Process(context.Background(), cluster, settings)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ItemsProcessed)
	assert.Contains(t, store.logActions, "job_timeout")
}

func TestProcessFetchRetriesStillBuilding(t *testing.T) {
	store := &fakeStore{dataGrid: [][]string{models.Header()}}
	provider := &fakeProvider{scripts: []jobScript{
		{
			statuses:     []interfaces.JobStatus{interfaces.JobStatusReady},
			fetchRetries: 2,
			records:      []models.RawRecord{rec("https://example.com/v1")},
		},
	}}
	engine, sleeps := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{Name: "A", Mode: models.CollectByURL, Items: []string{"x"}}

	result, err := engine.Process(context.Background(), cluster, models.Settings{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Appended)
	assert.GreaterOrEqual(t, len(*sleeps), 2, "waited between snapshot retries")
}

func TestProcessStoreAppendFailureAborts(t *testing.T) {
	store := &fakeStore{
		dataGrid:  [][]string{models.Header()},
		appendErr: fmt.Errorf("write failed: %w", interfaces.ErrStoreUnavailable),
	}
	provider := &fakeProvider{scripts: []jobScript{
		{
			statuses: []interfaces.JobStatus{interfaces.JobStatusReady},
			records:  []models.RawRecord{rec("https://example.com/v1")},
		},
	}}
	engine, _ := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{Name: "A", Mode: models.CollectByURL, Items: []string{"x"}}

	result, err := engine.Process(context.Background(), cluster, models.Settings{})
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
	assert.Equal(t, 0, result.Appended)
}

func TestProcessDiscoverMode(t *testing.T) {
	store := &fakeStore{dataGrid: [][]string{models.Header()}}
	provider := &fakeProvider{scripts: []jobScript{
		{
			statuses: []interfaces.JobStatus{interfaces.JobStatusReady},
			records:  []models.RawRecord{rec("https://example.com/v1")},
		},
	}}
	engine, _ := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{Name: "K", Mode: models.DiscoverByKeyword, Items: []string{"music podcast"}}

	_, err := engine.Process(context.Background(), cluster, models.Settings{})
	require.NoError(t, err)

	require.Len(t, provider.submitted, 1)
	assert.Equal(t, models.DiscoverByKeyword, provider.submitted[0].Mode)
	assert.Equal(t, []string{"music podcast"}, provider.submitted[0].Items)
}

func TestProcessStatusErrorAbandonsItem(t *testing.T) {
	store := &fakeStore{dataGrid: [][]string{models.Header()}}
	provider := &fakeProvider{scripts: []jobScript{
		{statusErr: errors.New("progress endpoint down")},
	}}
	engine, _ := newTestEngine(store, provider, 0)

	cluster := &models.Cluster{Name: "A", Mode: models.CollectByURL, Items: []string{"x"}}

	result, err := engine.Process(context.Background(), cluster, models.Settings{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsProcessed)
	assert.Contains(t, store.logActions, "job_status_error")
}
