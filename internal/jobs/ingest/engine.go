// Package ingest drives one cluster through the scrape-job lifecycle and
// appends the net-new records to the data sheet.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/jobs/runlog"
	"github.com/ternarybob/colligo/internal/models"
)

// Config carries the engine's deployment-level parameters. The Settings
// sheet can override the caps per run.
type Config struct {
	DataSheet    string
	SourceName   string
	LimitPerItem int
	ClusterCap   int
}

// Result summarizes one cluster's ingestion pass.
type Result struct {
	Appended         int
	SkippedNoKey     int
	SkippedDuplicate int
	ItemsProcessed   int
}

// Engine processes clusters one item at a time: submit a job, poll until
// ready or terminally failed, fetch, normalize, dedup, append. Items are
// strictly sequential; one job is fully resolved before the next is
// submitted. Provider-side failure is expected operational noise: a failed
// or timed-out item is logged and abandoned, never retried.
type Engine struct {
	store    interfaces.TabularStore
	provider interfaces.JobProvider
	runLog   *runlog.Writer
	logger   arbor.ILogger
	cfg      Config

	// Injected for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an ingestion engine.
func NewEngine(store interfaces.TabularStore, provider interfaces.JobProvider, runLog *runlog.Writer, cfg Config, logger arbor.ILogger) *Engine {
	return &Engine{
		store:    store,
		provider: provider,
		runLog:   runLog,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Process ingests one cluster. Store failures propagate (the run cannot
// continue without the store); provider failures are absorbed at item
// scope. The returned Result is valid even on error, describing the work
// completed before the failure.
func (e *Engine) Process(ctx context.Context, cluster *models.Cluster, settings models.Settings) (*Result, error) {
	result := &Result{}

	header, err := e.store.EnsureHeader(ctx, e.cfg.DataSheet, models.Header())
	if err != nil {
		return result, fmt.Errorf("failed to ensure data header: %w", err)
	}
	width := len(header)

	grid, err := e.store.ReadRange(ctx, e.cfg.DataSheet, models.Columns(1, width))
	if err != nil {
		return result, fmt.Errorf("failed to read data sheet: %w", err)
	}
	var existing [][]string
	if len(grid) > 1 {
		existing = grid[1:]
	}

	// Key set covers both previously stored rows and everything merged in
	// this run: dedup is monotonic across the whole run.
	seen := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		if len(row) > models.ColURL && row[models.ColURL] != "" {
			seen[row[models.ColURL]] = struct{}{}
		}
	}

	pollInterval := time.Duration(settings.GetInt(models.SettingStatusPollSec, 30)) * time.Second
	waitCeiling := time.Duration(settings.GetInt(models.SettingProviderWaitMin, 20)) * time.Minute
	limitPerItem := settings.GetInt(models.SettingLimitPerItem, e.cfg.LimitPerItem)
	clusterCap := settings.GetInt(models.SettingClusterCap, e.cfg.ClusterCap)
	region := settings.Get(models.SettingRegion, "US")

	capped := clusterCap > 0
	remaining := clusterCap

	for idx, item := range cluster.Items {
		if capped && remaining <= 0 {
			e.logger.Info().
				Str("cluster", cluster.Name).
				Int("cap", clusterCap).
				Msg("Cluster cap reached, skipping remaining items")
			break
		}

		itemTag := fmt.Sprintf("item=%d/%d", idx+1, len(cluster.Items))
		e.runLog.Log(ctx, "start_item", cluster.Name,
			fmt.Sprintf("%s mode=%s value=%s", itemTag, cluster.Mode, truncateString(item, 80)))

		perItemLimit := limitPerItem
		if capped && perItemLimit > remaining {
			perItemLimit = remaining
		}

		jobID, err := e.provider.Submit(ctx, interfaces.JobRequest{
			Items:        []string{item},
			Mode:         cluster.Mode,
			PerItemLimit: perItemLimit,
			TotalLimit:   perItemLimit,
			Region:       region,
		})
		if err != nil {
			e.runLog.Log(ctx, "job_rejected", cluster.Name, fmt.Sprintf("%s error=%v", itemTag, err))
			continue
		}
		e.runLog.Log(ctx, "job_submitted", cluster.Name, fmt.Sprintf("job_id=%s %s", jobID, itemTag))

		ready, err := e.awaitReady(ctx, cluster.Name, jobID, itemTag, pollInterval, waitCeiling)
		if err != nil {
			return result, err
		}
		if !ready {
			continue
		}

		records, err := e.fetchWithRetry(ctx, cluster.Name, jobID, itemTag, pollInterval, waitCeiling)
		if err != nil {
			return result, err
		}
		if records == nil {
			continue
		}
		if len(records) == 0 {
			e.runLog.Log(ctx, "no_records", cluster.Name, fmt.Sprintf("%s 0 records", itemTag))
			continue
		}

		if capped && len(records) > remaining {
			records = records[:remaining]
		}
		e.runLog.Log(ctx, "job_downloaded", cluster.Name,
			fmt.Sprintf("%s records_used=%d per_item_limit=%d cluster_cap=%d", itemTag, len(records), perItemLimit, clusterCap))

		batch := e.now().Format("2006-01-02 15:04") + " | " + e.cfg.SourceName + " | " + cluster.Name

		skippedNoKey := 0
		skippedDuplicate := 0
		var newRows [][]string
		for _, raw := range records {
			key := raw.PrimaryKey()
			if key == "" {
				skippedNoKey++
				continue
			}
			if _, dup := seen[key]; dup {
				skippedDuplicate++
				continue
			}
			seen[key] = struct{}{}
			newRows = append(newRows, models.NormalizeRow(raw.Normalize(batch).Row(), width))
		}

		if len(newRows) > 0 {
			if err := e.store.AppendRows(ctx, e.cfg.DataSheet, newRows); err != nil {
				return result, fmt.Errorf("failed to append rows for cluster %s: %w", cluster.Name, err)
			}
		}

		result.Appended += len(newRows)
		result.SkippedNoKey += skippedNoKey
		result.SkippedDuplicate += skippedDuplicate
		result.ItemsProcessed++
		if capped {
			remaining -= len(newRows)
			if remaining < 0 {
				remaining = 0
			}
		}

		remainingTag := "inf"
		if capped {
			remainingTag = fmt.Sprintf("%d", remaining)
		}
		e.runLog.Log(ctx, "rows_appended", cluster.Name,
			fmt.Sprintf("%s new=%d skipped_no_key=%d skipped_duplicate=%d remaining=%s",
				itemTag, len(newRows), skippedNoKey, skippedDuplicate, remainingTag))
	}

	e.touchUp(ctx, 1+len(existing)+result.Appended)

	return result, nil
}

// awaitReady polls the job on a fixed interval until it is ready, failed,
// canceled, or the wait ceiling elapses. Status transitions are logged on
// change only. Returns (false, nil) when the item should be abandoned.
func (e *Engine) awaitReady(ctx context.Context, clusterName, jobID, itemTag string, interval, ceiling time.Duration) (bool, error) {
	waited := time.Duration(0)
	var lastLogged interfaces.JobStatus

	for {
		status, err := e.provider.Status(ctx, jobID)
		if err != nil {
			e.runLog.Log(ctx, "job_status_error", clusterName, fmt.Sprintf("%s error=%v", itemTag, err))
			return false, nil
		}
		if status != lastLogged {
			e.runLog.Log(ctx, "job_status", clusterName, fmt.Sprintf("status=%s %s", status, itemTag))
			lastLogged = status
		}

		switch status {
		case interfaces.JobStatusReady:
			return true, nil
		case interfaces.JobStatusFailed, interfaces.JobStatusCanceled:
			e.runLog.Log(ctx, "job_failed", clusterName,
				fmt.Sprintf("status=%s waited=%s %s", status, waited, itemTag))
			return false, nil
		}

		if waited >= ceiling {
			e.runLog.Log(ctx, "job_timeout", clusterName,
				fmt.Sprintf("waited=%s %s", waited, itemTag))
			return false, nil
		}

		if err := e.sleep(ctx, interval); err != nil {
			return false, err
		}
		waited += interval
	}
}

// fetchWithRetry downloads the job result, retrying still-building
// responses on the poll interval up to the ceiling. Returns (nil, nil)
// when the item should be abandoned.
func (e *Engine) fetchWithRetry(ctx context.Context, clusterName, jobID, itemTag string, interval, ceiling time.Duration) ([]models.RawRecord, error) {
	waited := time.Duration(0)

	for {
		records, err := e.provider.Fetch(ctx, jobID)
		if err == nil {
			if records == nil {
				records = []models.RawRecord{}
			}
			return records, nil
		}
		if !errors.Is(err, interfaces.ErrRetryAfter) {
			e.runLog.Log(ctx, "job_fetch_failed", clusterName, fmt.Sprintf("%s error=%v", itemTag, err))
			return nil, nil
		}
		if waited >= ceiling {
			e.runLog.Log(ctx, "job_timeout", clusterName,
				fmt.Sprintf("fetch waited=%s %s", waited, itemTag))
			return nil, nil
		}
		if err := e.sleep(ctx, interval); err != nil {
			return nil, err
		}
		waited += interval
	}
}

// touchUp extends the helper-column formulas over appended rows and keeps
// the author-metric column formatted as a plain number. Both operations
// are idempotent and cosmetic; failures are logged and swallowed so a
// crash between append and touch-up leaves the sheet valid and the next
// run repairs it.
func (e *Engine) touchUp(ctx context.Context, lastRow int) {
	if lastRow < 2 {
		return
	}
	width := len(models.Header())

	if err := e.store.CopyFormulaDown(ctx, e.cfg.DataSheet, 2, width+1, width+2, lastRow); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to extend helper formulas")
	}
	if err := e.store.SetNumberFormat(ctx, e.cfg.DataSheet, models.ColAuthorMetric+1, 2, lastRow, "0"); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to set number format")
	}
}

func truncateString(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
