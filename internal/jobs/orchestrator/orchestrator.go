// Package orchestrator drives one complete pass over the active clusters
// and the labeling sweep that follows.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/jobs/ingest"
	"github.com/ternarybob/colligo/internal/jobs/labeler"
	"github.com/ternarybob/colligo/internal/jobs/runlog"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/catalog"
)

// Mode selects which half of the pipeline a run executes.
type Mode string

const (
	// ModeFull ingests every active cluster, then labels once.
	ModeFull Mode = "full"
	// ModeScrape ingests without labeling.
	ModeScrape Mode = "scrape"
	// ModeLabel labels without ingesting.
	ModeLabel Mode = "label"
)

// Options controls one run.
type Options struct {
	Mode      Mode
	Overwrite bool // Label mode only: clear existing labels first
}

// SettingsStore is the slice of the settings service the orchestrator
// needs.
type SettingsStore interface {
	Load(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, key, value string) error
}

// CatalogLoader loads the cluster catalog.
type CatalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// ClusterProcessor ingests one cluster.
type ClusterProcessor interface {
	Process(ctx context.Context, cluster *models.Cluster, settings models.Settings) (*ingest.Result, error)
}

// LabelRunner runs one labeling pass.
type LabelRunner interface {
	Run(ctx context.Context, settings models.Settings, opts labeler.Options) (int, error)
}

// Orchestrator iterates active clusters in catalog order, invoking the
// ingestion engine per cluster and the labeler once over the whole sheet.
// A failing cluster is logged and skipped; only store-level failures abort
// the run.
type Orchestrator struct {
	settings SettingsStore
	catalog  CatalogLoader
	engine   ClusterProcessor
	labeler  LabelRunner
	runLog   *runlog.Writer
	logger   arbor.ILogger
	source   string
}

// New creates a run orchestrator.
func New(
	settingsSvc SettingsStore,
	catalogSvc CatalogLoader,
	engine ClusterProcessor,
	lbl LabelRunner,
	runLog *runlog.Writer,
	source string,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		settings: settingsSvc,
		catalog:  catalogSvc,
		engine:   engine,
		labeler:  lbl,
		runLog:   runLog,
		logger:   logger,
		source:   source,
	}
}

// RunOnce executes one complete pass. The returned error is non-nil only
// for failures the run cannot work around (the store itself, or context
// cancellation); per-cluster failures are logged and absorbed.
func (o *Orchestrator) RunOnce(ctx context.Context, opts Options) error {
	runID := uuid.NewString()[:8]
	o.runLog.Log(ctx, "run_start", o.source,
		fmt.Sprintf("run=%s mode=%s version=%s", runID, opts.Mode, common.GetVersion()))

	runSettings, err := o.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if opts.Mode == ModeLabel {
		processed, err := o.labeler.Run(ctx, runSettings, labeler.Options{
			Overwrite: opts.Overwrite,
			Scope:     "LABEL_ONLY",
		})
		if err != nil {
			return err
		}
		o.runLog.Log(ctx, "run_done", o.source,
			fmt.Sprintf("run=%s labeled_processed=%d", runID, processed))
		return nil
	}

	cat, err := o.catalog.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cluster catalog: %w", err)
	}

	active := cat.ActiveOrdered()
	if len(active) == 0 {
		o.runLog.Log(ctx, "no_active_clusters", o.source, fmt.Sprintf("run=%s", runID))
		return nil
	}

	names := make([]string, len(active))
	for i, cluster := range active {
		names[i] = cluster.Name
	}
	o.runLog.Log(ctx, "cluster_sequence", o.source, strings.Join(names, " -> "))

	for _, cluster := range active {
		o.runLog.Log(ctx, "start_cluster", cluster.Name,
			fmt.Sprintf("items=%d mode=%s", len(cluster.Items), cluster.Mode))

		result, err := o.engine.Process(ctx, cluster, runSettings)
		if err != nil {
			if errors.Is(err, interfaces.ErrStoreUnavailable) || ctx.Err() != nil {
				return err
			}
			o.runLog.Log(ctx, "cluster_error", cluster.Name, err.Error())
			continue
		}

		// Informational only: never consulted for resumption.
		if err := o.settings.Update(ctx, models.SettingLastCluster, cluster.Name); err != nil {
			o.logger.Warn().Err(err).Str("cluster", cluster.Name).
				Msg("Failed to record last processed cluster")
		}

		o.runLog.Log(ctx, "cluster_done", cluster.Name,
			fmt.Sprintf("appended=%d skipped_no_key=%d skipped_duplicate=%d items=%d",
				result.Appended, result.SkippedNoKey, result.SkippedDuplicate, result.ItemsProcessed))
	}

	if opts.Mode == ModeFull {
		processed, err := o.labeler.Run(ctx, runSettings, labeler.Options{Scope: "RUN_ALL"})
		if err != nil {
			return err
		}
		o.runLog.Log(ctx, "label_done", o.source, fmt.Sprintf("processed=%d", processed))
	}

	o.runLog.Log(ctx, "run_done", o.source,
		fmt.Sprintf("run=%s clusters=%d", runID, len(active)))
	return nil
}
