package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/jobs/ingest"
	"github.com/ternarybob/colligo/internal/jobs/labeler"
	"github.com/ternarybob/colligo/internal/jobs/orchestrator"
	"github.com/ternarybob/colligo/internal/jobs/runlog"
	"github.com/ternarybob/colligo/internal/services/brightdata"
	"github.com/ternarybob/colligo/internal/services/catalog"
	"github.com/ternarybob/colligo/internal/services/llm"
	"github.com/ternarybob/colligo/internal/services/scheduler"
	settingssvc "github.com/ternarybob/colligo/internal/services/settings"
	"github.com/ternarybob/colligo/internal/services/sheets"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	overwrite    = flag.Bool("overwrite", false, "Label mode: clear existing labels and relabel from scratch")
	daemon       = flag.Bool("daemon", false, "Keep running and repeat runs on the configured cron schedule")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Colligo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	mode := orchestrator.ModeFull
	switch flag.Arg(0) {
	case "", "full", "start":
		mode = orchestrator.ModeFull
	case "scrape":
		mode = orchestrator.ModeScrape
	case "label":
		mode = orchestrator.ModeLabel
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q (expected full, scrape, or label)\n", flag.Arg(0))
		os.Exit(2)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("colligo.toml"); err == nil {
			configFiles = append(configFiles, "colligo.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := sheets.NewService(ctx, &config.Sheets, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize sheets store")
		os.Exit(1)
	}

	provider := brightdata.NewService(&config.Provider, logger)

	// A missing or misconfigured LLM backend must not stop ingestion:
	// the classifier marks rows "No API Access" instead, and labeling
	// resumes once credentials are supplied.
	llmProvider, err := llm.NewProvider(config, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("LLM backend unavailable, rows will be marked without API access")
		llmProvider = nil
	} else {
		defer llmProvider.Close()
	}
	classifier := llm.NewClassifier(llmProvider, config.LLM.RequestsPerMinute, logger)

	runLog := runlog.NewWriter(store, config.Sheets.LogsSheet, logger)
	settingsService := settingssvc.NewService(store, config.Sheets.SettingsSheet, logger)
	catalogService := catalog.NewService(store, config.Sheets.ClustersSheet, config.Source.PlatformPrefix, logger)

	engine := ingest.NewEngine(store, provider, runLog, ingest.Config{
		DataSheet:    config.Sheets.DataSheet,
		SourceName:   config.Source.Name,
		LimitPerItem: config.Provider.LimitPerItem,
		ClusterCap:   config.Provider.ClusterCap,
	}, logger)

	lbl := labeler.NewLabeler(store, classifier, runLog, config.Sheets.DataSheet, logger)

	orch := orchestrator.New(settingsService, catalogService, engine, lbl, runLog, config.Source.Name, logger)
	opts := orchestrator.Options{Mode: mode, Overwrite: *overwrite}

	if *daemon || config.Scheduler.Enabled {
		runScheduled(ctx, cancel, orch, opts, config, logger)
		return
	}

	if err := orch.RunOnce(ctx, opts); err != nil {
		logger.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

// runScheduled repeats runs on the configured cron schedule until the
// process receives an interrupt or termination signal.
func runScheduled(ctx context.Context, cancel context.CancelFunc, orch *orchestrator.Orchestrator, opts orchestrator.Options, config *common.Config, logger arbor.ILogger) {
	sched := scheduler.NewService(func(ctx context.Context) error {
		return orch.RunOnce(ctx, opts)
	}, logger)

	if err := sched.Start(ctx, config.Scheduler.Schedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	cancel()
	sched.Stop()
}
