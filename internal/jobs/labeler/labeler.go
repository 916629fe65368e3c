// Package labeler runs the incremental classification pass over the data
// sheet.
package labeler

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/jobs/runlog"
	"github.com/ternarybob/colligo/internal/models"
)

// Labeler classifies every row whose label cell is empty and persists the
// label column after each row.
//
// There is no resume pointer: every invocation rescans the whole sheet and
// re-derives "rows still needing a label" from the data itself, which makes
// the pass crash-safe, resumable, and idempotent. Existing labels are never
// overwritten, including ones set by hand.
type Labeler struct {
	store      interfaces.TabularStore
	classifier interfaces.Classifier
	runLog     *runlog.Writer
	logger     arbor.ILogger
	dataSheet  string
}

// Options controls one labeling pass.
type Options struct {
	// Overwrite clears the whole label column before the pass, so every
	// row is classified from scratch. This is the only path that discards
	// existing labels.
	Overwrite bool

	// Scope names the pass in log entries ("ALL" when empty).
	Scope string
}

// NewLabeler creates an incremental labeler.
func NewLabeler(store interfaces.TabularStore, classifier interfaces.Classifier, runLog *runlog.Writer, dataSheet string, logger arbor.ILogger) *Labeler {
	return &Labeler{
		store:      store,
		classifier: classifier,
		runLog:     runLog,
		logger:     logger,
		dataSheet:  dataSheet,
	}
}

// Run scans the full data sheet top to bottom and classifies unlabeled
// rows. Returns the number of rows where classification was attempted; an
// attempt counts even when the classifier produced no reply, matching the
// operator-visible "processed" semantics.
func (l *Labeler) Run(ctx context.Context, settings models.Settings, opts Options) (int, error) {
	scope := opts.Scope
	if scope == "" {
		scope = "ALL"
	}

	targetColumn := settings.Get(models.SettingTargetColumn, "biography")
	labelColumn := settings.Get(models.SettingLabelColumn, "label")
	prompt := settings.Get(models.SettingLabelPrompt, models.DefaultLabelPrompt)
	logEvery := settings.GetInt(models.SettingLabelLogEvery, 10)
	if logEvery < 1 {
		logEvery = 1
	}

	grid, err := l.store.ReadRange(ctx, l.dataSheet, models.Columns(1, len(models.Header())))
	if err != nil {
		return 0, fmt.Errorf("failed to read data sheet: %w", err)
	}
	if len(grid) <= 1 {
		l.runLog.Log(ctx, "label_progress", scope, "empty sheet, nothing to process")
		return 0, nil
	}

	header := grid[0]
	targetIdx := slices.Index(header, targetColumn)
	labelIdx := slices.Index(header, labelColumn)
	if targetIdx < 0 || labelIdx < 0 {
		l.runLog.Log(ctx, "label_column_missing", scope,
			fmt.Sprintf("target=%s label=%s", targetColumn, labelColumn))
		return 0, nil
	}

	rows := grid[1:]
	for i := range rows {
		rows[i] = models.NormalizeRow(rows[i], len(header))
	}

	if opts.Overwrite {
		for i := range rows {
			rows[i][labelIdx] = ""
		}
		if err := l.persistLabels(ctx, rows, labelIdx); err != nil {
			return 0, err
		}
		l.runLog.Log(ctx, "label_progress", scope, "label column cleared, relabeling from scratch")
	}

	toProcess := 0
	for _, row := range rows {
		if strings.TrimSpace(row[labelIdx]) == "" {
			toProcess++
		}
	}
	if toProcess == 0 {
		l.runLog.Log(ctx, "label_progress", scope, "nothing_to_process: all labels filled")
		return 0, nil
	}

	l.logger.Info().
		Str("scope", scope).
		Int("to_process", toProcess).
		Str("target_column", targetColumn).
		Str("label_column", labelColumn).
		Msg("Starting labeling pass")

	processed := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if strings.TrimSpace(row[labelIdx]) != "" {
			continue
		}

		reply := l.classifier.Classify(ctx, prompt, row[targetIdx])
		if reply != "" {
			row[labelIdx] = reply
		}
		processed++

		// Persist after every single row: a crash loses at most one
		// unsaved classification.
		if err := l.persistLabels(ctx, rows, labelIdx); err != nil {
			l.logger.Warn().Err(err).Msg("Failed to persist label column")
		}

		if processed%logEvery == 0 {
			l.runLog.Log(ctx, "label_progress", scope,
				fmt.Sprintf("processed=%d/%d", processed, toProcess))
		}
	}

	l.runLog.Log(ctx, "label_progress", scope,
		fmt.Sprintf("processed=%d/%d (final)", processed, toProcess))

	return processed, nil
}

// persistLabels writes only the label column back, leaving every other
// column (and any concurrent manual edits to them) untouched.
func (l *Labeler) persistLabels(ctx context.Context, rows [][]string, labelIdx int) error {
	column := make([][]string, len(rows))
	for i, row := range rows {
		column[i] = []string{row[labelIdx]}
	}
	rng := models.SingleColumn(labelIdx+1, 2, len(rows)+1)
	return l.store.WriteRange(ctx, l.dataSheet, rng, column, interfaces.WriteModeTyped)
}
