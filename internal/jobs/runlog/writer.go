// Package runlog appends structured run events to the Logs sheet.
package runlog

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Writer appends RunLog entries to the Logs sheet. An entry identical to
// the immediately preceding one (same action, scope, and details) is
// dropped to bound log volume during long polling loops. The dedup key and
// the header-ensured flag live on the writer instance, so each run
// constructs its own writer and no state leaks across runs.
type Writer struct {
	store  interfaces.TabularStore
	sheet  string
	logger arbor.ILogger
	now    func() time.Time

	mu          sync.Mutex
	lastKey     string
	headerReady bool
}

// NewWriter creates a Logs sheet writer.
func NewWriter(store interfaces.TabularStore, sheet string, logger arbor.ILogger) *Writer {
	return &Writer{
		store:  store,
		sheet:  sheet,
		logger: logger,
		now:    time.Now,
	}
}

// Log appends one entry. Logging is best-effort: a store failure is
// reported to the process logger and otherwise ignored, because a log write
// must never fail the work it describes.
func (w *Writer) Log(ctx context.Context, action, scope, details string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := action + "\x00" + scope + "\x00" + details
	if key == w.lastKey {
		return
	}
	w.lastKey = key

	if !w.headerReady {
		if _, err := w.store.EnsureHeader(ctx, w.sheet, models.LogsHeader()); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to ensure Logs sheet header")
		} else {
			w.headerReady = true
		}
	}

	entry := models.RunLogEntry{
		Timestamp: w.now().Format("2006-01-02 15:04:05"),
		Action:    action,
		Scope:     scope,
		Details:   details,
	}
	if err := w.store.AppendRows(ctx, w.sheet, [][]string{entry.Row()}); err != nil {
		w.logger.Warn().
			Err(err).
			Str("action", action).
			Str("scope", scope).
			Msg("Failed to append run log entry")
	}

	w.logger.Info().
		Str("action", action).
		Str("scope", scope).
		Str("details", details).
		Msg("Run event")
}
