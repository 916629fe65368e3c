// Package settings reads and updates the operator-editable Settings sheet,
// a two-column key/value table below a header row.
package settings

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service loads and updates the Settings sheet.
type Service struct {
	store  interfaces.TabularStore
	sheet  string
	logger arbor.ILogger
}

// NewService creates a settings service.
func NewService(store interfaces.TabularStore, sheet string, logger arbor.ILogger) *Service {
	return &Service{store: store, sheet: sheet, logger: logger}
}

// Load reads the full key/value mapping, once per run. Keys and values are
// trimmed; duplicate keys resolve last-write-wins.
func (s *Service) Load(ctx context.Context) (models.Settings, error) {
	grid, err := s.store.ReadRange(ctx, s.sheet, models.Columns(1, 2))
	if err != nil {
		return nil, err
	}

	loaded := make(models.Settings)
	for i, row := range grid {
		if i == 0 {
			continue // header
		}
		if len(row) < 2 {
			continue
		}
		key := strings.TrimSpace(row[0])
		if key == "" {
			continue
		}
		loaded[key] = strings.TrimSpace(row[1])
	}
	return loaded, nil
}

// Update writes one key/value pair, preserving all other keys. The write
// is a read-modify-write of the whole settings range; the sheet is small
// and the process is the sole writer during a run.
func (s *Service) Update(ctx context.Context, key, value string) error {
	grid, err := s.store.ReadRange(ctx, s.sheet, models.Columns(1, 2))
	if err != nil {
		return err
	}

	if len(grid) == 0 || len(grid[0]) == 0 || grid[0][0] != "key" {
		grid = append([][]string{{"key", "value"}}, grid...)
	}

	found := false
	for i := 1; i < len(grid); i++ {
		if len(grid[i]) >= 1 && grid[i][0] == key {
			grid[i] = []string{key, value}
			found = true
			break
		}
	}
	if !found {
		grid = append(grid, []string{key, value})
	}

	if err := s.store.ClearRange(ctx, s.sheet, models.Columns(1, 2)); err != nil {
		return err
	}
	return s.store.WriteRange(ctx, s.sheet, models.CellRange{StartCol: 1, StartRow: 1, EndCol: 2, EndRow: len(grid)}, grid, interfaces.WriteModeRaw)
}
