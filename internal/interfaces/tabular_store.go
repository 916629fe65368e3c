package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/colligo/internal/models"
)

// ErrStoreUnavailable wraps failures of the backing table itself. Nothing
// downstream can make progress without the store, so callers let this error
// propagate and abort the run instead of swallowing it at cluster scope.
var ErrStoreUnavailable = errors.New("tabular store unavailable")

// WriteMode selects how the store interprets written cell values.
type WriteMode string

const (
	// WriteModeRaw stores values as literal text.
	WriteModeRaw WriteMode = "RAW"

	// WriteModeTyped lets the store parse values as if typed by a user
	// (numbers become numbers, formulas become formulas).
	WriteModeTyped WriteMode = "USER_ENTERED"
)

// TabularStore reads and writes rows and columns of the shared table. The
// adapter owns all range-string rendering and the logical-name to sheet-id
// mapping; it never applies business rules.
type TabularStore interface {
	// ReadRange returns the cell grid for the range, one []string per row.
	// Trailing empty cells may be omitted by the backend; callers normalize
	// row width against their header.
	ReadRange(ctx context.Context, sheetName string, rng models.CellRange) ([][]string, error)

	// WriteRange overwrites the range with the grid.
	WriteRange(ctx context.Context, sheetName string, rng models.CellRange, grid [][]string, mode WriteMode) error

	// AppendRows inserts rows after the last populated row without
	// disturbing existing rows.
	AppendRows(ctx context.Context, sheetName string, grid [][]string) error

	// ClearRange blanks the cells in the range.
	ClearRange(ctx context.Context, sheetName string, rng models.CellRange) error

	// EnsureHeader writes the header row when the sheet is empty and
	// returns the effective header.
	EnsureHeader(ctx context.Context, sheetName string, header []string) ([]string, error)

	// CopyFormulaDown copies the formulas of sourceRow across the column
	// span down to destRowEnd (1-based, inclusive).
	CopyFormulaDown(ctx context.Context, sheetName string, sourceRow, startCol, endCol, destRowEnd int) error

	// SetNumberFormat applies a number format pattern to a column over the
	// given row span (1-based, inclusive).
	SetNumberFormat(ctx context.Context, sheetName string, col, startRow, endRow int, pattern string) error
}
