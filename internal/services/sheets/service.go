// Package sheets implements the TabularStore interface over the Google
// Sheets API. The adapter owns all A1-notation rendering and the cached
// mapping from sheet title to internal sheet id; it applies no business
// rules of its own.
package sheets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service implements interfaces.TabularStore against one spreadsheet.
type Service struct {
	client        *sheetsapi.Service
	spreadsheetID string
	logger        arbor.ILogger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewService creates a Sheets-backed store from service account credentials.
func NewService(ctx context.Context, cfg *common.SheetsConfig, logger arbor.ILogger) (*Service, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	client, err := sheetsapi.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	logger.Debug().
		Str("spreadsheet_id", cfg.SpreadsheetID).
		Msg("Sheets store initialized")

	return &Service{
		client:        client,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// rangeName renders a sheet-qualified A1 range.
func rangeName(sheetName string, rng models.CellRange) string {
	return sheetName + "!" + rng.A1()
}

// storeErr wraps a transport-level failure so callers can abort the run
// with errors.Is(err, interfaces.ErrStoreUnavailable).
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, interfaces.ErrStoreUnavailable)
}

// ReadRange implements interfaces.TabularStore.
func (s *Service) ReadRange(ctx context.Context, sheetName string, rng models.CellRange) ([][]string, error) {
	resp, err := s.client.Spreadsheets.Values.Get(s.spreadsheetID, rangeName(sheetName, rng)).Context(ctx).Do()
	if err != nil {
		return nil, storeErr("read range", err)
	}

	grid := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// WriteRange implements interfaces.TabularStore.
func (s *Service) WriteRange(ctx context.Context, sheetName string, rng models.CellRange, grid [][]string, mode interfaces.WriteMode) error {
	body := &sheetsapi.ValueRange{Values: toAnyGrid(grid)}
	_, err := s.client.Spreadsheets.Values.Update(s.spreadsheetID, rangeName(sheetName, rng), body).
		ValueInputOption(string(mode)).
		Context(ctx).Do()
	if err != nil {
		return storeErr("write range", err)
	}
	return nil
}

// AppendRows implements interfaces.TabularStore. Rows are inserted after
// the last populated row; existing rows are never disturbed.
func (s *Service) AppendRows(ctx context.Context, sheetName string, grid [][]string) error {
	body := &sheetsapi.ValueRange{Values: toAnyGrid(grid)}
	_, err := s.client.Spreadsheets.Values.Append(s.spreadsheetID, sheetName+"!A1", body).
		ValueInputOption(string(interfaces.WriteModeTyped)).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return storeErr("append rows", err)
	}
	return nil
}

// ClearRange implements interfaces.TabularStore.
func (s *Service) ClearRange(ctx context.Context, sheetName string, rng models.CellRange) error {
	_, err := s.client.Spreadsheets.Values.Clear(s.spreadsheetID, rangeName(sheetName, rng), &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return storeErr("clear range", err)
	}
	return nil
}

// EnsureHeader writes the header row when the sheet has none and returns
// the effective header.
func (s *Service) EnsureHeader(ctx context.Context, sheetName string, header []string) ([]string, error) {
	existing, err := s.ReadRange(ctx, sheetName, models.HeaderRange(len(header)))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && len(existing[0]) > 0 {
		return existing[0], nil
	}
	if err := s.WriteRange(ctx, sheetName, models.HeaderRange(len(header)), [][]string{header}, interfaces.WriteModeRaw); err != nil {
		return nil, err
	}
	return header, nil
}

// CopyFormulaDown implements interfaces.TabularStore using a paste-formula
// batch update, matching how a user would drag a formula row down.
func (s *Service) CopyFormulaDown(ctx context.Context, sheetName string, sourceRow, startCol, endCol, destRowEnd int) error {
	if destRowEnd <= sourceRow {
		return nil
	}
	sheetID, err := s.sheetID(ctx, sheetName)
	if err != nil {
		return err
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				CopyPaste: &sheetsapi.CopyPasteRequest{
					Source: &sheetsapi.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    int64(sourceRow - 1),
						EndRowIndex:      int64(sourceRow),
						StartColumnIndex: int64(startCol - 1),
						EndColumnIndex:   int64(endCol),
					},
					Destination: &sheetsapi.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    int64(sourceRow - 1),
						EndRowIndex:      int64(destRowEnd),
						StartColumnIndex: int64(startCol - 1),
						EndColumnIndex:   int64(endCol),
					},
					PasteType:        "PASTE_FORMULA",
					PasteOrientation: "NORMAL",
				},
			},
		},
	}

	if _, err := s.client.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return storeErr("copy formula down", err)
	}
	return nil
}

// SetNumberFormat implements interfaces.TabularStore.
func (s *Service) SetNumberFormat(ctx context.Context, sheetName string, col, startRow, endRow int, pattern string) error {
	if endRow < startRow {
		return nil
	}
	sheetID, err := s.sheetID(ctx, sheetName)
	if err != nil {
		return err
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				RepeatCell: &sheetsapi.RepeatCellRequest{
					Range: &sheetsapi.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    int64(startRow - 1),
						EndRowIndex:      int64(endRow),
						StartColumnIndex: int64(col - 1),
						EndColumnIndex:   int64(col),
					},
					Cell: &sheetsapi.CellData{
						UserEnteredFormat: &sheetsapi.CellFormat{
							NumberFormat: &sheetsapi.NumberFormat{
								Type:    "NUMBER",
								Pattern: pattern,
							},
						},
					},
					Fields: "userEnteredFormat.numberFormat",
				},
			},
		},
	}

	if _, err := s.client.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return storeErr("set number format", err)
	}
	return nil
}

// sheetID resolves a sheet title to its numeric id, caching results for the
// lifetime of the service instance.
func (s *Service) sheetID(ctx context.Context, sheetName string) (int64, error) {
	s.mu.Lock()
	if id, ok := s.sheetIDs[sheetName]; ok {
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	resp, err := s.client.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, storeErr("resolve sheet id", err)
	}

	for _, sheet := range resp.Sheets {
		if sheet.Properties == nil {
			continue
		}
		if sheet.Properties.Title == sheetName {
			s.mu.Lock()
			s.sheetIDs[sheetName] = sheet.Properties.SheetId
			s.mu.Unlock()
			return sheet.Properties.SheetId, nil
		}
	}

	return 0, fmt.Errorf("sheet %q not found: %w", sheetName, interfaces.ErrStoreUnavailable)
}

func toAnyGrid(grid [][]string) [][]interface{} {
	out := make([][]interface{}, len(grid))
	for i, row := range grid {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}
