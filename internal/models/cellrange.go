package models

import (
	"fmt"
	"strings"
)

// CellRange identifies a rectangular region of a sheet using 1-based row and
// column indices. A zero EndCol/EndRow leaves that side of the range open,
// which matches the open-ended forms the spreadsheet API accepts ("A1:H",
// "A:B"). Only the store adapter renders ranges to A1 notation; everything
// above it works with indices.
type CellRange struct {
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ColumnLetter converts a 1-based column index to its letter form
// (1 -> "A", 26 -> "Z", 27 -> "AA").
func ColumnLetter(col int) string {
	if col < 1 {
		return ""
	}
	var sb strings.Builder
	n := col - 1
	for {
		r := n % 26
		sb.WriteByte(byte('A' + r))
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	// Letters were produced least-significant first
	runes := []rune(sb.String())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// A1 renders the range in A1 notation without the sheet prefix.
func (r CellRange) A1() string {
	left := ColumnLetter(r.StartCol)
	if r.StartRow > 0 {
		left += fmt.Sprintf("%d", r.StartRow)
	}
	if r.EndCol == 0 && r.EndRow == 0 {
		return left
	}
	endCol := r.EndCol
	if endCol == 0 {
		endCol = r.StartCol
	}
	right := ColumnLetter(endCol)
	if r.EndRow > 0 {
		right += fmt.Sprintf("%d", r.EndRow)
	}
	return left + ":" + right
}

// Columns returns a whole-column range such as "A:E".
func Columns(startCol, endCol int) CellRange {
	return CellRange{StartCol: startCol, EndCol: endCol}
}

// SingleColumn returns a single-column range bounded by rows, such as "H2:H41".
func SingleColumn(col, startRow, endRow int) CellRange {
	return CellRange{StartCol: col, StartRow: startRow, EndCol: col, EndRow: endRow}
}

// HeaderRange returns the first-row range covering width columns ("A1:H1").
func HeaderRange(width int) CellRange {
	return CellRange{StartCol: 1, StartRow: 1, EndCol: width, EndRow: 1}
}
