package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{8, "H"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
		{0, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnLetter(tt.col), "col %d", tt.col)
	}
}

func TestCellRangeA1(t *testing.T) {
	tests := []struct {
		name string
		rng  CellRange
		want string
	}{
		{"single cell", CellRange{StartCol: 1, StartRow: 1}, "A1"},
		{"open ended rows", CellRange{StartCol: 1, StartRow: 1, EndCol: 8}, "A1:H"},
		{"header row", HeaderRange(8), "A1:H1"},
		{"whole columns", Columns(1, 5), "A:E"},
		{"single column span", SingleColumn(8, 2, 41), "H2:H41"},
		{"two column kv", Columns(1, 2), "A:B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rng.A1())
		})
	}
}
