package ingest

import (
	"strconv"
	"strings"
	"time"
)

type CellKind int

const (
	CellNull CellKind = iota
	CellString
	CellNumber
	CellDate
)

// Cell is one typed spreadsheet value. Text always keeps the raw value as read.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   time.Time
	// Date1904 is set on numbers of workbooks whose serial dates start in 1904.
	Date1904 bool
}

// Row is the ordered list of cells of one sheet row.
type Row []Cell

// At returns the cell at column i, or a null cell past the end of a short row.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{}
	}
	return r[i]
}

func (c Cell) IsNull() bool {
	return c.Kind == CellNull
}

func NullCell() Cell {
	return Cell{}
}

func StringCell(s string) Cell {
	return Cell{Kind: CellString, Text: s}
}

func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f, Text: strconv.FormatFloat(f, 'f', -1, 64)}
}

func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Date: t, Text: t.Format("2006-01-02")}
}

// classify turns a raw reader value into a typed cell: blank is null, anything
// that parses as a float is a number, the rest stays text.
func classify(raw string) Cell {
	if strings.TrimSpace(raw) == "" {
		return NullCell()
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return Cell{Kind: CellNumber, Number: f, Text: raw}
	}
	return StringCell(raw)
}
