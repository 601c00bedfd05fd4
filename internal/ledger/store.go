package ledger

import (
	"context"
	"net/http"
	"strings"

	"sheet_ledger/internal/a1"
)

// Row is one row of cell values. Missing trailing cells are simply absent.
type Row []string

// Cell returns the value at i, or "" when the row is shorter than that.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// IsEmptyAt reports whether the cell at column i is absent or blank.
func (r Row) IsEmptyAt(i int) bool {
	return strings.TrimSpace(r.Cell(i)) == ""
}

// HasData reports whether any cell in the row is non-blank.
func (r Row) HasData() bool {
	for i := range r {
		if !r.IsEmptyAt(i) {
			return true
		}
	}
	return false
}

// WriteMode selects how the store interprets written values.
type WriteMode string

const (
	// WriteRaw stores values verbatim as text.
	WriteRaw WriteMode = "RAW"
	// WriteUserEntered parses values as if typed into the UI, so numbers and dates are coerced.
	WriteUserEntered WriteMode = "USER_ENTERED"
)

// ParseWriteMode maps the store's valueInputOption names; empty selects fallback.
func ParseWriteMode(s string, fallback WriteMode) (WriteMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return fallback, nil
	case string(WriteRaw):
		return WriteRaw, nil
	case string(WriteUserEntered):
		return WriteUserEntered, nil
	}
	return "", newError(KindInvalidRequest, http.StatusBadRequest, "invalid valueInputOption: "+s, nil)
}

// CellFormat carries the colors of one cell. Nil means no explicit color.
type CellFormat struct {
	TextColor       *string `json:"textColor"`
	BackgroundColor *string `json:"backgroundColor"`
}

// ValueRange is the result of a plain values read.
type ValueRange struct {
	Range string
	Rows  []Row
}

// FormattedGrid is the result of a grid-data read: per-cell formats shaped
// like the unfiltered rows of the range. Cell values come from ReadValues.
type FormattedGrid struct {
	Formats [][]CellFormat
}

type WriteResult struct {
	UpdatedRange   string `json:"updatedRange"`
	UpdatedCells   int64  `json:"updatedCells"`
	UpdatedRows    int64  `json:"updatedRows"`
	UpdatedColumns int64  `json:"updatedColumns"`
}

type SheetInfo struct {
	SheetID     int64  `json:"sheetId"`
	Title       string `json:"title"`
	Index       int64  `json:"index"`
	SheetType   string `json:"sheetType"`
	RowCount    int64  `json:"rowCount"`
	ColumnCount int64  `json:"columnCount"`
}

type SpreadsheetMetadata struct {
	Title  string      `json:"spreadsheetTitle"`
	Sheets []SheetInfo `json:"sheets"`
}

// SheetByTitle finds a sheet by exact title.
func (m SpreadsheetMetadata) SheetByTitle(title string) (SheetInfo, bool) {
	for _, s := range m.Sheets {
		if s.Title == title {
			return s, true
		}
	}
	return SheetInfo{}, false
}

// ValueReader is the subset of Store needed for plain reads.
type ValueReader interface {
	ReadValues(ctx context.Context, spreadsheetID, rng string) (ValueRange, error)
}

// Store is the remote tabular store, already bound to the caller's credential.
// Ranges passed to ReadValues, WriteValues and ReadValuesWithFormat are
// sheet-qualified A1 strings.
type Store interface {
	ValueReader
	WriteValues(ctx context.Context, spreadsheetID, rng string, rows []Row, mode WriteMode) (WriteResult, error)
	SortRange(ctx context.Context, spreadsheetID string, gr a1.GridRange, sortColumn int, ascending bool) error
	GetSheetMetadata(ctx context.Context, spreadsheetID string) (SpreadsheetMetadata, error)
	ReadValuesWithFormat(ctx context.Context, spreadsheetID, rng string) (FormattedGrid, error)
}
