package ledger

import (
	"fmt"
	"net/http"

	"sheet_ledger/internal/a1"
	"sheet_ledger/internal/config"
)

// Window is the fixed block of rows that receives appended records. Its
// position never depends on how large the sheet currently is.
type Window struct {
	DataRange   string
	HeaderRange string
	KeyColumn   int

	grid     a1.GridRange
	start    a1.Endpoint
	end      a1.Endpoint
	firstRow int
}

func NewWindow(cfg config.WindowConfig) (Window, error) {
	grid, err := a1.ParseRange(cfg.DataRange, 0)
	if err != nil {
		return Window{}, fmt.Errorf("window data range: %w", err)
	}
	if _, err := a1.ParseRange(cfg.HeaderRange, 0); err != nil {
		return Window{}, fmt.Errorf("window header range: %w", err)
	}
	if cfg.KeyColumn < 0 || cfg.KeyColumn >= grid.Cols() {
		return Window{}, fmt.Errorf("window key column %d outside %s", cfg.KeyColumn, cfg.DataRange)
	}
	start, end, err := a1.SplitRange(cfg.DataRange)
	if err != nil {
		return Window{}, err
	}
	return Window{
		DataRange:   cfg.DataRange,
		HeaderRange: cfg.HeaderRange,
		KeyColumn:   cfg.KeyColumn,
		grid:        grid,
		start:       start,
		end:         end,
		firstRow:    grid.StartRow + 1,
	}, nil
}

// Size is the number of rows in the window.
func (w Window) Size() int { return w.grid.Rows() }

// Width is the number of columns in the window.
func (w Window) Width() int { return w.grid.Cols() }

// FirstRow is the 1-based sheet row of window index 0.
func (w Window) FirstRow() int { return w.firstRow }

// RowRange is the A1 range covering the window's columns on the row at index.
func (w Window) RowRange(index int) string {
	return a1.RowRange(w.start.Column, w.end.Column, w.firstRow+index)
}

// Grid returns the window bound to sheetID.
func (w Window) Grid(sheetID int64) a1.GridRange {
	g := w.grid
	g.SheetID = sheetID
	return g
}

// SortColumn is the absolute zero-based column index of the key column.
func (w Window) SortColumn() int { return w.grid.StartCol + w.KeyColumn }

func (w Window) validateValues(values []string) error {
	if len(values) == 0 {
		return newError(KindInvalidRequest, http.StatusBadRequest, "Missing required fields: sheetName and values array", nil)
	}
	if len(values) > w.Width() {
		return newError(KindInvalidRequest, http.StatusBadRequest,
			fmt.Sprintf("%d values do not fit the %d columns of %s", len(values), w.Width(), w.DataRange), nil)
	}
	return nil
}
