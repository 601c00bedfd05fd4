package ledger

import (
	"context"
	"fmt"
	"sync"

	"sheet_ledger/internal/a1"
)

type writeCall struct {
	Range string
	Rows  []Row
	Mode  WriteMode
}

type sortCall struct {
	Grid      a1.GridRange
	Column    int
	Ascending bool
}

// fakeStore answers reads from a map keyed by qualified range and records writes and sorts.
type fakeStore struct {
	mu sync.Mutex

	values    map[string]ValueRange
	readErrs  map[string]error
	grid      FormattedGrid
	formatErr error
	meta      SpreadsheetMetadata
	metaErr   error
	writeErr  error
	sortErr   error

	reads     []string
	writes    []writeCall
	sorts     []sortCall
	metaCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:   map[string]ValueRange{},
		readErrs: map[string]error{},
		meta: SpreadsheetMetadata{
			Title:  "Household",
			Sheets: []SheetInfo{{SheetID: 0, Title: "Summary"}, {SheetID: 7, Title: "Ledger"}},
		},
	}
}

func (f *fakeStore) ReadValues(_ context.Context, _ string, rng string) (ValueRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, rng)
	if err := f.readErrs[rng]; err != nil {
		return ValueRange{}, err
	}
	vr := f.values[rng]
	if vr.Range == "" {
		vr.Range = rng
	}
	return vr, nil
}

func (f *fakeStore) WriteValues(_ context.Context, _ string, rng string, rows []Row, mode WriteMode) (WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return WriteResult{}, f.writeErr
	}
	f.writes = append(f.writes, writeCall{Range: rng, Rows: rows, Mode: mode})
	return WriteResult{UpdatedRange: rng, UpdatedRows: int64(len(rows))}, nil
}

func (f *fakeStore) SortRange(_ context.Context, _ string, gr a1.GridRange, col int, asc bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sorts = append(f.sorts, sortCall{Grid: gr, Column: col, Ascending: asc})
	return f.sortErr
}

func (f *fakeStore) GetSheetMetadata(context.Context, string) (SpreadsheetMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	return f.meta, f.metaErr
}

func (f *fakeStore) ReadValuesWithFormat(context.Context, string, string) (FormattedGrid, error) {
	return f.grid, f.formatErr
}

type notification struct {
	kind string
	row  int
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyWindowFull(context.Context, string, string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind: "window_full"})
}

func (n *recordingNotifier) NotifySortFailed(_ context.Context, _, _ string, row int, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind: "sort_failed", row: row})
}

// filledRows returns n rows whose key cell is set.
func filledRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{fmt.Sprintf("2024-01-%02d", i%28+1), "groceries", "12000"}
	}
	return rows
}
