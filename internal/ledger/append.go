package ledger

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"sheet_ledger/internal/a1"

	"github.com/rs/zerolog/log"
)

type AppendRequest struct {
	SpreadsheetID string
	SheetName     string
	Values        []string
}

type AppendResult struct {
	Success      bool   `json:"success"`
	UpdatedRow   int    `json:"updatedRow"`
	UpdatedRange string `json:"updatedRange"`
	Sorted       bool   `json:"sorted"`
	SortError    string `json:"sortError,omitempty"`
}

// Append writes one record into the first empty row of the window and then
// tries to re-sort the window by its key column. A failed sort leaves the
// record in place and is reported through Sorted and SortError.
//
// Appends to the same window are serialized from the scan through the sort.
func (s *Service) Append(ctx context.Context, store Store, req AppendRequest) (*AppendResult, error) {
	if strings.TrimSpace(req.SheetName) == "" || req.SpreadsheetID == "" {
		return nil, newError(KindInvalidRequest, http.StatusBadRequest, "Missing required fields: sheetName and values array", nil)
	}
	if err := s.window.validateValues(req.Values); err != nil {
		return nil, err
	}

	logger := log.With().
		Str("spreadsheet_id", req.SpreadsheetID).
		Str("sheet", req.SheetName).
		Logger()

	unlock, err := s.locks.acquire(ctx, req.SpreadsheetID+"\x00"+req.SheetName+"\x00"+s.window.DataRange)
	if err != nil {
		return nil, newError(KindUpstreamUnavailable, http.StatusServiceUnavailable, "timed out waiting for the append window", err)
	}
	defer unlock()

	logger.Debug().Msg("Checking sheet exists")
	if _, err := store.ReadValues(ctx, req.SpreadsheetID, a1.Qualify(req.SheetName, "A1:A1")); err != nil {
		logger.Warn().Err(err).Msg("Sheet existence check failed")
		return nil, newError(KindSheetNotFound, http.StatusNotFound,
			fmt.Sprintf("Sheet '%s' does not exist or cannot be accessed", req.SheetName), err)
	}

	current, err := store.ReadValues(ctx, req.SpreadsheetID, a1.Qualify(req.SheetName, s.window.DataRange))
	if err != nil {
		logger.Error().Err(err).Str("range", s.window.DataRange).Msg("Failed to read append window")
		return nil, newError(KindUpstreamUnavailable, http.StatusBadGateway, "Failed to get current data", err)
	}

	index, ok := FindFirstEmptyRow(current.Rows, s.window.Size(), s.window.KeyColumn)
	if !ok {
		logger.Warn().Str("range", s.window.DataRange).Msg("Append window is full")
		s.notifier.NotifyWindowFull(ctx, req.SpreadsheetID, req.SheetName, s.window.DataRange)
		return nil, newError(KindWindowFull, http.StatusBadRequest,
			fmt.Sprintf("No empty rows available in %s range", s.window.DataRange), nil)
	}

	row := s.window.FirstRow() + index
	updatedRange := a1.Qualify(req.SheetName, s.window.RowRange(index))
	logger.Debug().Int("row", row).Str("range", updatedRange).Msg("Writing record")

	if _, err := store.WriteValues(ctx, req.SpreadsheetID, updatedRange, []Row{req.Values}, WriteUserEntered); err != nil {
		logger.Error().Err(err).Int("row", row).Msg("Failed to write record")
		return nil, newError(KindWriteFailed, http.StatusBadGateway, "Failed to update row", err)
	}

	result := &AppendResult{
		Success:      true,
		UpdatedRow:   row,
		UpdatedRange: updatedRange,
	}

	if err := s.sortWindow(ctx, store, req); err != nil {
		logger.Warn().Err(err).Int("row", row).Msg("Record written but window sort failed")
		s.notifier.NotifySortFailed(ctx, req.SpreadsheetID, req.SheetName, row, err)
		result.SortError = err.Error()
		return result, nil
	}
	result.Sorted = true

	logger.Info().Int("row", row).Msg("Record appended and window sorted")
	return result, nil
}

// sortWindow resolves the sheet id by title and sorts the window ascending
// on the key column. An unresolved id is a failure, never a guess.
func (s *Service) sortWindow(ctx context.Context, store Store, req AppendRequest) error {
	meta, err := store.GetSheetMetadata(ctx, req.SpreadsheetID)
	if err != nil {
		return newError(KindSortFailed, http.StatusBadGateway, "failed to resolve sheet id", err)
	}
	sheet, ok := meta.SheetByTitle(req.SheetName)
	if !ok {
		return newError(KindSortFailed, http.StatusNotFound,
			fmt.Sprintf("sheet %q missing from spreadsheet metadata", req.SheetName), nil)
	}
	if err := store.SortRange(ctx, req.SpreadsheetID, s.window.Grid(sheet.SheetID), s.window.SortColumn(), true); err != nil {
		return newError(KindSortFailed, http.StatusBadGateway, "sort request failed", err)
	}
	return nil
}
