package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"sheet_ledger/internal/a1"
	"sheet_ledger/internal/config"
	"sheet_ledger/internal/ledger"
	"sheet_ledger/internal/retry"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

const gridDataFields = "sheets.data.rowData.values(effectiveFormat(textFormat.foregroundColor,backgroundColor))"

// Session implements ledger.Store for a single bearer token.
type Session struct {
	service    *sheets.Service
	resilience config.ResilienceConfig
}

var _ ledger.Store = (*Session)(nil)

func (s *Session) ReadValues(ctx context.Context, spreadsheetID, rng string) (ledger.ValueRange, error) {
	resp, err := retry.WithRetry(ctx, s.resilience.StoreRead, func(ctx context.Context) (*sheets.ValueRange, error) {
		resp, err := s.service.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, upstream("read values", err)
		}
		return resp, nil
	})
	if err != nil {
		return ledger.ValueRange{}, err
	}

	log.Debug().
		Str("range", rng).
		Int("rows", len(resp.Values)).
		Msg("Read values")
	return ledger.ValueRange{Range: resp.Range, Rows: toRows(resp.Values)}, nil
}

func (s *Session) WriteValues(ctx context.Context, spreadsheetID, rng string, rows []ledger.Row, mode ledger.WriteMode) (ledger.WriteResult, error) {
	valueRange := &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         fromRows(rows),
	}

	resp, err := s.service.Spreadsheets.Values.Update(spreadsheetID, rng, valueRange).
		ValueInputOption(string(mode)).
		Context(ctx).
		Do()
	if err != nil {
		return ledger.WriteResult{}, upstream("update range", err)
	}

	return ledger.WriteResult{
		UpdatedRange:   resp.UpdatedRange,
		UpdatedCells:   resp.UpdatedCells,
		UpdatedRows:    resp.UpdatedRows,
		UpdatedColumns: resp.UpdatedColumns,
	}, nil
}

func (s *Session) SortRange(ctx context.Context, spreadsheetID string, gr a1.GridRange, sortColumn int, ascending bool) error {
	order := "ASCENDING"
	if !ascending {
		order = "DESCENDING"
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			SortRange: &sheets.SortRangeRequest{
				Range: &sheets.GridRange{
					SheetId:          gr.SheetID,
					StartRowIndex:    int64(gr.StartRow),
					EndRowIndex:      int64(gr.EndRow),
					StartColumnIndex: int64(gr.StartCol),
					EndColumnIndex:   int64(gr.EndCol),
					// zero is a real sheet id and a real index
					ForceSendFields: []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
				},
				SortSpecs: []*sheets.SortSpec{{
					DimensionIndex:  int64(sortColumn),
					SortOrder:       order,
					ForceSendFields: []string{"DimensionIndex"},
				}},
			},
		}},
	}

	if _, err := s.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return upstream("sort range", err)
	}
	log.Debug().
		Int64("sheet_id", gr.SheetID).
		Int("column", sortColumn).
		Str("order", order).
		Msg("Sorted range")
	return nil
}

func (s *Session) GetSheetMetadata(ctx context.Context, spreadsheetID string) (ledger.SpreadsheetMetadata, error) {
	sp, err := retry.WithRetry(ctx, s.resilience.Metadata, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		sp, err := s.service.Spreadsheets.Get(spreadsheetID).
			Fields("properties,sheets.properties").
			Context(ctx).
			Do()
		if err != nil {
			return nil, upstream("get spreadsheet", err)
		}
		return sp, nil
	})
	if err != nil {
		return ledger.SpreadsheetMetadata{}, err
	}

	var meta ledger.SpreadsheetMetadata
	if sp.Properties != nil {
		meta.Title = sp.Properties.Title
	}
	for _, sh := range sp.Sheets {
		if sh == nil || sh.Properties == nil {
			continue
		}
		p := sh.Properties
		info := ledger.SheetInfo{
			SheetID:   p.SheetId,
			Title:     p.Title,
			Index:     p.Index,
			SheetType: p.SheetType,
		}
		if p.GridProperties != nil {
			info.RowCount = p.GridProperties.RowCount
			info.ColumnCount = p.GridProperties.ColumnCount
		}
		meta.Sheets = append(meta.Sheets, info)
	}
	return meta, nil
}

func (s *Session) ReadValuesWithFormat(ctx context.Context, spreadsheetID, rng string) (ledger.FormattedGrid, error) {
	sp, err := retry.WithRetry(ctx, s.resilience.StoreRead, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		sp, err := s.service.Spreadsheets.Get(spreadsheetID).
			Ranges(rng).
			IncludeGridData(true).
			Fields(gridDataFields).
			Context(ctx).
			Do()
		if err != nil {
			return nil, upstream("get grid data", err)
		}
		return sp, nil
	})
	if err != nil {
		return ledger.FormattedGrid{}, err
	}
	return gridFromSpreadsheet(sp), nil
}

// upstream converts a client error into a ledger.UpstreamError carrying the
// HTTP status and raw body when the API answered.
func upstream(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return &ledger.UpstreamError{Op: op, Status: gerr.Code, Body: body, Err: err}
	}
	return &ledger.UpstreamError{Op: op, Err: err}
}

func toRows(values [][]interface{}) []ledger.Row {
	rows := make([]ledger.Row, len(values))
	for i, vr := range values {
		row := make(ledger.Row, len(vr))
		for j, v := range vr {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows
}

func fromRows(rows []ledger.Row) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = make([]interface{}, len(r))
		for j, v := range r {
			values[i][j] = v
		}
	}
	return values
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
