package ledger

import (
	"context"
	"net/http"
	"strings"

	"sheet_ledger/internal/a1"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ReadRequest struct {
	SpreadsheetID string
	SheetName     string
	// DataRange and HeaderRange default to the append window when empty.
	DataRange   string
	HeaderRange string
}

type RangeMetadata struct {
	SpreadsheetID        string `json:"spreadsheetId"`
	SheetName            string `json:"sheetName"`
	RequestedDataRange   string `json:"requestedDataRange"`
	RequestedHeaderRange string `json:"requestedHeaderRange"`
	ActualRange          string `json:"actualRange"`
	HasData              bool   `json:"hasData"`
	HasHeaders           bool   `json:"hasHeaders"`
}

// FormattedRange is a header row plus the non-empty data rows under it, each
// cell paired with its colors. CellFormats[i] always describes Values[i].
type FormattedRange struct {
	Range         string         `json:"range"`
	Values        []Row          `json:"values"`
	Headers       []string       `json:"headers"`
	CellFormats   [][]CellFormat `json:"cellFormats"`
	HeaderFormats []CellFormat   `json:"headerFormats"`
	Metadata      RangeMetadata  `json:"metadata"`
}

// ReadFormatted reads the header and data ranges as one block, drops empty
// data rows and aligns formats with the rows that were kept. Formats are
// best-effort: when they cannot be fetched every cell gets an absent format.
func (s *Service) ReadFormatted(ctx context.Context, store Store, req ReadRequest) (*FormattedRange, error) {
	if req.SpreadsheetID == "" || strings.TrimSpace(req.SheetName) == "" {
		return nil, newError(KindInvalidRequest, http.StatusBadRequest, "Missing required parameters: spreadsheetId and sheetName", nil)
	}
	if req.DataRange == "" {
		req.DataRange = s.window.DataRange
	}
	if req.HeaderRange == "" {
		req.HeaderRange = s.window.HeaderRange
	}
	combined, err := a1.CombineRanges(req.HeaderRange, req.DataRange)
	if err != nil {
		return nil, newError(KindInvalidAddress, http.StatusBadRequest, "invalid range", err)
	}
	qualified := a1.Qualify(req.SheetName, combined)

	var (
		values     ValueRange
		grid       FormattedGrid
		formatsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		values, err = store.ReadValues(gctx, req.SpreadsheetID, qualified)
		return err
	})
	g.Go(func() error {
		grid, formatsErr = store.ReadValuesWithFormat(gctx, req.SpreadsheetID, qualified)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("range", qualified).Msg("Failed to read range")
		return nil, newError(KindUpstreamUnavailable, http.StatusBadGateway, "Failed to fetch data from Google Sheets", err)
	}
	if formatsErr != nil {
		log.Warn().Err(formatsErr).Str("range", qualified).Msg("Format fetch failed, returning values without colors")
		grid = FormattedGrid{}
	}

	out := assemble(values.Rows, grid.Formats)
	out.Range = qualified
	out.Metadata = RangeMetadata{
		SpreadsheetID:        req.SpreadsheetID,
		SheetName:            req.SheetName,
		RequestedDataRange:   req.DataRange,
		RequestedHeaderRange: req.HeaderRange,
		ActualRange:          values.Range,
		HasData:              len(out.Values) > 0,
	}
	if out.Metadata.ActualRange == "" {
		out.Metadata.ActualRange = qualified
	}
	for _, h := range out.Headers {
		if h != "" {
			out.Metadata.HasHeaders = true
			break
		}
	}

	log.Debug().
		Str("range", qualified).
		Int("rows", len(out.Values)).
		Int("format_rows", len(grid.Formats)).
		Msg("Read formatted range")
	return out, nil
}

// assemble splits rows into header and data, keeping only data rows that
// hold a value. The keep decision is made once per row and reused for formats.
func assemble(rows []Row, formats [][]CellFormat) *FormattedRange {
	out := &FormattedRange{
		Values:      []Row{},
		Headers:     []string{},
		CellFormats: [][]CellFormat{},
	}

	var header Row
	var data []Row
	if len(rows) > 0 {
		header, data = rows[0], rows[1:]
	}
	for _, h := range header {
		out.Headers = append(out.Headers, strings.TrimSpace(h))
	}
	out.HeaderFormats = formatRow(formats, 0, len(out.Headers))

	kept := make([]bool, len(data))
	for i, row := range data {
		kept[i] = row.HasData()
	}

	for i, row := range data {
		if !kept[i] {
			continue
		}
		out.Values = append(out.Values, row)
		out.CellFormats = append(out.CellFormats, formatRow(formats, i+1, len(row)))
	}
	return out
}

// formatRow returns the formats for grid row i, padded with absent formats to width.
func formatRow(formats [][]CellFormat, i, width int) []CellFormat {
	var row []CellFormat
	if i < len(formats) {
		row = formats[i]
	}
	if row != nil && len(row) >= width {
		return row
	}
	padded := make([]CellFormat, width)
	copy(padded, row)
	return padded
}
