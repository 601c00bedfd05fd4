package sheets

import (
	"fmt"
	"math"

	"sheet_ledger/internal/ledger"

	"google.golang.org/api/sheets/v4"
)

// colorHex renders c as #rrggbb. Missing colors and pure black, the API's
// default text color, are reported as absent.
func colorHex(c *sheets.Color) *string {
	if c == nil {
		return nil
	}
	r, g, b := channel(c.Red), channel(c.Green), channel(c.Blue)
	if r == 0 && g == 0 && b == 0 {
		return nil
	}
	hex := fmt.Sprintf("#%02x%02x%02x", r, g, b)
	return &hex
}

func channel(v float64) int {
	n := int(math.Round(v * 255))
	return max(0, min(255, n))
}

func cellFormat(cell *sheets.CellData) ledger.CellFormat {
	var f ledger.CellFormat
	if cell == nil || cell.EffectiveFormat == nil {
		return f
	}
	if tf := cell.EffectiveFormat.TextFormat; tf != nil {
		f.TextColor = colorHex(tf.ForegroundColor)
	}
	f.BackgroundColor = colorHex(cell.EffectiveFormat.BackgroundColor)
	return f
}

// gridFromSpreadsheet flattens the first grid of the first sheet into rows of
// cell formats. Rows without cells stay as empty rows so the
// result lines up with the requested range.
func gridFromSpreadsheet(sp *sheets.Spreadsheet) ledger.FormattedGrid {
	var grid ledger.FormattedGrid
	if sp == nil || len(sp.Sheets) == 0 || sp.Sheets[0] == nil || len(sp.Sheets[0].Data) == 0 || sp.Sheets[0].Data[0] == nil {
		return grid
	}
	for _, rd := range sp.Sheets[0].Data[0].RowData {
		var formats []ledger.CellFormat
		if rd != nil {
			for _, cell := range rd.Values {
				formats = append(formats, cellFormat(cell))
			}
		}
		grid.Formats = append(grid.Formats, formats)
	}
	return grid
}
