package ledger

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"sheet_ledger/internal/a1"
	"sheet_ledger/internal/config"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	nonAmountChars = regexp.MustCompile(`[^\d.-]`)
	amountPrefix   = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)
)

// Settlement describes a single-column block of amounts and how to label
// and render them.
type Settlement struct {
	Range  string
	Labels []string
	rows   int
	tag    language.Tag
}

func NewSettlement(cfg config.SettlementConfig) (Settlement, error) {
	grid, err := a1.ParseRange(cfg.Range, 0)
	if err != nil {
		return Settlement{}, fmt.Errorf("settlement range: %w", err)
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return Settlement{}, fmt.Errorf("settlement locale %q: %w", cfg.Locale, err)
	}
	return Settlement{Range: cfg.Range, Labels: cfg.Labels, rows: grid.Rows(), tag: tag}, nil
}

type SettlementEntry struct {
	Label           string  `json:"label"`
	Raw             string  `json:"raw"`
	Amount          float64 `json:"amount"`
	FormattedAmount string  `json:"formattedAmount"`
}

type SettlementTotal struct {
	Amount          float64 `json:"amount"`
	FormattedAmount string  `json:"formattedAmount"`
}

type SettlementMetadata struct {
	SpreadsheetID string `json:"spreadsheetId"`
	SheetName     string `json:"sheetName"`
	ActualRange   string `json:"actualRange"`
	HasData       bool   `json:"hasData"`
}

type SettlementSummary struct {
	Range    string             `json:"range"`
	Entries  []SettlementEntry  `json:"entries"`
	Total    SettlementTotal    `json:"total"`
	Metadata SettlementMetadata `json:"metadata"`
}

// ParseAmount reads a display-formatted amount such as "₩1,234,500" or
// "-3,000원". Anything that does not yield a number is 0.
func ParseAmount(s string) float64 {
	m := amountPrefix.FindString(nonAmountChars.ReplaceAllString(s, ""))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// Format renders v with the locale's digit grouping.
func (st Settlement) Format(v float64) string {
	return message.NewPrinter(st.tag).Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

func (st Settlement) label(i int) string {
	if i < len(st.Labels) && st.Labels[i] != "" {
		return st.Labels[i]
	}
	return fmt.Sprintf("Amount %d", i+1)
}

// ReadSettlement reads the settlement block of a sheet and totals it.
func (s *Service) ReadSettlement(ctx context.Context, store ValueReader, spreadsheetID, sheetName string) (*SettlementSummary, error) {
	if spreadsheetID == "" || sheetName == "" {
		return nil, newError(KindInvalidRequest, http.StatusBadRequest, "Missing required parameters: spreadsheetId and sheetName", nil)
	}
	st := s.settlement
	rng := a1.Qualify(sheetName, st.Range)
	vr, err := store.ReadValues(ctx, spreadsheetID, rng)
	if err != nil {
		log.Error().Err(err).Str("range", rng).Msg("Failed to read settlement range")
		return nil, newError(KindUpstreamUnavailable, http.StatusBadGateway, "Failed to fetch settlement data from Google Sheets", err)
	}

	out := &SettlementSummary{
		Range:   rng,
		Entries: make([]SettlementEntry, 0, st.rows),
		Metadata: SettlementMetadata{
			SpreadsheetID: spreadsheetID,
			SheetName:     sheetName,
			ActualRange:   vr.Range,
			HasData:       len(vr.Rows) > 0,
		},
	}
	if out.Metadata.ActualRange == "" {
		out.Metadata.ActualRange = rng
	}

	var total float64
	for i := 0; i < st.rows; i++ {
		var raw string
		if i < len(vr.Rows) {
			raw = vr.Rows[i].Cell(0)
		}
		amount := ParseAmount(raw)
		total += amount
		out.Entries = append(out.Entries, SettlementEntry{
			Label:           st.label(i),
			Raw:             raw,
			Amount:          amount,
			FormattedAmount: st.Format(amount),
		})
	}
	out.Total = SettlementTotal{Amount: total, FormattedAmount: st.Format(total)}
	return out, nil
}
