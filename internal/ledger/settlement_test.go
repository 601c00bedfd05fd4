package ledger

import (
	"context"
	"testing"

	"sheet_ledger/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := map[string]float64{
		"":           0,
		"1,234,500":  1234500,
		"₩150,000":   150000,
		"-3,000원":    -3000,
		"12.5":       12.5,
		"abc":        0,
		"1,000-2":    1000,
		"  42  ":     42,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseAmount(in), "input %q", in)
	}
}

func TestSettlementFormat(t *testing.T) {
	st, err := NewSettlement(config.Default().Settlement)
	require.NoError(t, err)
	assert.Equal(t, "1,234,500", st.Format(1234500))
	assert.Equal(t, "0", st.Format(0))
}

func TestNewSettlementRejectsBadLocale(t *testing.T) {
	cfg := config.Default().Settlement
	cfg.Locale = "not a locale!"
	_, err := NewSettlement(cfg)
	assert.Error(t, err)
}

func TestReadSettlement(t *testing.T) {
	store := newFakeStore()
	store.values["Ledger!AA22:AA23"] = ValueRange{Rows: []Row{{"₩150,000"}, {"-20,000"}}}
	svc := newTestService(t, nil)

	out, err := svc.ReadSettlement(context.Background(), store, "sheet-1", "Ledger")
	require.NoError(t, err)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, "서은 정산 금액", out.Entries[0].Label)
	assert.Equal(t, 150000.0, out.Entries[0].Amount)
	assert.Equal(t, "150,000", out.Entries[0].FormattedAmount)
	assert.Equal(t, "기순 정산 금액", out.Entries[1].Label)
	assert.Equal(t, -20000.0, out.Entries[1].Amount)
	assert.Equal(t, 130000.0, out.Total.Amount)
	assert.Equal(t, "130,000", out.Total.FormattedAmount)
	assert.True(t, out.Metadata.HasData)
}

func TestReadSettlementMissingCells(t *testing.T) {
	store := newFakeStore()
	store.values["Ledger!AA22:AA23"] = ValueRange{Rows: []Row{{"5000"}}}
	svc := newTestService(t, nil)

	out, err := svc.ReadSettlement(context.Background(), store, "sheet-1", "Ledger")
	require.NoError(t, err)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, 0.0, out.Entries[1].Amount)
	assert.Equal(t, 5000.0, out.Total.Amount)
}
