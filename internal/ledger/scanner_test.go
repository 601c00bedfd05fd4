package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFirstEmptyRow(t *testing.T) {
	tests := []struct {
		name  string
		rows  []Row
		size  int
		want  int
		found bool
	}{
		{"no rows", nil, 100, 0, true},
		{"five filled rows", filledRows(5), 100, 5, true},
		{"gap in the middle", append(filledRows(3), Row{}, Row{"2024-02-01"}), 100, 3, true},
		{"whitespace key", append(filledRows(2), Row{"  ", "memo"}), 100, 2, true},
		{"key missing but other cells set", []Row{{"", "memo", "100"}}, 100, 0, true},
		{"full window", filledRows(100), 100, 0, false},
		{"rows beyond window ignored", append(filledRows(4), Row{}), 4, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindFirstEmptyRow(tt.rows, tt.size, 0)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindFirstEmptyRowKeyColumn(t *testing.T) {
	rows := []Row{{"a", "x"}, {"b", ""}, {"c", "z"}}
	got, ok := FindFirstEmptyRow(rows, 10, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}
