package a1

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidAddress is returned for malformed A1 notation.
var ErrInvalidAddress = errors.New("invalid address")

// excelMaxColumns is the widest sheet excelize converts (XFD).
const excelMaxColumns = 16384

var endpointPattern = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// GridRange is the zero-based form of an A1 range. Start bounds are inclusive,
// end bounds exclusive.
type GridRange struct {
	SheetID  int64
	StartRow int
	EndRow   int
	StartCol int
	EndCol   int
}

// Rows returns the number of rows covered by the range.
func (g GridRange) Rows() int {
	return g.EndRow - g.StartRow
}

// Cols returns the number of columns covered by the range.
func (g GridRange) Cols() int {
	return g.EndCol - g.StartCol
}

// Endpoint is one corner of an A1 range, e.g. Y27.
type Endpoint struct {
	Column string
	Row    int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s%d", e.Column, e.Row)
}

// ColumnLetterToIndex converts column letters to a zero-based index (A=0, Z=25, AA=26).
func ColumnLetterToIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("%w: empty column", ErrInvalidAddress)
	}
	for _, r := range letters {
		if !isLetter(r) {
			return 0, fmt.Errorf("%w: column %q", ErrInvalidAddress, letters)
		}
	}
	if len(letters) <= 3 {
		if n, err := excelize.ColumnNameToNumber(letters); err == nil {
			return n - 1, nil
		}
	}
	// Past excelize's limit (XFD); Sheets allows wider grids.
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if n > (math.MaxInt-26)/26 {
			return 0, fmt.Errorf("%w: column %q out of range", ErrInvalidAddress, letters)
		}
		n = n*26 + int(r-'A') + 1
	}
	return n - 1, nil
}

// ColumnIndexToLetter converts a zero-based column index back to letters.
func ColumnIndexToLetter(index int) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("%w: column index %d", ErrInvalidAddress, index)
	}
	if index < excelMaxColumns {
		return excelize.ColumnNumberToName(index + 1)
	}
	var buf []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		buf = append(buf, byte('A'+(n-1)%26))
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// SplitEndpoint parses a single cell reference such as Y27 or $Y$27.
func SplitEndpoint(ref string) (Endpoint, error) {
	m := endpointPattern.FindStringSubmatch(strings.ReplaceAll(strings.TrimSpace(ref), "$", ""))
	if m == nil {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidAddress, ref)
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || row < 1 {
		return Endpoint{}, fmt.Errorf("%w: row in %q", ErrInvalidAddress, ref)
	}
	return Endpoint{Column: strings.ToUpper(m[1]), Row: row}, nil
}

// SplitRange returns both endpoints of a start:end range.
func SplitRange(rng string) (Endpoint, Endpoint, error) {
	parts := strings.Split(rng, ":")
	if len(parts) != 2 {
		return Endpoint{}, Endpoint{}, fmt.Errorf("%w: %q is not a start:end range", ErrInvalidAddress, rng)
	}
	start, err := SplitEndpoint(parts[0])
	if err != nil {
		return Endpoint{}, Endpoint{}, err
	}
	end, err := SplitEndpoint(parts[1])
	if err != nil {
		return Endpoint{}, Endpoint{}, err
	}
	return start, end, nil
}

// ParseRange converts notation like Y27:AD126 into a GridRange on the given sheet.
// The end row is kept as the literal 1-based row, which makes it the exclusive
// zero-based bound.
func ParseRange(rng string, sheetID int64) (GridRange, error) {
	start, end, err := SplitRange(rng)
	if err != nil {
		return GridRange{}, err
	}
	startCol, err := ColumnLetterToIndex(start.Column)
	if err != nil {
		return GridRange{}, err
	}
	endCol, err := ColumnLetterToIndex(end.Column)
	if err != nil {
		return GridRange{}, err
	}

	g := GridRange{
		SheetID:  sheetID,
		StartRow: start.Row - 1,
		EndRow:   end.Row,
		StartCol: startCol,
		EndCol:   endCol + 1,
	}
	if g.StartRow >= g.EndRow || g.StartCol >= g.EndCol {
		return GridRange{}, fmt.Errorf("%w: %q is empty or reversed", ErrInvalidAddress, rng)
	}
	return g, nil
}

// CombineRanges spans from the start of header to the end of data,
// e.g. Y26:AD26 + Y27:AD126 -> Y26:AD126.
func CombineRanges(header, data string) (string, error) {
	hStart, _, err := SplitRange(header)
	if err != nil {
		return "", err
	}
	_, dEnd, err := SplitRange(data)
	if err != nil {
		return "", err
	}
	return hStart.String() + ":" + dEnd.String(), nil
}

// RowRange addresses a single row between two columns, e.g. Y32:AD32.
func RowRange(startCol, endCol string, row int) string {
	return fmt.Sprintf("%s%d:%s%d", startCol, row, endCol, row)
}

// Qualify prefixes a range with its sheet name, quoting the name when needed.
func Qualify(sheetName, rng string) string {
	if needsQuoting(sheetName) {
		sheetName = "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
	}
	return sheetName + "!" + rng
}

func needsQuoting(name string) bool {
	for _, r := range name {
		if r == '_' || r >= '0' && r <= '9' || isLetter(r) || r > 127 {
			continue
		}
		return true
	}
	return false
}

func isLetter(r rune) bool {
	return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
}
