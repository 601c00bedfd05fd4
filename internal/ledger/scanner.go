package ledger

// FindFirstEmptyRow returns the index of the first row in 0..windowSize-1
// whose key cell is absent or blank. Rows past the end of rows count as
// empty. The second result is false when every row in the window is occupied.
func FindFirstEmptyRow(rows []Row, windowSize, keyColumn int) (int, bool) {
	for i := 0; i < windowSize; i++ {
		if i >= len(rows) || rows[i].IsEmptyAt(keyColumn) {
			return i, true
		}
	}
	return 0, false
}
