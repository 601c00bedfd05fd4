package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sheet_ledger/internal/a1"
	"sheet_ledger/internal/config"
	"sheet_ledger/internal/ledger"
	"sheet_ledger/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal stand-in for the Sheets v4 REST API.
type fakeAPI struct {
	mu       sync.Mutex
	calls    int
	failWith int
	lastBody map[string]any
	lastReq  *http.Request
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	f.lastReq = r
	failWith := f.failWith
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		f.lastBody = nil
		_ = json.Unmarshal(b, &f.lastBody)
	}
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer tok-123" {
		writeAPIError(w, http.StatusUnauthorized, "missing credentials")
		return
	}
	if failWith != 0 {
		writeAPIError(w, failWith, "injected failure")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasPrefix(path, "sheet-1/values/") && r.Method == http.MethodGet:
		rng := strings.TrimPrefix(path, "sheet-1/values/")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":  rng,
			"values": [][]any{{"2024-01-01", "coffee", 4500}, {}, {"2024-01-02", true}},
		})
	case strings.HasPrefix(path, "sheet-1/values/") && r.Method == http.MethodPut:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updatedRange": strings.TrimPrefix(path, "sheet-1/values/"),
			"updatedRows":  1,
			"updatedCells": 3,
		})
	case path == "sheet-1:batchUpdate":
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	case path == "sheet-1" && r.URL.Query().Get("includeGridData") == "true":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{map[string]any{
				"data": []any{map[string]any{
					"rowData": []any{
						map[string]any{"values": []any{map[string]any{
							"formattedValue": "Date",
							"effectiveFormat": map[string]any{
								"textFormat": map[string]any{"foregroundColor": map[string]any{"red": 1}},
							},
						}}},
					},
				}},
			}},
		})
	case path == "sheet-1":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"properties": map[string]any{"title": "Household"},
			"sheets": []any{
				map[string]any{"properties": map[string]any{"sheetId": 0, "title": "Summary", "index": 0, "sheetType": "GRID"}},
				map[string]any{"properties": map[string]any{
					"sheetId": 1234, "title": "가계부", "index": 1, "sheetType": "GRID",
					"gridProperties": map[string]any{"rowCount": 1000, "columnCount": 30},
				}},
			},
		})
	default:
		writeAPIError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	}
}

func (f *fakeAPI) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = status
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAPI) last() (*http.Request, map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq, f.lastBody
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": msg},
	})
}

func testResilience() config.ResilienceConfig {
	fast := retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return config.ResilienceConfig{StoreRead: fast, Metadata: fast}
}

func newTestSession(t *testing.T) (*Session, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL+"/", 5*time.Second, testResilience())
	s, err := client.Session(context.Background(), "tok-123")
	require.NoError(t, err)
	return s, api
}

func TestSessionRequiresToken(t *testing.T) {
	client := NewClient("http://127.0.0.1:1/", time.Second, testResilience())
	_, err := client.Session(context.Background(), "  ")
	assert.ErrorIs(t, err, ledger.ErrAuthRequired)
}

func TestReadValues(t *testing.T) {
	s, api := newTestSession(t)

	vr, err := s.ReadValues(context.Background(), "sheet-1", "가계부!Y27:AD126")
	require.NoError(t, err)
	assert.Equal(t, "가계부!Y27:AD126", vr.Range)
	assert.Equal(t, []ledger.Row{{"2024-01-01", "coffee", "4500"}, {}, {"2024-01-02", "true"}}, vr.Rows)
	assert.Equal(t, 1, api.callCount())
}

func TestWriteValues(t *testing.T) {
	s, api := newTestSession(t)

	res, err := s.WriteValues(context.Background(), "sheet-1", "Ledger!Y32:AD32",
		[]ledger.Row{{"2024-03-01", "rent", "500000"}}, ledger.WriteUserEntered)
	require.NoError(t, err)
	assert.Equal(t, "Ledger!Y32:AD32", res.UpdatedRange)
	assert.Equal(t, int64(1), res.UpdatedRows)

	req, body := api.last()
	assert.Equal(t, "USER_ENTERED", req.URL.Query().Get("valueInputOption"))
	assert.Equal(t, []any{[]any{"2024-03-01", "rent", "500000"}}, body["values"])
}

func TestSortRangeSendsZeroIndices(t *testing.T) {
	s, api := newTestSession(t)

	err := s.SortRange(context.Background(), "sheet-1", a1.GridRange{SheetID: 0, StartRow: 0, EndRow: 100, StartCol: 0, EndCol: 6}, 0, true)
	require.NoError(t, err)

	_, body := api.last()
	requests := body["requests"].([]any)
	require.Len(t, requests, 1)
	sort := requests[0].(map[string]any)["sortRange"].(map[string]any)
	rng := sort["range"].(map[string]any)
	assert.Equal(t, float64(0), rng["sheetId"])
	assert.Equal(t, float64(0), rng["startRowIndex"])
	assert.Equal(t, float64(100), rng["endRowIndex"])
	assert.Equal(t, float64(0), rng["startColumnIndex"])
	assert.Equal(t, float64(6), rng["endColumnIndex"])

	spec := sort["sortSpecs"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(0), spec["dimensionIndex"])
	assert.Equal(t, "ASCENDING", spec["sortOrder"])
}

func TestGetSheetMetadata(t *testing.T) {
	s, api := newTestSession(t)

	meta, err := s.GetSheetMetadata(context.Background(), "sheet-1")
	require.NoError(t, err)
	req, _ := api.last()
	assert.Equal(t, "properties,sheets.properties", req.URL.Query().Get("fields"))
	assert.Equal(t, "Household", meta.Title)

	sheet, ok := meta.SheetByTitle("가계부")
	require.True(t, ok)
	assert.Equal(t, ledger.SheetInfo{SheetID: 1234, Title: "가계부", Index: 1, SheetType: "GRID", RowCount: 1000, ColumnCount: 30}, sheet)
}

func TestReadValuesWithFormat(t *testing.T) {
	s, api := newTestSession(t)

	grid, err := s.ReadValuesWithFormat(context.Background(), "sheet-1", "Ledger!Y26:AD126")
	require.NoError(t, err)
	req, _ := api.last()
	assert.Equal(t, "Ledger!Y26:AD126", req.URL.Query().Get("ranges"))
	assert.Equal(t, "true", req.URL.Query().Get("includeGridData"))
	assert.NotContains(t, req.URL.Query().Get("fields"), "formattedValue")
	require.Len(t, grid.Formats, 1)
	require.NotNil(t, grid.Formats[0][0].TextColor)
	assert.Equal(t, "#ff0000", *grid.Formats[0][0].TextColor)
	assert.Nil(t, grid.Formats[0][0].BackgroundColor)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	s, api := newTestSession(t)
	api.fail(http.StatusForbidden)

	_, err := s.ReadValues(context.Background(), "sheet-1", "Ledger!A1:A1")
	require.Error(t, err)

	var up *ledger.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusForbidden, up.Status)
	assert.Contains(t, up.Body, "injected failure")
	assert.Equal(t, 1, api.callCount())
}

func TestServerErrorsAreRetried(t *testing.T) {
	s, api := newTestSession(t)
	api.fail(http.StatusServiceUnavailable)

	_, err := s.GetSheetMetadata(context.Background(), "sheet-1")
	require.Error(t, err)
	assert.True(t, ledger.IsTransient(err))
	assert.Equal(t, 3, api.callCount())
}

func TestWritesAreNotRetried(t *testing.T) {
	s, api := newTestSession(t)
	api.fail(http.StatusServiceUnavailable)

	_, err := s.WriteValues(context.Background(), "sheet-1", "Ledger!Y27:AD27", []ledger.Row{{"x"}}, ledger.WriteRaw)
	require.Error(t, err)
	assert.Equal(t, 1, api.callCount())
	assert.Equal(t, ledger.KindUpstreamUnavailable, ledger.KindOf(err))
}
