package api

import (
	"context"
	"net/http"

	"sheet_ledger/internal/ledger"
	"sheet_ledger/internal/lookup"

	"github.com/go-chi/chi/v5"
)

// DefaultValuesRange is read by GET /api/sheets/{id} when no range is given.
const DefaultValuesRange = "Sheet1!A1:Z1000"

// StoreOpener binds a Store to the caller's bearer token.
type StoreOpener func(ctx context.Context, token string) (ledger.Store, error)

type Handler struct {
	ledger  *ledger.Service
	lookups *lookup.Service
	open    StoreOpener
}

func NewHandler(svc *ledger.Service, lookups *lookup.Service, open StoreOpener) *Handler {
	return &Handler{ledger: svc, lookups: lookups, open: open}
}

// store opens a Store for the request, writing the error response itself on failure.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) (ledger.Store, bool) {
	st, err := h.open(r.Context(), tokenFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return st, true
}

func spreadsheetID(r *http.Request) string {
	return chi.URLParam(r, "spreadsheetId")
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type appendBody struct {
	SheetName string `json:"sheetName"`
	Values    []any  `json:"values"`
}

func (h *Handler) appendRow(w http.ResponseWriter, r *http.Request) {
	var body appendBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.SheetName == "" || body.Values == nil {
		writeError(w, r, badRequest("Missing required fields: sheetName and values array", nil))
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	res, err := h.ledger.Append(r.Context(), st, ledger.AppendRequest{
		SpreadsheetID: spreadsheetID(r),
		SheetName:     body.SheetName,
		Values:        toRow(body.Values),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("sheetName") == "" {
		writeError(w, r, badRequest("Missing required parameters: spreadsheetId and sheetName", nil))
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	out, err := h.ledger.ReadFormatted(r.Context(), st, ledger.ReadRequest{
		SpreadsheetID: spreadsheetID(r),
		SheetName:     q.Get("sheetName"),
		DataRange:     q.Get("range"),
		HeaderRange:   q.Get("headerRange"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getSettlement(w http.ResponseWriter, r *http.Request) {
	sheetName := r.URL.Query().Get("sheetName")
	if sheetName == "" {
		writeError(w, r, badRequest("Missing required parameters: spreadsheetId and sheetName", nil))
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	out, err := h.ledger.ReadSettlement(r.Context(), st, spreadsheetID(r), sheetName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getValues(w http.ResponseWriter, r *http.Request) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = DefaultValuesRange
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	vr, err := st.ReadValues(r.Context(), spreadsheetID(r), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	values := vr.Rows
	if values == nil {
		values = []ledger.Row{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"values":        values,
		"spreadsheetId": spreadsheetID(r),
		"range":         vr.Range,
	})
}

type updateBody struct {
	Range            string  `json:"range"`
	Values           [][]any `json:"values"`
	ValueInputOption string  `json:"valueInputOption"`
}

func (h *Handler) putValues(w http.ResponseWriter, r *http.Request) {
	var body updateBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	res, ok := h.write(w, r, body, ledger.WriteUserEntered)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updatedCells": res.UpdatedCells,
		"updatedRange": res.UpdatedRange,
	})
}

func (h *Handler) updateValues(w http.ResponseWriter, r *http.Request) {
	var body updateBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := ledger.ParseWriteMode(body.ValueInputOption, ledger.WriteRaw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, ok := h.write(w, r, body, mode)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"updatedRange":   res.UpdatedRange,
		"updatedCells":   res.UpdatedCells,
		"updatedColumns": res.UpdatedColumns,
		"updatedRows":    res.UpdatedRows,
		"metadata": map[string]string{
			"spreadsheetId":  spreadsheetID(r),
			"requestedRange": body.Range,
			"actualRange":    res.UpdatedRange,
		},
	})
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, body updateBody, mode ledger.WriteMode) (ledger.WriteResult, bool) {
	if body.Range == "" || body.Values == nil {
		writeError(w, r, badRequest("Missing required parameters: range and values", nil))
		return ledger.WriteResult{}, false
	}
	st, ok := h.store(w, r)
	if !ok {
		return ledger.WriteResult{}, false
	}
	res, err := st.WriteValues(r.Context(), spreadsheetID(r), body.Range, toRows(body.Values), mode)
	if err != nil {
		e := *ledger.Classify(err)
		if e.Kind == ledger.KindUpstreamUnavailable {
			e.Kind = ledger.KindWriteFailed
			e.Message = "Failed to update data in Google Sheets"
		}
		writeError(w, r, &e)
		return ledger.WriteResult{}, false
	}
	return res, true
}

type gridProperties struct {
	RowCount    int64 `json:"rowCount"`
	ColumnCount int64 `json:"columnCount"`
}

type sheetInfo struct {
	SheetID        int64          `json:"sheetId"`
	Title          string         `json:"title"`
	Index          int64          `json:"index"`
	SheetType      string         `json:"sheetType"`
	GridProperties gridProperties `json:"gridProperties"`
}

func (h *Handler) getInfo(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	meta, err := st.GetSheetMetadata(r.Context(), spreadsheetID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	sheets := make([]sheetInfo, 0, len(meta.Sheets))
	for _, s := range meta.Sheets {
		sheets = append(sheets, sheetInfo{
			SheetID:        s.SheetID,
			Title:          s.Title,
			Index:          s.Index,
			SheetType:      s.SheetType,
			GridProperties: gridProperties{RowCount: s.RowCount, ColumnCount: s.ColumnCount},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"spreadsheetTitle": meta.Title,
		"spreadsheetId":    spreadsheetID(r),
		"sheets":           sheets,
	})
}

// getAccounts and getPaymentMethods keep the response key "accounts" that
// existing clients read for both lists.
func (h *Handler) getAccounts(w http.ResponseWriter, r *http.Request) {
	h.legacyLookup(w, r, "accounts")
}

func (h *Handler) getPaymentMethods(w http.ResponseWriter, r *http.Request) {
	h.legacyLookup(w, r, "payment-methods")
}

func (h *Handler) legacyLookup(w http.ResponseWriter, r *http.Request, list string) {
	res, ok := h.fetchLookup(w, r, list)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": res.Values,
		"cached":   res.Cached,
	})
}

func (h *Handler) getLookup(w http.ResponseWriter, r *http.Request) {
	res, ok := h.fetchLookup(w, r, chi.URLParam(r, "list"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) fetchLookup(w http.ResponseWriter, r *http.Request, list string) (*lookup.Result, bool) {
	st, ok := h.store(w, r)
	if !ok {
		return nil, false
	}
	res, err := h.lookups.Fetch(r.Context(), st, spreadsheetID(r), list)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return res, true
}
