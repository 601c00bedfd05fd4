package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"sheet_ledger/internal/ledger"

	"github.com/rs/zerolog/hlog"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := ledger.Classify(err)
	status := e.Status
	if status == 0 {
		status = statusFor(e.Kind)
	}

	logger := hlog.FromRequest(r)
	if status >= 500 {
		logger.Error().Err(err).Str("kind", string(e.Kind)).Int("status", status).Msg("Request failed")
	} else {
		logger.Warn().Err(err).Str("kind", string(e.Kind)).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, errorBody{Error: e.Message, Details: e.Details})
}

func statusFor(kind ledger.Kind) int {
	switch kind {
	case ledger.KindAuthRequired:
		return http.StatusUnauthorized
	case ledger.KindInvalidAddress, ledger.KindInvalidRequest, ledger.KindWindowFull:
		return http.StatusBadRequest
	case ledger.KindSheetNotFound:
		return http.StatusNotFound
	case ledger.KindWriteFailed, ledger.KindSortFailed, ledger.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(message string, err error) error {
	e := &ledger.Error{Kind: ledger.KindInvalidRequest, Status: http.StatusBadRequest, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body", err)
	}
	return nil
}

// cellText renders a JSON cell value the way it would be typed into a sheet.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func toRow(cells []any) ledger.Row {
	row := make(ledger.Row, len(cells))
	for i, c := range cells {
		row[i] = cellText(c)
	}
	return row
}

func toRows(values [][]any) []ledger.Row {
	rows := make([]ledger.Row, len(values))
	for i, v := range values {
		rows[i] = toRow(v)
	}
	return rows
}
