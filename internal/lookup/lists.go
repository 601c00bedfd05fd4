package lookup

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"sheet_ledger/internal/config"
	"sheet_ledger/internal/ledger"

	"github.com/rs/zerolog/log"
)

var ErrUnknownList = errors.New("unknown lookup list")

// List is a named fixed range whose non-empty cells form a set of options.
type List struct {
	Name  string
	Range string
}

type Result struct {
	List   string   `json:"list"`
	Range  string   `json:"range"`
	Values []string `json:"values"`
	Cached bool     `json:"cached"`
}

type Service struct {
	cache *Cache
	lists map[string]List
	names []string
}

func NewService(cache *Cache, lists []config.LookupConfig) *Service {
	s := &Service{cache: cache, lists: make(map[string]List, len(lists))}
	for _, l := range lists {
		s.lists[l.Name] = List{Name: l.Name, Range: l.Range}
		s.names = append(s.names, l.Name)
	}
	return s
}

// Names lists the configured lookups in configuration order.
func (s *Service) Names() []string {
	return append([]string(nil), s.names...)
}

// Fetch returns the options of list for a spreadsheet, from cache when fresh.
func (s *Service) Fetch(ctx context.Context, store ledger.ValueReader, spreadsheetID, list string) (*Result, error) {
	l, ok := s.lists[list]
	if !ok {
		return nil, &ledger.Error{Kind: ledger.KindInvalidRequest, Status: http.StatusNotFound, Message: "unknown lookup list " + list, Err: ErrUnknownList}
	}

	key := Key{SpreadsheetID: spreadsheetID, List: l.Name}
	if values, ok := s.cache.Get(key); ok {
		log.Debug().Str("list", l.Name).Str("spreadsheet_id", spreadsheetID).Msg("Lookup cache hit")
		return &Result{List: l.Name, Range: l.Range, Values: values, Cached: true}, nil
	}

	vr, err := store.ReadValues(ctx, spreadsheetID, l.Range)
	if err != nil {
		log.Error().Err(err).Str("list", l.Name).Str("range", l.Range).Msg("Failed to fetch lookup list")
		e := *ledger.Classify(err)
		if e.Kind == ledger.KindUpstreamUnavailable {
			e.Message = "Failed to fetch " + l.Name
		}
		return nil, &e
	}

	values := flatten(vr.Rows)
	s.cache.Put(key, values)
	log.Debug().Str("list", l.Name).Int("values", len(values)).Msg("Lookup list fetched")
	return &Result{List: l.Name, Range: l.Range, Values: values, Cached: false}, nil
}

// flatten keeps every non-blank cell, trimmed, in row-major order.
func flatten(rows []ledger.Row) []string {
	values := []string{}
	for _, row := range rows {
		for _, cell := range row {
			if v := strings.TrimSpace(cell); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}
