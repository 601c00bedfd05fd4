package ledger

import (
	"context"
)

// Notifier receives operational alerts from the engine. Implementations must
// not block the caller for long.
type Notifier interface {
	NotifyWindowFull(ctx context.Context, spreadsheetID, sheetName, window string)
	NotifySortFailed(ctx context.Context, spreadsheetID, sheetName string, row int, err error)
}

type nopNotifier struct{}

func (nopNotifier) NotifyWindowFull(context.Context, string, string, string) {}
func (nopNotifier) NotifySortFailed(context.Context, string, string, int, error) {}

// Service runs the ledger operations against a caller-supplied Store. It holds
// no credentials; the only state it owns is the per-window lock table.
type Service struct {
	window     Window
	settlement Settlement
	notifier   Notifier
	locks      *keyedLocks
}

func NewService(window Window, settlement Settlement, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		window:     window,
		settlement: settlement,
		notifier:   notifier,
		locks:      newKeyedLocks(),
	}
}

func (s *Service) Window() Window {
	return s.window
}
