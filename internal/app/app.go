package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sheet_ledger/internal/api"
	"sheet_ledger/internal/config"
	"sheet_ledger/internal/ledger"
	"sheet_ledger/internal/lookup"
	"sheet_ledger/internal/notifications"
	"sheet_ledger/internal/sheets"

	"github.com/rs/zerolog/log"
)

// App wires the services together. It is built once per process.
type App struct {
	Config   config.Config
	Sheets   *sheets.Client
	Ledger   *ledger.Service
	Lookups  *lookup.Service
	Notifier *notifications.Client
}

func New(cfg config.Config) (*App, error) {
	log.Debug().Msg("Initializing services")

	window, err := ledger.NewWindow(cfg.Window)
	if err != nil {
		return nil, err
	}
	settlement, err := ledger.NewSettlement(cfg.Settlement)
	if err != nil {
		return nil, err
	}

	notifier := notifications.NewClient(cfg.Notifications)
	if cfg.Notifications.Enabled {
		log.Info().Str("topic", cfg.Notifications.Topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	a := &App{
		Config:   cfg,
		Sheets:   sheets.NewClient(cfg.SheetsEndpoint, cfg.RequestTimeout(), config.DefaultResilienceConfig),
		Ledger:   ledger.NewService(window, settlement, notifier),
		Lookups:  lookup.NewService(lookup.NewCache(cfg.LookupCacheMaxEntries), cfg.Lookups),
		Notifier: notifier,
	}

	log.Debug().
		Str("window", cfg.Window.DataRange).
		Strs("lookups", a.Lookups.Names()).
		Msg("Services initialized")
	return a, nil
}

func (a *App) Router() http.Handler {
	return api.NewRouter(api.NewHandler(a.Ledger, a.Lookups, a.Sheets.OpenStore), a.Config.RequestTimeout())
}

// Serve runs the HTTP server until ctx is done, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.Config.ListenAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 2 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Listening for HTTP")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.RequestTimeout())
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	a.Close()
	return err
}

// Close waits for pending notifications and logs the notifier totals.
func (a *App) Close() {
	a.Notifier.Wait()
	sent, failed, retries := a.Notifier.GetMetrics()
	log.Info().
		Int64("sent", sent).
		Int64("failed", failed).
		Int64("retries", retries).
		Msg("Notifications flushed")
}
