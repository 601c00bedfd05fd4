package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"sheet_ledger/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in         string
		production bool
		want       zerolog.Level
		known      bool
	}{
		{"debug", false, zerolog.DebugLevel, true},
		{"warning", false, zerolog.WarnLevel, true},
		{"", true, zerolog.WarnLevel, true},
		{"", false, zerolog.InfoLevel, true},
		{"verbose", false, zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, known := parseLevel(tt.in, tt.production)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.known, known, tt.in)
	}
}

func TestLoadConfigAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.toml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr = \":9000\"\n"), 0o644))
	t.Setenv("LEDGER_CONFIG", path)
	t.Setenv("NTFY_TOPIC", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "from-env", cfg.Notifications.Topic)
}

func TestNewRejectsBadWindow(t *testing.T) {
	cfg := config.Default()
	cfg.Window.DataRange = "Y27"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRouterServesHealth(t *testing.T) {
	a, err := New(config.Default())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sheets/s1/info", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCloseLogsNotificationTotals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.Enabled = true
	cfg.Notifications.URL = srv.URL
	a, err := New(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = orig }()

	a.Notifier.NotifyWindowFull(context.Background(), "s1", "Ledger", "Y27:AD126")
	a.Close()

	assert.Contains(t, buf.String(), `"sent":1`)
	assert.Contains(t, buf.String(), `"failed":0`)
	assert.Contains(t, buf.String(), "Notifications flushed")
}
