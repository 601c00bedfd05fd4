package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultListenAddr     = ":8080"
	DefaultRequestTimeout = 30

	// The append window. Row 26 holds the headers, rows 27-126 the ledger.
	DefaultWindowDataRange   = "Y27:AD126"
	DefaultWindowHeaderRange = "Y26:AD26"

	DefaultSettlementRange  = "AA22:AA23"
	DefaultSettlementLocale = "ko-KR"
)

type WindowConfig struct {
	DataRange   string `toml:"data_range"`
	HeaderRange string `toml:"header_range"`
	// KeyColumn is the offset of the key column inside the window.
	KeyColumn int `toml:"key_column"`
}

type LookupConfig struct {
	Name  string `toml:"name"`
	Range string `toml:"range"`
}

type SettlementConfig struct {
	Range  string   `toml:"range"`
	Labels []string `toml:"labels"`
	Locale string   `toml:"locale"`
}

type NotificationsConfig struct {
	Enabled    bool   `toml:"enabled"`
	URL        string `toml:"url"`
	Topic      string `toml:"topic"`
	Priority   string `toml:"priority"`
	MaxRetries int    `toml:"max_retries"`
}

type Config struct {
	ListenAddr            string              `toml:"listen_addr"`
	SheetsEndpoint        string              `toml:"sheets_endpoint"`
	RequestTimeoutSeconds int                 `toml:"request_timeout_seconds"`
	LookupCacheMaxEntries int                 `toml:"lookup_cache_max_entries"`
	Window                WindowConfig        `toml:"window"`
	Lookups               []LookupConfig      `toml:"lookups"`
	Settlement            SettlementConfig    `toml:"settlement"`
	Notifications         NotificationsConfig `toml:"notifications"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() Config {
	return Config{
		ListenAddr:            DefaultListenAddr,
		RequestTimeoutSeconds: DefaultRequestTimeout,
		LookupCacheMaxEntries: 1024,
		Window: WindowConfig{
			DataRange:   DefaultWindowDataRange,
			HeaderRange: DefaultWindowHeaderRange,
		},
		Lookups: []LookupConfig{
			{Name: "accounts", Range: "계정!D41:D59"},
			{Name: "payment-methods", Range: "계정!F4:F21"},
		},
		Settlement: SettlementConfig{
			Range:  DefaultSettlementRange,
			Labels: []string{"서은 정산 금액", "기순 정산 금액"},
			Locale: DefaultSettlementLocale,
		},
		Notifications: NotificationsConfig{
			URL:        "https://ntfy.sh",
			Topic:      "sheet-ledger",
			MaxRetries: 3,
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path skips the
// file; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	var file Config
	if err := toml.Unmarshal(b, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.merge(file)
	log.Debug().Str("path", path).Msg("Loaded config file")
	return cfg, cfg.Validate()
}

// merge copies every field set in file over c.
func (c *Config) merge(file Config) {
	if file.ListenAddr != "" {
		c.ListenAddr = file.ListenAddr
	}
	if file.SheetsEndpoint != "" {
		c.SheetsEndpoint = file.SheetsEndpoint
	}
	if file.RequestTimeoutSeconds != 0 {
		c.RequestTimeoutSeconds = file.RequestTimeoutSeconds
	}
	if file.LookupCacheMaxEntries != 0 {
		c.LookupCacheMaxEntries = file.LookupCacheMaxEntries
	}
	if file.Window.DataRange != "" {
		c.Window.DataRange = file.Window.DataRange
	}
	if file.Window.HeaderRange != "" {
		c.Window.HeaderRange = file.Window.HeaderRange
	}
	if file.Window.KeyColumn != 0 {
		c.Window.KeyColumn = file.Window.KeyColumn
	}
	if len(file.Lookups) > 0 {
		c.Lookups = file.Lookups
	}
	if file.Settlement.Range != "" {
		c.Settlement.Range = file.Settlement.Range
	}
	if len(file.Settlement.Labels) > 0 {
		c.Settlement.Labels = file.Settlement.Labels
	}
	if file.Settlement.Locale != "" {
		c.Settlement.Locale = file.Settlement.Locale
	}
	n := file.Notifications
	c.Notifications.Enabled = c.Notifications.Enabled || n.Enabled
	if n.URL != "" {
		c.Notifications.URL = n.URL
	}
	if n.Topic != "" {
		c.Notifications.Topic = n.Topic
	}
	if n.Priority != "" {
		c.Notifications.Priority = n.Priority
	}
	if n.MaxRetries != 0 {
		c.Notifications.MaxRetries = n.MaxRetries
	}
}

// ApplyEnv overlays environment variables onto cfg.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := getenv("SHEETS_ENDPOINT"); v != "" {
		c.SheetsEndpoint = v
	}
	if v := getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RequestTimeoutSeconds = n
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid REQUEST_TIMEOUT_SECONDS")
		}
	}
	if v := getenv("NTFY_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.EqualFold(v, "true")
	}
	if v := getenv("NTFY_URL"); v != "" {
		c.Notifications.URL = v
	}
	if v := getenv("NTFY_TOPIC"); v != "" {
		c.Notifications.Topic = v
	}
	if v := getenv("NTFY_PRIORITY"); v != "" {
		c.Notifications.Priority = v
	}
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.DataRange == "" || c.Window.HeaderRange == "" {
		errs = append(errs, errors.New("window data_range and header_range are required"))
	}
	if c.Window.KeyColumn < 0 {
		errs = append(errs, errors.New("window key_column must not be negative"))
	}
	if c.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("request_timeout_seconds must be positive"))
	}
	seen := map[string]bool{}
	for _, l := range c.Lookups {
		if l.Name == "" || l.Range == "" {
			errs = append(errs, fmt.Errorf("lookup %q needs a name and a range", l.Name))
		}
		if seen[l.Name] {
			errs = append(errs, fmt.Errorf("duplicate lookup %q", l.Name))
		}
		seen[l.Name] = true
	}
	return errors.Join(errs...)
}
