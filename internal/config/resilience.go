package config

import (
	"time"

	"sheet_ledger/internal/retry"
)

// ResilienceConfig groups the retry policies used against the tabular store.
// Writes and sorts are not listed: they run once and report their outcome.
type ResilienceConfig struct {
	StoreRead retry.Config
	Metadata  retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	StoreRead: retry.Config{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
		Timeout:    15 * time.Second,
	},
	Metadata: retry.Config{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   4 * time.Second,
		Timeout:    10 * time.Second,
	},
}

// WithRetryable returns a copy of r whose policies only retry errors accepted by fn.
func (r ResilienceConfig) WithRetryable(fn func(error) bool) ResilienceConfig {
	r.StoreRead.Retryable = fn
	r.Metadata.Retryable = fn
	return r
}
