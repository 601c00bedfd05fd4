package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"sheet_ledger/internal/config"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 10 * time.Second

	circuitThreshold = 5
	circuitCooldown  = 30 * time.Second
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	// Circuit breaker state
	failures    int
	lastFailure time.Time
	circuitOpen bool
	mutex       sync.RWMutex
	// Metrics
	totalSent    int64
	totalFailed  int64
	totalRetries int64

	pending sync.WaitGroup
}

type Message struct {
	Title string
	Body  string
	Tags  []string
}

type NotificationError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout", "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

func NewClient(cfg config.NotificationsConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		topic:      cfg.Topic,
		enabled:    cfg.Enabled,
		priority:   cfg.Priority,
		maxRetries: cfg.MaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		return &NotificationError{
			Type:       "circuit_open",
			Underlying: errors.New("circuit breaker is open"),
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying notification after delay")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			c.incrementRetries()
		}

		err := c.sendOnce(ctx, msg, attempt+1)
		if err == nil {
			c.recordSuccess()
			return nil
		}
		lastErr = err

		var notifErr *NotificationError
		if errors.As(err, &notifErr) && !notifErr.IsRetryable() {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Msg("Non-retryable error, giving up")
			c.recordFailure()
			return err
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Notification attempt failed")
	}

	c.recordFailure()
	return &NotificationError{
		Type:       "max_retries_exceeded",
		Attempt:    c.maxRetries + 1,
		Underlying: lastErr,
	}
}

func (c *Client) sendOnce(ctx context.Context, msg Message, attempt int) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(msg.Body))
	if err != nil {
		return &NotificationError{Type: "client", Attempt: attempt, Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Attempt: attempt, Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Str("url", url).
		Int("status_code", resp.StatusCode).
		Int("attempt", attempt).
		Msg("Notification sent successfully")
	return nil
}

// SendAsync sends msg in the background. The send outlives ctx's cancellation
// so an alert raised at the end of a request still goes out.
func (c *Client) SendAsync(ctx context.Context, msg Message) {
	if !c.enabled {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := c.Send(ctx, msg); err != nil {
			log.Warn().Err(err).Msg("Async notification failed")
		}
	}()
}

// Wait blocks until every async send has finished.
func (c *Client) Wait() {
	c.pending.Wait()
}

func (c *Client) NotifyWindowFull(ctx context.Context, spreadsheetID, sheetName, window string) {
	c.SendAsync(ctx, Message{
		Title: "Ledger window full",
		Body:  fmt.Sprintf("No empty rows left in %s!%s (spreadsheet %s). New records are being rejected.", sheetName, window, spreadsheetID),
		Tags:  []string{"warning"},
	})
}

func (c *Client) NotifySortFailed(ctx context.Context, spreadsheetID, sheetName string, row int, err error) {
	c.SendAsync(ctx, Message{
		Title: "Ledger sort failed",
		Body:  fmt.Sprintf("Row %d was written to %s (spreadsheet %s) but the window was not re-sorted: %v", row, sheetName, spreadsheetID, err),
		Tags:  []string{"arrows_counterclockwise"},
	})
}

// Circuit breaker and retry helper methods

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.circuitOpen {
		return false
	}
	if time.Since(c.lastFailure) > circuitCooldown {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}
	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	c.failures = 0
	if c.circuitOpen {
		c.circuitOpen = false
		log.Info().Msg("Circuit breaker closed after successful notification")
	}
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()

	if c.failures >= circuitThreshold && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().
			Int("failures", c.failures).
			Msg("Circuit breaker opened due to consecutive failures")
	}
}

func (c *Client) incrementRetries() {
	c.mutex.Lock()
	c.totalRetries++
	c.mutex.Unlock()
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))

	// ±25% jitter
	jitter := rand.Float64()*0.5 - 0.25
	backoff = backoff * (1 + jitter)

	if maxBackoff := float64(c.maxDelay); backoff > maxBackoff {
		backoff = maxBackoff
	}
	return time.Duration(backoff)
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns the delivery totals since the client was created.
func (c *Client) GetMetrics() (sent, failed, retries int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.totalSent, c.totalFailed, c.totalRetries
}
