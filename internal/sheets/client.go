package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sheet_ledger/internal/config"
	"sheet_ledger/internal/ledger"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client creates per-caller Sessions against the Sheets v4 API. It holds no
// credentials of its own: every Session is bound to the bearer token of the
// request that opened it.
type Client struct {
	endpoint   string
	timeout    time.Duration
	transport  http.RoundTripper
	resilience config.ResilienceConfig
}

// NewClient returns a Client. An empty endpoint uses the public API.
func NewClient(endpoint string, timeout time.Duration, resilience config.ResilienceConfig) *Client {
	return &Client{
		endpoint:   endpoint,
		timeout:    timeout,
		transport:  http.DefaultTransport,
		resilience: resilience.WithRetryable(ledger.IsTransient),
	}
}

// Session opens a Store that authenticates every call with token.
func (c *Client) Session(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ledger.ErrAuthRequired
	}

	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	log.Debug().Str("endpoint", c.endpoint).Msg("Opened sheets session")

	return &Session{
		service:    service,
		resilience: c.resilience,
	}, nil
}

// OpenStore adapts Session to callers that only need a ledger.Store.
func (c *Client) OpenStore(ctx context.Context, token string) (ledger.Store, error) {
	s, err := c.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	return s, nil
}
