// Package marketdata provides HTTP and WebSocket clients for public token market data:
// DexScreener pairs and token profiles, pump.fun coins and the PumpPortal new-token feed.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"solana-paper-sniper/internal/observability"
)

// DefaultTimeout bounds every outbound request unless overridden.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a non-200 body is quoted in errors.
const maxErrorBody = 256

var (
	// ErrNotFound is returned when the source has no data for the token.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = errors.New("rate limited (429)")
)

// baseClient holds the transport shared by the REST clients.
type baseClient struct {
	baseURL string
	client  *http.Client
	source  string // metrics label
}

// ClientOption configures a REST client.
type ClientOption func(*baseClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *baseClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *baseClient) {
		c.client = client
	}
}

func newBaseClient(baseURL, source string, opts []ClientOption) baseClient {
	c := baseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		source:  source,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// getJSON performs a single GET and decodes the JSON body into out.
// No retries: callers run on a ticker and simply try again next cycle.
func (c *baseClient) getJSON(ctx context.Context, path string, out any) error {
	start := time.Now()
	defer func() {
		observability.RecordMarketDataLatency(c.source, time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.source, err)
	}
	return nil
}
