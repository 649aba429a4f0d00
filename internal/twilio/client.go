package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mattjoyce/twilio-gw/internal/log"
)

// DefaultBaseURL is the accounts root of the 2010-04-01 REST API.
const DefaultBaseURL = "https://api.twilio.com/2010-04-01/Accounts"

// DefaultTimeout bounds a single request when no *http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read for error details.
const maxErrorBody = 64 * 1024

// Client sends authenticated requests on behalf of one account.
// Identity is fixed at construction; a Client is safe for concurrent use.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different accounts root (tests, regional edges).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for accountSID authenticated with authToken.
func New(accountSID, authToken string, opts ...Option) *Client {
	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccountSID returns the account the client acts for.
func (c *Client) AccountSID() string { return c.accountSID }

// endpointURL builds <base-url>/<account-sid>/<endpoint>.json.
func (c *Client) endpointURL(endpoint string) string {
	return fmt.Sprintf("%s/%s/%s.json", c.baseURL, c.accountSID, endpoint)
}

// Send issues method against endpoint with params form-encoded in the body and
// decodes a 200/201 JSON response into T. It never retries.
func Send[T any](ctx context.Context, c *Client, method, endpoint string, params []Param) (T, error) {
	var zero T

	var body io.Reader
	if len(params) > 0 {
		body = strings.NewReader(EncodeParams(params))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(endpoint), body)
	if err != nil {
		return zero, &NetworkError{Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", formContentType)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, &TransmissionError{Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("twilio request",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return zero, newHTTPError(resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, &TransmissionError{Err: err}
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("%w: decode %s response: %v", ErrParsing, endpoint, err)
	}
	return out, nil
}
