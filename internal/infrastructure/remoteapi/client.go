// Package remoteapi is the HTTP client for the storefront backend: catalog
// listings, catalog administration and account endpoints.
package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 4 << 10
	maxResponseBody = 32 << 20
)

// ErrUnauthorized is returned when the backend answers 401 or 403.
// Callers should treat the session as ended.
var ErrUnauthorized = errors.New("remote api: unauthorized")

// StatusError is a non-2xx response other than 401/403
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

// TokenSource supplies the bearer token sent with every request
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenSourceFunc adapts a function to TokenSource
type TokenSourceFunc func(ctx context.Context) string

// Token implements TokenSource
func (f TokenSourceFunc) Token(ctx context.Context) string { return f(ctx) }

// Record is one JSON object from the backend, kept field by field because the
// backend mixes Spanish and English keys.
type Record map[string]json.RawMessage

// Client talks to the storefront backend
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("remoteapi")
	return c, nil
}

// BaseURL returns the backend address
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string

	// auth endpoints answer 401 with a JSON body explaining why
	decodeErrors bool
}

// do sends the request and decodes a JSON response into out.
// r.path must already be escaped.
func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL.String()+r.path, r.body)
	if err != nil {
		return fmt.Errorf("%s: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token(ctx)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("op", r.op),
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", r.op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && !r.decodeErrors {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%s: %w", r.op, ErrUnauthorized)
		}
		return statusError(r.op, resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", r.op, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if !ok {
			return &StatusError{Op: r.op, Code: resp.StatusCode}
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if !ok {
			return &StatusError{Op: r.op, Code: resp.StatusCode, Body: truncate(string(data))}
		}
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
