// Package api is a typed HTTP client for the Flow Finance REST API.
//
// Every call carries the bearer token supplied by a TokenSource at request
// time, so a login or logout elsewhere is observed by the next request.
// Non-2xx responses are returned as *Error values that match one of the
// package's sentinel categories. The client never retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowfinance/internal/log"
)

// TokenSource yields the current credential token, or "" when there is none.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAPI) }
}

// New creates a client for the API rooted at baseURL. tokens may be nil for
// unauthenticated use; it can also be attached later with SetTokenSource.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentAPI),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource attaches the source of bearer tokens. It must be called
// before the client is shared between goroutines.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	accept      string
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path, accept: "application/json"}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return req, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.body = bytes.NewReader(b)
		req.contentType = "application/json"
	}
	return req, nil
}

// do sends req and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrTransport, req.method, req.path, err)
	}
	return nil
}

// send performs the round trip and converts non-2xx responses to *Error.
// On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", req.method, req.path, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed",
			log.NewFields().
				WithRequestID(requestID).
				WithHTTP(req.method, req.path, 0, duration).
				WithError(err).ToSlice()...)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.method, req.path, err)
	}

	fields := log.NewFields().WithRequestID(requestID).WithHTTP(req.method, req.path, resp.StatusCode, duration)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.DebugContext(ctx, "API request completed", fields.ToSlice()...)
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Method:     req.method,
		Path:       req.path,
		Detail:     readDetail(resp.Body),
		kind:       kindForStatus(resp.StatusCode),
	}
	fields[log.FieldErrorType] = Kind(apiErr)
	c.logger.WarnContext(ctx, "API request rejected", fields.WithError(apiErr).ToSlice()...)
	return nil, apiErr
}

// readDetail extracts the server's "detail" message. Structured details
// (validation error lists) are kept as raw JSON.
func readDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(body) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var msg string
	if err := json.Unmarshal(envelope.Detail, &msg); err == nil {
		return msg
	}
	return string(envelope.Detail)
}
