package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer token at call time and is told when the
// backend rejects it. Expire reports whether the session actually changed,
// so repeated 401s invalidate and navigate only once.
type TokenSource interface {
	Token() string
	Expire() bool
}

// Client dispatches requests to the backend REST API.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func()
	logger         *slog.Logger
	timeout        time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The client passed in is
// never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Zero keeps the http.Client's own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler sets the callback run once when a 401 ends the session.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https: %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	public bool // no token, and a 401 means bad credentials rather than expiry
}

// do sends the request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, r request, out any) (http.Header, error) {
	u := *c.baseURL
	u.Path = u.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch b := r.body.(type) {
	case nil:
	case url.Values:
		body = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !r.public && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", r.method, "path", r.path,
		"status", resp.StatusCode, "duration", time.Since(start).Round(time.Millisecond), "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := readError(resp, r.method, r.path)
		apiErr.authenticated = !r.public
		if resp.StatusCode == http.StatusUnauthorized && !r.public {
			c.unauthorized()
		}
		return resp.Header, apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, fmt.Errorf("decoding %s %s response: %w", r.method, r.path, err)
	}
	return resp.Header, nil
}

// unauthorized ends the session once, however many requests get rejected.
func (c *Client) unauthorized() {
	if c.tokens == nil || !c.tokens.Expire() {
		return
	}
	c.logger.Warn("session rejected by backend, logging out")
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
