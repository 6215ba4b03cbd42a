package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20

// TokenSource supplies the current bearer token. ok is false when no
// session is held.
type TokenSource interface {
	Token() (token string, ok bool)
}

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	// CacheDir enables an on-disk HTTP cache for unauthenticated GETs.
	// Empty keeps the cache in memory.
	CacheDir string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8000",
		Timeout:   30 * time.Second,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces both the authorized and the public HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.public = hc
	}
}

// WithUnauthorizedHandler registers fn to run when an authorized call finds
// no token or receives a 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// Client is the authenticated request wrapper every console component uses.
// It never notifies the operator itself; callers turn failures into alerts.
type Client struct {
	baseURL        string
	http           *http.Client
	public         *http.Client
	tokens         TokenSource
	onUnauthorized func()
	metrics        *telemetry.Metrics
}

// New creates a client for the backend at cfg.ServerURL.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", cfg.ServerURL)
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.ServerURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		public:  NewCachingHTTPClient(cfg.CacheDir, cfg.Timeout),
		tokens:  tokens,
		metrics: telemetry.GetMetrics(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call.
type request struct {
	method string
	// route is the path template used for logs and metrics.
	route string
	path  string
	query url.Values
	body  any

	stream        io.Reader
	contentType   string
	contentLength int64
	header        http.Header

	// public requests carry no bearer token.
	public bool
	// quiet requests report 401 to the caller without firing the
	// unauthorized handler; the session guard handles those itself.
	quiet bool
}

// Do issues an authorized JSON request and decodes the response into out.
// body may be nil, in which case no Content-Type is sent.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, request{method: method, route: path, path: path, body: body}, out)
}

// StreamRequest is an authorized request with a caller supplied body.
type StreamRequest struct {
	Method        string
	Path          string
	Body          io.Reader
	ContentType   string
	ContentLength int64
	Header        http.Header
}

// Stream issues an authorized request whose body is read from req.Body.
func (c *Client) Stream(ctx context.Context, req StreamRequest, out any) error {
	return c.do(ctx, request{
		method:        req.Method,
		route:         req.Path,
		path:          req.Path,
		stream:        req.Body,
		contentType:   req.ContentType,
		contentLength: req.ContentLength,
		header:        req.Header,
	}, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var token string
	if !r.public {
		var ok bool
		token, ok = c.tokens.Token()
		if !ok {
			log.Debug().Str("route", r.route).Msg("refusing authorized call without session")
			if !r.quiet {
				c.unauthorized()
			}
			return ErrNoSession
		}
	}

	body := r.stream
	contentType := r.contentType
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return &TransportError{Op: "encode request", Err: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return &TransportError{Op: "build request", Err: err}
	}
	if len(r.query) > 0 {
		req.URL.RawQuery = r.query.Encode()
	}
	if r.contentLength > 0 {
		req.ContentLength = r.contentLength
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range r.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if !r.public {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	hc := c.http
	if r.public {
		hc = c.public
	}

	started := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.record(ctx, r, 0, started)
		log.Debug().Err(err).
			Str("method", r.method).
			Str("route", r.route).
			Str("request_id", requestID).
			Msg("api call failed")
		return &TransportError{Op: r.method + " " + r.route, Err: err}
	}
	defer resp.Body.Close()

	c.record(ctx, r, resp.StatusCode, started)

	log.Debug().
		Str("method", r.method).
		Str("route", r.route).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("api call")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		he := newHTTPError(resp.StatusCode, data)
		if resp.StatusCode == http.StatusUnauthorized && !r.public && !r.quiet {
			c.unauthorized()
		}
		return he
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: "decode response", Err: err}
	}

	return nil
}

func (c *Client) unauthorized() {
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func (c *Client) record(ctx context.Context, r request, status int, started time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("method", r.method),
		attribute.String("route", r.route),
		attribute.Int("status", status),
	)
	c.metrics.APIRequestsTotal.Add(ctx, 1, attrs)
	c.metrics.APIRequestDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)
	if status == 0 || status > 299 {
		c.metrics.APIRequestErrors.Add(ctx, 1, attrs)
	}
}
