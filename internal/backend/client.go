// Package backend is the client for the hosted data/auth/storage API.
// It is the only external boundary of the application.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"glasswing/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Client is a configured handle to the backend API, shared by every feature.
// It carries the project anon key and, once a user signs in, their access
// token. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *observability.Logger
	metrics *observability.BackendMetrics

	mu        sync.RWMutex
	authToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client for the API at baseURL authenticated with apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: trimTrailingSlash(baseURL),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     observability.GlobalLogger,
		metrics: observability.NewBackendMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAuthToken installs the access token used for subsequent requests.
// An empty token reverts to anonymous (anon key only) requests.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

// AuthToken returns the currently installed access token, if any.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// request describes one backend API call.
type request struct {
	method   string
	path     string
	query    url.Values
	headers  map[string]string
	body     io.Reader
	resource string // metric/span label, e.g. "table:posts" or "auth"
}

// do executes the request and returns the raw response. Responses with a
// status of 400 or above are converted into *APIError.
func (c *Client) do(ctx context.Context, req request) (*http.Response, error) {
	span, ctx := observability.NewSpan(ctx, "backend."+req.resource)
	defer span.End()
	span.AddAttributes(
		attribute.String("http.method", req.method),
		attribute.String("backend.resource", req.resource),
	)
	defer c.metrics.TrackRequest(req.method, req.resource)()

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("apikey", c.apiKey)
	token := c.AuthToken()
	if token == "" {
		token = c.apiKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if req.body != nil && req.headers["Content-Type"] == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.SetError(err)
		c.metrics.RecordError(req.resource, "transport")
		return nil, fmt.Errorf("backend request %s %s: %w", req.method, req.path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp)
		span.SetError(apiErr)
		c.metrics.RecordError(req.resource, strconv.Itoa(resp.StatusCode))
		return nil, apiErr
	}

	return resp, nil
}

// doJSON executes the request and decodes the JSON response body into dest
// when dest is non-nil.
func (c *Client) doJSON(ctx context.Context, req request, dest any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(b), nil
}
