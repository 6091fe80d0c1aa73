// Package apiclient is the Cookie HTTP client and API façade.
//
// A Client holds its own session.Store. Authenticated calls read the token
// from the store on every request and set the Authorization header on that
// request only; nothing is shared between clients. State-changing calls first
// make sure an XSRF-TOKEN cookie is present and echo it as X-XSRF-TOKEN.
//
// Façade methods never swallow errors. Every failure is an *Error whose Kind
// tells the caller how to react.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/publicsuffix"

	"github.com/mmynk/cookie/internal/session"
)

const (
	// DefaultBaseURL is the backend address used when none is configured.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	csrfPath       = "/sanctum/csrf-cookie"
	csrfCookieName = "XSRF-TOKEN"
	csrfHeaderName = "X-XSRF-TOKEN"

	maxResponseBytes = 4 << 20
)

// Client talks to the Cookie backend.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	sessions session.Store
	logger   *slog.Logger
	metrics  *metrics

	timeout    time.Duration
	registerer prometheus.Registerer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRegisterer registers the client's request metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

// New creates a Client for baseURL that reads and writes the session in store.
func New(baseURL string, store session.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("apiclient: nil session store")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:  u,
		sessions: store,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("apiclient: cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	m, err := newMetrics(c.registerer)
	if err != nil {
		return nil, err
	}
	c.metrics = m
	return c, nil
}

// Sessions returns the client's session store.
func (c *Client) Sessions() session.Store {
	return c.sessions
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// request describes one façade call.
type request struct {
	endpoint string
	method   string
	path     string
	body     any
	accept   string

	// csrf makes sure the XSRF cookie exists first and echoes it.
	csrf bool
	// auth attaches the session token.
	auth bool
}

// EnsureCSRF fetches the XSRF-TOKEN cookie unless the jar already holds one.
func (c *Client) EnsureCSRF(ctx context.Context) error {
	if c.csrfToken() != "" {
		return nil
	}
	_, err := c.send(ctx, request{endpoint: "csrf", method: http.MethodGet, path: csrfPath})
	if err != nil {
		return err
	}
	if c.csrfToken() == "" {
		c.logger.Warn("CSRF endpoint did not set a cookie", "url", c.baseURL.String()+csrfPath)
	}
	return nil
}

// csrfToken returns the URL-decoded XSRF-TOKEN cookie value.
func (c *Client) csrfToken() string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name != csrfCookieName {
			continue
		}
		v, err := url.QueryUnescape(ck.Value)
		if err != nil {
			return ck.Value
		}
		return v
	}
	return ""
}

// attachAuth copies the current session token onto req.
func (c *Client) attachAuth(ctx context.Context, req *http.Request) error {
	token, err := session.Token(ctx, c.sessions)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if token == "" {
		c.logger.Debug("No session token for authenticated call", "path", req.URL.Path)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// do runs the call and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if r.csrf {
		if err := c.EnsureCSRF(ctx); err != nil {
			return nil, err
		}
	}
	return c.send(ctx, r)
}

func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, &Error{Kind: KindDecode, Endpoint: r.endpoint, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL.String()+r.path, body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Endpoint: r.endpoint, Err: err}
	}
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.csrf {
		if token := c.csrfToken(); token != "" {
			req.Header.Set(csrfHeaderName, token)
		}
	}
	if r.auth {
		if err := c.attachAuth(ctx, req); err != nil {
			return nil, &Error{Kind: KindNetwork, Endpoint: r.endpoint, Err: err}
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(r.endpoint, 0, time.Since(start))
		c.logger.Debug("Request failed", "endpoint", r.endpoint, "method", r.method, "path", r.path, "error", err)
		return nil, &Error{Kind: KindNetwork, Endpoint: r.endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	c.metrics.observe(r.endpoint, resp.StatusCode, elapsed)
	c.logger.Debug("Request completed",
		"endpoint", r.endpoint,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Endpoint: r.endpoint, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(r.endpoint, resp.StatusCode, data)
	}
	return data, nil
}
