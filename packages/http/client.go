package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a whole exchange, body read included.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects caps the redirect chain; the last 3xx is returned
	// once it is reached.
	DefaultMaxRedirects = 10

	idlePoolSize    = 100
	idlePerHost     = 10
	idleConnTimeout = 90 * time.Second
)

// Headers the transport owns. Captured values for these are either mapped
// onto the wire request or dropped.
var managedHeaders = map[string]bool{
	"host":              true,
	"content-length":    true,
	"accept-encoding":   true,
	"connection":        true,
	"transfer-encoding": true,
}

// Doer sends a request. *Client implements it; tests and callers may swap in
// their own.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// settings collects what the options configure before the transport is
// built.
type settings struct {
	timeout      time.Duration
	follow       bool
	maxRedirects int
	insecure     bool
	proxy        string
	headers      map[string]string
}

// Client sends Requests over a pooled http.Client.
type Client struct {
	http     *http.Client
	timeout  time.Duration
	defaults map[string]string
}

type ClientOption func(*settings)

func NewClient(opts ...ClientOption) *Client {
	s := settings{
		timeout:      DefaultTimeout,
		follow:       true,
		maxRedirects: DefaultMaxRedirects,
		headers:      map[string]string{},
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Client{
		http: &http.Client{
			Transport:     newTransport(s),
			Timeout:       s.timeout,
			CheckRedirect: redirectPolicy(s.follow, s.maxRedirects),
		},
		timeout:  s.timeout,
		defaults: s.headers,
	}
}

func newTransport(s settings) *http.Transport {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        idlePoolSize,
		MaxIdleConnsPerHost: idlePerHost,
		IdleConnTimeout:     idleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	if s.insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	// An unparsable proxy falls back to the environment; config validation
	// rejects it before it gets here.
	if s.proxy != "" {
		if u, err := neturl.Parse(s.proxy); err == nil {
			t.Proxy = http.ProxyURL(u)
		}
	}
	return t
}

func redirectPolicy(follow bool, limit int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if !follow || len(via) >= limit {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithFollowRedirects turns redirect following on or off. It is on by
// default.
func WithFollowRedirects(follow bool) ClientOption {
	return func(s *settings) {
		s.follow = follow
	}
}

func WithMaxRedirects(limit int) ClientOption {
	return func(s *settings) {
		if limit > 0 {
			s.maxRedirects = limit
		}
	}
}

// WithDefaultHeaders sets headers sent with every request. Template headers
// take precedence.
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(s *settings) {
		for name, value := range headers {
			s.headers[name] = value
		}
	}
}

// WithValidateSSL false accepts any server certificate.
func WithValidateSSL(validate bool) ClientOption {
	return func(s *settings) {
		s.insecure = !validate
	}
}

// WithProxy routes every request through proxyURL instead of the
// HTTP(S)_PROXY environment.
func WithProxy(proxyURL string) ClientOption {
	return func(s *settings) {
		s.proxy = proxyURL
	}
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Do sends req and reads the whole response body. Transport failures are
// returned unwrapped apart from URL validation.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	wire, err := c.wireRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(wire)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    flatten(resp.Header),
		Body:       body,
		Duration:   elapsed,
	}, nil
}

// wireRequest builds the net/http request. Defaults go first so template
// headers win, and managed headers never reach the header map.
func (c *Client) wireRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	wire, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	for name, value := range c.defaults {
		wire.Header.Set(name, value)
	}
	for name, value := range req.Headers {
		if !managedHeaders[strings.ToLower(name)] {
			wire.Header.Set(name, value)
		}
	}
	if host := req.Header("Host"); host != "" {
		wire.Host = host
	}
	return wire, nil
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name := range h {
		out[name] = h.Get(name)
	}
	return out
}

// ValidateURL accepts absolute http and https URLs that name a host.
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	switch {
	case err != nil:
		return fmt.Errorf("invalid URL: %v", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	case u.Host == "":
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
