// Package proxy provides a reverse proxy that records requests as rawhit
// templates.
//
// Point a client at the proxy and send a request with a marker string where
// the prompt goes; the recorded request is written back out with the marker
// replaced by the placeholder, ready for rawhit send.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
)

const (
	// DefaultListenAddr is where the proxy listens when none is set
	DefaultListenAddr = "127.0.0.1:8080"
	// DefaultMarker is replaced by the placeholder in recorded requests
	DefaultMarker = "RAWHIT_PROMPT"
)

// DefaultSanitize lists headers replaced by {{$NAME}} environment references.
var DefaultSanitize = []string{"Authorization", "Cookie", "X-Api-Key", "Api-Key"}

// hop-by-hop and transport headers that never belong in a template
var skipHeaders = map[string]bool{
	"Accept-Encoding":   true,
	"Connection":        true,
	"Keep-Alive":        true,
	"Proxy-Connection":  true,
	"Te":                true,
	"Trailer":           true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

// Capture is one recorded request and the response it got.
type Capture struct {
	Timestamp  time.Time
	Method     string
	RequestURI string
	Host       string
	Scheme     string
	Headers    *template.Headers
	Body       string
	// Marked is true when the marker was found and replaced.
	Marked   bool
	Response *CapturedResponse
}

type CapturedResponse struct {
	StatusCode  int
	Status      string
	ContentType string
	Size        int
	Duration    time.Duration
}

// Template renders the capture as raw request text that template.Parse
// accepts. The version is HTTP/2 for https targets so that the scheme
// survives the round trip.
func (c *Capture) Template() string {
	proto := "HTTP/1.1"
	if c.Scheme == "https" {
		proto = "HTTP/2"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", c.Method, c.RequestURI, proto)
	fmt.Fprintf(&b, "Host: %s\n", c.Host)
	c.Headers.Each(func(name, value string) {
		fmt.Fprintf(&b, "%s: %s\n", name, value)
	})
	if c.Body != "" {
		b.WriteString("\n")
		b.WriteString(c.Body)
	}
	return b.String()
}

// Recorder is an HTTP proxy that records requests
type Recorder struct {
	listenAddr  string
	targetURL   string
	marker      string
	placeholder string
	onlyMarked  bool
	exclude     []string
	sanitize    []string
	logger      *slog.Logger

	mutex    sync.Mutex
	captures []Capture
	// ready is closed once Start has bound its listener or failed to
	ready    chan struct{}
	addr     string
	startErr error
}

// Option is a functional option for Recorder
type Option func(*Recorder)

func WithListenAddr(addr string) Option {
	return func(r *Recorder) {
		r.listenAddr = addr
	}
}

// WithTargetURL sets the upstream every request is forwarded to.
func WithTargetURL(target string) Option {
	return func(r *Recorder) {
		r.targetURL = target
	}
}

func WithMarker(marker string) Option {
	return func(r *Recorder) {
		if marker != "" {
			r.marker = marker
		}
	}
}

// WithPlaceholder sets the literal token written in place of the marker.
func WithPlaceholder(token string) Option {
	return func(r *Recorder) {
		if token != "" {
			r.placeholder = token
		}
	}
}

// WithOnlyMarked drops requests that do not carry the marker.
func WithOnlyMarked(only bool) Option {
	return func(r *Recorder) {
		r.onlyMarked = only
	}
}

// WithExclude sets path substrings that are forwarded but not recorded.
func WithExclude(paths []string) Option {
	return func(r *Recorder) {
		r.exclude = paths
	}
}

// WithSanitize sets headers to redact
func WithSanitize(headers []string) Option {
	return func(r *Recorder) {
		r.sanitize = headers
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a new recording proxy
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		listenAddr:  DefaultListenAddr,
		marker:      DefaultMarker,
		placeholder: template.DefaultPlaceholder,
		sanitize:    DefaultSanitize,
		logger:      slog.Default(),
		ready:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "proxy")
	return r
}

// Handler returns the recording reverse proxy.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.targetURL == "" {
		return nil, fmt.Errorf("target URL is required")
	}

	target, err := url.Parse(r.targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported target scheme: %s", target.Scheme)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
		},
		ModifyResponse: r.recordResponse,
	}
	return r.wrap(proxy, target), nil
}

// Start serves until ctx is done, then shuts down gracefully.
func (r *Recorder) Start(ctx context.Context) error {
	ln, handler, err := r.listen()
	r.startErr = err
	if ln != nil {
		r.addr = ln.Addr().String()
	}
	close(r.ready)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	r.logger.Info("recording proxy started", "listen", r.addr, "target", r.targetURL, "marker", r.marker)

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *Recorder) listen() (net.Listener, http.Handler, error) {
	handler, err := r.Handler()
	if err != nil {
		return nil, nil, err
	}
	ln, err := net.Listen("tcp", r.listenAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot listen on %s: %w", r.listenAddr, err)
	}
	return ln, handler, nil
}

// Addr blocks until Start has bound its listener and returns its address,
// or the error Start failed with.
func (r *Recorder) Addr(ctx context.Context) (string, error) {
	select {
	case <-r.ready:
		return r.addr, r.startErr
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type captureKey struct{}

func (r *Recorder) wrap(next http.Handler, target *url.URL) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.shouldExclude(req.URL.Path) {
			r.logger.Debug("excluded", "method", req.Method, "path", req.URL.Path)
			next.ServeHTTP(w, req)
			return
		}

		var bodyBytes []byte
		if req.Body != nil {
			bodyBytes, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		uri := req.URL.RequestURI()
		if base := strings.TrimSuffix(target.Path, "/"); base != "" {
			uri = base + uri
		}
		body := string(bodyBytes)

		var marked bool
		for _, form := range r.markerForms() {
			if strings.Contains(uri, form) || strings.Contains(body, form) {
				marked = true
				uri = strings.ReplaceAll(uri, form, r.placeholder)
				body = strings.ReplaceAll(body, form, r.placeholder)
			}
		}

		capture := &Capture{
			Timestamp:  time.Now(),
			Method:     req.Method,
			RequestURI: uri,
			Host:       target.Host,
			Scheme:     target.Scheme,
			Headers:    r.templateHeaders(req.Header, len(body)),
			Body:       body,
			Marked:     marked,
		}

		ctx := context.WithValue(req.Context(), captureKey{}, capture)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// markerForms lists the marker as a client may send it: query-escaped,
// path-escaped and raw. Escaped forms come first so that a raw marker
// nested inside one is not replaced on its own.
func (r *Recorder) markerForms() []string {
	forms := []string{url.QueryEscape(r.marker), url.PathEscape(r.marker), r.marker}
	unique := forms[:0]
	for _, f := range forms {
		if !slices.Contains(unique, f) {
			unique = append(unique, f)
		}
	}
	return unique
}

func (r *Recorder) recordResponse(resp *http.Response) error {
	capture, ok := resp.Request.Context().Value(captureKey{}).(*Capture)
	if !ok {
		return nil
	}

	if r.onlyMarked && !capture.Marked {
		r.logger.Debug("skipped request without marker", "method", capture.Method, "uri", capture.RequestURI)
		return nil
	}

	var bodyBytes []byte
	if resp.Body != nil {
		bodyBytes, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	capture.Response = &CapturedResponse{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        len(bodyBytes),
		Duration:    time.Since(capture.Timestamp),
	}

	r.mutex.Lock()
	r.captures = append(r.captures, *capture)
	r.mutex.Unlock()

	r.logger.Info("captured",
		"method", capture.Method,
		"uri", capture.RequestURI,
		"status", resp.StatusCode,
		"marked", capture.Marked)
	return nil
}

func (r *Recorder) shouldExclude(path string) bool {
	for _, exclude := range r.exclude {
		if exclude != "" && strings.Contains(path, exclude) {
			return true
		}
	}
	return false
}

// templateHeaders keeps end-to-end headers in a stable order. Redacted
// headers become environment references that the resolver fills in, and
// Content-Length is recomputed on every send.
func (r *Recorder) templateHeaders(h http.Header, bodyLen int) *template.Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := template.NewHeaders()
	for _, name := range names {
		values := h[name]
		if len(values) == 0 || skipHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		if strings.EqualFold(name, "Content-Length") {
			headers.Set("Content-Length", fmt.Sprint(bodyLen))
			continue
		}
		if r.redacted(name) {
			headers.Set(name, "{{$"+envName(name)+"}}")
			continue
		}
		headers.Set(name, strings.Join(values, ", "))
	}
	return headers
}

func (r *Recorder) redacted(name string) bool {
	for _, s := range r.sanitize {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

var nonEnvChars = regexp.MustCompile(`[^A-Z0-9_]`)

func envName(header string) string {
	return nonEnvChars.ReplaceAllString(strings.ToUpper(strings.ReplaceAll(header, "-", "_")), "_")
}

// Captures returns all recorded requests
func (r *Recorder) Captures() []Capture {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	result := make([]Capture, len(r.captures))
	copy(result, r.captures)
	return result
}

// Clear clears all recordings
func (r *Recorder) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.captures = nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// WriteTemplates saves every capture to dir as NNN-method-path.req and
// returns the paths written.
func (r *Recorder) WriteTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var paths []string
	for i, c := range r.Captures() {
		path := c.RequestURI
		if j := strings.IndexAny(path, "?#"); j >= 0 {
			path = path[:j]
		}
		slug := strings.Trim(unsafeFileChars.ReplaceAllString(path, "-"), "-")
		if slug == "" {
			slug = "root"
		}
		name := fmt.Sprintf("%03d-%s-%s.req", i+1, strings.ToLower(c.Method), slug)

		full := filepath.Join(dir, name)
		if err := os.WriteFile(full, []byte(c.Template()), 0644); err != nil {
			return paths, err
		}
		paths = append(paths, full)
	}
	return paths, nil
}
