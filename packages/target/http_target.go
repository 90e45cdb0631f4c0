package target

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/abdul-hamid-achik/rawhit/packages/extract"
	"github.com/abdul-hamid-achik/rawhit/packages/http"
	"github.com/abdul-hamid-achik/rawhit/packages/models"
)

const (
	// Name identifies responses produced by HTTPTarget
	Name = "HTTPTarget"
	// DefaultRetryDelay is the wait between transport retries
	DefaultRetryDelay = time.Second
)

type HTTPTarget struct {
	template    string
	pattern     string
	placeholder *template.Placeholder
	parseKey    string
	strategy    extract.Strategy
	client      http.Doer
	resolve     func(string) string
	logger      *slog.Logger
	retries     int
	retryDelay  time.Duration
}

type Option func(*HTTPTarget)

// WithPlaceholder sets the token pattern, a regular expression.
func WithPlaceholder(pattern string) Option {
	return func(t *HTTPTarget) {
		t.pattern = pattern
	}
}

// WithParseKey sets the key handed to the strategy, e.g. a key-path.
func WithParseKey(key string) Option {
	return func(t *HTTPTarget) {
		t.parseKey = key
	}
}

// WithStrategy sets how replies are extracted. Without one the raw body is
// returned.
func WithStrategy(s extract.Strategy) Option {
	return func(t *HTTPTarget) {
		t.strategy = s
	}
}

func WithClient(c http.Doer) Option {
	return func(t *HTTPTarget) {
		t.client = c
	}
}

// WithResolver sets a function applied to the template text before every
// parse, such as env.Resolver.Resolve.
func WithResolver(fn func(string) string) Option {
	return func(t *HTTPTarget) {
		t.resolve = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *HTTPTarget) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithRetry retries transport failures n more times, waiting delay between
// attempts. Template errors and HTTP error statuses are not retried.
func WithRetry(n int, delay time.Duration) Option {
	return func(t *HTTPTarget) {
		t.retries = n
		if delay > 0 {
			t.retryDelay = delay
		}
	}
}

// NewHTTPTarget checks that the template parses before returning.
func NewHTTPTarget(rawTemplate string, opts ...Option) (*HTTPTarget, error) {
	t := &HTTPTarget{
		template:   rawTemplate,
		logger:     slog.Default(),
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(t)
	}

	ph, err := template.NewPlaceholder(t.pattern)
	if err != nil {
		return nil, err
	}
	t.placeholder = ph

	if t.client == nil {
		t.client = http.NewClient()
	}
	t.logger = t.logger.With("component", "target")

	if _, err := t.Parse(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *HTTPTarget) text() string {
	if t.resolve != nil {
		return t.resolve(t.template)
	}
	return t.template
}

// Exchange is one send: what went out, what came back and what was
// extracted from it.
type Exchange struct {
	Request  *template.DispatchableRequest
	Response *http.Response
	Result   extract.Result
}

// Parse resolves variables in the template and parses it. Every call
// returns a new ParsedRequest.
func (t *HTTPTarget) Parse() (*template.ParsedRequest, error) {
	return template.Parse(t.text())
}

// Render parses the template and fills in value without sending anything.
func (t *HTTPTarget) Render(value string) (*template.DispatchableRequest, error) {
	parsed, err := t.Parse()
	if err != nil {
		return nil, err
	}

	d := template.Substitute(parsed, t.placeholder, value)
	if !d.Substituted() {
		t.logger.Warn("placeholder not found in template; sending request unchanged",
			"placeholder", t.placeholder.String())
	}
	if d.BodyIsJSON && d.BodySubstituted && !d.BodyValidJSON {
		t.logger.Warn("request body is no longer valid JSON after substitution",
			"placeholder", t.placeholder.String())
	}
	return d, nil
}

// Send renders value, dispatches it and extracts the reply.
func (t *HTTPTarget) Send(ctx context.Context, value string) (*Exchange, error) {
	d, err := t.Render(value)
	if err != nil {
		return nil, err
	}

	req := &http.Request{
		Method:  d.Method,
		URL:     d.URL,
		Headers: d.Headers.Map(),
		Body:    d.Body,
	}

	resp, err := t.dispatch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sending %s %s: %w", d.Method, d.URL, err)
	}

	t.logger.Debug("response received",
		"url", d.URL,
		"status", resp.StatusCode,
		"bytes", len(resp.Body),
		"durationMs", resp.DurationMs())

	return &Exchange{
		Request:  d,
		Response: resp,
		Result:   t.extract(resp),
	}, nil
}

// SendPrompt sends the single piece of req and wraps the reply as an
// assistant response in the same conversation.
func (t *HTTPTarget) SendPrompt(ctx context.Context, req *models.PromptRequestResponse) (*models.PromptRequestResponse, error) {
	piece, err := req.Single()
	if err != nil {
		return nil, err
	}

	ex, err := t.Send(ctx, piece.Value())
	if err != nil {
		return nil, err
	}

	origin := *piece
	if origin.Target == "" {
		origin.Target = Name
	}
	return models.ConstructResponse(&origin, []string{ex.Result.Value}, ex.Result.Type), nil
}

func (t *HTTPTarget) dispatch(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		resp, err := t.client.Do(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == t.retries {
			break
		}
		t.logger.Warn("request failed, retrying",
			"attempt", attempt+1,
			"retries", t.retries,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(t.retryDelay):
		}
	}
	return nil, lastErr
}

func (t *HTTPTarget) extract(resp *http.Response) extract.Result {
	if t.strategy == nil {
		return extract.Result{Value: resp.BodyString(), Found: true, Type: extract.TypeText}
	}

	result := t.strategy.Extract(resp, t.parseKey)
	if !result.Found {
		t.logger.Warn("nothing extracted from response",
			"strategy", t.strategy.Name(),
			"key", t.parseKey,
			"status", resp.StatusCode,
			"bytes", len(resp.Body))
	}
	return result
}
