package extract

import (
	"regexp"
	"sort"

	"github.com/abdul-hamid-achik/rawhit/packages/http"
)

// Strategy turns a response and an extraction key into a Result.
type Strategy interface {
	Name() string
	Extract(resp *http.Response, key string) Result
}

// JSONStrategy treats key as a key-path. An empty key returns the whole
// document.
type JSONStrategy struct{}

func (JSONStrategy) Name() string { return "json" }

func (JSONStrategy) Extract(resp *http.Response, key string) Result {
	return JSON(resp.Body, key)
}

// HTMLStrategy scrapes a URL with a fixed pattern; the key is not used.
type HTMLStrategy struct {
	Pattern *regexp.Regexp
	Host    string
}

// NewHTMLStrategy falls back to DefaultHTMLPattern and DefaultHTMLHost for
// nil and empty arguments.
func NewHTMLStrategy(pattern *regexp.Regexp, host string) *HTMLStrategy {
	if pattern == nil {
		pattern = DefaultHTMLPattern
	}
	if host == "" {
		host = DefaultHTMLHost
	}
	return &HTMLStrategy{Pattern: pattern, Host: host}
}

func (s *HTMLStrategy) Name() string { return "html" }

func (s *HTMLStrategy) Extract(resp *http.Response, _ string) Result {
	return HTML(resp.Body, s.Pattern, s.Host)
}

// CSSStrategy treats key as a CSS selector, optionally ending in @attr.
type CSSStrategy struct{}

func (CSSStrategy) Name() string { return "css" }

func (CSSStrategy) Extract(resp *http.Response, key string) Result {
	return CSS(resp.Body, key)
}

// Registry maps strategy names to implementations. It is populated at setup
// and read afterwards.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	r := &Registry{
		strategies: make(map[string]Strategy),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.Register(JSONStrategy{})
	r.Register(NewHTMLStrategy(nil, ""))
	r.Register(CSSStrategy{})
}

// Register adds s, replacing any strategy with the same name.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
