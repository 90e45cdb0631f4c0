package template

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// DefaultPlaceholder marks where the prompt goes in a template.
const DefaultPlaceholder = "{PROMPT}"

// Placeholder is the compiled token pattern searched for in URL and body.
type Placeholder struct {
	re *regexp.Regexp
}

// NewPlaceholder compiles pattern as a regular expression. An empty pattern
// selects DefaultPlaceholder.
func NewPlaceholder(pattern string) (*Placeholder, error) {
	if pattern == "" {
		pattern = DefaultPlaceholder
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid placeholder pattern %q: %w", pattern, err)
	}
	return &Placeholder{re: re}, nil
}

func MustPlaceholder(pattern string) *Placeholder {
	p, err := NewPlaceholder(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Placeholder) String() string {
	return p.re.String()
}

// In reports whether s contains the token.
func (p *Placeholder) In(s string) bool {
	return p.re.MatchString(s)
}

func (p *Placeholder) replace(s, value string) string {
	return p.re.ReplaceAllLiteralString(s, value)
}

// DispatchableRequest is a ParsedRequest with the placeholder filled in. Each
// Substitute call returns a new one.
type DispatchableRequest struct {
	Method  string
	URL     string
	Headers *Headers
	Body    string

	BodyIsJSON      bool
	URLSubstituted  bool
	BodySubstituted bool
	// BodyValidJSON is false when a JSON body stopped parsing after
	// substitution, which happens when the value carries a bare double quote.
	BodyValidJSON bool
}

// Substituted reports whether the token was found anywhere.
func (d *DispatchableRequest) Substituted() bool {
	return d.URLSubstituted || d.BodySubstituted
}

// Substitute fills every occurrence of the token in the URL and body. The
// value is percent-encoded in the URL. In a JSON body each run of whitespace
// in the value becomes one space; quotes are not escaped. A field without the
// token is left as is. Content-Length, when present, is set to the final body
// length in bytes.
func Substitute(p *ParsedRequest, ph *Placeholder, value string) *DispatchableRequest {
	d := &DispatchableRequest{
		Method:        p.Method,
		URL:           p.URL,
		Headers:       p.Headers.Clone(),
		Body:          p.Body,
		BodyIsJSON:    p.BodyIsJSON,
		BodyValidJSON: p.BodyIsJSON,
	}

	if ph.In(d.URL) {
		d.URL = ph.replace(d.URL, quote(value))
		d.URLSubstituted = true
	}

	if ph.In(d.Body) {
		if d.BodyIsJSON {
			d.Body = ph.replace(d.Body, collapseWhitespace(value))
			d.BodyValidJSON = gjson.Valid(d.Body)
		} else {
			d.Body = ph.replace(d.Body, value)
		}
		d.BodySubstituted = true
	}

	syncContentLength(d.Headers, d.Body)
	return d
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inRun {
				b.WriteByte(' ')
			}
			inRun = true
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// quote percent-encodes everything except RFC 3986 unreserved characters
// and '/'.
func quote(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0xf])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
