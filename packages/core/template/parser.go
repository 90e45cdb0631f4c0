package template

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

const (
	headerContentLength = "Content-Length"
	headerHost          = "Host"
)

// ParsedRequest is a template split into its parts. URL is fully qualified
// and Body holds the compact re-encoding when the raw body was JSON.
type ParsedRequest struct {
	Method     string
	URL        string
	Proto      string
	Headers    *Headers
	Body       string
	BodyIsJSON bool
}

// Parse reads a raw captured request. It fails with a *TemplateError whose
// Kind is ErrMalformedTemplate, ErrUnsupportedProtocol or ErrMissingHost.
func Parse(raw string) (*ParsedRequest, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, malformed(0, "template is empty")
	}

	head, body := splitHeadBody(raw)
	lines := strings.Split(head, "\n")

	requestLine := strings.Fields(strings.TrimRight(lines[0], "\r"))
	if len(requestLine) != 3 {
		return nil, malformed(1, "request line must be METHOD TARGET VERSION, got %q", strings.TrimSpace(lines[0]))
	}
	method, target, proto := requestLine[0], requestLine[1], requestLine[2]

	headers := NewHeaders()
	for i, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, malformed(i+2, "header line %q has no name: value pair", line)
		}
		headers.Set(name, strings.TrimSpace(value))
	}

	req := &ParsedRequest{
		Method:  method,
		Proto:   proto,
		Headers: headers,
		Body:    body,
	}
	if canonical, ok := Canonicalize(body); ok {
		req.Body = canonical
		req.BodyIsJSON = true
	}
	syncContentLength(req.Headers, req.Body)

	url, err := buildURL(target, proto, headers)
	if err != nil {
		return nil, err
	}
	req.URL = url

	return req, nil
}

// splitHeadBody cuts at the first blank line. Without one the whole text is
// the header block and the body is empty.
func splitHeadBody(raw string) (string, string) {
	lf := strings.Index(raw, "\n\n")
	crlf := strings.Index(raw, "\r\n\r\n")
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return raw[:crlf], raw[crlf+4:]
	case lf >= 0:
		return raw[:lf], raw[lf+2:]
	}
	return raw, ""
}

func schemeFor(proto string) (string, error) {
	switch {
	case strings.Contains(proto, "HTTP/2"):
		return "https://", nil
	case strings.Contains(proto, "HTTP/1.1"):
		return "http://", nil
	}
	return "", &TemplateError{Kind: ErrUnsupportedProtocol, Line: 1, Message: proto}
}

func buildURL(target, proto string, headers *Headers) (string, error) {
	scheme, err := schemeFor(proto)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return target, nil
	}

	host := headers.Get(headerHost)
	if host == "" {
		return "", &TemplateError{Kind: ErrMissingHost, Message: "request target " + target + " is relative"}
	}
	return scheme + host + target, nil
}

// Canonicalize re-encodes a JSON body without insignificant whitespace. Raw
// control characters inside string literals are escaped first so captures
// with literal newlines in strings still count as JSON. The second result is
// false when body is not JSON; applying Canonicalize to its own output
// returns the same string.
func Canonicalize(body string) (string, bool) {
	if strings.TrimSpace(body) == "" {
		return "", false
	}
	candidate := escapeControlChars(body)
	if !gjson.Valid(candidate) {
		return "", false
	}
	return string(pretty.Ugly([]byte(candidate))), true
}

func escapeControlChars(s string) string {
	const hex = "0123456789abcdef"

	var b strings.Builder
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = false
		case c < 0x20:
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteString(`\u00`)
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xf])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func syncContentLength(headers *Headers, body string) {
	if headers.Has(headerContentLength) {
		headers.Set(headerContentLength, strconv.Itoa(len(body)))
	}
}
