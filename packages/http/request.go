package http

import (
	"strings"
)

// Request is what the transport sends. Headers come from a captured request
// and may include Host and Content-Length, which Do maps onto the wire
// request instead of sending them as plain headers.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

// Header returns the first header matching key case-insensitively.
func (r *Request) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
