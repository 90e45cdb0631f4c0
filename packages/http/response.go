package http

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// BodyJSON parses the body. The second result is false when the body is not
// valid JSON.
func (r *Response) BodyJSON() (gjson.Result, bool) {
	if !gjson.ValidBytes(r.Body) {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(r.Body), true
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType(), "json")
}

func (r *Response) IsHTML() bool {
	return strings.Contains(r.ContentType(), "text/html")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
