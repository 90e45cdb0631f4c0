package template

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTemplate reports a template that cannot be split into a
	// request line, headers and body.
	ErrMalformedTemplate = errors.New("malformed request template")
	// ErrUnsupportedProtocol reports a protocol version with no known scheme.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	// ErrMissingHost reports a relative request target without a Host header.
	ErrMissingHost = errors.New("missing Host header")
)

// TemplateError describes why a template was rejected. Kind is one of the
// sentinel errors above so callers can match with errors.Is.
type TemplateError struct {
	Kind    error
	Line    int
	Message string
}

func (e *TemplateError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v: %s", e.Line, e.Kind, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Kind
}

func malformed(line int, format string, args ...any) error {
	return &TemplateError{Kind: ErrMalformedTemplate, Line: line, Message: fmt.Sprintf(format, args...)}
}
