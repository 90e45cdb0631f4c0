// Package template turns a raw HTTP request, as captured by an intercepting
// proxy, into a request rawhit can dispatch.
//
// A template is plain request text: the request line, header lines, a blank
// line and an optional body. The body may carry a placeholder (by default
// {PROMPT}) that is replaced with the prompt on every send:
//
//	POST /v1/chat HTTP/2
//	Host: api.example.com
//	Content-Type: application/json
//
//	{"messages":[{"role":"user","content":"{PROMPT}"}]}
//
// The package provides:
//   - Parse, which splits a template into method, URL, ordered headers and body
//   - Canonicalize, which re-encodes JSON bodies compactly
//   - Substitute, which fills the placeholder in the URL and body
//
// Duplicate header names are not merged: the last value wins and keeps the
// position of the first occurrence.
package template
