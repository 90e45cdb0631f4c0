// Package http is the transport rawhit dispatches rendered templates with.
//
// It wraps the standard library's http package with:
//   - A bounded default timeout
//   - Redirect handling
//   - Proxy and TLS verification settings
//   - Captured-header cleanup (Host, Content-Length, Accept-Encoding)
//
// Status codes are not interpreted: a 500 is a Response, not an error.
package http
