// Package env resolves template variables.
//
// It provides functionality for:
//   - Loading .env files
//   - Variable interpolation using {{variable}} syntax
//   - Environment lookups using {{$VARIABLE}}
//   - Built-in function evaluation such as {{uuid()}}
//
// Single-brace placeholders such as {PROMPT} are not touched.
package env
