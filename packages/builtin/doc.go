// Package builtin provides the functions callable from request templates.
//
// Available functions:
//   - uuid(): a random UUID v4
//   - now(), date(layout): current UTC time
//   - timestamp(), timestampMs(): Unix time in seconds or milliseconds
//   - random(min, max): random integer in range
//   - randomString(length): random alphanumeric string
//   - base64(value), base64Decode(value), sha256(value), urlEncode(value)
//   - jsonEscape(value): value escaped for use inside a JSON string
//   - env(name, fallback): an environment variable
//
// Functions are invoked as {{uuid()}} in templates.
package builtin
