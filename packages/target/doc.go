// Package target sends prompts to endpoints that are only reachable through
// a captured HTTP request.
//
// An HTTPTarget holds the raw template. Each send re-parses it, substitutes
// the prompt, dispatches the request and extracts the reply with an
// extract.Strategy. Targets hold no per-call state, so one target can serve
// concurrent sends.
package target
