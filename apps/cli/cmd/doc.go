// Package cmd implements the rawhit CLI commands using Cobra.
//
// Available commands:
//   - send: Fill a captured request with a prompt, send it and print the reply
//   - batch: Send one prompt per line of a file with bounded concurrency
//   - render: Show the request send would dispatch, without sending it
//   - extract: Apply an extraction strategy to a saved response
//   - validate: Check that request templates parse
//   - capture: Record requests through a local proxy as templates
//   - version: Show rawhit version information
//
// Settings come from .rawhit.yaml, RAWHIT_* environment variables and flags,
// in increasing order of precedence.
package cmd
