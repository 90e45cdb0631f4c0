package cmd

import (
	"errors"
	"net"

	"github.com/abdul-hamid-achik/rawhit/packages/core/config"
	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/spf13/cobra"
)

// Exit codes for rawhit CLI
const (
	// ExitSuccess indicates every prompt got a reply
	ExitSuccess = 0

	// ExitFailure indicates one or more prompts failed
	ExitFailure = 1

	// ExitParseError indicates a request template parsing error
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries an explicit exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func usageError(err error) error {
	return withCode(ExitUsageError, err)
}

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var netErr net.Error
	switch {
	case errors.Is(err, template.ErrMalformedTemplate),
		errors.Is(err, template.ErrUnsupportedProtocol),
		errors.Is(err, template.ErrMissingHost):
		return ExitParseError
	case errors.Is(err, config.ErrInvalidConfig):
		return ExitConfigError
	case errors.As(err, &netErr):
		return ExitNetworkError
	}
	return ExitFailure
}

// usageArgs makes argument validation failures exit with ExitUsageError.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(fn(cmd, args))
	}
}
