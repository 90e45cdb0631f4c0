package cmd

import (
	"fmt"
	"log/slog"

	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <template>...",
	Short: "Validate request templates",
	Long: `Check that request templates parse without sending anything. Variables
are resolved first, as send would.

Examples:
  rawhit validate chat.req
  rawhit validate captures/*.req`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: validateCommand,
}

func init() {
	addTemplateFlags(validateCmd)
}

func validateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ph, err := template.NewPlaceholder(cfg.Placeholder)
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	var firstErr error
	for _, file := range args {
		tgt, err := newTarget(file, cfg, logger)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %v\n", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		parsed, err := tgt.Parse()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		note := ""
		if !ph.In(parsed.URL) && !ph.In(parsed.Body) {
			note = fmt.Sprintf(" (no %s placeholder)", ph)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s %s %s%s\n", file, parsed.Method, parsed.URL, note)
	}

	if firstErr != nil {
		return withCode(exitCode(firstErr), fmt.Errorf("validation failed"))
	}
	return nil
}
