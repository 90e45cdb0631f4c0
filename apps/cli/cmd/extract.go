package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/rawhit/packages/http"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <response-file>",
	Short: "Apply an extraction strategy to a saved response",
	Long: `Run an extraction strategy over a response saved to disk, either a full
capture starting with the HTTP status line or a bare body. Use - to read it
from stdin.

Examples:
  rawhit extract reply.json --key choices[0].message.content
  rawhit extract page.html --strategy html
  rawhit extract page.html --strategy css --key "div.answer p"
  curl -s https://example.com | rawhit extract - --strategy css --key "a@href"`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: extractCommand,
}

func init() {
	addExtractFlags(extractCmd)
}

func readResponseFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, usageError(fmt.Errorf("cannot read response: %w", err))
	}
	return data, nil
}

func extractCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	strategy, err := newStrategy(cfg)
	if err != nil {
		return err
	}
	if strategy == nil {
		return usageError(fmt.Errorf("nothing to extract: set --key or --strategy"))
	}

	data, err := readResponseFile(cmd, args[0])
	if err != nil {
		return err
	}
	resp, err := http.ReadSavedResponse(data)
	if err != nil {
		return err
	}

	result := strategy.Extract(resp, cfg.ParseKey)
	out := cmd.OutOrStdout()

	switch strings.ToLower(outputFlag) {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	case "", "console":
		if noColorFlag {
			color.NoColor = true
		}
		if !result.Found {
			fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("no value extracted with %s strategy", strategy.Name()))
		}
		if result.Value != "" {
			fmt.Fprintln(out, result.Value)
		}
	default:
		return usageError(fmt.Errorf("unknown output format %q", outputFlag))
	}

	if !result.Found {
		return withCode(ExitFailure, fmt.Errorf("key %q not found", cfg.ParseKey))
	}
	return nil
}
