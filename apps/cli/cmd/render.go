package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdul-hamid-achik/rawhit/packages/output"
	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

// renderSample is used when render is given no prompt.
const renderSample = "rawhit test prompt"

var (
	renderPromptFlag string
	renderDiffFlag   bool
)

var renderCmd = &cobra.Command{
	Use:   "render <template>",
	Short: "Show the request a send would dispatch",
	Long: `Parse a template, fill in the prompt and print the resulting request
without sending it.

Examples:
  rawhit render chat.req
  rawhit render chat.req -p 'quote "this"' --diff`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: renderCommand,
}

func init() {
	addTemplateFlags(renderCmd)
	renderCmd.Flags().StringVarP(&renderPromptFlag, "prompt", "p", renderSample, "Prompt to fill in")
	renderCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("RAWHIT_OUTPUT", "console"), "Output format: console, json (env: RAWHIT_OUTPUT)")
	renderCmd.Flags().BoolVar(&renderDiffFlag, "diff", false, "Show what substitution changed in the URL and body")
}

func renderCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	formatter, err := output.New(outputFlag, cmd.OutOrStdout(), verboseFlag > 0, noColorFlag)
	if err != nil {
		return usageError(err)
	}

	tgt, err := newTarget(args[0], cfg, slog.Default())
	if err != nil {
		return err
	}

	before, err := tgt.Parse()
	if err != nil {
		return err
	}
	after, err := tgt.Render(renderPromptFlag)
	if err != nil {
		return err
	}

	formatter.FormatRequest(after)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	if renderDiffFlag {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n--- url\n%s\n", renderDiff(before.URL, after.URL))
		fmt.Fprintf(out, "--- body\n%s\n", renderDiff(before.Body, after.Body))
	}
	return nil
}

// renderDiff marks insertions as {+text+} and deletions as [-text-], in
// color unless disabled.
func renderDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString(green("{+" + d.Text + "+}"))
		case diffmatchpatch.DiffDelete:
			b.WriteString(red("[-" + d.Text + "-]"))
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
