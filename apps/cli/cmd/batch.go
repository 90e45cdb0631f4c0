package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abdul-hamid-achik/rawhit/packages/batch"
	"github.com/abdul-hamid-achik/rawhit/packages/output"
	"github.com/spf13/cobra"
)

var concurrencyFlag int

var batchCmd = &cobra.Command{
	Use:   "batch <template> <prompts-file>",
	Short: "Send every prompt in a file through a captured request",
	Long: `Send one prompt per line of a file, several at a time, and report each
reply with latency percentiles. Blank lines are skipped. Use - to read the
prompts from stdin.

Examples:
  rawhit batch chat.req prompts.txt --key choices[0].message.content
  rawhit batch chat.req prompts.txt --concurrency 8 --retries 2 -o json`,
	Args: usageArgs(cobra.ExactArgs(2)),
	RunE: batchCommand,
}

func init() {
	addTargetFlags(batchCmd)
	batchCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("RAWHIT_CONCURRENCY", 0), "Number of prompts in flight (env: RAWHIT_CONCURRENCY)")
}

// readPrompts returns the non-blank lines of r.
func readPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading prompts: %w", err)
	}
	return prompts, nil
}

func openPrompts(cmd *cobra.Command, path string) ([]string, error) {
	if path == "-" {
		return readPrompts(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, usageError(fmt.Errorf("cannot open prompts file: %w", err))
	}
	defer f.Close()
	return readPrompts(f)
}

func batchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if concurrencyFlag > 0 {
		cfg.Concurrency = concurrencyFlag
	}

	formatter, err := output.New(outputFlag, cmd.OutOrStdout(), verboseFlag > 0, noColorFlag)
	if err != nil {
		return usageError(err)
	}
	formatter.FormatHeader(version)

	prompts, err := openPrompts(cmd, args[1])
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return usageError(fmt.Errorf("no prompts in %s", args[1]))
	}

	logger := slog.Default()
	tgt, err := newTarget(args[0], cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := batch.NewRunner(tgt,
		batch.WithConcurrency(cfg.Concurrency),
		batch.WithLogger(logger),
	)
	summary, runErr := runner.Run(ctx, prompts)

	formatter.FormatSummary(summary)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return withCode(ExitFailure, fmt.Errorf("%d of %d prompts failed", summary.Failed, summary.Total))
	}
	return nil
}
