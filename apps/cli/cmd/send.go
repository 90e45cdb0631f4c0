package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/rawhit/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	promptFlag string
	watchFlag  bool
)

var sendCmd = &cobra.Command{
	Use:   "send <template>",
	Short: "Send a prompt through a captured request",
	Long: `Fill the placeholder of a raw HTTP request template with a prompt, send
it, and print what the extraction strategy finds in the response.

The prompt comes from --prompt, or from stdin when the flag is absent.

Examples:
  rawhit send chat.req -p "tell me a joke" --key choices[0].message.content
  echo "hello" | rawhit send chat.req
  rawhit send bing.req -p "a red fox" --strategy html
  rawhit send chat.req -p "hi" --watch`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: sendCommand,
}

func init() {
	addTargetFlags(sendCmd)
	sendCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Prompt to send (default: read from stdin)")
	sendCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-send whenever the template file changes")
}

// readPrompt returns --prompt, or stdin without its trailing newline.
func readPrompt(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("prompt") {
		return promptFlag, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading prompt from stdin: %w", err)
	}
	prompt := strings.TrimRight(string(data), "\r\n")
	if prompt == "" {
		return "", usageError(fmt.Errorf("no prompt given (use --prompt or pipe it on stdin)"))
	}
	return prompt, nil
}

func sendCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	prompt, err := readPrompt(cmd)
	if err != nil {
		return err
	}

	if _, err := output.New(outputFlag, io.Discard, false, noColorFlag); err != nil {
		return usageError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	path := args[0]

	send := func() error {
		formatter, _ := output.New(outputFlag, cmd.OutOrStdout(), verboseFlag > 0, noColorFlag)
		formatter.FormatHeader(version)

		tgt, err := newTarget(path, cfg, logger)
		if err != nil {
			formatter.FormatError(err)
			return err
		}

		ex, err := tgt.Send(ctx, prompt)
		if err != nil {
			formatter.FormatError(err)
		} else {
			formatter.FormatExchange(ex)
		}

		if flushable, ok := formatter.(output.Flushable); ok {
			if ferr := flushable.Flush(); ferr != nil {
				return fmt.Errorf("error writing output: %w", ferr)
			}
		}
		return err
	}

	err = send()
	if !watchFlag {
		return err
	}
	return watchTemplate(ctx, cmd, path, send)
}

// watchTemplate calls fn after every write to path until ctx is done.
func watchTemplate(ctx context.Context, cmd *cobra.Command, path string, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// editors often replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", path)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nTemplate changed, re-sending...\n\n")
				if err := fn(); err != nil {
					slog.Warn("send failed", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}
