package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	verboseFlag int // 0=warnings, 1=-v info, 2=-vv debug
	noColorFlag bool
	configFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "rawhit",
	Short: "Send prompts through captured HTTP requests.",
	Long: `rawhit replays a raw HTTP request captured from an intercepting proxy,
with a placeholder such as {PROMPT} where the prompt goes, and extracts the
reply from the response.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd)
	},
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for more detail)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("RAWHIT_NO_COLOR", false), "Disable colored output (env: RAWHIT_NO_COLOR)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("RAWHIT_CONFIG", ""), "Path to config file (env: RAWHIT_CONFIG)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging sends library logs to stderr so that stdout only carries
// results.
func setupLogging(cmd *cobra.Command) {
	level := slog.LevelWarn
	switch {
	case verboseFlag >= 2:
		level = slog.LevelDebug
	case verboseFlag == 1:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
