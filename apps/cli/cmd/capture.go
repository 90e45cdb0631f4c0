package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/abdul-hamid-achik/rawhit/packages/proxy"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	captureTargetFlag     string
	captureListenFlag     string
	captureMarkerFlag     string
	captureTokenFlag      string
	captureOutFlag        string
	captureOnlyMarkedFlag bool
	captureExcludeFlags   []string
	captureSanitizeFlags  []string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record requests through a local proxy and save them as templates",
	Long: `Start a reverse proxy in front of --target. Every request sent through it is
forwarded and recorded. The marker string is replaced by the placeholder, and
credential headers become {{$NAME}} environment references. On Ctrl+C the
recorded requests are written to --out as .req templates.

Examples:
  rawhit capture --target https://chat.example.com
  rawhit capture --target https://chat.example.com --listen 127.0.0.1:9000 --only-marked
  rawhit capture --target http://localhost:3000 --marker XYZZY --out ./templates`,
	Args: usageArgs(cobra.NoArgs),
	RunE: captureCommand,
}

func init() {
	captureCmd.Flags().StringVar(&captureTargetFlag, "target", getEnvString("RAWHIT_CAPTURE_TARGET", ""), "Upstream URL to forward requests to (env: RAWHIT_CAPTURE_TARGET)")
	captureCmd.Flags().StringVar(&captureListenFlag, "listen", getEnvString("RAWHIT_CAPTURE_LISTEN", proxy.DefaultListenAddr), "Address to listen on (env: RAWHIT_CAPTURE_LISTEN)")
	captureCmd.Flags().StringVar(&captureMarkerFlag, "marker", proxy.DefaultMarker, "String in the request that marks the prompt position")
	captureCmd.Flags().StringVar(&captureTokenFlag, "token", template.DefaultPlaceholder, "Placeholder written in place of the marker")
	captureCmd.Flags().StringVar(&captureOutFlag, "out", "captures", "Directory for recorded templates")
	captureCmd.Flags().BoolVar(&captureOnlyMarkedFlag, "only-marked", false, "Record only requests that carry the marker")
	captureCmd.Flags().StringSliceVar(&captureExcludeFlags, "exclude", nil, "Path substrings to forward without recording")
	captureCmd.Flags().StringSliceVar(&captureSanitizeFlags, "sanitize", proxy.DefaultSanitize, "Headers replaced by environment references")
	_ = captureCmd.MarkFlagRequired("target")
}

func captureCommand(cmd *cobra.Command, args []string) error {
	if noColorFlag {
		color.NoColor = true
	}

	recorder := proxy.NewRecorder(
		proxy.WithTargetURL(captureTargetFlag),
		proxy.WithListenAddr(captureListenFlag),
		proxy.WithMarker(captureMarkerFlag),
		proxy.WithPlaceholder(captureTokenFlag),
		proxy.WithOnlyMarked(captureOnlyMarkedFlag),
		proxy.WithExclude(captureExcludeFlags),
		proxy.WithSanitize(captureSanitizeFlags),
		proxy.WithLogger(slog.Default()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- recorder.Start(ctx) }()

	out := cmd.OutOrStdout()
	addr, err := recorder.Addr(ctx)
	if err != nil {
		<-errCh
		return withCode(ExitNetworkError, err)
	}
	fmt.Fprintf(out, "Recording %s on http://%s\n", captureTargetFlag, addr)
	fmt.Fprintf(out, "Put %s where the prompt goes, press Ctrl+C to save.\n", color.CyanString(captureMarkerFlag))

	if err := <-errCh; err != nil {
		return withCode(ExitNetworkError, err)
	}

	return saveCaptures(cmd, recorder)
}

func saveCaptures(cmd *cobra.Command, recorder *proxy.Recorder) error {
	out := cmd.OutOrStdout()
	if len(recorder.Captures()) == 0 {
		fmt.Fprintln(out, color.YellowString("No requests recorded."))
		return nil
	}

	paths, err := recorder.WriteTemplates(captureOutFlag)
	for _, p := range paths {
		fmt.Fprintf(out, "%s %s\n", color.GreenString("Saved:"), p)
	}
	if err != nil {
		return fmt.Errorf("cannot save templates: %w", err)
	}
	return nil
}
