package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/rawhit/packages/batch"
	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/abdul-hamid-achik/rawhit/packages/target"
	"github.com/fatih/color"
)

const (
	maxPromptLen = 40
	maxValueLen  = 80
)

// truncate shortens s to maxLen runes and puts it on one line.
func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen]) + "..."
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func statusColor(code int) func(a ...interface{}) string {
	switch {
	case code >= 500:
		return color.New(color.FgRed).SprintFunc()
	case code >= 400:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgGreen).SprintFunc()
	}
}

// FormatExchange prints the extracted value on its own line so that it can
// be piped.
func (f *ConsoleFormatter) FormatExchange(ex *target.Exchange) {
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	resp := ex.Response
	fmt.Fprintf(f.writer, "%s %s %s %s\n",
		ex.Request.Method,
		ex.Request.URL,
		statusColor(resp.StatusCode)(resp.Status),
		cyan(fmt.Sprintf("(%dms)", resp.DurationMs())))

	if f.verbose {
		ex.Request.Headers.Each(func(name, value string) {
			fmt.Fprintf(f.writer, "  %s %s: %s\n", faint(">"), name, value)
		})
		for name, value := range resp.Headers {
			fmt.Fprintf(f.writer, "  %s %s: %s\n", faint("<"), name, value)
		}
		fmt.Fprintf(f.writer, "  %s\n", faint(fmt.Sprintf("%d bytes received", len(resp.Body))))
	}

	if !ex.Result.Found {
		fmt.Fprintf(f.writer, "%s\n", yellow("no value extracted from response"))
		if ex.Result.Value == "" {
			return
		}
	}
	fmt.Fprintf(f.writer, "%s\n", ex.Result.Value)
}

func (f *ConsoleFormatter) FormatSummary(s *batch.Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(f.writer, "\n")
	for _, item := range s.Items {
		prompt := truncate(item.Prompt, maxPromptLen)
		switch {
		case item.Err != nil:
			fmt.Fprintf(f.writer, "  %s #%d %s %s\n", red("✗"), item.Index, prompt, red(fmt.Sprintf("(%v)", item.Err)))
		case !item.Exchange.Result.Found:
			fmt.Fprintf(f.writer, "  %s #%d %s %s %s\n", yellow("?"), item.Index, prompt,
				cyan(fmt.Sprintf("(%dms)", item.Duration.Milliseconds())),
				yellow(fmt.Sprintf("status %d, nothing extracted", item.Exchange.Response.StatusCode)))
		default:
			fmt.Fprintf(f.writer, "  %s #%d %s %s\n", green("✓"), item.Index, prompt,
				cyan(fmt.Sprintf("(%dms)", item.Duration.Milliseconds())))
			if f.verbose {
				fmt.Fprintf(f.writer, "    → %s\n", truncate(item.Exchange.Result.Value, maxValueLen))
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Prompts: ")
	if got := s.Succeeded - s.Missed; got > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d answered", got)))
	}
	if s.Missed > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d empty", s.Missed)))
	}
	if s.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", s.Failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Total)

	if s.Succeeded > 0 {
		l := s.Latency
		fmt.Fprintf(f.writer, "Latency: p50=%dms p95=%dms p99=%dms max=%dms\n",
			l.P50.Milliseconds(), l.P95.Milliseconds(), l.P99.Milliseconds(), l.Max.Milliseconds())
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n", s.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "\n")
}

// FormatRequest prints d the way it would go on the wire.
func (f *ConsoleFormatter) FormatRequest(d *template.DispatchableRequest) {
	bold := color.New(color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(f.writer, "%s %s\n", bold(d.Method), d.URL)
	d.Headers.Each(func(name, value string) {
		fmt.Fprintf(f.writer, "%s: %s\n", name, value)
	})
	if d.Body != "" {
		fmt.Fprintf(f.writer, "\n%s\n", d.Body)
	}
	if !d.Substituted() {
		fmt.Fprintf(f.writer, "\n%s\n", yellow("placeholder not found; the request is sent unchanged"))
	}
	if d.BodyIsJSON && !d.BodyValidJSON {
		fmt.Fprintf(f.writer, "\n%s\n", yellow("body is no longer valid JSON"))
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	if !f.verbose {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("rawhit"), version)
}
