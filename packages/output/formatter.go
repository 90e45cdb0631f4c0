package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/rawhit/packages/batch"
	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/abdul-hamid-achik/rawhit/packages/target"
)

// Formatter interface for all output formatters
type Formatter interface {
	FormatExchange(ex *target.Exchange)
	FormatSummary(s *batch.Summary)
	FormatRequest(d *template.DispatchableRequest)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush() error
}

// Formats lists the names New accepts.
var Formats = []string{"console", "json"}

// New returns the formatter named by format, writing to w.
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "", "console":
		return NewConsoleFormatter(
			WithWriter(w),
			WithVerbose(verbose),
			WithNoColor(noColor),
		), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
}
