package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/rawhit/packages/batch"
	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/abdul-hamid-achik/rawhit/packages/target"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Results []JSONResult `json:"results"`
	Summary *JSONSummary `json:"summary,omitempty"`
	Errors  []string     `json:"errors,omitempty"`
	Time    string       `json:"time"`
}

// JSONResult is one prompt and what came back for it.
type JSONResult struct {
	Index    int           `json:"index"`
	Prompt   string        `json:"prompt,omitempty"`
	Value    string        `json:"value"`
	Found    bool          `json:"found"`
	Type     string        `json:"type,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration float64       `json:"duration"`
	Request  *JSONRequest  `json:"request,omitempty"`
	Response *JSONResponse `json:"response,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Bytes      int               `json:"bytes"`
	Duration   float64           `json:"duration"`
}

// JSONSummary carries batch totals; latencies are in milliseconds.
type JSONSummary struct {
	Total     int     `json:"total"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Missed    int     `json:"missed"`
	Duration  float64 `json:"duration"`
	P50       float64 `json:"p50"`
	P95       float64 `json:"p95"`
	P99       float64 `json:"p99"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
}

// JSONFormatter accumulates results and writes them on Flush
type JSONFormatter struct {
	writer  io.Writer
	results []JSONResult
	summary *JSONSummary
	errors  []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func jsonRequest(d *template.DispatchableRequest) *JSONRequest {
	return &JSONRequest{
		Method:  d.Method,
		URL:     d.URL,
		Headers: d.Headers.Map(),
		Body:    d.Body,
	}
}

func exchangeResult(index int, prompt string, ex *target.Exchange) JSONResult {
	return JSONResult{
		Index:    index,
		Prompt:   prompt,
		Value:    ex.Result.Value,
		Found:    ex.Result.Found,
		Type:     string(ex.Result.Type),
		Duration: ms(ex.Response.Duration),
		Request:  jsonRequest(ex.Request),
		Response: &JSONResponse{
			StatusCode: ex.Response.StatusCode,
			Status:     ex.Response.Status,
			Headers:    ex.Response.Headers,
			Bytes:      len(ex.Response.Body),
			Duration:   ms(ex.Response.Duration),
		},
	}
}

func (f *JSONFormatter) FormatExchange(ex *target.Exchange) {
	f.results = append(f.results, exchangeResult(len(f.results), "", ex))
}

func (f *JSONFormatter) FormatSummary(s *batch.Summary) {
	for _, item := range s.Items {
		if item.Err != nil {
			f.results = append(f.results, JSONResult{
				Index:    item.Index,
				Prompt:   item.Prompt,
				Error:    item.Err.Error(),
				Duration: ms(item.Duration),
			})
			continue
		}
		r := exchangeResult(item.Index, item.Prompt, item.Exchange)
		r.Duration = ms(item.Duration)
		f.results = append(f.results, r)
	}

	f.summary = &JSONSummary{
		Total:     s.Total,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Missed:    s.Missed,
		Duration:  ms(s.Duration),
		P50:       ms(s.Latency.P50),
		P95:       ms(s.Latency.P95),
		P99:       ms(s.Latency.P99),
		Min:       ms(s.Latency.Min),
		Max:       ms(s.Latency.Max),
		Mean:      ms(s.Latency.Mean),
	}
}

// FormatRequest records a dry run as a result without a response.
func (f *JSONFormatter) FormatRequest(d *template.DispatchableRequest) {
	f.results = append(f.results, JSONResult{
		Index:   len(f.results),
		Found:   d.Substituted(),
		Request: jsonRequest(d),
	})
}

func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	output := JSONOutput{
		Results: f.results,
		Summary: f.summary,
		Errors:  f.errors,
		Time:    time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(output)
}
