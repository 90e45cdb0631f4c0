package target

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/abdul-hamid-achik/rawhit/packages/extract"
	rawhttp "github.com/abdul-hamid-achik/rawhit/packages/http"
	"github.com/abdul-hamid-achik/rawhit/packages/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func hostOf(server *httptest.Server) string {
	return strings.TrimPrefix(server.URL, "http://")
}

func chatTemplate(server *httptest.Server) string {
	return `POST /v1/chat HTTP/1.1
Host: ` + hostOf(server) + `
Content-Type: application/json
Content-Length: 0

{
  "messages": [{"role": "user", "content": "{PROMPT}"}]
}`
}

func TestHTTPTarget_SendPrompt_JSONKeyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.True(t, gjson.ValidBytes(body), "body: %s", body)
		assert.Equal(t, "tell me a joke please", gjson.GetBytes(body, "messages.0.content").String())
		assert.Equal(t, int64(len(body)), r.ContentLength)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"why did the gopher cross the road"}}]}`))
	}))
	defer server.Close()

	tgt, err := NewHTTPTarget(chatTemplate(server),
		WithStrategy(extract.JSONStrategy{}),
		WithParseKey("choices[0].message.content"),
	)
	require.NoError(t, err)

	req := models.NewPromptRequest(models.NewUserPiece("tell me\na joke\tplease"))
	resp, err := tgt.SendPrompt(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Pieces, 1)
	piece := resp.Pieces[0]
	assert.Equal(t, "why did the gopher cross the road", piece.OriginalValue)
	assert.Equal(t, models.RoleAssistant, piece.Role)
	assert.Equal(t, req.Pieces[0].ConversationID, piece.ConversationID)
	assert.Equal(t, extract.TypeText, piece.DataType)
	assert.Equal(t, Name, piece.Target)
	assert.Empty(t, req.Pieces[0].Target)
}

func TestHTTPTarget_SendPrompt_RawBodyWithoutStrategy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "a b&c", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte("plain reply"))
	}))
	defer server.Close()

	raw := "GET /search?q={PROMPT} HTTP/1.1\nHost: " + hostOf(server)
	tgt, err := NewHTTPTarget(raw)
	require.NoError(t, err)

	resp, err := tgt.SendPrompt(context.Background(), models.NewPromptRequest(models.NewUserPiece("a b&c")))
	require.NoError(t, err)
	assert.Equal(t, "plain reply", resp.Text())
}

func TestHTTPTarget_SendPrompt_UsesConvertedValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	tgt, err := NewHTTPTarget("POST / HTTP/1.1\nHost: " + hostOf(server) + "\n\nq={PROMPT}")
	require.NoError(t, err)

	piece := models.NewUserPiece("original")
	piece.ConvertedValue = "converted"
	resp, err := tgt.SendPrompt(context.Background(), models.NewPromptRequest(piece))
	require.NoError(t, err)
	assert.Equal(t, "q=converted", resp.Text())
}

func TestHTTPTarget_SendPrompt_HTMLURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<a href="/images/create/async/results/1-abc">`))
	}))
	defer server.Close()

	tgt, err := NewHTTPTarget("POST /images/create HTTP/1.1\nHost: "+hostOf(server)+"\n\nq={PROMPT}",
		WithStrategy(extract.NewHTMLStrategy(nil, "")))
	require.NoError(t, err)

	resp, err := tgt.SendPrompt(context.Background(), models.NewPromptRequest(models.NewUserPiece("a cat")))
	require.NoError(t, err)
	assert.Equal(t, "https://bing.com/images/create/async/results/1-abc", resp.Text())
	assert.Equal(t, extract.TypeURL, resp.Pieces[0].DataType)
}

func TestHTTPTarget_SendPrompt_RejectsMultiplePieces(t *testing.T) {
	tgt, err := NewHTTPTarget("GET / HTTP/1.1\nHost: example.com")
	require.NoError(t, err)

	req := models.NewPromptRequest(models.NewUserPiece("a"), models.NewUserPiece("b"))
	_, err = tgt.SendPrompt(context.Background(), req)
	assert.Error(t, err)
}

func TestNewHTTPTarget_InvalidTemplate(t *testing.T) {
	_, err := NewHTTPTarget("GET / FTP/1.0\nHost: example.com")
	assert.True(t, errors.Is(err, template.ErrUnsupportedProtocol))

	_, err = NewHTTPTarget("GET /path HTTP/1.1")
	assert.True(t, errors.Is(err, template.ErrMissingHost))

	_, err = NewHTTPTarget("GET / HTTP/1.1\nHost: example.com", WithPlaceholder("("))
	assert.Error(t, err)
}

func TestHTTPTarget_Render_WarnsWithoutPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	tgt, err := NewHTTPTarget("POST / HTTP/1.1\nHost: example.com\n\n{\"q\":\"static\"}", WithLogger(testLogger(&buf)))
	require.NoError(t, err)

	d, err := tgt.Render("ignored")
	require.NoError(t, err)
	assert.Equal(t, `{"q":"static"}`, d.Body)
	assert.Contains(t, buf.String(), "placeholder not found")
}

func TestHTTPTarget_Render_WarnsOnBrokenJSON(t *testing.T) {
	var buf bytes.Buffer
	tgt, err := NewHTTPTarget("POST / HTTP/1.1\nHost: example.com\n\n{\"q\":\"{PROMPT}\"}", WithLogger(testLogger(&buf)))
	require.NoError(t, err)

	_, err = tgt.Render(`he said "no"`)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no longer valid JSON")
}

func TestHTTPTarget_Render_CustomPlaceholder(t *testing.T) {
	tgt, err := NewHTTPTarget("POST / HTTP/1.1\nHost: example.com\n\n{\"q\":\"§INPUT§\"}", WithPlaceholder("§INPUT§"))
	require.NoError(t, err)

	d, err := tgt.Render("x")
	require.NoError(t, err)
	assert.Equal(t, `{"q":"x"}`, d.Body)
}

func TestHTTPTarget_Render_ResolverRunsPerCall(t *testing.T) {
	var calls atomic.Int32
	resolve := func(s string) string {
		n := calls.Add(1)
		return strings.ReplaceAll(s, "{{n}}", strconv.Itoa(int(n)))
	}

	tgt, err := NewHTTPTarget("POST /{{n}} HTTP/1.1\nHost: example.com\n\n{PROMPT}", WithResolver(resolve))
	require.NoError(t, err)

	first, err := tgt.Render("a")
	require.NoError(t, err)
	second, err := tgt.Render("a")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/2", first.URL)
	assert.Equal(t, "http://example.com/3", second.URL)
}

func TestHTTPTarget_Send_WarnsWhenNothingExtracted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	tgt, err := NewHTTPTarget(chatTemplate(server),
		WithStrategy(extract.JSONStrategy{}),
		WithParseKey("choices[0].message.content"),
		WithLogger(testLogger(&buf)),
	)
	require.NoError(t, err)

	ex, err := tgt.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.False(t, ex.Result.Found)
	assert.Empty(t, ex.Result.Value)
	assert.Equal(t, 200, ex.Response.StatusCode)
	assert.Contains(t, buf.String(), "nothing extracted")
}

func TestHTTPTarget_Send_ErrorStatusIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`short and stout`))
	}))
	defer server.Close()

	tgt, err := NewHTTPTarget("GET / HTTP/1.1\nHost: " + hostOf(server))
	require.NoError(t, err)

	ex, err := tgt.Send(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, ex.Response.StatusCode)
	assert.Equal(t, "short and stout", ex.Result.Value)
}

type flakyDoer struct {
	failures int
	calls    int
	mu       sync.Mutex
}

func (f *flakyDoer) Do(ctx context.Context, req *rawhttp.Request) (*rawhttp.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection refused")
	}
	return &rawhttp.Response{StatusCode: 200, Body: []byte("ok")}, nil
}

func TestHTTPTarget_Retry(t *testing.T) {
	doer := &flakyDoer{failures: 2}
	tgt, err := NewHTTPTarget("GET / HTTP/1.1\nHost: example.com",
		WithClient(doer),
		WithRetry(2, time.Millisecond),
		WithLogger(testLogger(&bytes.Buffer{})),
	)
	require.NoError(t, err)

	ex, err := tgt.Send(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", ex.Result.Value)
	assert.Equal(t, 3, doer.calls)
}

func TestHTTPTarget_RetryExhausted(t *testing.T) {
	doer := &flakyDoer{failures: 5}
	tgt, err := NewHTTPTarget("GET / HTTP/1.1\nHost: example.com",
		WithClient(doer),
		WithRetry(1, time.Millisecond),
		WithLogger(testLogger(&bytes.Buffer{})),
	)
	require.NoError(t, err)

	_, err = tgt.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, doer.calls)
}

func TestHTTPTarget_ConcurrentSends(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"echo":` + strconv.Quote(gjson.GetBytes(body, "messages.0.content").String()) + `}`))
	}))
	defer server.Close()

	tgt, err := NewHTTPTarget(chatTemplate(server), WithStrategy(extract.JSONStrategy{}), WithParseKey("echo"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prompt := "prompt " + strconv.Itoa(i)
			ex, err := tgt.Send(context.Background(), prompt)
			if assert.NoError(t, err) {
				assert.Equal(t, prompt, ex.Result.Value)
			}
		}(i)
	}
	wg.Wait()
}
