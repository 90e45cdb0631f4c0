package proxy

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/rawhit/packages/core/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	t.Cleanup(upstream.Close)
	return upstream
}

func newProxy(t *testing.T, opts ...Option) (*Recorder, *httptest.Server) {
	t.Helper()
	upstream := newUpstream(t)

	rec := NewRecorder(append([]Option{WithTargetURL(upstream.URL), WithLogger(quietLogger())}, opts...)...)
	handler, err := rec.Handler()
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return rec, srv
}

func TestRecorder_CapturesMarkedRequest(t *testing.T) {
	rec, srv := newProxy(t)

	req, err := http.NewRequest("POST", srv.URL+"/v1/chat?stream=false",
		strings.NewReader(`{"messages":[{"role":"user","content":"RAWHIT_PROMPT"}]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Client", "mobile")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, `{"reply":"ok"}`, string(body))

	captures := rec.Captures()
	require.Len(t, captures, 1)
	c := captures[0]

	assert.True(t, c.Marked)
	assert.Equal(t, "POST", c.Method)
	assert.Equal(t, "/v1/chat?stream=false", c.RequestURI)
	assert.Equal(t, `{"messages":[{"role":"user","content":"{PROMPT}"}]}`, c.Body)
	assert.Equal(t, "{{$AUTHORIZATION}}", c.Headers.Get("Authorization"))
	assert.Equal(t, "mobile", c.Headers.Get("X-Client"))
	assert.False(t, c.Headers.Has("Accept-Encoding"))
	require.NotNil(t, c.Response)
	assert.Equal(t, 200, c.Response.StatusCode)
	assert.Equal(t, 14, c.Response.Size)

	parsed, err := template.Parse(c.Template())
	require.NoError(t, err)
	assert.Equal(t, "POST", parsed.Method)
	assert.True(t, strings.HasPrefix(parsed.URL, "http://127.0.0.1:"), parsed.URL)
	assert.True(t, strings.HasSuffix(parsed.URL, "/v1/chat?stream=false"), parsed.URL)
	assert.True(t, parsed.BodyIsJSON)

	d := template.Substitute(parsed, template.MustPlaceholder(""), "hello")
	assert.Equal(t, `{"messages":[{"role":"user","content":"hello"}]}`, d.Body)
}

func TestRecorder_MarkerInQuery(t *testing.T) {
	rec, srv := newProxy(t)

	resp, err := http.Get(srv.URL + "/search?q=RAWHIT_PROMPT&lang=en")
	require.NoError(t, err)
	resp.Body.Close()

	captures := rec.Captures()
	require.Len(t, captures, 1)
	assert.Equal(t, "/search?q={PROMPT}&lang=en", captures[0].RequestURI)
	assert.Equal(t, "GET /search?q={PROMPT}&lang=en HTTP/1.1\nHost: "+captures[0].Host+"\n",
		firstLines(captures[0].Template(), 2))
}

func TestRecorder_EscapedMarker(t *testing.T) {
	rec, srv := newProxy(t, WithMarker("ask here"))

	for _, path := range []string{"/search?q=ask+here", "/search/ask%20here"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	captures := rec.Captures()
	require.Len(t, captures, 2)
	assert.True(t, captures[0].Marked)
	assert.Equal(t, "/search?q={PROMPT}", captures[0].RequestURI)
	assert.True(t, captures[1].Marked)
	assert.Equal(t, "/search/{PROMPT}", captures[1].RequestURI)
}

func TestRecorder_EscapedMarkerInFormBody(t *testing.T) {
	rec, srv := newProxy(t, WithMarker("§§"), WithOnlyMarked(true))

	resp, err := http.Post(srv.URL+"/form?lang=%C2%A7%C2%A7", "application/x-www-form-urlencoded",
		strings.NewReader("text=%C2%A7%C2%A7&mode=chat"))
	require.NoError(t, err)
	resp.Body.Close()

	captures := rec.Captures()
	require.Len(t, captures, 1)
	assert.True(t, captures[0].Marked)
	assert.Equal(t, "/form?lang={PROMPT}", captures[0].RequestURI)
	assert.Equal(t, "text={PROMPT}&mode=chat", captures[0].Body)
	assert.Equal(t, "23", captures[0].Headers.Get("Content-Length"))
}

func firstLines(s string, n int) string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "")
}

func TestRecorder_OnlyMarkedAndExclude(t *testing.T) {
	rec, srv := newProxy(t, WithOnlyMarked(true), WithExclude([]string{"/health"}))

	for _, path := range []string{"/plain", "/health?q=RAWHIT_PROMPT", "/ask?q=RAWHIT_PROMPT"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	captures := rec.Captures()
	require.Len(t, captures, 1)
	assert.Equal(t, "/ask?q={PROMPT}", captures[0].RequestURI)

	rec.Clear()
	assert.Empty(t, rec.Captures())
}

func TestRecorder_CustomMarkerAndPlaceholder(t *testing.T) {
	rec, srv := newProxy(t, WithMarker("§§"), WithPlaceholder("<<INPUT>>"))

	resp, err := http.Post(srv.URL+"/form", "application/x-www-form-urlencoded", bytes.NewBufferString("text=§§"))
	require.NoError(t, err)
	resp.Body.Close()

	captures := rec.Captures()
	require.Len(t, captures, 1)
	assert.Equal(t, "text=<<INPUT>>", captures[0].Body)
	assert.Equal(t, "14", captures[0].Headers.Get("Content-Length"))
}

func TestCapture_TemplateHTTPS(t *testing.T) {
	c := Capture{
		Method:     "GET",
		RequestURI: "/images?q={PROMPT}",
		Host:       "www.bing.com",
		Scheme:     "https",
		Headers:    template.NewHeaders().Set("Accept", "text/html"),
	}

	assert.Equal(t, "GET /images?q={PROMPT} HTTP/2\nHost: www.bing.com\nAccept: text/html\n", c.Template())

	parsed, err := template.Parse(c.Template())
	require.NoError(t, err)
	assert.Equal(t, "https://www.bing.com/images?q={PROMPT}", parsed.URL)
}

func TestRecorder_WriteTemplates(t *testing.T) {
	rec, srv := newProxy(t)

	for _, path := range []string{"/", "/v1/chat/completions?x=1"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	dir := filepath.Join(t.TempDir(), "captures")
	paths, err := rec.WriteTemplates(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "001-get-root.req", filepath.Base(paths[0]))
	assert.Equal(t, "002-get-v1-chat-completions.req", filepath.Base(paths[1]))

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "GET /v1/chat/completions?x=1 HTTP/1.1\n"))
}

func TestRecorder_Start(t *testing.T) {
	upstream := newUpstream(t)
	rec := NewRecorder(WithTargetURL(upstream.URL), WithListenAddr("127.0.0.1:0"), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Start(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer addrCancel()
	addr, err := rec.Addr(addrCtx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, rec.Captures(), 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("proxy did not shut down")
	}
}

func TestRecorder_Errors(t *testing.T) {
	_, err := NewRecorder().Handler()
	assert.ErrorContains(t, err, "target URL is required")

	_, err = NewRecorder(WithTargetURL("ftp://example.com")).Handler()
	assert.ErrorContains(t, err, "unsupported target scheme")
}

func TestRecorder_AddrReportsListenError(t *testing.T) {
	rec := NewRecorder(WithTargetURL("http://example.com"), WithListenAddr("256.0.0.1:99999"), WithLogger(quietLogger()))

	err := rec.Start(context.Background())
	require.Error(t, err)

	_, addrErr := rec.Addr(context.Background())
	assert.ErrorContains(t, addrErr, "cannot listen on")
}
