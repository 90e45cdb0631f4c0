package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSavedResponse_FullCapture(t *testing.T) {
	raw := "HTTP/1.1 429 Too Many Requests\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 11\r\n" +
		"\r\n" +
		`{"ok":true}`

	resp, err := ReadSavedResponse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	assert.Equal(t, "429 Too Many Requests", resp.Status)
	assert.True(t, resp.IsJSON())
	assert.Equal(t, `{"ok":true}`, resp.BodyString())
}

func TestReadSavedResponse_BareBody(t *testing.T) {
	resp, err := ReadSavedResponse([]byte(`<html><a href="/x"></a></html>`))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `<html><a href="/x"></a></html>`, resp.BodyString())
	assert.Empty(t, resp.ContentType())
}

func TestReadSavedResponse_Chunked(t *testing.T) {
	raw := "HTTP/1.1 200 OK\nTransfer-Encoding: chunked\n\n5\r\nhello\r\n0\r\n\r\n"

	resp, err := ReadSavedResponse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.BodyString())
}

func TestReadSavedResponse_Malformed(t *testing.T) {
	_, err := ReadSavedResponse([]byte("HTTP/1.1 abc\n\n"))
	assert.Error(t, err)
}
