package http

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// ReadSavedResponse loads a response saved to disk. A capture that starts
// with an HTTP status line is parsed in full; anything else is taken as a
// bare 200 body.
func ReadSavedResponse(data []byte) (*Response, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("HTTP/")) {
		return &Response{StatusCode: http.StatusOK, Status: "200 OK", Body: data, Headers: map[string]string{}}, nil
	}

	httpResp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(trimmed)), nil)
	if err != nil {
		return nil, fmt.Errorf("parsing saved response: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil && len(body) == 0 {
		return nil, fmt.Errorf("reading saved response body: %w", err)
	}

	headers := make(map[string]string)
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       body,
	}, nil
}
