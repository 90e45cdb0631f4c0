package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseKeyPath(t *testing.T) {
	kp, err := ParseKeyPath("choices[0].message.content")
	require.NoError(t, err)
	require.Len(t, kp, 4)

	assert.Equal(t, Segment{Kind: SegmentKey, Key: "choices"}, kp[0])
	assert.Equal(t, Segment{Kind: SegmentIndex, Index: 0}, kp[1])
	assert.Equal(t, Segment{Kind: SegmentKey, Key: "message"}, kp[2])
	assert.Equal(t, Segment{Kind: SegmentKey, Key: "content"}, kp[3])
	assert.Equal(t, "choices[0].message.content", kp.String())
}

func TestParseKeyPath_Forms(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "", want: ""},
		{path: "a", want: "a"},
		{path: "[2]", want: "[2]"},
		{path: "a[1][2].b", want: "a[1][2].b"},
		{path: "data2.item_id", want: "data2.item_id"},
		{path: "x-request-id", want: "x-request-id"},
		{path: "a..b", want: "a.b"},
		{path: "a[", wantErr: true},
		{path: "a[]", wantErr: true},
		{path: "a[-1]", wantErr: true},
		{path: "a[x]", wantErr: true},
		{path: "a/b", wantErr: true},
		{path: "1abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			kp, err := ParseKeyPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kp.String())
		})
	}
}

func TestJSON(t *testing.T) {
	chat := []byte(`{"choices":[{"message":{"content":"hi"}}]}`)

	tests := []struct {
		name  string
		data  string
		path  string
		want  string
		found bool
	}{
		{"chat completion", string(chat), "choices[0].message.content", "hi", true},
		{"empty object", `{}`, "choices[0].message.content", "", false},
		{"index out of range", `{"a":[1,2]}`, "a[5]", "", false},
		{"index in range", `{"a":[1,2]}`, "a[1]", "2", true},
		{"index on object", `{"a":{"b":1}}`, "a[0]", "", false},
		{"key on array", `{"a":[{"b":1}]}`, "a.b", "", false},
		{"key on scalar", `{"a":"text"}`, "a.b", "", false},
		{"null terminal", `{"a":null}`, "a", "", false},
		{"empty string found", `{"a":""}`, "a", "", true},
		{"number keeps literal", `{"n":1.50}`, "n", "1.50", true},
		{"bool", `{"ok":false}`, "ok", "false", true},
		{"object terminal", `{"a":{ "b" : [1, 2] }}`, "a", `{"b":[1,2]}`, true},
		{"escaped string", `{"a":"line\nnext \"q\""}`, "a", "line\nnext \"q\"", true},
		{"duplicate key last wins", `{"a":1,"a":2}`, "a", "2", true},
		{"top-level array", `[{"id":"x"}]`, "[0].id", "x", true},
		{"empty path returns document", `{"a": 1}`, "", `{"a":1}`, true},
		{"invalid path", `{"a":1}`, "a/b", "", false},
		{"not json", `<html></html>`, "a", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JSON([]byte(tt.data), tt.path)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.found, got.Found)
			assert.Equal(t, TypeText, got.Type)
		})
	}
}

func TestExtractJSON_ReusesParsedDocument(t *testing.T) {
	doc := gjson.Parse(`{"data":[{"url":"https://x/1"},{"url":"https://x/2"}]}`)

	assert.Equal(t, "https://x/1", ExtractJSON(doc, "data[0].url").Value)
	assert.Equal(t, "https://x/2", ExtractJSON(doc, "data[1].url").Value)
}
