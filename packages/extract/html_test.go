package extract

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTML(t *testing.T) {
	body := []byte(`<html><a href="/images/create/async/results/abc123">x</a></html>`)

	got := HTML(body, DefaultHTMLPattern, DefaultHTMLHost)
	assert.True(t, got.Found)
	assert.Equal(t, TypeURL, got.Type)
	assert.Equal(t, "https://bing.com/images/create/async/results/abc123", got.Value)
}

func TestHTML_StopsAtWhitespace(t *testing.T) {
	body := []byte("see /images/create/async/results/abc123?q=1 now")

	got := HTML(body, DefaultHTMLPattern, DefaultHTMLHost)
	assert.Equal(t, "https://bing.com/images/create/async/results/abc123?q=1", got.Value)
}

func TestHTML_NoMatchReturnsBody(t *testing.T) {
	body := []byte(`<html><p>still working</p></html>`)

	got := HTML(body, DefaultHTMLPattern, DefaultHTMLHost)
	assert.False(t, got.Found)
	assert.Equal(t, TypeText, got.Type)
	assert.Equal(t, string(body), got.Value)
}

func TestHTML_CustomPattern(t *testing.T) {
	got := HTML([]byte(`id=job-42;`), regexp.MustCompile(`job-\d+`), "https://jobs.example.com/")
	assert.Equal(t, "https://jobs.example.com/job-42", got.Value)
}

func TestCSS(t *testing.T) {
	body := []byte(`<html><body>
<div class="answer"> The answer </div>
<div class="answer">second</div>
<a class="result" href="https://example.com/r/1">link</a>
<img id="out" src="/img/1.png">
</body></html>`)

	tests := []struct {
		name     string
		selector string
		want     string
		found    bool
		typ      DataType
	}{
		{"text of first match", "div.answer", "The answer", true, TypeText},
		{"href attribute", "a.result@href", "https://example.com/r/1", true, TypeURL},
		{"src attribute", "#out@src", "/img/1.png", true, TypeURL},
		{"other attribute", "a.result@class", "result", true, TypeText},
		{"missing attribute", "a.result@title", "", false, TypeText},
		{"no match", "span.none", "", false, TypeText},
		{"attribute selector keeps @ free values", `a[href="https://example.com/r/1"]`, "link", true, TypeText},
		{"empty selector", "", "", false, TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CSS(body, tt.selector)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.found, got.Found)
			assert.Equal(t, tt.typ, got.Type)
		})
	}
}
