package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultHTMLPattern matches the async result link of the image creator page.
var DefaultHTMLPattern = regexp.MustCompile(`/images/create/async/results/[^\s"]+`)

// DefaultHTMLHost is prepended to a DefaultHTMLPattern match.
const DefaultHTMLHost = "https://bing.com"

// HTML returns host plus the first match of pattern in body as a URL. With
// no match the whole body comes back as text with Found unset.
func HTML(body []byte, pattern *regexp.Regexp, host string) Result {
	if m := pattern.Find(body); m != nil {
		return Result{Value: host + string(m), Found: true, Type: TypeURL}
	}
	return Result{Value: string(body), Type: TypeText}
}

// CSS selects the first node matching selector. A trailing @attr returns that
// attribute instead of the node text; href and src values are URLs.
func CSS(body []byte, selector string) Result {
	sel, attr := splitAttr(selector)
	if sel == "" {
		return notFound()
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return notFound()
	}

	node := doc.Find(sel).First()
	if node.Length() == 0 {
		return notFound()
	}

	if attr == "" {
		return Result{Value: strings.TrimSpace(node.Text()), Found: true, Type: TypeText}
	}

	v, ok := node.Attr(attr)
	if !ok {
		return notFound()
	}
	typ := TypeText
	if attr == "href" || attr == "src" {
		typ = TypeURL
	}
	return Result{Value: v, Found: true, Type: typ}
}

func splitAttr(selector string) (string, string) {
	selector = strings.TrimSpace(selector)
	i := strings.LastIndexByte(selector, '@')
	if i < 0 || strings.ContainsAny(selector[i:], "]\"' ") {
		return selector, ""
	}
	return strings.TrimSpace(selector[:i]), selector[i+1:]
}
