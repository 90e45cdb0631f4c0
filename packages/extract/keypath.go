package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

type SegmentKind int

const (
	SegmentKey SegmentKind = iota
	SegmentIndex
)

// Segment is one step of a key-path: an object key or an array index.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

func (s Segment) String() string {
	if s.Kind == SegmentIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// KeyPath is a parsed path like choices[0].message.content.
type KeyPath []Segment

func (kp KeyPath) String() string {
	var b strings.Builder
	for i, s := range kp {
		if i > 0 && s.Kind == SegmentKey {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// ParseKeyPath tokenizes identifiers ([A-Za-z_][A-Za-z0-9_-]*) and bracketed
// indices. Dots between segments are optional.
func ParseKeyPath(path string) (KeyPath, error) {
	var kp KeyPath
	for i := 0; i < len(path); {
		c := path[i]
		switch {
		case c == '.':
			i++
		case c == '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("key path %q: unclosed '[' at offset %d", path, i)
			}
			digits := path[i+1 : i+end]
			n, err := strconv.Atoi(digits)
			if err != nil || n < 0 || digits == "" || digits[0] == '+' {
				return nil, fmt.Errorf("key path %q: index %q at offset %d is not a non-negative integer", path, digits, i)
			}
			kp = append(kp, Segment{Kind: SegmentIndex, Index: n})
			i += end + 1
		case isIdentStart(c):
			j := i + 1
			for j < len(path) && isIdentPart(path[j]) {
				j++
			}
			kp = append(kp, Segment{Kind: SegmentKey, Key: path[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("key path %q: unexpected %q at offset %d", path, c, i)
		}
	}
	return kp, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9') || c == '-'
}

// Walk follows kp through doc. Any step that does not apply to the value at
// hand ends the walk with a miss.
func (kp KeyPath) Walk(doc gjson.Result) Result {
	cur := doc
	for _, seg := range kp {
		next, ok := step(cur, seg)
		if !ok {
			return notFound()
		}
		cur = next
	}
	return coerce(cur)
}

func step(cur gjson.Result, seg Segment) (gjson.Result, bool) {
	var found gjson.Result
	ok := false

	switch seg.Kind {
	case SegmentKey:
		if !cur.IsObject() {
			return found, false
		}
		// last duplicate wins
		cur.ForEach(func(k, v gjson.Result) bool {
			if k.String() == seg.Key {
				found, ok = v, true
			}
			return true
		})
	case SegmentIndex:
		if !cur.IsArray() {
			return found, false
		}
		i := 0
		cur.ForEach(func(_, v gjson.Result) bool {
			if i == seg.Index {
				found, ok = v, true
				return false
			}
			i++
			return true
		})
	}
	return found, ok
}

func coerce(v gjson.Result) Result {
	switch v.Type {
	case gjson.String:
		return Result{Value: v.Str, Found: true, Type: TypeText}
	case gjson.Number:
		return Result{Value: v.Raw, Found: true, Type: TypeText}
	case gjson.True, gjson.False:
		return Result{Value: v.String(), Found: true, Type: TypeText}
	case gjson.JSON:
		return Result{Value: string(pretty.Ugly([]byte(v.Raw))), Found: true, Type: TypeText}
	}
	return notFound()
}

// ExtractJSON walks path through an already parsed document. An invalid
// path is a miss.
func ExtractJSON(doc gjson.Result, path string) Result {
	kp, err := ParseKeyPath(path)
	if err != nil {
		return notFound()
	}
	return kp.Walk(doc)
}

// JSON parses data and walks path through it. Bodies that are not JSON are
// a miss.
func JSON(data []byte, path string) Result {
	if !gjson.ValidBytes(data) {
		return notFound()
	}
	return ExtractJSON(gjson.ParseBytes(data), path)
}
