package template

import "strings"

// Headers is an ordered header map with unique keys. Names compare
// case-insensitively; setting an existing name replaces its value in place.
type Headers struct {
	keys   []string
	values map[string]string
}

func NewHeaders() *Headers {
	return &Headers{values: make(map[string]string)}
}

func (h *Headers) index(name string) int {
	for i, k := range h.keys {
		if strings.EqualFold(k, name) {
			return i
		}
	}
	return -1
}

// Set stores value under name. An existing entry keeps its original spelling
// and position.
func (h *Headers) Set(name, value string) *Headers {
	if i := h.index(name); i >= 0 {
		h.values[h.keys[i]] = value
		return h
	}
	h.keys = append(h.keys, name)
	h.values[name] = value
	return h
}

func (h *Headers) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

func (h *Headers) Lookup(name string) (string, bool) {
	i := h.index(name)
	if i < 0 {
		return "", false
	}
	return h.values[h.keys[i]], true
}

func (h *Headers) Has(name string) bool {
	return h.index(name) >= 0
}

func (h *Headers) Del(name string) {
	i := h.index(name)
	if i < 0 {
		return
	}
	delete(h.values, h.keys[i])
	h.keys = append(h.keys[:i], h.keys[i+1:]...)
}

// Keys returns header names in insertion order.
func (h *Headers) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

func (h *Headers) Len() int {
	return len(h.keys)
}

func (h *Headers) Each(fn func(name, value string)) {
	for _, k := range h.keys {
		fn(k, h.values[k])
	}
}

func (h *Headers) Clone() *Headers {
	c := &Headers{
		keys:   make([]string, len(h.keys)),
		values: make(map[string]string, len(h.values)),
	}
	copy(c.keys, h.keys)
	for k, v := range h.values {
		c.values[k] = v
	}
	return c
}

// Map flattens the headers for the transport, which does not keep order.
func (h *Headers) Map() map[string]string {
	m := make(map[string]string, len(h.keys))
	for k, v := range h.values {
		m[k] = v
	}
	return m
}
