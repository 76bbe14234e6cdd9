package hostctx

import (
	"net/http"
	"sort"
	"strings"
)

// Header is a single inbound header as the host received it.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Order matters: when a name appears more
// than once (in any letter case) the earliest entry wins.
type Headers []Header

// Get returns the value of the first header whose name matches name
// case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Value is Get without the presence flag.
func (h Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// FromHTTP flattens an http.Header. Names are visited in sorted order and each
// name's values keep their received order, so the result is deterministic.
func FromHTTP(h http.Header) Headers {
	if len(h) == 0 {
		return nil
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Headers, 0, len(names))
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}

// FromMap converts a plain map. Names are sorted for a stable order.
func FromMap(m map[string]string) Headers {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Headers, 0, len(names))
	for _, name := range names {
		out = append(out, Header{Name: name, Value: m[name]})
	}
	return out
}
