// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"net/http"
	"strings"
)

// Headers is an ordered set of HTTP header names and values, used to
// inject extra headers into outbound requests.  Lookups ignore case,
// as HTTP header names do; iteration follows insertion order.  The
// zero value is an empty set ready to use.
type Headers struct {
	names  []string
	values []string
}

// NewHeaders creates a header set from alternating name and value
// strings.  A trailing name with no value is ignored.
func NewHeaders(pairs ...string) *Headers {
	h := &Headers{}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

func (h *Headers) index(name string) int {
	for i, n := range h.names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

// Set adds a header.  If a header with the same name (ignoring case)
// is already present its value is replaced in place.
func (h *Headers) Set(name, value string) *Headers {
	if i := h.index(name); i >= 0 {
		h.names[i] = name
		h.values[i] = value
		return h
	}
	h.names = append(h.names, name)
	h.values = append(h.values, value)
	return h
}

// Get returns the value of a header, or an empty string.
func (h *Headers) Get(name string) string {
	if h == nil {
		return ""
	}
	if i := h.index(name); i >= 0 {
		return h.values[i]
	}
	return ""
}

// Has reports whether a header is present.
func (h *Headers) Has(name string) bool {
	return h != nil && h.index(name) >= 0
}

// Len returns the number of headers.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// Each calls fn for every header in insertion order.
func (h *Headers) Each(fn func(name, value string)) {
	if h == nil {
		return
	}
	for i, name := range h.names {
		fn(name, h.values[i])
	}
}

// Apply sets every header on an http.Header, replacing any value
// already there.
func (h *Headers) Apply(dst http.Header) {
	h.Each(func(name, value string) {
		dst.Set(name, value)
	})
}
