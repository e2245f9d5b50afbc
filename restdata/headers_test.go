// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersCaseInsensitive(t *testing.T) {
	h := NewHeaders("X-Api-Key", "123", "Content-Type", "text/xml")
	assert.Equal(t, "123", h.Get("x-api-key"))
	assert.Equal(t, "text/xml", h.Get("CONTENT-TYPE"))
	assert.True(t, h.Has("content-type"))
	assert.False(t, h.Has("accept"))
	assert.Equal(t, "", h.Get("accept"))
}

func TestHeadersInsertionOrder(t *testing.T) {
	h := &Headers{}
	h.Set("b", "1").Set("a", "2").Set("c", "3").Set("B", "4")

	var names, values []string
	h.Each(func(name, value string) {
		names = append(names, name)
		values = append(values, value)
	})
	assert.Equal(t, []string{"B", "a", "c"}, names)
	assert.Equal(t, []string{"4", "2", "3"}, values)
	assert.Equal(t, 3, h.Len())
}

func TestHeadersNil(t *testing.T) {
	var h *Headers
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, "", h.Get("anything"))
	assert.False(t, h.Has("anything"))
	h.Each(func(string, string) {
		t.Error("nil headers should have no entries")
	})
}

func TestHeadersApplyOverrides(t *testing.T) {
	dst := http.Header{}
	dst.Set("Content-Type", TokenMediaType)
	NewHeaders("content-type", "application/jwt", "x-extra", "y").Apply(dst)
	assert.Equal(t, "application/jwt", dst.Get("Content-Type"))
	assert.Equal(t, "y", dst.Get("X-Extra"))
	assert.Len(t, dst["Content-Type"], 1)
}
