// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckInternalKey(t *testing.T) {
	enabled := InternalKey{Enabled: true, HeaderName: "x-internal-key", Secret: "s3cret"}
	tests := []struct {
		Name    string
		Key     InternalKey
		Header  http.Header
		Verdict Verdict
	}{
		{"disabled, no headers", InternalKey{}, nil, Allowed},
		{"disabled, junk headers", InternalKey{Secret: "x"}, http.Header{"X-Internal-Key": {"nope"}}, Allowed},
		{"no headers", enabled, nil, Forbidden},
		{"header absent", enabled, http.Header{"Other": {"s3cret"}}, Forbidden},
		{"wrong value", enabled, http.Header{"X-Internal-Key": {"s3cret2"}}, Forbidden},
		{"value case differs", enabled, http.Header{"X-Internal-Key": {"S3CRET"}}, Forbidden},
		{"empty value", enabled, http.Header{"X-Internal-Key": {""}}, Forbidden},
		{"match", enabled, http.Header{"X-Internal-Key": {"s3cret"}}, Allowed},
		{"match, raw lowercase name", enabled, http.Header{"x-internal-key": {"s3cret"}}, Allowed},
		{"match, upper name", enabled, http.Header{"X-INTERNAL-KEY": {"s3cret"}}, Allowed},
		{
			"default header name",
			InternalKey{Enabled: true, Secret: "s3cret"},
			http.Header{http.CanonicalHeaderKey(DefaultInternalKeyHeader): {"s3cret"}},
			Allowed,
		},
		{"enabled without secret", InternalKey{Enabled: true, HeaderName: "x"}, http.Header{"X": {""}}, Forbidden},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Verdict, CheckInternalKey(test.Key, test.Header))
		})
	}
}

func TestBuildPath(t *testing.T) {
	tests := []struct {
		Base, Version, Sub string
		Path               string
	}{
		{"/", "v1", "/items", "/v1/items"},
		{"", "v1", "/items", "/v1/items"},
		{"/api", "v2", "/items/{key}", "/api/v2/items/{key}"},
		{"/api", "v2", "", "/api/v2"},
		{"/", "v1", "", "/v1"},
	}
	for _, test := range tests {
		first := BuildPath(test.Base, test.Version, test.Sub)
		second := BuildPath(test.Base, test.Version, test.Sub)
		assert.Equal(t, test.Path, first)
		assert.Equal(t, first, second)
	}
}
