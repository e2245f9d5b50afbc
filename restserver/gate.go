// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"strings"
)

// Verdict is the outcome of the internal key check.
type Verdict int

const (
	// Allowed requests proceed to their handler.
	Allowed Verdict = iota

	// Forbidden requests are answered with 403.
	Forbidden
)

func (v Verdict) String() string {
	if v == Allowed {
		return "allowed"
	}
	return "forbidden"
}

// CheckInternalKey decides whether a request carrying header may
// proceed.  A disabled key allows everything.  An enabled key allows
// the request only if the configured header is present with exactly
// the configured secret; the header name is matched without regard
// to case.
func CheckInternalKey(key InternalKey, header http.Header) Verdict {
	if !key.Enabled {
		return Allowed
	}
	name := key.HeaderName
	if name == "" {
		name = DefaultInternalKeyHeader
	}
	if key.Secret == "" {
		return Forbidden
	}
	for field, values := range header {
		if strings.EqualFold(field, name) && len(values) > 0 && values[0] == key.Secret {
			return Allowed
		}
	}
	return Forbidden
}
