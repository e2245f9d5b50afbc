// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"bytes"
	"context"
	"crypto/x509"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/diffeo/go-svckit/restdata"
)

// QueryParam is a single query-string parameter.
type QueryParam struct {
	Name  string
	Value string
}

// ClientCert is the material for a mutual-TLS client certificate.
type ClientCert struct {
	// Certificate is the PEM-encoded certificate chain.
	Certificate []byte

	// PrivateKey is the PEM-encoded private key for Certificate.
	PrivateKey []byte

	// RootCAs, if non-nil, replaces the set of authorities used to
	// verify the server.
	RootCAs *x509.CertPool
}

// Request describes a single outbound call.  At most one of Token,
// JSON and Text may be set, and it must be the one the operation
// sends; GET operations take none of them.
type Request struct {
	// URL is the target of the request.  Required.
	URL string

	// Headers are applied after the client's defaults, so they
	// override them, Content-Type included.
	Headers *restdata.Headers

	// Token is an opaque token body.
	Token string

	// JSON is serialized as the request body.
	JSON interface{}

	// Text is a free-form text body.
	Text string

	// Query is appended to URL in the order given.  Only PostText
	// accepts it.
	Query []QueryParam

	// ClientCert, if set, is presented during the TLS handshake.
	ClientCert *ClientCert
}

type shape int

const (
	shapeNone shape = iota
	shapeToken
	shapeJSON
	shapeText
)

func (s shape) String() string {
	switch s {
	case shapeToken:
		return "token"
	case shapeJSON:
		return "JSON"
	case shapeText:
		return "text"
	}
	return "no"
}

// validate checks that r is well-formed for an operation sending the
// given body shape.
func (r Request) validate(op string, want shape) error {
	fail := func(reason string) error {
		return restdata.ErrPrecondition{Op: op, Reason: reason}
	}
	if r.URL == "" {
		return fail("URL is required")
	}

	var have []shape
	if r.Token != "" {
		have = append(have, shapeToken)
	}
	if r.JSON != nil {
		have = append(have, shapeJSON)
	}
	if r.Text != "" {
		have = append(have, shapeText)
	}
	if len(have) > 1 {
		return fail("more than one body shape set")
	}
	if want == shapeNone && len(have) == 1 {
		return fail(have[0].String() + " body set on a request without a body")
	}
	if want != shapeNone && (len(have) == 0 || have[0] != want) {
		return fail(want.String() + " body is required")
	}
	if len(r.Query) > 0 && want != shapeText {
		return fail("query parameters are only sent with a text body")
	}
	return nil
}

// build validates r and turns it into an *http.Request.
func (r Request) build(ctx context.Context, op, method string, want shape) (*http.Request, error) {
	if err := r.validate(op, want); err != nil {
		return nil, err
	}

	target, err := url.Parse(r.URL)
	if err != nil {
		return nil, restdata.ErrPrecondition{Op: op, Reason: err.Error()}
	}
	if len(r.Query) > 0 {
		target.RawQuery = appendQuery(target.RawQuery, r.Query)
	}

	var (
		body        io.Reader
		contentType string
	)
	switch want {
	case shapeToken:
		body = strings.NewReader(r.Token)
		contentType = restdata.TokenMediaType
	case shapeJSON:
		// Serialize first so that Content-Length is exact
		encoded, err := restdata.EncodeBytes(r.JSON)
		if err != nil {
			return nil, restdata.ErrPrecondition{Op: op, Reason: "cannot encode JSON: " + err.Error()}
		}
		body = bytes.NewReader(encoded)
		contentType = restdata.JSONMediaType
	case shapeText:
		body = strings.NewReader(r.Text)
		contentType = restdata.TextMediaType
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, restdata.ErrPrecondition{Op: op, Reason: err.Error()}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	r.Headers.Apply(req.Header)
	return req, nil
}

// appendQuery adds params to an existing raw query string, keeping
// the caller's order.
func appendQuery(raw string, params []QueryParam) string {
	parts := make([]string, 0, len(params)+1)
	if raw != "" {
		parts = append(parts, raw)
	}
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p.Name)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}
