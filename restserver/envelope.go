// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"bytes"
	"context"
	"net/http"

	"github.com/diffeo/go-svckit/restdata"
)

// Mode selects the content type a route uses when its handler does
// not set one.
type Mode int

const (
	// JSONMode routes default to application/json.
	JSONMode Mode = iota

	// TokenMode routes default to text/plain, for opaque token
	// payloads.
	TokenMode
)

func (m Mode) contentType() string {
	if m == TokenMode {
		return restdata.TokenMediaType
	}
	return restdata.JSONMediaType
}

func (m Mode) String() string {
	if m == TokenMode {
		return "token"
	}
	return "json"
}

// HandlerFunc handles one request.  It must call done exactly once,
// either before returning or later from another goroutine.  A non-nil
// err is a fault; otherwise data becomes the response body.  Strings
// and byte slices are sent as-is, nil or empty data sends no body, and
// anything else is encoded as JSON.
type HandlerFunc func(req *Request, resp *Response, done func(data interface{}, err error))

// Request is the handler's view of an inbound request.
type Request struct {
	// HTTP is the underlying request.  Its body has already been
	// consumed into Body.
	HTTP *http.Request

	// Header is the inbound request headers.
	Header http.Header

	// Body is the raw request body.
	Body []byte

	// JSON is the decoded body of a POST with a JSON content type,
	// or nil.
	JSON interface{}

	// Vars holds the values of path variables in the route.
	Vars map[string]string

	// Path is the route's full path pattern.
	Path string
}

// Context returns the context of the underlying request.
func (r *Request) Context() context.Context {
	return r.HTTP.Context()
}

// Decode decodes the JSON request body into out, which must be a
// pointer.
func (r *Request) Decode(out interface{}) error {
	return restdata.Decode(r.Header.Get("Content-Type"), bytes.NewReader(r.Body), out)
}

// Response collects what a handler wants to send back.  Anything
// left unset is defaulted when the response is written.
type Response struct {
	status int
	header http.Header
}

func newResponse() *Response {
	return &Response{header: make(http.Header)}
}

// SetStatus sets the HTTP status code.
func (r *Response) SetStatus(code int) {
	r.status = code
}

// Status returns the status code set by the handler, or 0 if none was
// set.
func (r *Response) Status() int {
	return r.status
}

// SetHeader sets a response header, replacing any existing value.
func (r *Response) SetHeader(name, value string) {
	r.header.Set(name, value)
}

// Header returns the response headers for direct manipulation.
func (r *Response) Header() http.Header {
	return r.header
}

// canonicalHeader returns the response headers with every name in
// canonical form, merging names that differ only in case.
func (r *Response) canonicalHeader() http.Header {
	clean := make(http.Header, len(r.header))
	for name, values := range r.header {
		key := http.CanonicalHeaderKey(name)
		clean[key] = append(clean[key], values...)
	}
	return clean
}
