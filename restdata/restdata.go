// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines common data structures shared between the
// restserver, restclient and apigw packages.
//
// Media Types
//
// Services built on restserver speak two payload shapes.  JSON
// payloads use application/json (text/json is accepted on input).
// Opaque-token payloads, typically signed tokens, are sent as
// text/plain and are never parsed; free-form text bodies use
// text/plain; charset=utf-8.
//
// Error Responses
//
// When a request fails inside the service, the body of the response
// is a JSON serialization of ErrorResponse.  The one exception is the
// internal-key gate, which always answers 403 Forbidden with the
// literal text/plain body FORBIDDEN.
package restdata

// JSONMediaType is the MIME type of JSON request and response bodies.
const JSONMediaType = "application/json"

// TokenMediaType is the MIME type of opaque-token bodies.
const TokenMediaType = "text/plain"

// TextMediaType is the MIME type of free-form text bodies.
const TextMediaType = "text/plain; charset=utf-8"

// Forbidden is the body sent with every 403 from the internal-key gate.
const Forbidden = "FORBIDDEN"

// StatusData is the representation returned from the root URL of
// every service.  It is a liveness probe and requires no credentials.
type StatusData struct {
	// StatusCode repeats the HTTP status, always 200.
	StatusCode int `json:"statusCode"`

	// ServiceName is the configured name of the service.
	ServiceName string `json:"serviceName"`

	// Version is the deployed version of the service, if known.
	Version string `json:"version"`
}

// ErrorResponse is returned as the body of an HTTP response that
// fails.
type ErrorResponse struct {
	// Error is a short description of the failure.  This is the
	// name of a well-known error, the string "panic", or the
	// string "error" for some other kind of error.
	Error string `json:"error"`

	// Message is a human-readable description of the failure.
	Message string `json:"message"`

	// Value is an extra parameter to the error if applicable.
	Value string `json:"value,omitempty"`

	// Stack holds a formatted backtrace, if the handler failed
	// due to a panic.
	Stack string `json:"stack,omitempty"`
}
