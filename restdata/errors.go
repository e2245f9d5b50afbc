// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrPrecondition is returned when a public operation is called with
// malformed input: a missing required field, or an invalid
// combination of payload shapes.  This is a programmer error; it is
// reported before any I/O happens and retrying cannot help.
type ErrPrecondition struct {
	// Op names the operation that was called.
	Op string

	// Reason describes what was wrong with the input.
	Reason string
}

func (e ErrPrecondition) Error() string {
	return fmt.Sprintf("%s: precondition violated: %s", e.Op, e.Reason)
}

// HTTPStatus returns a fixed 400 Bad Request error code.
func (e ErrPrecondition) HTTPStatus() int {
	return http.StatusBadRequest
}

// ErrTransport wraps a network, DNS or connection failure from an
// outbound request.
type ErrTransport struct {
	// URL is the target of the failed request.
	URL string

	Err error
}

func (e ErrTransport) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e ErrTransport) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 502 Bad Gateway error code.
func (e ErrTransport) HTTPStatus() int {
	return http.StatusBadGateway
}

// ErrHandlerFault is raised when a registered handler reports an
// error or panics.  The request is answered with a 500 and the fault
// is reported to the service's fault sink; the process keeps running.
type ErrHandlerFault struct {
	Service string
	Method  string
	Path    string
	Err     error
}

func (e ErrHandlerFault) Error() string {
	return fmt.Sprintf("%s: handler fault on %s %s: %v",
		e.Service, e.Method, e.Path, e.Err)
}

func (e ErrHandlerFault) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 500 Internal Server Error code.
func (e ErrHandlerFault) HTTPStatus() int {
	return http.StatusInternalServerError
}

// ErrNotImplemented is returned from an operation whose
// functionality does not exist yet.
type ErrNotImplemented struct {
	Text string
}

func (e ErrNotImplemented) Error() string {
	if e.Text == "" {
		return "Not implemented"
	}
	return e.Text
}

// HTTPStatus returns a fixed 501 Not Implemented error code.
func (e ErrNotImplemented) HTTPStatus() int {
	return http.StatusNotImplemented
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// StatusOf returns the HTTP status code that best describes err, or
// 500 if err carries no status of its own.
func StatusOf(err error) int {
	var errS ErrorStatus
	if errors.As(err, &errS) {
		return errS.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// FromError populates an ErrorResponse to fill in its fields based
// on an error value.  This remaps the well-known errors to specific
// e.Error codes, looking through any wrapping, as StatusOf does.
func (e *ErrorResponse) FromError(err error) {
	var (
		fault        ErrHandlerFault
		precondition ErrPrecondition
		transport    ErrTransport
		notImpl      ErrNotImplemented
		mediaType    ErrUnsupportedMediaType
	)
	e.Error = "error"
	e.Message = err.Error()
	switch {
	case errors.As(err, &fault):
		e.Error = "ErrHandlerFault"
		e.Value = fault.Path
	case errors.As(err, &precondition):
		e.Error = "ErrPrecondition"
		e.Message = precondition.Reason
		e.Value = precondition.Op
	case errors.As(err, &transport):
		e.Error = "ErrTransport"
		e.Value = transport.URL
	case errors.As(err, &notImpl):
		e.Error = "ErrNotImplemented"
		e.Message = notImpl.Error()
	case errors.As(err, &mediaType):
		e.Error = "ErrUnsupportedMediaType"
		e.Message = mediaType.Error()
		e.Value = mediaType.Type
	}
}

// ToError converts e back to a typed error, if that is possible.
// If not, returns a plain error with e.Message text.
func (e *ErrorResponse) ToError() error {
	switch e.Error {
	case "ErrPrecondition":
		return ErrPrecondition{Op: e.Value, Reason: e.Message}
	case "ErrNotImplemented":
		return ErrNotImplemented{Text: e.Message}
	case "ErrUnsupportedMediaType":
		return ErrUnsupportedMediaType{Type: e.Value}
	default:
		return errors.New(e.Message)
	}
}

// FromPanic populates an error response based on a panic.  Typical use
// is:
//
//     defer func() {
//         if obj := recover(); obj != nil {
//             resp := restdata.ErrorResponse{}
//             resp.FromPanic(obj)
//             // write resp out as makes sense
//         }
//    }
func (e *ErrorResponse) FromPanic(obj interface{}) {
	e.Error = "panic"
	if recoveredError, isError := obj.(error); isError {
		e.Message = recoveredError.Error()
	} else {
		e.Message = fmt.Sprintf("%+v", obj)
	}
	var stack [4096]byte
	len := runtime.Stack(stack[:], false)
	e.Stack = string(stack[:len])
}

// PanicError converts a recovered panic value into an error.
func PanicError(obj interface{}) error {
	if err, isError := obj.(error); isError {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %+v", obj)
}
