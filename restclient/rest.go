// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic response handling.

import (
	"bytes"
	"fmt"

	"github.com/diffeo/go-svckit/restdata"
)

// ErrorHTTP is a catch-all error for non-successes returned from a
// REST endpoint.
type ErrorHTTP struct {
	// StatusCode is the numeric status of the failing response.
	StatusCode int

	// Status is the status line of the failing response.
	Status string

	// Body holds the contents of the message body, presumed to
	// be text.
	Body string
}

func (e ErrorHTTP) Error() string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("HTTP status %d", e.StatusCode)
}

// HTTPStatus returns the status of the failing response.
func (e ErrorHTTP) HTTPStatus() int {
	return e.StatusCode
}

// CheckStatus examines a response and returns an error if it is not
// successful.  If the body is a restdata.ErrorResponse, the error it
// describes is returned; otherwise the result is an ErrorHTTP.
func CheckStatus(resp *Response, body []byte) error {
	if resp == nil {
		return restdata.ErrPrecondition{Op: "CheckStatus", Reason: "no response"}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Take a shot at decoding it as a better error
	var errResp restdata.ErrorResponse
	contentType := resp.Header.Get("Content-Type")
	err := restdata.Decode(contentType, bytes.NewReader(body), &errResp)
	if err == nil && errResp.Error != "" {
		// Given that we decoded that successfully, return the
		// server-provided error
		return errResp.ToError()
	}

	return ErrorHTTP{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
