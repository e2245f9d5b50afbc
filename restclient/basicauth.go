// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"encoding/base64"

	"github.com/diffeo/go-svckit/restdata"
)

// GenerateBasicAuthTokenForHeader produces the value of an
// Authorization: header for HTTP basic authentication.
func GenerateBasicAuthTokenForHeader(username, password string) (string, error) {
	if username == "" || password == "" {
		return "", restdata.ErrPrecondition{
			Op:     "GenerateBasicAuthTokenForHeader",
			Reason: "username and password are both required",
		}
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password)), nil
}
