// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package apigw

import (
	"context"
	"net/http"

	"github.com/diffeo/go-svckit/restclient"
	"github.com/diffeo/go-svckit/restdata"
)

// GetURL fetches a token from an arbitrary URL, such as one handed
// back by an earlier gateway response, with the gateway's API key.
func (c *Client) GetURL(ctx context.Context, target string, cb restclient.Callback) {
	if target == "" {
		precondition(cb, "GetURL", "URL is required")
		return
	}
	c.rest.GetToken(ctx, c.requestAt("GetURL", "", target, ""), cb)
}

// PostURL posts a token to an arbitrary URL with the gateway's API
// key.
func (c *Client) PostURL(ctx context.Context, target, token string, cb restclient.Callback) {
	if target == "" {
		precondition(cb, "PostURL", "URL is required")
		return
	}
	if token == "" {
		precondition(cb, "PostURL", "token is required")
		return
	}
	c.rest.PostToken(ctx, c.requestAt("PostURL", "", target, token), cb)
}

// CreatePrivacyPipeAt posts a privacy pipe request token straight to
// a privacy broker at brokerURL, bypassing the gateway's routing.
func (c *Client) CreatePrivacyPipeAt(ctx context.Context, brokerURL, pipeJWT string, cb restclient.Callback) {
	if brokerURL == "" {
		precondition(cb, "CreatePrivacyPipeAt", "broker URL is required")
		return
	}
	if pipeJWT == "" {
		precondition(cb, "CreatePrivacyPipeAt", "privacy pipe token is required")
		return
	}
	c.rest.PostToken(ctx, c.requestAt("CreatePrivacyPipeAt", "", brokerURL, pipeJWT), cb)
}

// MetadataToken fetches one metadata token and returns its body.  A
// 404 response is returned as restdata.ErrNotFound wrapping a
// restclient.ErrorHTTP; any other non-2xx response is returned as a
// bare restclient.ErrorHTTP.
func (c *Client) MetadataToken(ctx context.Context, domainID, metadataID string) (string, error) {
	if metadataID == "" {
		return "", restdata.ErrPrecondition{Op: "MetadataToken", Reason: "metadata ID is required"}
	}
	resp, body, err := c.Promises().FetchMetadata(ctx, domainID, metadataID).Wait(ctx)
	if err != nil {
		return "", err
	}
	return metadataResult(resp, body)
}

func metadataResult(resp *restclient.Response, body []byte) (string, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return string(body), nil
	}
	failure := restclient.ErrorHTTP{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", restdata.ErrNotFound{Err: failure}
	}
	return "", failure
}

// GetURL is the future form of Client.GetURL.
func (p Promises) GetURL(ctx context.Context, target string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.GetURL(ctx, target, cb)
	})
}

// PostURL is the future form of Client.PostURL.
func (p Promises) PostURL(ctx context.Context, target, token string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.PostURL(ctx, target, token, cb)
	})
}

// CreatePrivacyPipeAt is the future form of Client.CreatePrivacyPipeAt.
func (p Promises) CreatePrivacyPipeAt(ctx context.Context, brokerURL, pipeJWT string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.CreatePrivacyPipeAt(ctx, brokerURL, pipeJWT, cb)
	})
}
