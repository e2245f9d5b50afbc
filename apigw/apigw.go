// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package apigw talks to the API gateway that fronts the domain,
// metadata, privacy pipe and identity syndication services.  Every
// request and response body is an opaque token; this package only
// builds URLs and adds the gateway's API key.
//
// Each operation follows the restclient conventions: the Client
// method takes a restclient.Callback, and the same operation on
// Client.Promises returns a *restclient.Future.
package apigw

import (
	"context"
	"net/url"

	"github.com/diffeo/go-svckit/restclient"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/sirupsen/logrus"
)

// DefaultAPIKeyName is the header that carries Options.APIKey when
// Options.APIKeyName is empty.
const DefaultAPIKeyName = "x-api-key"

// Options locates the gateway.
type Options struct {
	// GatewayURL is the scheme, host and optional path prefix of
	// the gateway, such as "https://gw.example.com".  Required.
	GatewayURL string

	// APIKey, if set, is sent with every request.
	APIKey string

	// APIKeyName is the header APIKey is sent in.  If empty,
	// DefaultAPIKeyName.
	APIKeyName string
}

// Client makes gateway requests.
type Client struct {
	options Options
	rest    *restclient.Client
	logger  logrus.FieldLogger
	service string
}

// New creates a gateway client.  service names the calling service in
// log messages.  If rest is nil a default restclient is used; if
// logger is nil the logrus standard logger is.
func New(options Options, rest *restclient.Client, logger logrus.FieldLogger, service string) (*Client, error) {
	if options.GatewayURL == "" {
		return nil, restdata.ErrPrecondition{Op: "apigw.New", Reason: "GatewayURL is required"}
	}
	if _, err := url.Parse(options.GatewayURL); err != nil {
		return nil, restdata.ErrPrecondition{Op: "apigw.New", Reason: err.Error()}
	}
	if options.APIKeyName == "" {
		options.APIKeyName = DefaultAPIKeyName
	}
	if rest == nil {
		rest = restclient.New(nil)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		options: options,
		rest:    rest,
		logger:  logger,
		service: service,
	}, nil
}

// Options returns the client's options, with defaults filled in.
func (c *Client) Options() Options {
	return c.options
}

// request builds a restclient request for a gateway path.
func (c *Client) request(action, domainID, path, token string) restclient.Request {
	return c.requestAt(action, domainID, c.options.GatewayURL+path, token)
}

// requestAt builds a restclient request for an absolute URL, carrying
// the gateway's API key.
func (c *Client) requestAt(action, domainID, target, token string) restclient.Request {
	req := restclient.Request{
		URL:   target,
		Token: token,
	}
	fields := logrus.Fields{
		"service": c.service,
		"action":  action,
		"url":     req.URL,
	}
	if domainID != "" {
		fields["domain_id"] = domainID
	}
	if c.options.APIKey != "" {
		req.Headers = restdata.NewHeaders(c.options.APIKeyName, c.options.APIKey)
		fields["key_name"] = c.options.APIKeyName
	}
	c.logger.WithFields(fields).Info("gateway request")
	return req
}

func (c *Client) get(ctx context.Context, action, domainID, path string, cb restclient.Callback) {
	c.rest.GetToken(ctx, c.request(action, domainID, path, ""), cb)
}

func (c *Client) post(ctx context.Context, action, domainID, path, token string, cb restclient.Callback) {
	c.rest.PostToken(ctx, c.request(action, domainID, path, token), cb)
}

func precondition(cb restclient.Callback, op, reason string) {
	if cb != nil {
		cb(nil, nil, restdata.ErrPrecondition{Op: op, Reason: reason})
	}
}

// FetchDomain retrieves the token describing a domain.
func (c *Client) FetchDomain(ctx context.Context, domainID string, cb restclient.Callback) {
	if domainID == "" {
		precondition(cb, "FetchDomain", "domain ID is required")
		return
	}
	c.get(ctx, "FetchDomain", domainID, DomainPath(domainID), cb)
}

// CreateDomain posts a domain token to create a new domain.
func (c *Client) CreateDomain(ctx context.Context, domainJWT string, cb restclient.Callback) {
	if domainJWT == "" {
		precondition(cb, "CreateDomain", "domain token is required")
		return
	}
	c.post(ctx, "CreateDomain", "", DomainPath(""), domainJWT, cb)
}

// FetchMetadata retrieves metadata.  An empty metadataID fetches the
// whole collection; an empty domainID uses the gateway-level path.
func (c *Client) FetchMetadata(ctx context.Context, domainID, metadataID string, cb restclient.Callback) {
	c.get(ctx, "FetchMetadata", domainID, MetadataPath(domainID, metadataID), cb)
}

// PostMetadata posts a metadata token.  An empty domainID uses the
// gateway-level path.
func (c *Client) PostMetadata(ctx context.Context, domainID, metadataJWT string, cb restclient.Callback) {
	if metadataJWT == "" {
		precondition(cb, "PostMetadata", "metadata token is required")
		return
	}
	c.post(ctx, "PostMetadata", domainID, MetadataPath(domainID, ""), metadataJWT, cb)
}

// CreatePrivacyPipe posts a privacy pipe request token.  An empty
// domainID uses the gateway-level path.
func (c *Client) CreatePrivacyPipe(ctx context.Context, domainID, pipeJWT string, cb restclient.Callback) {
	if pipeJWT == "" {
		precondition(cb, "CreatePrivacyPipe", "privacy pipe token is required")
		return
	}
	c.post(ctx, "CreatePrivacyPipe", domainID, PrivacyPipePath(domainID), pipeJWT, cb)
}

// GetJobs retrieves a domain's identity syndication jobs, or a single
// job if jobID is set.
func (c *Client) GetJobs(ctx context.Context, domainID, jobID string, cb restclient.Callback) {
	if domainID == "" {
		precondition(cb, "GetJobs", "domain ID is required")
		return
	}
	c.get(ctx, "GetJobs", domainID, JobsPath(domainID, jobID), cb)
}

// Promises exposes the future form of every Client operation.
type Promises struct {
	client *Client
}

// Promises returns the future-style view of c.
func (c *Client) Promises() Promises {
	return Promises{client: c}
}

// FetchDomain is the future form of Client.FetchDomain.
func (p Promises) FetchDomain(ctx context.Context, domainID string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.FetchDomain(ctx, domainID, cb)
	})
}

// CreateDomain is the future form of Client.CreateDomain.
func (p Promises) CreateDomain(ctx context.Context, domainJWT string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.CreateDomain(ctx, domainJWT, cb)
	})
}

// FetchMetadata is the future form of Client.FetchMetadata.
func (p Promises) FetchMetadata(ctx context.Context, domainID, metadataID string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.FetchMetadata(ctx, domainID, metadataID, cb)
	})
}

// PostMetadata is the future form of Client.PostMetadata.
func (p Promises) PostMetadata(ctx context.Context, domainID, metadataJWT string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.PostMetadata(ctx, domainID, metadataJWT, cb)
	})
}

// CreatePrivacyPipe is the future form of Client.CreatePrivacyPipe.
func (p Promises) CreatePrivacyPipe(ctx context.Context, domainID, pipeJWT string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.CreatePrivacyPipe(ctx, domainID, pipeJWT, cb)
	})
}

// GetJobs is the future form of Client.GetJobs.
func (p Promises) GetJobs(ctx context.Context, domainID, jobID string) *restclient.Future {
	return restclient.Async(func(cb restclient.Callback) {
		p.client.GetJobs(ctx, domainID, jobID, cb)
	})
}
