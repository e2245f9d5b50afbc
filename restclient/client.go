// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient issues outbound HTTP requests on behalf of a
// service: opaque tokens, JSON documents and free-form text are
// POSTed, and resources are fetched with GET.
//
// Every operation comes in two forms.  The callback form is the
// primitive; it performs the request on the calling goroutine and
// then calls back with the response metadata, the response body and
// an error:
//
//     c := restclient.New(nil)
//     c.PostJSON(ctx, restclient.Request{URL: u, JSON: doc},
//         func(resp *restclient.Response, body []byte, err error) {
//             ...
//         })
//
// The future form runs the very same primitive on its own goroutine
// and returns immediately:
//
//     f := c.Promises().PostJSON(ctx, restclient.Request{URL: u, JSON: doc})
//     resp, body, err := f.Wait(ctx)
//
// A response with a non-2xx status is not an error at this layer;
// call CheckStatus if that is what the caller wants.  A malformed
// Request produces restdata.ErrPrecondition before any I/O, and
// network failures produce restdata.ErrTransport.
//
// The client imposes no timeout of its own.  Configure one on the
// *http.Client passed to New.
package restclient

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"net/http"
	"sync"

	"github.com/diffeo/go-svckit/restdata"
	"github.com/sirupsen/logrus"
)

// Response describes the metadata of a completed HTTP exchange.
type Response struct {
	// StatusCode is the numeric HTTP status, e.g. 200.
	StatusCode int

	// Status is the status line text, e.g. "200 OK".
	Status string

	// Header holds the response headers.
	Header http.Header
}

// Callback receives the outcome of an outbound request.  On error,
// resp and body are nil unless the failure happened while reading an
// already-started response.
type Callback func(resp *Response, body []byte, err error)

// Client performs outbound requests.
type Client struct {
	// HTTP is the underlying client; transport settings, proxies and
	// timeouts all come from here.
	HTTP *http.Client

	// Logger receives a debug event per request.
	Logger logrus.FieldLogger

	// certClients caches the client built for each distinct client
	// certificate, so its connections are pooled and reused.
	certClients sync.Map
}

// certKey identifies the client built by clientFor.
type certKey struct {
	base    *http.Client
	digest  [sha256.Size]byte
	rootCAs *x509.CertPool
}

// New creates a client on top of an existing *http.Client.  If
// httpClient is nil, http.DefaultClient is used.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		HTTP:   httpClient,
		Logger: logrus.StandardLogger(),
	}
}

// Get fetches req.URL.  req must not carry a body.
func (c *Client) Get(ctx context.Context, req Request, cb Callback) {
	c.do(ctx, "Get", http.MethodGet, req, shapeNone, cb)
}

// GetToken fetches an opaque token from req.URL.  It is the same
// operation as Get; the name documents what the caller expects back.
func (c *Client) GetToken(ctx context.Context, req Request, cb Callback) {
	c.do(ctx, "GetToken", http.MethodGet, req, shapeNone, cb)
}

// PostToken POSTs req.Token as text/plain.
func (c *Client) PostToken(ctx context.Context, req Request, cb Callback) {
	c.do(ctx, "PostToken", http.MethodPost, req, shapeToken, cb)
}

// PostJSON POSTs the JSON serialization of req.JSON.
func (c *Client) PostJSON(ctx context.Context, req Request, cb Callback) {
	c.do(ctx, "PostJSON", http.MethodPost, req, shapeJSON, cb)
}

// PostText POSTs req.Text, with req.Query appended to the URL.
func (c *Client) PostText(ctx context.Context, req Request, cb Callback) {
	c.do(ctx, "PostText", http.MethodPost, req, shapeText, cb)
}

func (c *Client) do(ctx context.Context, op, method string, req Request, want shape, cb Callback) {
	if cb == nil {
		cb = func(*Response, []byte, error) {}
	}

	httpReq, err := req.build(ctx, op, method, want)
	if err != nil {
		cb(nil, nil, err)
		return
	}

	client, err := c.clientFor(op, req.ClientCert)
	if err != nil {
		cb(nil, nil, err)
		return
	}

	if c.Logger != nil {
		c.Logger.WithFields(logrus.Fields{
			"action": op,
			"method": method,
			"url":    httpReq.URL.String(),
		}).Debug("outbound request")
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		cb(nil, nil, restdata.ErrTransport{URL: req.URL, Err: err})
		return
	}
	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
	}
	body, err := ioutil.ReadAll(httpResp.Body)
	err = firstError(err, httpResp.Body.Close())
	if err != nil {
		cb(resp, nil, restdata.ErrTransport{URL: req.URL, Err: err})
		return
	}
	cb(resp, body, nil)
}

// clientFor returns the *http.Client to use for a request.  With a
// client certificate this is a copy of c.HTTP whose transport
// presents that certificate during the TLS handshake.  The copy is
// built once per distinct certificate and key material.
func (c *Client) clientFor(op string, cert *ClientCert) (*http.Client, error) {
	base := c.HTTP
	if base == nil {
		base = http.DefaultClient
	}
	if cert == nil {
		return base, nil
	}

	h := sha256.New()
	_, _ = h.Write(cert.Certificate)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(cert.PrivateKey)
	key := certKey{base: base, rootCAs: cert.RootCAs}
	h.Sum(key.digest[:0])
	if cached, ok := c.certClients.Load(key); ok {
		return cached.(*http.Client), nil
	}

	pair, err := tls.X509KeyPair(cert.Certificate, cert.PrivateKey)
	if err != nil {
		return nil, restdata.ErrPrecondition{
			Op:     op,
			Reason: "invalid client certificate: " + err.Error(),
		}
	}

	var transport *http.Transport
	switch t := base.Transport.(type) {
	case nil:
		transport = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		transport = t.Clone()
	default:
		return nil, restdata.ErrNotImplemented{
			Text: "client certificates require an *http.Transport",
		}
	}

	tlsConfig := transport.TLSClientConfig.Clone()
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	tlsConfig.Certificates = []tls.Certificate{pair}
	if cert.RootCAs != nil {
		tlsConfig.RootCAs = cert.RootCAs
	}
	transport.TLSClientConfig = tlsConfig

	client := *base
	client.Transport = transport
	actual, loaded := c.certClients.LoadOrStore(key, &client)
	if loaded {
		transport.CloseIdleConnections()
	}
	return actual.(*http.Client), nil
}
