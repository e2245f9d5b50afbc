// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io/ioutil"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diffeo/go-svckit/logging"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo is a server that reports back what it saw.
type echo struct {
	Method      string
	ContentType string
	Body        string
	Query       string
	Header      http.Header
}

func newEchoServer(t *testing.T) (*httptest.Server, *echo) {
	seen := &echo{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := ioutil.ReadAll(r.Body)
		assert.NoError(t, err)
		seen.Method = r.Method
		seen.ContentType = r.Header.Get("Content-Type")
		seen.Body = string(body)
		seen.Query = r.URL.RawQuery
		seen.Header = r.Header
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Seen", r.Method)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)
	return server, seen
}

func testClient() *Client {
	c := New(nil)
	c.Logger = logging.Discard()
	return c
}

type result struct {
	Resp *Response
	Body []byte
	Err  error
}

func capture(r *result) Callback {
	return func(resp *Response, body []byte, err error) {
		r.Resp = resp
		r.Body = body
		r.Err = err
	}
}

func TestContentTypeDefaults(t *testing.T) {
	server, seen := newEchoServer(t)
	c := testClient()
	ctx := context.Background()

	tests := []struct {
		Name        string
		Call        func(Callback)
		ContentType string
		Body        string
	}{
		{
			Name: "token",
			Call: func(cb Callback) {
				c.PostToken(ctx, Request{URL: server.URL, Token: "jwt1"}, cb)
			},
			ContentType: "text/plain",
			Body:        "jwt1",
		},
		{
			Name: "json",
			Call: func(cb Callback) {
				c.PostJSON(ctx, Request{URL: server.URL, JSON: map[string]interface{}{"hello": "world2"}}, cb)
			},
			ContentType: "application/json",
			Body:        `{"hello":"world2"}`,
		},
		{
			Name: "text",
			Call: func(cb Callback) {
				c.PostText(ctx, Request{URL: server.URL, Text: "some words"}, cb)
			},
			ContentType: "text/plain; charset=utf-8",
			Body:        "some words",
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			var r result
			test.Call(capture(&r))
			require.NoError(t, r.Err)
			assert.Equal(t, http.StatusOK, r.Resp.StatusCode)
			assert.Equal(t, "ok", string(r.Body))
			assert.Equal(t, http.MethodPost, seen.Method)
			assert.Equal(t, test.ContentType, seen.ContentType)
			if test.Name == "json" {
				assert.JSONEq(t, test.Body, seen.Body)
			} else {
				assert.Equal(t, test.Body, seen.Body)
			}
		})
	}
}

func TestGet(t *testing.T) {
	server, seen := newEchoServer(t)
	c := testClient()

	var r result
	c.Get(context.Background(), Request{URL: server.URL + "/thing"}, capture(&r))
	require.NoError(t, r.Err)
	assert.Equal(t, http.MethodGet, seen.Method)
	assert.Equal(t, "", seen.ContentType)
	assert.Equal(t, "GET", r.Resp.Header.Get("X-Seen"))

	c.GetToken(context.Background(), Request{URL: server.URL}, capture(&r))
	require.NoError(t, r.Err)
	assert.Equal(t, "ok", string(r.Body))
}

func TestHeaderOverride(t *testing.T) {
	server, seen := newEchoServer(t)
	c := testClient()

	var r result
	c.PostToken(context.Background(), Request{
		URL:     server.URL,
		Token:   "jwt1",
		Headers: restdata.NewHeaders("Content-Type", "application/jwt", "x-api-key", "secret"),
	}, capture(&r))
	require.NoError(t, r.Err)
	assert.Equal(t, "application/jwt", seen.ContentType)
	assert.Equal(t, "secret", seen.Header.Get("X-Api-Key"))
}

func TestQueryOrder(t *testing.T) {
	server, seen := newEchoServer(t)
	c := testClient()

	var r result
	c.PostText(context.Background(), Request{
		URL:  server.URL + "/?x=0",
		Text: "body",
		Query: []QueryParam{
			{Name: "b", Value: "2"},
			{Name: "a", Value: "1 2"},
			{Name: "b", Value: "3"},
		},
	}, capture(&r))
	require.NoError(t, r.Err)
	assert.Equal(t, "x=0&b=2&a=1+2&b=3", seen.Query)
}

func TestPreconditions(t *testing.T) {
	c := testClient()
	ctx := context.Background()
	url := "http://127.0.0.1:1/"

	tests := []struct {
		Name string
		Call func(Callback)
	}{
		{"no URL", func(cb Callback) { c.Get(ctx, Request{}, cb) }},
		{"GET with body", func(cb Callback) { c.Get(ctx, Request{URL: url, Token: "x"}, cb) }},
		{"token missing", func(cb Callback) { c.PostToken(ctx, Request{URL: url}, cb) }},
		{"wrong shape", func(cb Callback) { c.PostJSON(ctx, Request{URL: url, Text: "x"}, cb) }},
		{"two shapes", func(cb Callback) { c.PostText(ctx, Request{URL: url, Text: "x", Token: "y"}, cb) }},
		{"query without text", func(cb Callback) {
			c.PostToken(ctx, Request{URL: url, Token: "x", Query: []QueryParam{{"a", "b"}}}, cb)
		}},
		{"bad certificate", func(cb Callback) {
			c.Get(ctx, Request{URL: url, ClientCert: &ClientCert{Certificate: []byte("x"), PrivateKey: []byte("y")}}, cb)
		}},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			var r result
			called := 0
			test.Call(func(resp *Response, body []byte, err error) {
				called++
				capture(&r)(resp, body, err)
			})
			assert.Equal(t, 1, called)
			assert.Nil(t, r.Resp)
			var pre restdata.ErrPrecondition
			assert.True(t, errors.As(r.Err, &pre), "%v", r.Err)
		})
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	var r result
	testClient().Get(context.Background(), Request{URL: url}, capture(&r))
	require.Error(t, r.Err)
	var transport restdata.ErrTransport
	if assert.True(t, errors.As(r.Err, &transport)) {
		assert.Equal(t, url, transport.URL)
	}
	assert.Nil(t, r.Resp)
	assert.Nil(t, r.Body)
}

func TestNon2xxIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", restdata.JSONMediaType)
		w.WriteHeader(http.StatusNotImplemented)
		_ = restdata.Encode(w, restdata.ErrorResponse{Error: "ErrNotImplemented", Message: "later"})
	}))
	defer server.Close()

	var r result
	testClient().Get(context.Background(), Request{URL: server.URL}, capture(&r))
	require.NoError(t, r.Err)
	assert.Equal(t, http.StatusNotImplemented, r.Resp.StatusCode)

	err := CheckStatus(r.Resp, r.Body)
	assert.Equal(t, restdata.ErrNotImplemented{Text: "later"}, err)
}

func TestCheckStatusPlain(t *testing.T) {
	resp := &Response{StatusCode: 503, Status: "503 Service Unavailable", Header: http.Header{}}
	err := CheckStatus(resp, []byte("down"))
	assert.Equal(t, ErrorHTTP{StatusCode: 503, Status: "503 Service Unavailable", Body: "down"}, err)
	assert.Equal(t, 503, restdata.StatusOf(err))

	assert.NoError(t, CheckStatus(&Response{StatusCode: 204}, nil))
}

func TestFutureMatchesCallback(t *testing.T) {
	server, seen := newEchoServer(t)
	c := testClient()
	ctx := context.Background()
	req := Request{
		URL:     server.URL,
		JSON:    map[string]interface{}{"hello": "world2"},
		Headers: restdata.NewHeaders("X-Trace", "1"),
	}

	var r result
	c.PostJSON(ctx, req, capture(&r))
	require.NoError(t, r.Err)
	callbackSeen := *seen

	f := c.Promises().PostJSON(ctx, req)
	resp, body, err := f.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Resp.StatusCode, resp.StatusCode)
	assert.Equal(t, r.Body, body)
	assert.Equal(t, callbackSeen.ContentType, seen.ContentType)
	assert.Equal(t, callbackSeen.Body, seen.Body)
	assert.Equal(t, "1", seen.Header.Get("X-Trace"))

	select {
	case <-f.Done():
	default:
		t.Error("future not done after Wait returned")
	}
}

func TestFuturePrecondition(t *testing.T) {
	f := testClient().Promises().PostToken(context.Background(), Request{URL: "http://example.com/"})
	_, _, err := f.Wait(context.Background())
	var pre restdata.ErrPrecondition
	assert.True(t, errors.As(err, &pre))
}

func TestFutureWaitCancelled(t *testing.T) {
	block := make(chan struct{})
	f := Async(func(cb Callback) {
		<-block
		cb(nil, nil, nil)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := f.Wait(ctx)
	assert.Equal(t, context.Canceled, err)

	close(block)
	_, _, err = f.Wait(context.Background())
	assert.NoError(t, err)
}

// selfSigned produces a PEM certificate and key usable as TLS client
// material.
func selfSigned(t *testing.T) ([]byte, []byte) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "svckit test client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func TestMutualTLS(t *testing.T) {
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if assert.NotNil(t, r.TLS) && assert.Len(t, r.TLS.PeerCertificates, 1) {
			_, _ = w.Write([]byte(r.TLS.PeerCertificates[0].Subject.CommonName))
		}
	}))
	server.TLS = &tls.Config{ClientAuth: tls.RequireAnyClientCert}
	server.StartTLS()
	defer server.Close()

	c := New(server.Client())
	c.Logger = testClient().Logger
	certPEM, keyPEM := selfSigned(t)

	var r result
	c.Get(context.Background(), Request{
		URL:        server.URL,
		ClientCert: &ClientCert{Certificate: certPEM, PrivateKey: keyPEM},
	}, capture(&r))
	require.NoError(t, r.Err)
	assert.Equal(t, "svckit test client", string(r.Body))

	// Without the certificate the handshake fails
	c.Get(context.Background(), Request{URL: server.URL}, capture(&r))
	var transport restdata.ErrTransport
	assert.True(t, errors.As(r.Err, &transport), "%v", r.Err)
}

func TestMutualTLSReusesConnections(t *testing.T) {
	var newConns int32
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			atomic.AddInt32(&newConns, 1)
		}
	}
	server.TLS = &tls.Config{ClientAuth: tls.RequireAnyClientCert}
	server.StartTLS()
	defer server.Close()

	c := New(server.Client())
	c.Logger = testClient().Logger
	certPEM, keyPEM := selfSigned(t)

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		var r result
		// A fresh ClientCert each time, with the same material
		c.Get(context.Background(), Request{
			URL:        server.URL,
			ClientCert: &ClientCert{Certificate: certPEM, PrivateKey: keyPEM},
		}, capture(&r))
		require.NoError(t, r.Err)
		assert.Equal(t, "ok", string(r.Body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&newConns))
	assert.True(t, runtime.NumGoroutine()-before < 10,
		"goroutines before=%v after=%v", before, runtime.NumGoroutine())

	cached := 0
	c.certClients.Range(func(_, _ interface{}) bool {
		cached++
		return true
	})
	assert.Equal(t, 1, cached)
}

func TestBasicAuth(t *testing.T) {
	token, err := GenerateBasicAuthTokenForHeader("rich", "richer")
	require.NoError(t, err)
	assert.Equal(t, "Basic cmljaDpyaWNoZXI=", token)

	_, err = GenerateBasicAuthTokenForHeader("", "richer")
	assert.IsType(t, restdata.ErrPrecondition{}, err)
	_, err = GenerateBasicAuthTokenForHeader("rich", "")
	assert.IsType(t, restdata.ErrPrecondition{}, err)
}
