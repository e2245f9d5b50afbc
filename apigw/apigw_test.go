// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package apigw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/diffeo/go-svckit/poller"
	"github.com/diffeo/go-svckit/restclient"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/diffeo/go-svckit/restserver"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gatewayKey = "gw-secret"

func TestPaths(t *testing.T) {
	assert.Equal(t, "/v1/domains", DomainPath(""))
	assert.Equal(t, "/v1/domains/dom1", DomainPath("dom1"))
	assert.Equal(t, "/v1/domains/dom1/metadata", MetadataPath("dom1", ""))
	assert.Equal(t, "/v1/domains/dom1/metadata/md1", MetadataPath("dom1", "md1"))
	assert.Equal(t, "/v1/metadata", MetadataPath("", ""))
	assert.Equal(t, "/v1/metadata/md1", MetadataPath("", "md1"))
	assert.Equal(t, "/v1/domains/dom1/privacy_pipe", PrivacyPipePath("dom1"))
	assert.Equal(t, "/v1/privacy_pipe", PrivacyPipePath(""))
	assert.Equal(t, "/v1/domains/dom1/is/jobs", JobsPath("dom1", ""))
	assert.Equal(t, "/v1/domains/dom1/is/jobs/job1", JobsPath("dom1", "job1"))
	assert.Equal(t, "/v1/domains/a%20b", DomainPath("a b"))
}

// stubGateway is a gateway built on restserver that answers every
// request with "METHOD PATH BODY".
type stubGateway struct {
	Service *restserver.Service
	Server  *httptest.Server
}

func newStubGateway(t *testing.T) *stubGateway {
	logger, _ := test.NewNullLogger()
	svc, err := restserver.New(restserver.Config{
		Name:       "gateway",
		BaseURL:    "/",
		URLVersion: "v1",
		InternalKey: restserver.InternalKey{
			Enabled:    true,
			HeaderName: DefaultAPIKeyName,
			Secret:     gatewayKey,
		},
	}, logger)
	require.NoError(t, err)

	echo := func(req *restserver.Request, resp *restserver.Response, done func(interface{}, error)) {
		done(req.HTTP.Method+" "+req.HTTP.URL.Path+" "+string(req.Body), nil)
	}
	for _, path := range []string{
		"/domains/{domainId}",
		"/domains/{domainId}/metadata",
		"/domains/{domainId}/metadata/{metadataId}",
		"/metadata",
		"/metadata/{metadataId}",
		"/domains/{domainId}/is/jobs",
		"/domains/{domainId}/is/jobs/{jobId}",
	} {
		require.NoError(t, svc.RegisterGETTokenHandler(path, echo))
	}
	for _, path := range []string{
		"/domains",
		"/domains/{domainId}/metadata",
		"/metadata",
		"/domains/{domainId}/privacy_pipe",
		"/privacy_pipe",
	} {
		require.NoError(t, svc.RegisterPOSTTokenHandler(path, echo))
	}

	server := httptest.NewServer(svc.Handler())
	t.Cleanup(server.Close)
	return &stubGateway{Service: svc, Server: server}
}

func newTestClient(t *testing.T, gatewayURL, key string) *Client {
	logger, _ := test.NewNullLogger()
	rest := restclient.New(nil)
	rest.Logger = logger
	c, err := New(Options{GatewayURL: gatewayURL, APIKey: key}, rest, logger, "apigw-test")
	require.NoError(t, err)
	return c
}

type result struct {
	Resp *restclient.Response
	Body string
	Err  error
}

func call(op func(restclient.Callback)) result {
	var r result
	op(func(resp *restclient.Response, body []byte, err error) {
		r = result{Resp: resp, Body: string(body), Err: err}
	})
	return r
}

func TestOperations(t *testing.T) {
	gw := newStubGateway(t)
	c := newTestClient(t, gw.Server.URL, gatewayKey)
	ctx := context.Background()

	tests := []struct {
		Name string
		Op   func(restclient.Callback)
		Body string
	}{
		{"FetchDomain", func(cb restclient.Callback) { c.FetchDomain(ctx, "dom1", cb) },
			"GET /v1/domains/dom1 "},
		{"CreateDomain", func(cb restclient.Callback) { c.CreateDomain(ctx, "domjwt", cb) },
			"POST /v1/domains domjwt"},
		{"FetchMetadata", func(cb restclient.Callback) { c.FetchMetadata(ctx, "dom1", "md1", cb) },
			"GET /v1/domains/dom1/metadata/md1 "},
		{"FetchMetadata all", func(cb restclient.Callback) { c.FetchMetadata(ctx, "dom1", "", cb) },
			"GET /v1/domains/dom1/metadata "},
		{"FetchMetadata gateway", func(cb restclient.Callback) { c.FetchMetadata(ctx, "", "md1", cb) },
			"GET /v1/metadata/md1 "},
		{"PostMetadata", func(cb restclient.Callback) { c.PostMetadata(ctx, "dom1", "mdjwt", cb) },
			"POST /v1/domains/dom1/metadata mdjwt"},
		{"PostMetadata gateway", func(cb restclient.Callback) { c.PostMetadata(ctx, "", "mdjwt", cb) },
			"POST /v1/metadata mdjwt"},
		{"CreatePrivacyPipe", func(cb restclient.Callback) { c.CreatePrivacyPipe(ctx, "dom1", "ppjwt", cb) },
			"POST /v1/domains/dom1/privacy_pipe ppjwt"},
		{"CreatePrivacyPipe gateway", func(cb restclient.Callback) { c.CreatePrivacyPipe(ctx, "", "ppjwt", cb) },
			"POST /v1/privacy_pipe ppjwt"},
		{"GetJobs", func(cb restclient.Callback) { c.GetJobs(ctx, "dom1", "", cb) },
			"GET /v1/domains/dom1/is/jobs "},
		{"GetJob", func(cb restclient.Callback) { c.GetJobs(ctx, "dom1", "job1", cb) },
			"GET /v1/domains/dom1/is/jobs/job1 "},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			r := call(test.Op)
			require.NoError(t, r.Err)
			assert.Equal(t, http.StatusOK, r.Resp.StatusCode)
			assert.Equal(t, "text/plain", r.Resp.Header.Get("Content-Type"))
			assert.Equal(t, test.Body, r.Body)
		})
	}
}

func TestMissingAPIKey(t *testing.T) {
	gw := newStubGateway(t)
	c := newTestClient(t, gw.Server.URL, "")

	r := call(func(cb restclient.Callback) { c.FetchDomain(context.Background(), "dom1", cb) })
	require.NoError(t, r.Err)
	assert.Equal(t, http.StatusForbidden, r.Resp.StatusCode)
	assert.Equal(t, restdata.Forbidden, r.Body)
}

func TestPromises(t *testing.T) {
	gw := newStubGateway(t)
	c := newTestClient(t, gw.Server.URL, gatewayKey)
	ctx := context.Background()
	p := c.Promises()

	futures := map[string]*restclient.Future{
		"GET /v1/domains/dom1 ":                p.FetchDomain(ctx, "dom1"),
		"POST /v1/domains domjwt":              p.CreateDomain(ctx, "domjwt"),
		"GET /v1/metadata ":                    p.FetchMetadata(ctx, "", ""),
		"POST /v1/domains/dom1/metadata mdjwt": p.PostMetadata(ctx, "dom1", "mdjwt"),
		"POST /v1/privacy_pipe ppjwt":          p.CreatePrivacyPipe(ctx, "", "ppjwt"),
		"GET /v1/domains/dom1/is/jobs/job1 ":   p.GetJobs(ctx, "dom1", "job1"),
	}
	for expected, f := range futures {
		_, body, err := f.Wait(ctx)
		if assert.NoError(t, err, expected) {
			assert.Equal(t, expected, string(body))
		}
	}
}

func TestPreconditions(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", gatewayKey)
	ctx := context.Background()
	for name, op := range map[string]func(restclient.Callback){
		"FetchDomain":       func(cb restclient.Callback) { c.FetchDomain(ctx, "", cb) },
		"CreateDomain":      func(cb restclient.Callback) { c.CreateDomain(ctx, "", cb) },
		"PostMetadata":      func(cb restclient.Callback) { c.PostMetadata(ctx, "dom1", "", cb) },
		"CreatePrivacyPipe": func(cb restclient.Callback) { c.CreatePrivacyPipe(ctx, "dom1", "", cb) },
		"GetJobs":           func(cb restclient.Callback) { c.GetJobs(ctx, "", "job1", cb) },
	} {
		r := call(op)
		assert.IsType(t, restdata.ErrPrecondition{}, r.Err, name)
		assert.Nil(t, r.Resp, name)
	}

	_, err := New(Options{}, nil, nil, "")
	assert.IsType(t, restdata.ErrPrecondition{}, err)

	_, err = c.PollJobs(ctx, "", PollOptions{})
	assert.IsType(t, restdata.ErrPrecondition{}, err)
}

func TestDefaultKeyName(t *testing.T) {
	c, err := New(Options{GatewayURL: "http://gw"}, nil, nil, "svc")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIKeyName, c.Options().APIKeyName)
}

// jobsGateway serves a jobs endpoint whose jobs finish on the given
// call.
func jobsGateway(t *testing.T, finishOn int) (*httptest.Server, func() int) {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/domains/dom1/is/jobs", r.URL.Path)
		assert.Equal(t, gatewayKey, r.Header.Get(DefaultAPIKeyName))
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		state := "running"
		if finishOn > 0 && n >= finishOn {
			state = "complete"
		}
		w.Header().Set("Content-Type", restdata.JSONMediaType)
		_ = restdata.Encode(w, map[string]interface{}{"state": state, "call": n})
	}))
	t.Cleanup(server.Close)
	return server, func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}
}

func allComplete(payload interface{}) bool {
	status := payload.(JobStatus)
	doc, ok := status.JSON.(map[string]interface{})
	return ok && doc["state"] == "complete"
}

func TestPollJobsComplete(t *testing.T) {
	server, calls := jobsGateway(t, 3)
	c := newTestClient(t, server.URL, gatewayKey)

	result, err := c.PollJobs(context.Background(), "dom1", PollOptions{
		MaxAttempts: 5,
		Interval:    time.Millisecond,
		Complete:    allComplete,
	})
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeComplete, result.Outcome)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls())
	status := result.Payload.(JobStatus)
	assert.Equal(t, http.StatusOK, status.StatusCode)
	assert.JSONEq(t, `{"state":"complete","call":3}`, string(status.Body))
}

func TestPollJobsExhausted(t *testing.T) {
	server, calls := jobsGateway(t, 0)
	c := newTestClient(t, server.URL, gatewayKey)

	result, err := c.PollJobs(context.Background(), "dom1", PollOptions{
		MaxAttempts: 2,
		Interval:    time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeExhausted, result.Outcome)
	assert.Equal(t, 2, calls())
}

func TestPollJobsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway on fire", http.StatusBadGateway)
	}))
	defer server.Close()
	c := newTestClient(t, server.URL, gatewayKey)

	result, err := c.PollJobs(context.Background(), "dom1", PollOptions{
		MaxAttempts: 3,
		Interval:    time.Millisecond,
	})
	assert.Equal(t, poller.OutcomeFailed, result.Outcome)
	assert.Equal(t, 1, result.Attempts)
	var httpErr restclient.ErrorHTTP
	if assert.True(t, errors.As(err, &httpErr)) {
		assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	}
}
