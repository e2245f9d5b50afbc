// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package apigw

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-svckit/poller"
	"github.com/diffeo/go-svckit/restclient"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/sirupsen/logrus"
)

// JobStatus is the payload handed to a job poll's completion
// predicate: one successful response from the jobs endpoint.
type JobStatus struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// ContentType is the response's Content-Type: header.
	ContentType string

	// Body is the raw response body.
	Body []byte

	// JSON is the decoded body if it was JSON, or nil.
	JSON interface{}
}

// PollOptions controls PollJobs.
type PollOptions struct {
	// MaxAttempts is the largest number of fetches.  If zero, 10.
	MaxAttempts int

	// Interval is the wait before each fetch.  If zero, one
	// second.
	Interval time.Duration

	// JobID, if set, polls a single job instead of the whole
	// domain.
	JobID string

	// Complete decides whether a JobStatus means the jobs are
	// done.  If nil, poller.NeverComplete.
	Complete func(payload interface{}) bool

	// Clock is the time source for the waits; only tests should
	// need it.
	Clock clock.Clock
}

// PollJobs polls a domain's jobs until opts.Complete accepts a
// response or the attempts run out.  A transport failure or a non-2xx
// response ends the poll with poller.OutcomeFailed.  The payload in
// the result is the last JobStatus fetched.
func (c *Client) PollJobs(ctx context.Context, domainID string, opts PollOptions) (poller.Result, error) {
	if domainID == "" {
		return poller.Result{}, restdata.ErrPrecondition{Op: "PollJobs", Reason: "domain ID is required"}
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 10
	}
	if opts.Interval == 0 {
		opts.Interval = time.Second
	}

	p := poller.Poller{
		MaxAttempts: opts.MaxAttempts,
		Interval:    opts.Interval,
		Complete:    opts.Complete,
		Clock:       opts.Clock,
		Logger: c.logger.WithFields(logrus.Fields{
			"service":   c.service,
			"action":    "PollJobs",
			"domain_id": domainID,
		}),
		Fetch: func(ctx context.Context) (interface{}, error) {
			return c.fetchJobStatus(ctx, domainID, opts.JobID)
		},
	}
	return p.Run(ctx)
}

func (c *Client) fetchJobStatus(ctx context.Context, domainID, jobID string) (interface{}, error) {
	resp, body, err := c.Promises().GetJobs(ctx, domainID, jobID).Wait(ctx)
	if err == nil {
		err = restclient.CheckStatus(resp, body)
	}
	if err != nil {
		return nil, err
	}
	status := JobStatus{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if restdata.IsJSON(status.ContentType) && len(body) > 0 {
		if err := restdata.DecodeBytes(body, &status.JSON); err != nil {
			return nil, err
		}
	}
	return status, nil
}
