// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/diffeo/go-svckit/apigw"
	"github.com/diffeo/go-svckit/poller"
	"github.com/diffeo/go-svckit/restclient"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var pollJobsCommand = cli.Command{
	Name:  "poll-jobs",
	Usage: "poll a domain's jobs on the API gateway",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "domain",
			Usage: "domain ID whose jobs are polled",
		},
		cli.StringFlag{
			Name:  "job",
			Usage: "poll only this job",
		},
		cli.IntFlag{
			Name:  "attempts",
			Value: 10,
			Usage: "give up after this many fetches",
		},
		cli.DurationFlag{
			Name:  "interval",
			Value: time.Second,
			Usage: "wait this long before each fetch",
		},
		cli.StringFlag{
			Name:  "until",
			Usage: "field=value in the JSON response that means done",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: 30 * time.Second,
			Usage: "timeout for each gateway request",
		},
	},
	Action: func(c *cli.Context) error {
		if c.String("domain") == "" {
			return cli.NewExitError("--domain is required", 2)
		}
		file, logger, err := setup(c)
		if err != nil {
			return err
		}
		opts := apigw.PollOptions{
			MaxAttempts: c.Int("attempts"),
			Interval:    c.Duration("interval"),
			JobID:       c.String("job"),
		}
		if until := c.String("until"); until != "" {
			opts.Complete, err = fieldEquals(until)
			if err != nil {
				return cli.NewExitError(err.Error(), 2)
			}
		}

		rest := restclient.New(&http.Client{Timeout: c.Duration("timeout")})
		rest.Logger = logger
		gw, err := apigw.New(file.Gateway(), rest, logger, file.Name)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		result, err := gw.PollJobs(ctx, c.String("domain"), opts)
		report(logger, result, err)
		if err != nil {
			return err
		}
		if result.Outcome != poller.OutcomeComplete {
			return cli.NewExitError("jobs did not complete: "+result.Outcome.String(), 1)
		}
		return nil
	},
}

// fieldEquals builds a completion predicate from "field=value": the
// poll is complete when the top-level JSON field renders as value.
func fieldEquals(until string) (func(interface{}) bool, error) {
	parts := strings.SplitN(until, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, errors.New("--until must look like field=value")
	}
	field, want := parts[0], parts[1]
	return func(payload interface{}) bool {
		status, ok := payload.(apigw.JobStatus)
		if !ok {
			return false
		}
		object, ok := status.JSON.(map[string]interface{})
		if !ok {
			return false
		}
		value, present := object[field]
		return present && fmt.Sprint(value) == want
	}, nil
}

// report logs the end of a poll and prints the last job status.
func report(logger logrus.FieldLogger, result poller.Result, err error) {
	entry := logger.WithFields(logrus.Fields{
		"action":   "poll-jobs",
		"outcome":  result.Outcome.String(),
		"attempts": result.Attempts,
	})
	if err != nil {
		entry.WithError(err).Error("poll ended")
		return
	}
	entry.Info("poll ended")
	if status, ok := result.Payload.(apigw.JobStatus); ok {
		if status.JSON != nil {
			_ = restdata.Encode(os.Stdout, status.JSON)
			fmt.Println()
		} else {
			fmt.Println(string(status.Body))
		}
	}
}
