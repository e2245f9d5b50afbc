// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package poller repeatedly checks on an asynchronous job until it
// finishes or a fixed number of attempts has been spent.
//
// A Poller waits its Interval, calls Fetch, and hands the payload to
// Complete.  If Complete says the job is done the poll ends with
// OutcomeComplete; if MaxAttempts fetches have all come back
// incomplete it ends with OutcomeExhausted.  A Fetch error ends the
// poll immediately with OutcomeFailed and that error.
//
// Cancellation is only noticed between attempts.  Once a fetch has
// been issued it runs to completion, with a context that is not
// cancelled when the poll is; the poll then stops before the next
// one.
package poller

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/sirupsen/logrus"
)

// Outcome is the reason a poll ended.
type Outcome int

const (
	// OutcomeComplete means the completion predicate accepted a
	// fetched payload.
	OutcomeComplete Outcome = iota + 1

	// OutcomeExhausted means every attempt was spent without the
	// job completing.
	OutcomeExhausted

	// OutcomeFailed means a fetch returned an error.
	OutcomeFailed

	// OutcomeStopped means the poll was cancelled between attempts.
	OutcomeStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeFailed:
		return "failed"
	case OutcomeStopped:
		return "stopped"
	}
	return "unknown"
}

// Result describes a finished poll.
type Result struct {
	Outcome Outcome

	// Attempts is the number of fetches issued.
	Attempts int

	// Payload is the last successfully fetched payload, or nil if
	// there was none.
	Payload interface{}
}

// NeverComplete is a completion predicate that never accepts a
// payload, so every successful poll runs until it is exhausted.  It
// is the default when Poller.Complete is nil.
func NeverComplete(interface{}) bool {
	return false
}

// Poller holds the settings for a poll.  The zero value is not
// usable: Fetch is required and MaxAttempts must be at least 1.
type Poller struct {
	// MaxAttempts is the largest number of fetches to issue.
	MaxAttempts int

	// Interval is the wait before each fetch, including the first.
	Interval time.Duration

	// Fetch retrieves the job status.
	Fetch func(ctx context.Context) (interface{}, error)

	// Complete decides whether a fetched payload means the job is
	// done.  If nil, NeverComplete.
	Complete func(payload interface{}) bool

	// Clock is the time source for the waits.  Only test code
	// should need to set this.  If unset, uses real wall-clock
	// time.
	Clock clock.Clock

	// Logger receives an event per attempt.  If unset, the logrus
	// standard logger.
	Logger logrus.FieldLogger
}

// settings returns a copy of p with defaults filled in, or an error
// if p cannot run.
func (p *Poller) settings() (Poller, error) {
	s := *p
	fail := func(reason string) error {
		return restdata.ErrPrecondition{Op: "poller.Run", Reason: reason}
	}
	if s.MaxAttempts < 1 {
		return s, fail("MaxAttempts must be at least 1")
	}
	if s.Interval < 0 {
		return s, fail("Interval must not be negative")
	}
	if s.Fetch == nil {
		return s, fail("Fetch is required")
	}
	if s.Complete == nil {
		s.Complete = NeverComplete
	}
	if s.Clock == nil {
		s.Clock = clock.New()
	}
	if s.Logger == nil {
		s.Logger = logrus.StandardLogger()
	}
	return s, nil
}

// Run polls until the job completes, the attempts are exhausted, a
// fetch fails, or ctx is cancelled.  The returned error is the fetch
// error for OutcomeFailed, the context's error for OutcomeStopped, a
// restdata.ErrPrecondition if p is misconfigured, and nil otherwise.
func (p *Poller) Run(ctx context.Context) (Result, error) {
	s, err := p.settings()
	if err != nil {
		return Result{}, err
	}

	var result Result
	for attempt := 1; ; attempt++ {
		if !s.wait(ctx) {
			result.Outcome = OutcomeStopped
			s.Logger.WithField("attempts", result.Attempts).Debug("poll stopped")
			return result, ctx.Err()
		}

		log := s.Logger.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": s.MaxAttempts,
		})
		payload, err := s.Fetch(context.WithoutCancel(ctx))
		result.Attempts = attempt
		if err != nil {
			log.WithError(err).Error("poll fetch failed")
			result.Outcome = OutcomeFailed
			return result, err
		}
		result.Payload = payload
		if s.Complete(payload) {
			log.Debug("poll complete")
			result.Outcome = OutcomeComplete
			return result, nil
		}
		if attempt+1 > s.MaxAttempts {
			log.Info("poll exhausted")
			result.Outcome = OutcomeExhausted
			return result, nil
		}
		log.Debug("poll not complete")
	}
}

// wait blocks for one interval.  It returns false if ctx finished
// first.
func (p *Poller) wait(ctx context.Context) bool {
	if p.Interval <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := p.Clock.Timer(p.Interval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}

// Handle controls a poll running in the background.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Result
	err    error
}

// Start runs the poll on a new goroutine.
func (p *Poller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer cancel()
		h.result, h.err = p.Run(ctx)
		close(h.done)
	}()
	return h
}

// Stop asks the poll to end.  No further fetch is issued; one already
// in progress finishes first.  Stop may be called more than once.
func (h *Handle) Stop() {
	h.cancel()
}

// Done returns a channel that is closed when the poll has ended.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the poll ends and returns its result.
func (h *Handle) Wait() (Result, error) {
	<-h.done
	return h.result, h.err
}
