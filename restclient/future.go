// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import "context"

// Future is the pending result of an operation started by one of the
// Promises methods.
type Future struct {
	done chan struct{}
	resp *Response
	body []byte
	err  error
}

// Async runs a callback-style operation on a new goroutine and
// returns a Future that resolves when the operation calls back.  The
// operation must call its callback exactly once.
func Async(call func(Callback)) *Future {
	f := &Future{done: make(chan struct{})}
	go call(func(resp *Response, body []byte, err error) {
		f.resp = resp
		f.body = body
		f.err = err
		close(f.done)
	})
	return f
}

// Done returns a channel that is closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done.  If ctx
// finishes first its error is returned; the operation itself keeps
// running and the result can still be collected later.
func (f *Future) Wait(ctx context.Context) (*Response, []byte, error) {
	select {
	case <-f.done:
		return f.resp, f.body, f.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Promises exposes the future form of every Client operation.
type Promises struct {
	client *Client
}

// Promises returns the future-style view of c.
func (c *Client) Promises() Promises {
	return Promises{client: c}
}

// Get is the future form of Client.Get.
func (p Promises) Get(ctx context.Context, req Request) *Future {
	return Async(func(cb Callback) { p.client.Get(ctx, req, cb) })
}

// GetToken is the future form of Client.GetToken.
func (p Promises) GetToken(ctx context.Context, req Request) *Future {
	return Async(func(cb Callback) { p.client.GetToken(ctx, req, cb) })
}

// PostToken is the future form of Client.PostToken.
func (p Promises) PostToken(ctx context.Context, req Request) *Future {
	return Async(func(cb Callback) { p.client.PostToken(ctx, req, cb) })
}

// PostJSON is the future form of Client.PostJSON.
func (p Promises) PostJSON(ctx context.Context, req Request) *Future {
	return Async(func(cb Callback) { p.client.PostJSON(ctx, req, cb) })
}

// PostText is the future form of Client.PostText.
func (p Promises) PostText(ctx context.Context, req Request) *Future {
	return Async(func(cb Callback) { p.client.PostText(ctx, req, cb) })
}
