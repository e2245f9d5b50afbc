// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains the per-request pipeline: find the route, check
// the internal key, read and decode the body, run the handler, and
// write whatever it produced.

import (
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"

	"github.com/diffeo/go-svckit/restdata"
	"github.com/sirupsen/logrus"
)

// errNoCompletion is the fault recorded when a handler's request
// goes away before the handler calls done.
var errNoCompletion = errors.New("handler did not complete before the request ended")

// outcome is what a handler passed to done.  panic is set if the
// handler panicked instead.
type outcome struct {
	data  interface{}
	err   error
	panic *restdata.ErrorResponse
}

// dispatcher is the innermost http.Handler of a Service.
type dispatcher struct {
	service *Service
}

func (d dispatcher) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s := d.service
	entry, vars, status := s.routes.lookup(req)
	if status != 0 {
		writeError(w, status, restdata.ErrorResponse{
			Error:   "error",
			Message: http.StatusText(status),
			Value:   req.URL.Path,
		}, s.logger)
		return
	}
	if entry.Raw != nil {
		entry.Raw.ServeHTTP(w, req)
		return
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":    s.config.Name,
		"action":     entry.Method + " " + entry.Path,
		"path":       req.URL.Path,
		"request_id": req.Header.Get(RequestIDHeader),
	})

	if !entry.Open && CheckInternalKey(s.config.InternalKey, req.Header) == Forbidden {
		log.Warn("forbidden")
		w.Header().Set("Content-Type", restdata.TokenMediaType)
		w.WriteHeader(http.StatusForbidden)
		if _, err := w.Write([]byte(restdata.Forbidden)); err != nil {
			log.WithError(err).Debug("could not write response")
		}
		return
	}

	request := &Request{
		HTTP:   req,
		Header: req.Header,
		Vars:   vars,
		Path:   entry.Path,
	}
	if req.Body != nil {
		body, err := ioutil.ReadAll(req.Body)
		if err != nil {
			log.WithError(err).Info("could not read request body")
			writeErrorFrom(w, restdata.ErrBadRequest{Err: err}, log)
			return
		}
		request.Body = body
	}
	if req.Method == http.MethodPost && len(request.Body) > 0 &&
		restdata.IsJSON(req.Header.Get("Content-Type")) {
		if err := restdata.DecodeBytes(request.Body, &request.JSON); err != nil {
			log.WithError(err).Info("undecodable JSON body")
			writeErrorFrom(w, err, log)
			return
		}
	}

	response := newResponse()
	result := s.invoke(entry, request, response)
	if result.err != nil {
		s.fault(w, entry, request, result, log)
		return
	}

	body, err := encodeData(result.data)
	if err != nil {
		s.fault(w, entry, request, outcome{err: fmt.Errorf("could not encode response: %w", err)}, log)
		return
	}
	for name, values := range response.canonicalHeader() {
		w.Header()[name] = values
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", entry.Mode.contentType())
	}
	status = response.Status()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			// The status line is already out; all we can
			// do is note it
			log.WithError(err).Warn("could not write response body")
		}
	}
}

// invoke runs the handler and waits for it to call done.  A panic in
// the handler counts as a fault, as does the request ending before
// done is called.
func (s *Service) invoke(entry route, req *Request, resp *Response) outcome {
	results := make(chan outcome, 1)
	var once sync.Once
	finish := func(result outcome) {
		once.Do(func() {
			results <- result
		})
	}
	done := func(data interface{}, err error) {
		finish(outcome{data: data, err: err})
	}

	func() {
		defer func() {
			if obj := recover(); obj != nil {
				// Still on the panicking stack here
				var response restdata.ErrorResponse
				response.FromPanic(obj)
				finish(outcome{err: restdata.PanicError(obj), panic: &response})
			}
		}()
		entry.Handler(req, resp, done)
	}()

	select {
	case result := <-results:
		return result
	case <-req.Context().Done():
		return outcome{err: fmt.Errorf("%w: %v", errNoCompletion, req.Context().Err())}
	}
}

// fault reports a handler failure and answers the request with 500.
// A panic's stack goes into both the log and the response.
func (s *Service) fault(w http.ResponseWriter, entry route, req *Request, result outcome, log logrus.FieldLogger) {
	err := result.err
	fault := restdata.ErrHandlerFault{
		Service: s.config.Name,
		Method:  entry.Method,
		Path:    entry.Path,
		Err:     err,
	}

	logEntry := log.WithError(err)
	if result.panic != nil {
		logEntry = logEntry.WithField("stack", result.panic.Stack)
	}
	if req.HTTP.Method == http.MethodPost {
		logEntry = logEntry.WithFields(logrus.Fields{
			"request": logrus.Fields{
				"method":  req.HTTP.Method,
				"url":     req.HTTP.URL.String(),
				"headers": s.redact(req.Header),
				"body":    string(req.Body),
			},
		})
	}
	logEntry.Error("handler fault")

	s.faultSink().Fault(fault)

	var response restdata.ErrorResponse
	if result.panic != nil {
		response = *result.panic
	} else {
		response.FromError(err)
	}
	writeError(w, http.StatusInternalServerError, response, log)
}

// redact returns a copy of header without the internal key's secret.
func (s *Service) redact(header http.Header) http.Header {
	clean := header.Clone()
	if s.config.InternalKey.Enabled {
		for field := range clean {
			if strings.EqualFold(field, s.config.InternalKey.HeaderName) {
				clean[field] = []string{"[redacted]"}
			}
		}
	}
	return clean
}

// encodeData turns handler output into a response body.
func encodeData(data interface{}) ([]byte, error) {
	switch d := data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return d, nil
	case string:
		return []byte(d), nil
	}
	return restdata.EncodeBytes(data)
}

// writeErrorFrom writes an error response whose status comes from
// err.
func writeErrorFrom(w http.ResponseWriter, err error, log logrus.FieldLogger) {
	var response restdata.ErrorResponse
	response.FromError(err)
	writeError(w, restdata.StatusOf(err), response, log)
}

// writeError writes a JSON error response.  If the response can't be
// written there is nobody left to tell, so the failure is only
// logged.
func writeError(w http.ResponseWriter, status int, response restdata.ErrorResponse, log logrus.FieldLogger) {
	body, err := restdata.EncodeBytes(response)
	if err != nil {
		log.WithError(err).Error("could not encode error response")
		body = nil
	}
	w.Header().Set("Content-Type", restdata.JSONMediaType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.WithError(err).Debug("could not write error response")
	}
}
