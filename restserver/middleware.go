// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

// RequestIDHeader carries the per-request id.  An inbound value is
// kept; otherwise one is generated.  Either way it is echoed on the
// response.
const RequestIDHeader = "X-Request-Id"

// requestLogger logs every request at debug level once it has been
// served.
func requestLogger(log logrus.FieldLogger, service string) negroni.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		start := time.Now()
		id := req.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewV4().String()
			req.Header.Set(RequestIDHeader, id)
		}
		rw.Header().Set(RequestIDHeader, id)

		next(rw, req)

		res := rw.(negroni.ResponseWriter)
		log.WithFields(logrus.Fields{
			"service":    service,
			"request_id": id,
			"method":     req.Method,
			"path":       req.URL.Path,
			"remote":     req.RemoteAddr,
			"status":     res.Status(),
			"size":       res.Size(),
			"duration":   time.Since(start),
		}).Debug("request")
	}
}

// requestMetrics records the request count and latency.
func requestMetrics(service string) negroni.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		start := time.Now()
		next(rw, req)
		res := rw.(negroni.ResponseWriter)
		requestCount.WithLabelValues(service, req.Method, strconv.Itoa(res.Status())).Inc()
		requestDuration.WithLabelValues(service, req.Method).Observe(time.Since(start).Seconds())
	}
}

// newChain builds the middleware stack in front of the dispatcher.
func newChain(s *Service) http.Handler {
	recovery := negroni.NewRecovery()
	recovery.Logger = s.logger
	recovery.PrintStack = false

	n := negroni.New()
	n.Use(recovery)
	n.Use(requestLogger(s.logger, s.config.Name))
	n.Use(requestMetrics(s.config.Name))
	n.UseHandler(dispatcher{service: s})
	return n
}
