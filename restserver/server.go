// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/diffeo/go-svckit/restdata"
	"github.com/sirupsen/logrus"
)

// Service is one running (or runnable) REST service.  Routes may be
// registered before or after Start.
type Service struct {
	config  Config
	cert    *tls.Certificate
	logger  logrus.FieldLogger
	routes  *routeTable
	handler http.Handler

	mu       sync.Mutex
	sink     FaultSink
	server   *http.Server
	listener net.Listener
}

// New creates a service from config.  Problems with the
// configuration, such as an enabled internal key with no secret or
// unusable TLS material, are reported as restdata.ErrPrecondition.
// If logger is nil the logrus standard logger is used.
func New(config Config, logger logrus.FieldLogger) (*Service, error) {
	cert, err := config.normalize()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		config: config,
		cert:   cert,
		logger: logger,
		routes: newRouteTable(),
		sink:   metricsFaultSink{},
	}
	s.routes.set(route{
		Method:  http.MethodGet,
		Path:    "/",
		Handler: s.status,
		Mode:    JSONMode,
		Open:    true,
	})
	s.handler = newChain(s)
	return s, nil
}

// status answers the root liveness probe.
func (s *Service) status(req *Request, resp *Response, done func(interface{}, error)) {
	done(restdata.StatusData{
		StatusCode:  http.StatusOK,
		ServiceName: s.config.Name,
		Version:     s.config.Version,
	}, nil)
}

// Path returns the full path a handler registered at subPath is
// mounted at.
func (s *Service) Path(subPath string) string {
	return BuildPath(s.config.BaseURL, s.config.URLVersion, subPath)
}

// Config returns the service's configuration, with defaults filled
// in.
func (s *Service) Config() Config {
	return s.config
}

// Logger returns the service's logger.
func (s *Service) Logger() logrus.FieldLogger {
	return s.logger
}

// Handler returns the service's complete HTTP handler, middleware
// included.  Start serves exactly this; tests can also use it
// directly.
func (s *Service) Handler() http.Handler {
	return s.handler
}

// SetFaultSink replaces the sink that receives handler faults.  A
// nil sink restores the default, which counts faults in Prometheus.
func (s *Service) SetFaultSink(sink FaultSink) {
	if sink == nil {
		sink = metricsFaultSink{}
	}
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

func (s *Service) faultSink() FaultSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func (s *Service) register(op, method, subPath string, handler HandlerFunc, mode Mode) error {
	if handler == nil {
		return restdata.ErrPrecondition{Op: op, Reason: "handler is required"}
	}
	path := s.Path(subPath)
	s.routes.set(route{
		Method:  method,
		Path:    path,
		Handler: handler,
		Mode:    mode,
	})
	s.logger.WithFields(logrus.Fields{
		"service": s.config.Name,
		"action":  op,
		"method":  method,
		"path":    path,
		"mode":    mode.String(),
	}).Debug("registered handler")
	return nil
}

// RegisterGETHandler registers a GET handler whose responses default
// to application/json.
func (s *Service) RegisterGETHandler(subPath string, handler HandlerFunc) error {
	return s.register("RegisterGETHandler", http.MethodGet, subPath, handler, JSONMode)
}

// RegisterGETTokenHandler registers a GET handler whose responses
// default to text/plain.
func (s *Service) RegisterGETTokenHandler(subPath string, handler HandlerFunc) error {
	return s.register("RegisterGETTokenHandler", http.MethodGet, subPath, handler, TokenMode)
}

// RegisterPOSTHandler registers a POST handler whose responses
// default to application/json.
func (s *Service) RegisterPOSTHandler(subPath string, handler HandlerFunc) error {
	return s.register("RegisterPOSTHandler", http.MethodPost, subPath, handler, JSONMode)
}

// RegisterPOSTTokenHandler registers a POST handler whose responses
// default to text/plain.
func (s *Service) RegisterPOSTTokenHandler(subPath string, handler HandlerFunc) error {
	return s.register("RegisterPOSTTokenHandler", http.MethodPost, subPath, handler, TokenMode)
}

// Mount serves an ordinary http.Handler at an absolute path, for any
// method, outside the versioned namespace and without the internal
// key check.  This is meant for things like a /metrics endpoint.
func (s *Service) Mount(path string, handler http.Handler) error {
	if handler == nil {
		return restdata.ErrPrecondition{Op: "Mount", Reason: "handler is required"}
	}
	s.routes.set(route{Path: path, Raw: handler, Open: true})
	return nil
}

// Start begins listening and serving in the background.  It returns
// once the listener is open.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return restdata.ErrPrecondition{Op: "Start", Reason: "service is already running"}
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
	scheme := "http"
	if s.cert != nil {
		server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{*s.cert}}
		ln = tls.NewListener(ln, server.TLSConfig)
		scheme = "https"
	}
	s.server = server
	s.listener = ln

	log := s.logger.WithFields(logrus.Fields{
		"service": s.config.Name,
		"address": ln.Addr().String(),
		"scheme":  scheme,
		"version": s.config.Version,
	})
	log.Info("service started")
	go func() {
		err := server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("service stopped serving")
		}
	}()
	return nil
}

// Addr returns the address the service is listening on, or nil if it
// is not running.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the service down gracefully, waiting for in-flight
// requests until ctx is done.  Stopping a service that is not running
// does nothing.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	err := server.Shutdown(ctx)
	s.logger.WithField("service", s.config.Name).Info("service stopped")
	return err
}
