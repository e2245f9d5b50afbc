// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-svckit/restdata"
	"github.com/prometheus/client_golang/prometheus"
)

var requestCount = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "diffeo",
		Subsystem: "svckit",
		Name:      "requests_total",
		Help:      "Requests served, by service, method and status code",
	},
	[]string{
		"service",
		"method",
		"code",
	},
)

var requestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "diffeo",
		Subsystem: "svckit",
		Name:      "request_duration_seconds",
		Help:      "Time taken to serve requests",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{
		"service",
		"method",
	},
)

var handlerFaults = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "diffeo",
		Subsystem: "svckit",
		Name:      "handler_faults_total",
		Help:      "Handler errors and panics, by service and route",
	},
	[]string{
		"service",
		"path",
	},
)

func init() {
	prometheus.MustRegister(requestCount, requestDuration, handlerFaults)
}

// FaultSink receives every handler fault a Service contains.
// Implementations must be safe for concurrent use.
type FaultSink interface {
	Fault(fault restdata.ErrHandlerFault)
}

// FaultSinkFunc adapts a function to a FaultSink.
type FaultSinkFunc func(fault restdata.ErrHandlerFault)

// Fault calls f.
func (f FaultSinkFunc) Fault(fault restdata.ErrHandlerFault) {
	f(fault)
}

// metricsFaultSink is the default sink; it counts faults per route.
type metricsFaultSink struct{}

func (metricsFaultSink) Fault(fault restdata.ErrHandlerFault) {
	handlerFaults.WithLabelValues(fault.Service, fault.Path).Inc()
}
