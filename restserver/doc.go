// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver is a scaffold for small internal REST services.
// A Service owns one route table; handlers are registered against a
// verb and a sub-path, and the Service takes care of the rest:
// checking the internal API key, decoding JSON request bodies,
// defaulting the response status and content type, and turning
// handler failures into error responses.
//
// URL Scheme
//
// Every registered sub-path is mounted under the service's base URL
// and version:
//
//     {baseURL}/{urlVersion}{subPath}
//
// A base URL of "/" contributes nothing, so a service with base "/"
// and version "v1" mounts "/items" at "/v1/items".  Sub-paths may
// contain github.com/gorilla/mux variables, such as "/items/{key}";
// the handler sees them in Request.Vars.  BuildPath and Service.Path
// compute the same string the route table uses.
//
// The root path / always exists.  It returns a small JSON status
// document
//
//     {"statusCode": 200, "serviceName": "...", "version": "..."}
//
// and is never subject to the internal key check, so it can serve as
// a liveness probe.
//
// Internal Key
//
// If the service is configured with an enabled InternalKey, every
// request other than / must carry the configured header with exactly
// the configured secret.  Anything else is answered with 403
// Forbidden, a text/plain body of FORBIDDEN, and the handler is never
// called.
//
// Route Flavors
//
// The four Register methods differ only in the verb and in the
// content type used when the handler does not set one:
// application/json for the plain flavors, text/plain for the token
// flavors.  The status defaults to 200 OK.  Whatever a handler sets
// explicitly is left alone.
//
// Handler Faults
//
// A handler that reports an error, or panics, is a fault.  The
// request is answered with 500 and a JSON restdata.ErrorResponse, the
// fault is logged with the request context, and a
// restdata.ErrHandlerFault is passed to the service's FaultSink.  The
// process keeps running.
package restserver
