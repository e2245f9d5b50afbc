// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

// route is one entry in the route table.
type route struct {
	Method  string
	Path    string
	Handler HandlerFunc
	Mode    Mode

	// Open routes skip the internal key check.
	Open bool

	// Raw, if set, is served directly instead of through the
	// dispatcher pipeline.
	Raw http.Handler
}

// routeTable maps (method, path) to routes.  Registration may happen
// while requests are being served.
type routeTable struct {
	mu      sync.RWMutex
	router  *mux.Router
	entries map[*mux.Route]*route
	byKey   map[string]*mux.Route
}

func newRouteTable() *routeTable {
	return &routeTable{
		router:  mux.NewRouter(),
		entries: make(map[*mux.Route]*route),
		byKey:   make(map[string]*mux.Route),
	}
}

// set adds r to the table, replacing any route with the same method
// and path.
func (t *routeTable) set(r route) {
	key := r.Method + " " + r.Path
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, present := t.byKey[key]; present {
		entry := r
		t.entries[existing] = &entry
		return
	}
	muxRoute := t.router.NewRoute().Path(r.Path)
	if r.Method != "" {
		muxRoute = muxRoute.Methods(r.Method)
	}
	entry := r
	t.entries[muxRoute] = &entry
	t.byKey[key] = muxRoute
}

// lookup finds the route for req.  On failure it returns the HTTP
// status to answer with.
func (t *routeTable) lookup(req *http.Request) (route, map[string]string, int) {
	var match mux.RouteMatch
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.router.Match(req, &match) {
		if match.MatchErr == mux.ErrMethodMismatch {
			return route{}, nil, http.StatusMethodNotAllowed
		}
		return route{}, nil, http.StatusNotFound
	}
	entry, present := t.entries[match.Route]
	if !present {
		return route{}, nil, http.StatusNotFound
	}
	return *entry, match.Vars, 0
}

// len returns the number of distinct (method, path) pairs.
func (t *routeTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byKey)
}
