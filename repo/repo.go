// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package repo stores named collections of keyed values.  A
// collection must be created before anything is inserted into it;
// inserting under an existing key replaces the value.  Values are
// arbitrary JSON-compatible data.
//
// Two implementations exist.  Memory keeps everything in process and
// forgets it on exit.  Redis keeps each collection in a Redis hash,
// with values serialized as JSON; values read back from it are the
// decoded JSON, so an inserted struct comes back as a
// map[string]interface{}.
//
// Query results are ordered by key in both implementations.
package repo

import (
	"context"
	"fmt"
	"net/http"
)

// Item is one key and its value.
type Item struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Repo is a store of named collections.
type Repo interface {
	// ID identifies this store instance in log messages.
	ID() string

	// CreateCollection creates an empty collection, if it does not
	// already exist.  Returns true if the collection is new.
	CreateCollection(ctx context.Context, name string) (bool, error)

	// Insert adds items to a collection, replacing any existing
	// values with the same keys.  Every item must have a non-empty
	// key and a non-nil value.  Returns the items inserted.
	Insert(ctx context.Context, name string, items ...Item) ([]Item, error)

	// Get returns the value stored under key.  The boolean result
	// is false if there is no such key.
	Get(ctx context.Context, name, key string) (interface{}, bool, error)

	// Query returns every value in a collection.
	Query(ctx context.Context, name string) ([]interface{}, error)

	// QueryFunc returns the values in a collection for which match
	// returns true.
	QueryFunc(ctx context.Context, name string, match func(interface{}) bool) ([]interface{}, error)

	// Size returns the number of values in a collection.
	Size(ctx context.Context, name string) (int, error)

	// RemoveAll empties a collection, returning the number of
	// values removed.  The collection itself remains.
	RemoveAll(ctx context.Context, name string) (int, error)
}

// ErrNoSuchCollection is returned when an operation names a
// collection that was never created.
type ErrNoSuchCollection struct {
	Name string
}

func (e ErrNoSuchCollection) Error() string {
	return fmt.Sprintf("no such collection %q", e.Name)
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNoSuchCollection) HTTPStatus() int {
	return http.StatusNotFound
}
