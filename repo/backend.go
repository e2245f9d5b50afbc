// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package repo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Backend describes user-visible parameters to store repository
// data.  This implements the flag.Value interface, and so a typical
// use is
//
//     func main() {
//         backend := repo.Backend{Implementation: "memory"}
//         flag.Var(&backend, "storage", "impl[:address] of repository storage")
//         flag.Parse()
//         store, err := backend.Repo()
//     }
type Backend struct {
	// Implementation holds the name of the implementation; for
	// instance, "memory".
	Implementation string

	// Address holds some backend-specific address, such as a
	// Redis host:port or redis:// URL.
	Address string

	// created counts the in-memory stores made by Repo.
	created int
}

// Repo creates a new repository.  This generally should be only
// called once.  If b.Implementation is "memory", multiple calls to
// this will create multiple independent stores, each with its own
// ID.
//
// For "redis", the address is either a redis:// URL or a plain
// host:port; if empty, "localhost:6379".  No connection is made
// until the first operation.
func (b *Backend) Repo() (Repo, error) {
	switch b.Implementation {
	case "memory":
		id := "_:_collection_id_" + strconv.Itoa(b.created)
		b.created++
		return NewMemory(id), nil
	case "redis":
		var options *redis.Options
		switch {
		case strings.HasPrefix(b.Address, "redis://"), strings.HasPrefix(b.Address, "rediss://"):
			var err error
			options, err = redis.ParseURL(b.Address)
			if err != nil {
				return nil, err
			}
		case b.Address == "":
			options = &redis.Options{Addr: "localhost:6379"}
		default:
			options = &redis.Options{Addr: b.Address}
		}
		return NewRedis(redis.NewClient(options), ""), nil
	default:
		return nil, errors.New("unknown repository backend " + b.Implementation)
	}
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks to see if the provided
// implementation is any of the known implementations, and returns an
// appropriate error if not.
//
// This is part of the flag.Value interface.  Neither Set nor Repo
// validates b.Address beyond parsing a redis:// URL.
func (b *Backend) Set(param string) error {
	parts := strings.SplitN(param, ":", 2)
	switch parts[0] {
	case "memory", "redis":
	case "":
		return errors.New("must specify a backend type")
	default:
		return errors.New("unknown repository backend " + parts[0])
	}
	b.Implementation = parts[0]
	b.Address = ""
	if len(parts) == 2 {
		b.Address = parts[1]
	}
	return nil
}
