// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package repotest provides generic functional tests for the Repo
// interface.  A typical backend test needs to wrap Suite to create
// its backend:
//
//     // Suite is the per-backend generic test suite.
//     type Suite struct{
//             repotest.Suite
//     }
//
//     // SetupTest creates a fresh store for each test.
//     func (s *Suite) SetupTest() {
//             s.Repo = NewMemory("test")
//     }
//
//     // TestRepo runs the Repo generic tests.
//     func TestRepo(t *testing.T) {
//             suite.Run(t, &Suite{})
//     }
//
// Values stored by these tests are strings and string-keyed maps of
// strings, which every backend returns unchanged.
package repotest

import (
	"context"
	"fmt"
	"sync"

	"github.com/diffeo/go-svckit/repo"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/stretchr/testify/suite"
)

// Suite is the generic Repo backend test suite.
type Suite struct {
	suite.Suite

	// Repo is the backend under test.  It is set by importing
	// packages.
	Repo repo.Repo
}

func doc(id, kind string) map[string]interface{} {
	return map[string]interface{}{"@id": id, "@type": kind}
}

// create makes a collection, asserting it is new.
func (s *Suite) create(name string) {
	created, err := s.Repo.CreateCollection(context.Background(), name)
	if s.NoError(err) {
		s.True(created)
	}
}

// TestCreateCollection checks that creation is idempotent.
func (s *Suite) TestCreateCollection() {
	ctx := context.Background()
	s.NotEmpty(s.Repo.ID())

	s.create("TestCreateCollection")
	created, err := s.Repo.CreateCollection(ctx, "TestCreateCollection")
	if s.NoError(err) {
		s.False(created)
	}

	_, err = s.Repo.CreateCollection(ctx, "")
	s.IsType(restdata.ErrPrecondition{}, err)
}

// TestInsertGet stores values and reads them back.
func (s *Suite) TestInsertGet() {
	ctx := context.Background()
	s.create("TestInsertGet")

	items := []repo.Item{
		{Key: "a", Value: doc("a", "Domain")},
		{Key: "b", Value: "plain"},
	}
	inserted, err := s.Repo.Insert(ctx, "TestInsertGet", items...)
	if s.NoError(err) {
		s.Equal(items, inserted)
	}

	value, found, err := s.Repo.Get(ctx, "TestInsertGet", "a")
	if s.NoError(err) && s.True(found) {
		s.Equal(doc("a", "Domain"), value)
	}
	value, found, err = s.Repo.Get(ctx, "TestInsertGet", "b")
	if s.NoError(err) && s.True(found) {
		s.Equal("plain", value)
	}
	_, found, err = s.Repo.Get(ctx, "TestInsertGet", "c")
	if s.NoError(err) {
		s.False(found)
	}

	// Inserting again replaces
	_, err = s.Repo.Insert(ctx, "TestInsertGet", repo.Item{Key: "b", Value: "replaced"})
	s.NoError(err)
	value, found, err = s.Repo.Get(ctx, "TestInsertGet", "b")
	if s.NoError(err) && s.True(found) {
		s.Equal("replaced", value)
	}
	size, err := s.Repo.Size(ctx, "TestInsertGet")
	if s.NoError(err) {
		s.Equal(2, size)
	}
}

// TestInsertPreconditions rejects items without a key or value.
func (s *Suite) TestInsertPreconditions() {
	ctx := context.Background()
	s.create("TestInsertPreconditions")

	_, err := s.Repo.Insert(ctx, "TestInsertPreconditions", repo.Item{Value: "v"})
	s.IsType(restdata.ErrPrecondition{}, err)

	_, err = s.Repo.Insert(ctx, "TestInsertPreconditions",
		repo.Item{Key: "ok", Value: "v"}, repo.Item{Key: "nil"})
	s.IsType(restdata.ErrPrecondition{}, err)

	// Nothing from the rejected batch was stored
	size, err := s.Repo.Size(ctx, "TestInsertPreconditions")
	if s.NoError(err) {
		s.Equal(0, size)
	}
}

// TestNoSuchCollection checks every operation against a missing
// collection.
func (s *Suite) TestNoSuchCollection() {
	ctx := context.Background()
	want := repo.ErrNoSuchCollection{Name: "TestNoSuchCollection"}

	_, err := s.Repo.Insert(ctx, want.Name, repo.Item{Key: "k", Value: "v"})
	s.Equal(want, err)
	_, _, err = s.Repo.Get(ctx, want.Name, "k")
	s.Equal(want, err)
	_, err = s.Repo.Query(ctx, want.Name)
	s.Equal(want, err)
	_, err = s.Repo.QueryFunc(ctx, want.Name, func(interface{}) bool { return true })
	s.Equal(want, err)
	_, err = s.Repo.Size(ctx, want.Name)
	s.Equal(want, err)
	_, err = s.Repo.RemoveAll(ctx, want.Name)
	s.Equal(want, err)
	s.Equal(404, restdata.StatusOf(err))
}

// TestQuery checks that queries return values in key order.
func (s *Suite) TestQuery() {
	ctx := context.Background()
	s.create("TestQuery")

	values, err := s.Repo.Query(ctx, "TestQuery")
	if s.NoError(err) {
		s.Empty(values)
	}

	_, err = s.Repo.Insert(ctx, "TestQuery",
		repo.Item{Key: "c", Value: doc("c", "Metadata")},
		repo.Item{Key: "a", Value: doc("a", "Domain")},
		repo.Item{Key: "b", Value: doc("b", "Metadata")},
	)
	s.NoError(err)

	values, err = s.Repo.Query(ctx, "TestQuery")
	if s.NoError(err) {
		s.Equal([]interface{}{
			doc("a", "Domain"),
			doc("b", "Metadata"),
			doc("c", "Metadata"),
		}, values)
	}

	values, err = s.Repo.QueryFunc(ctx, "TestQuery", func(value interface{}) bool {
		m, ok := value.(map[string]interface{})
		return ok && m["@type"] == "Metadata"
	})
	if s.NoError(err) {
		s.Equal([]interface{}{
			doc("b", "Metadata"),
			doc("c", "Metadata"),
		}, values)
	}

	values, err = s.Repo.QueryFunc(ctx, "TestQuery", func(interface{}) bool { return false })
	if s.NoError(err) {
		s.Empty(values)
	}
}

// TestRemoveAll empties a collection but keeps it usable.
func (s *Suite) TestRemoveAll() {
	ctx := context.Background()
	s.create("TestRemoveAll")

	removed, err := s.Repo.RemoveAll(ctx, "TestRemoveAll")
	if s.NoError(err) {
		s.Equal(0, removed)
	}

	_, err = s.Repo.Insert(ctx, "TestRemoveAll",
		repo.Item{Key: "a", Value: "1"},
		repo.Item{Key: "b", Value: "2"},
	)
	s.NoError(err)

	removed, err = s.Repo.RemoveAll(ctx, "TestRemoveAll")
	if s.NoError(err) {
		s.Equal(2, removed)
	}
	size, err := s.Repo.Size(ctx, "TestRemoveAll")
	if s.NoError(err) {
		s.Equal(0, size)
	}

	_, err = s.Repo.Insert(ctx, "TestRemoveAll", repo.Item{Key: "c", Value: "3"})
	s.NoError(err)
	size, err = s.Repo.Size(ctx, "TestRemoveAll")
	if s.NoError(err) {
		s.Equal(1, size)
	}
}

// TestConcurrentInsert inserts from many goroutines at once.
func (s *Suite) TestConcurrentInsert() {
	ctx := context.Background()
	s.create("TestConcurrentInsert")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%02d", i)
			_, err := s.Repo.Insert(ctx, "TestConcurrentInsert", repo.Item{Key: key, Value: key})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	size, err := s.Repo.Size(ctx, "TestConcurrentInsert")
	if s.NoError(err) {
		s.Equal(20, size)
	}
}
