// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package repo

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Repo.  Every collection lives behind a
// single lock.
type Memory struct {
	id          string
	lock        sync.Mutex
	collections map[string]map[string]interface{}
}

// NewMemory creates an empty in-memory store.  id names the store in
// log messages; Backend.Repo numbers the stores it creates.
func NewMemory(id string) *Memory {
	return &Memory{
		id:          id,
		collections: make(map[string]map[string]interface{}),
	}
}

// ID returns the store's identifier.
func (m *Memory) ID() string {
	return m.id
}

func (m *Memory) collection(name string) (map[string]interface{}, error) {
	col, present := m.collections[name]
	if !present {
		return nil, ErrNoSuchCollection{Name: name}
	}
	return col, nil
}

// CreateCollection creates a collection if it does not exist.
func (m *Memory) CreateCollection(ctx context.Context, name string) (bool, error) {
	if err := checkName("repo.CreateCollection", name); err != nil {
		return false, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, present := m.collections[name]; present {
		return false, nil
	}
	m.collections[name] = make(map[string]interface{})
	return true, nil
}

// Insert stores items in a collection.
func (m *Memory) Insert(ctx context.Context, name string, items ...Item) ([]Item, error) {
	if err := checkItems("repo.Insert", items); err != nil {
		return nil, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	col, err := m.collection(name)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		col[item.Key] = item.Value
	}
	return items, nil
}

// Get fetches one value.
func (m *Memory) Get(ctx context.Context, name, key string) (interface{}, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	col, err := m.collection(name)
	if err != nil {
		return nil, false, err
	}
	value, present := col[key]
	return value, present, nil
}

// Query returns every value in a collection.
func (m *Memory) Query(ctx context.Context, name string) ([]interface{}, error) {
	return m.QueryFunc(ctx, name, nil)
}

// QueryFunc returns the matching values in a collection.  A nil
// match function matches everything.
func (m *Memory) QueryFunc(ctx context.Context, name string, match func(interface{}) bool) ([]interface{}, error) {
	m.lock.Lock()
	col, err := m.collection(name)
	if err != nil {
		m.lock.Unlock()
		return nil, err
	}
	keys := make([]string, 0, len(col))
	for key := range col {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := make([]interface{}, len(keys))
	for i, key := range keys {
		values[i] = col[key]
	}
	m.lock.Unlock()

	// match runs without the lock so it may call back into m
	if match == nil {
		return values, nil
	}
	result := make([]interface{}, 0, len(values))
	for _, value := range values {
		if match(value) {
			result = append(result, value)
		}
	}
	return result, nil
}

// Size returns the number of values in a collection.
func (m *Memory) Size(ctx context.Context, name string) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	col, err := m.collection(name)
	if err != nil {
		return 0, err
	}
	return len(col), nil
}

// RemoveAll empties a collection.
func (m *Memory) RemoveAll(ctx context.Context, name string) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	col, err := m.collection(name)
	if err != nil {
		return 0, err
	}
	m.collections[name] = make(map[string]interface{})
	return len(col), nil
}
