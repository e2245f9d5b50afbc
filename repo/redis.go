// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package repo

import (
	"context"
	"errors"
	"sort"

	"github.com/diffeo/go-svckit/restdata"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is prepended to every key a Redis store
// creates, when NewRedis is given an empty prefix.
const DefaultRedisPrefix = "svckit:"

// Redis is a Repo kept in a Redis server.  The set of collection
// names is stored in a Redis set, and each collection in its own
// hash.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a store on an existing client.  Every key it
// touches starts with prefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// ID returns the store's key prefix.
func (r *Redis) ID() string {
	return r.prefix
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) namesKey() string {
	return r.prefix + "collections"
}

func (r *Redis) collectionKey(name string) string {
	return r.prefix + "collection:" + name
}

// exists returns ErrNoSuchCollection if name was never created.
func (r *Redis) exists(ctx context.Context, name string) error {
	present, err := r.client.SIsMember(ctx, r.namesKey(), name).Result()
	if err != nil {
		return err
	}
	if !present {
		return ErrNoSuchCollection{Name: name}
	}
	return nil
}

// CreateCollection creates a collection if it does not exist.
func (r *Redis) CreateCollection(ctx context.Context, name string) (bool, error) {
	if err := checkName("repo.CreateCollection", name); err != nil {
		return false, err
	}
	added, err := r.client.SAdd(ctx, r.namesKey(), name).Result()
	if err != nil {
		return false, err
	}
	return added > 0, nil
}

// Insert stores items in a collection's hash.
func (r *Redis) Insert(ctx context.Context, name string, items ...Item) ([]Item, error) {
	if err := checkItems("repo.Insert", items); err != nil {
		return nil, err
	}
	if err := r.exists(ctx, name); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}
	fields := make([]interface{}, 0, 2*len(items))
	for _, item := range items {
		encoded, err := restdata.EncodeBytes(item.Value)
		if err != nil {
			return nil, err
		}
		fields = append(fields, item.Key, encoded)
	}
	if err := r.client.HSet(ctx, r.collectionKey(name), fields...).Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches and decodes one value.
func (r *Redis) Get(ctx context.Context, name, key string) (interface{}, bool, error) {
	if err := r.exists(ctx, name); err != nil {
		return nil, false, err
	}
	data, err := r.client.HGet(ctx, r.collectionKey(name), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var value interface{}
	if err = restdata.DecodeBytes(data, &value); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Query returns every value in a collection.
func (r *Redis) Query(ctx context.Context, name string) ([]interface{}, error) {
	return r.QueryFunc(ctx, name, nil)
}

// QueryFunc returns the matching values in a collection.  The whole
// hash is fetched and match is applied locally; a nil match
// function matches everything.
func (r *Redis) QueryFunc(ctx context.Context, name string, match func(interface{}) bool) ([]interface{}, error) {
	if err := r.exists(ctx, name); err != nil {
		return nil, err
	}
	all, err := r.client.HGetAll(ctx, r.collectionKey(name)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		var value interface{}
		if err := restdata.DecodeBytes([]byte(all[key]), &value); err != nil {
			return nil, err
		}
		if match == nil || match(value) {
			result = append(result, value)
		}
	}
	return result, nil
}

// Size returns the number of values in a collection.
func (r *Redis) Size(ctx context.Context, name string) (int, error) {
	if err := r.exists(ctx, name); err != nil {
		return 0, err
	}
	n, err := r.client.HLen(ctx, r.collectionKey(name)).Result()
	return int(n), err
}

// RemoveAll deletes a collection's hash, leaving the collection
// registered.
func (r *Redis) RemoveAll(ctx context.Context, name string) (int, error) {
	if err := r.exists(ctx, name); err != nil {
		return 0, err
	}
	var size *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		size = pipe.HLen(ctx, r.collectionKey(name))
		pipe.Del(ctx, r.collectionKey(name))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(size.Val()), nil
}
