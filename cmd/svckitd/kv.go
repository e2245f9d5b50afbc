// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"net/http"

	"github.com/diffeo/go-svckit/repo"
	"github.com/diffeo/go-svckit/restdata"
	"github.com/diffeo/go-svckit/restserver"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

// kvResource serves repository collections over REST:
//
//     POST {base}/collections/{name}              create
//     GET  {base}/collections/{name}              size
//     POST {base}/collections/{name}/remove-all   empty
//     GET  {base}/collections/{name}/items        every value
//     POST {base}/collections/{name}/items        insert one item or a list
//     GET  {base}/collections/{name}/items/{key}  one item
type kvResource struct {
	repo    repo.Repo
	logger  logrus.FieldLogger
	service string
}

// Register adds the resource's handlers to svc.
func (kv *kvResource) Register(svc *restserver.Service) error {
	for _, r := range []struct {
		register func(string, restserver.HandlerFunc) error
		path     string
		handler  restserver.HandlerFunc
	}{
		{svc.RegisterPOSTHandler, "/collections/{name}", kv.create},
		{svc.RegisterGETHandler, "/collections/{name}", kv.size},
		{svc.RegisterPOSTHandler, "/collections/{name}/remove-all", kv.removeAll},
		{svc.RegisterGETHandler, "/collections/{name}/items", kv.query},
		{svc.RegisterPOSTHandler, "/collections/{name}/items", kv.insert},
		{svc.RegisterGETHandler, "/collections/{name}/items/{key}", kv.get},
	} {
		if err := r.register(r.path, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// reply finishes a request.  Errors that carry a client-side status
// are answered with that status; anything else is a handler fault.
func reply(resp *restserver.Response, done func(interface{}, error), data interface{}, err error) {
	if err == nil {
		done(data, nil)
		return
	}
	status := restdata.StatusOf(err)
	if status >= http.StatusInternalServerError {
		done(nil, err)
		return
	}
	var body restdata.ErrorResponse
	body.FromError(err)
	resp.SetStatus(status)
	done(body, nil)
}

func (kv *kvResource) create(req *restserver.Request, resp *restserver.Response, done func(interface{}, error)) {
	name := req.Vars["name"]
	created, err := kv.repo.CreateCollection(req.Context(), name)
	if err == nil {
		kv.logger.WithFields(logrus.Fields{
			"service":    kv.service,
			"action":     "create-collection",
			"repo":       kv.repo.ID(),
			"collection": name,
			"created":    created,
		}).Info("collection created")
	}
	reply(resp, done, map[string]interface{}{
		"name":    name,
		"created": created,
	}, err)
}

func (kv *kvResource) size(req *restserver.Request, resp *restserver.Response, done func(interface{}, error)) {
	name := req.Vars["name"]
	size, err := kv.repo.Size(req.Context(), name)
	reply(resp, done, map[string]interface{}{
		"name": name,
		"size": size,
	}, err)
}

func (kv *kvResource) removeAll(req *restserver.Request, resp *restserver.Response, done func(interface{}, error)) {
	name := req.Vars["name"]
	removed, err := kv.repo.RemoveAll(req.Context(), name)
	reply(resp, done, map[string]interface{}{
		"name":    name,
		"removed": removed,
	}, err)
}

func (kv *kvResource) query(req *restserver.Request, resp *restserver.Response, done func(interface{}, error)) {
	values, err := kv.repo.Query(req.Context(), req.Vars["name"])
	reply(resp, done, values, err)
}

func (kv *kvResource) get(req *restserver.Request, resp *restserver.Response, done func(interface{}, error)) {
	name, key := req.Vars["name"], req.Vars["key"]
	value, found, err := kv.repo.Get(req.Context(), name, key)
	if err == nil && !found {
		err = restdata.ErrNotFound{Err: fmt.Errorf("no item %q in collection %q", key, name)}
	}
	reply(resp, done, map[string]interface{}{
		"key":   key,
		"value": value,
	}, err)
}

func (kv *kvResource) insert(req *restserver.Request, resp *restserver.Response, done func(interface{}, error)) {
	name := req.Vars["name"]
	items, err := decodeItems(req.JSON)
	if err == nil {
		items, err = kv.repo.Insert(req.Context(), name, items...)
	}
	reply(resp, done, map[string]interface{}{
		"name":     name,
		"inserted": len(items),
	}, err)
}

// decodeItems accepts either a single {"key":..., "value":...}
// object or a list of them.
func decodeItems(body interface{}) ([]repo.Item, error) {
	var (
		items []repo.Item
		err   error
	)
	switch b := body.(type) {
	case []interface{}:
		err = mapstructure.Decode(b, &items)
	case map[string]interface{}:
		var item repo.Item
		err = mapstructure.Decode(b, &item)
		items = []repo.Item{item}
	default:
		return nil, restdata.ErrPrecondition{
			Op:     "insert",
			Reason: "body must be a JSON item or a list of items",
		}
	}
	if err != nil {
		return nil, restdata.ErrPrecondition{Op: "insert", Reason: err.Error()}
	}
	return items, nil
}
