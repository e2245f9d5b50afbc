// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package repo

import "github.com/diffeo/go-svckit/restdata"

func checkName(op, name string) error {
	if name == "" {
		return restdata.ErrPrecondition{Op: op, Reason: "collection name is required"}
	}
	return nil
}

func checkItems(op string, items []Item) error {
	for _, item := range items {
		if item.Key == "" {
			return restdata.ErrPrecondition{Op: op, Reason: "item has no key"}
		}
		if item.Value == nil {
			return restdata.ErrPrecondition{Op: op, Reason: "item " + item.Key + " has no value"}
		}
	}
	return nil
}
