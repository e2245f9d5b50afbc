// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// BuildPath computes the path a handler for subPath is mounted at.
// A baseURL of "/" contributes nothing.
func BuildPath(baseURL, urlVersion, subPath string) string {
	if baseURL == "/" {
		baseURL = ""
	}
	return baseURL + "/" + urlVersion + subPath
}
