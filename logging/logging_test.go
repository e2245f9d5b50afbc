// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package logging

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	logger, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.Level)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestBadOptions(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Equal(t, ErrUnknownFormat{Format: "xml"}, err)
}

func TestFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "logging")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "service.log")

	logger, err := New(Options{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.Level)
	logger.WithFields(logrus.Fields{
		"service": "svc",
		"action":  "test",
	}).Debug("hello")

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &event))
	assert.Equal(t, "hello", event["msg"])
	assert.Equal(t, "svc", event["service"])
	assert.Equal(t, "test", event["action"])
	assert.Equal(t, "debug", event["level"])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.Equal(t, ioutil.Discard, logger.Out)
	logger.Error("nobody hears this")
}
