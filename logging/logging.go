// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package logging builds the process logger.  Everything else takes a
// logrus.FieldLogger and logs structured events through it.
package logging

import (
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options describes the process logger.
type Options struct {
	// Level is a logrus level name such as "debug" or "info".  If
	// empty, "info".
	Level string `mapstructure:"level"`

	// Format is "json" or "text".  If empty, "json".
	Format string `mapstructure:"format"`

	// File, if set, receives a copy of every log line.  It is
	// opened for append and stays open for the life of the logger.
	File string `mapstructure:"file"`
}

// New creates a logger writing to standard output, and also to
// opts.File if that is set.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
	}

	var formatter logrus.Formatter
	switch strings.ToLower(opts.Format) {
	case "", "json":
		formatter = &logrus.JSONFormatter{}
	case "text":
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	default:
		return nil, ErrUnknownFormat{Format: opts.Format}
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, f)
	}

	return &logrus.Logger{
		Out:       out,
		Formatter: formatter,
		Hooks:     make(logrus.LevelHooks),
		Level:     level,
	}, nil
}

// Discard returns a logger that throws everything away.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.Out = ioutil.Discard
	return logger
}

// ErrUnknownFormat is returned from New if Options.Format names no
// known formatter.
type ErrUnknownFormat struct {
	Format string
}

func (e ErrUnknownFormat) Error() string {
	return "unknown log format " + e.Format
}
