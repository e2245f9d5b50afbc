// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Svckitd runs a small REST service built on restserver and provides
// command-line access to the API gateway client.
//
//     svckitd --config config.yaml --service kv serve --storage redis:localhost:6379
//     svckitd poll-jobs --domain d-123 --until status=complete
//     svckitd basic-auth --user rich --password richer
//
// The serve command exposes repository collections under the
// service's base path, the liveness document at /, and Prometheus
// metrics at /metrics.
package main

import (
	"os"

	"github.com/diffeo/go-svckit/config"
	"github.com/diffeo/go-svckit/logging"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "svckitd"
	app.Usage = "run and exercise a REST microservice"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "YAML configuration file (CONFIG_FILE overrides)",
		},
		cli.StringFlag{
			Name:  "service",
			Value: "svckitd",
			Usage: "service name, and section of the configuration file",
		},
	}
	app.Commands = []cli.Command{
		serveCommand,
		pollJobsCommand,
		basicAuthCommand,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("svckitd failed")
	}
}

// setup loads the configuration named by the global flags and builds
// the logger it describes.  With no configuration file at all the
// service runs on defaults and environment variables.
func setup(c *cli.Context) (*config.File, *logrus.Logger, error) {
	var (
		file *config.File
		err  error
	)
	service := c.GlobalString("service")
	if path := c.GlobalString("config"); path != "" || os.Getenv("CONFIG_FILE") != "" {
		file, err = config.LoadFile(path, service)
	} else {
		file, err = config.LoadYAML(nil, service)
	}
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(file.Log)
	if err != nil {
		return nil, nil, err
	}
	return file, logger, nil
}
