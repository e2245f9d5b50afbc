// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diffeo/go-svckit/repo"
	"github.com/diffeo/go-svckit/restserver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var storage = repo.Backend{Implementation: "memory"}

var serveCommand = cli.Command{
	Name:  "serve",
	Usage: "run the service until interrupted",
	Flags: []cli.Flag{
		cli.GenericFlag{
			Name:  "storage",
			Value: &storage,
			Usage: "impl[:address] of repository storage",
		},
		cli.DurationFlag{
			Name:  "shutdown-timeout",
			Value: 10 * time.Second,
			Usage: "wait this long for in-flight requests on shutdown",
		},
	},
	Action: func(c *cli.Context) error {
		file, logger, err := setup(c)
		if err != nil {
			return err
		}
		if file.Storage != "" && !c.IsSet("storage") {
			if err := storage.Set(file.Storage); err != nil {
				return err
			}
		}
		store, err := storage.Repo()
		if err != nil {
			return err
		}
		if closer, ok := store.(io.Closer); ok {
			defer closer.Close()
		}

		serviceConfig, err := file.ServiceConfig()
		if err != nil {
			return err
		}
		svc, err := restserver.New(serviceConfig, logger)
		if err != nil {
			return err
		}
		kv := &kvResource{repo: store, logger: logger, service: file.Name}
		if err := kv.Register(svc); err != nil {
			return err
		}
		if err := svc.Mount("/metrics", promhttp.Handler()); err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"service": file.Name,
			"storage": storage.String(),
			"repo":    store.ID(),
		}).Info("starting")
		if err := svc.Start(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		shutdown, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
		defer cancel()
		return svc.Stop(shutdown)
	},
}
