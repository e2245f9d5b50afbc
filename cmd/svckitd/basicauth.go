// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"

	"github.com/diffeo/go-svckit/restclient"
	"github.com/urfave/cli"
)

var basicAuthCommand = cli.Command{
	Name:  "basic-auth",
	Usage: "print an Authorization: header value",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "user",
			Usage: "user name",
		},
		cli.StringFlag{
			Name:   "password",
			EnvVar: "BASIC_AUTH_PASSWORD",
			Usage:  "password",
		},
	},
	Action: func(c *cli.Context) error {
		header, err := restclient.GenerateBasicAuthTokenForHeader(c.String("user"), c.String("password"))
		if err != nil {
			return cli.NewExitError(err.Error(), 2)
		}
		fmt.Println(header)
		return nil
	},
}
