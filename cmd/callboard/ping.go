// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
)

func pingCommand() *cli.Command {
	var sessionConfig cli.SessionConfig

	return &cli.Command{
		Name:    "ping",
		Summary: "Check the manager connection",
		Description: `Dial the manager port, authenticate, and time one ping round-trip.
Exits 1 when the manager is unreachable or rejects the credentials, so
the command works as a health check in scripts.`,
		Usage: "callboard ping [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("ping", pflag.ContinueOnError)
			sessionConfig.AddFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			connectStart := time.Now()
			session, err := sessionConfig.Connect(ctx, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "manager unreachable: %v\n", err)
				return &cli.ExitError{Code: 1}
			}
			defer session.Close()
			connected := time.Since(connectStart)

			pingStart := time.Now()
			if err := session.Ping(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "ping failed: %v\n", err)
				return &cli.ExitError{Code: 1}
			}
			fmt.Printf("manager answered: connect %s, ping %s\n",
				connected.Round(time.Millisecond), time.Since(pingStart).Round(time.Millisecond))
			return nil
		},
	}
}
