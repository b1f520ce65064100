// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
)

func hangupCommand() *cli.Command {
	var sessionConfig cli.SessionConfig
	var cause int

	return &cli.Command{
		Name:    "hangup",
		Summary: "Hang up a channel",
		Description: `Terminate one channel by its full name, as shown by "callboard calls".
The server picks the hangup cause unless --cause is given.`,
		Usage: "callboard hangup <channel> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("hangup", pflag.ContinueOnError)
			sessionConfig.AddFlags(flagSet)
			flagSet.IntVar(&cause, "cause", 0, "ISDN hangup cause code (0 lets the server pick)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected <channel>, got %d arguments", len(args))
			}
			channel := args[0]

			session, err := sessionConfig.Connect(ctx, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Hangup(ctx, channel, cause); err != nil {
				return err
			}
			fmt.Printf("hung up %s\n", channel)
			return nil
		},
	}
}
