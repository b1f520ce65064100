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

func pauseCommand() *cli.Command {
	return makePauseCommand("pause", "Pause a queue member", true)
}

func unpauseCommand() *cli.Command {
	return makePauseCommand("unpause", "Unpause a queue member", false)
}

// makePauseCommand builds the pause and unpause commands, which differ
// only in the flag sent to the server.
func makePauseCommand(name, summary string, paused bool) *cli.Command {
	var sessionConfig cli.SessionConfig
	var reason string

	description := fmt.Sprintf(`%s for call distribution in one queue. The member keeps its
membership and shows up on the wallboard with its pause state; the
daemon's mirror picks up the change from the resulting event.`, summary)

	return &cli.Command{
		Name:        name,
		Summary:     summary,
		Description: description,
		Usage:       fmt.Sprintf("callboard %s <queue> <interface> [flags]", name),
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			sessionConfig.AddFlags(flagSet)
			flagSet.StringVar(&reason, "reason", "", "reason recorded in the queue log and shown on the wallboard")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <queue> <interface>, got %d arguments", len(args))
			}
			queue, iface := args[0], args[1]

			session, err := sessionConfig.Connect(ctx, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.QueuePause(ctx, queue, iface, paused, reason); err != nil {
				return err
			}
			fmt.Printf("%sd %s in %s\n", name, iface, queue)
			return nil
		},
	}
}
