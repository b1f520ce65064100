// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/callstate"
	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
)

func callsCommand() *cli.Command {
	var sessionConfig cli.SessionConfig
	var outputJSON bool
	var raw bool

	return &cli.Command{
		Name:    "calls",
		Summary: "List live calls",
		Description: `Connect to the manager, list the channels currently up, and collapse
the channel legs of each call into one row. --raw skips the collapse
and shows every leg the server reports.`,
		Usage: "callboard calls [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("calls", pflag.ContinueOnError)
			sessionConfig.AddFlags(flagSet)
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			flagSet.BoolVar(&raw, "raw", false, "show every channel leg instead of one row per call")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			session, err := sessionConfig.Connect(ctx, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			channels, err := session.CoreShowChannels(ctx)
			if err != nil {
				return err
			}
			if !raw {
				channels = callstate.CollapseChannels(channels)
			}
			return printChannels(channels, outputJSON)
		},
	}
}

// callEntry is one row of the calls listing.
type callEntry struct {
	Channel   string `json:"channel"`
	State     string `json:"state"`
	Caller    string `json:"caller"`
	Connected string `json:"connected,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Context   string `json:"context,omitempty"`
	Exten     string `json:"exten,omitempty"`
}

func printChannels(channels []ami.Channel, outputJSON bool) error {
	entries := make([]callEntry, 0, len(channels))
	for _, channel := range channels {
		entries = append(entries, callEntry{
			Channel:   channel.Channel,
			State:     channel.State,
			Caller:    callstate.PartyLabel(channel.CallerIDName, channel.CallerIDNum),
			Connected: callstate.PartyLabel(channel.ConnectedLineName, channel.ConnectedLineNum),
			Duration:  channel.Duration,
			Context:   channel.Context,
			Exten:     channel.Exten,
		})
	}

	if outputJSON {
		return cli.WriteJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No calls up.")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "CHANNEL\tSTATE\tCALLER\tCONNECTED\tDURATION")
	for _, entry := range entries {
		connected := entry.Connected
		if connected == "" {
			connected = "-"
		}
		duration := entry.Duration
		if duration == "" {
			duration = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			entry.Channel, entry.State, entry.Caller, connected, duration)
	}
	return writer.Flush()
}
