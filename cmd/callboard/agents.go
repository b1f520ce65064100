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

	"github.com/callboard-foundation/callboard/callstate"
	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
	"github.com/callboard-foundation/callboard/mirror"
)

func agentsCommand() *cli.Command {
	var mirrorConfig cli.MirrorConfig
	var outputJSON bool

	return &cli.Command{
		Name:    "agents",
		Summary: "List mirrored queue members",
		Description: `List queue members with their display identity resolved. A member
without its own display name is looked up through its alias set
(extension, endpoint, technology-prefixed forms) against the mapping
table; unmatched members show the raw interface.

An optional queue argument restricts the listing to one queue.`,
		Usage: "callboard agents [queue] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("agents", pflag.ContinueOnError)
			mirrorConfig.AddFlags(flagSet)
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most one queue argument, got %d", len(args))
			}
			queue := ""
			if len(args) == 1 {
				queue = args[0]
			}

			store, err := mirrorConfig.Open(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			return runAgents(ctx, store, queue, outputJSON)
		},
	}
}

// agentEntry is one row of the agents listing.
type agentEntry struct {
	Queue     string `json:"queue"`
	Interface string `json:"interface"`
	Name      string `json:"name"`
	Penalty   int    `json:"penalty"`
	Status    string `json:"status"`
	Paused    bool   `json:"paused"`
}

func runAgents(ctx context.Context, store *mirror.Store, queue string, outputJSON bool) error {
	members, err := store.Members(ctx, queue)
	if err != nil {
		return err
	}

	entries := make([]agentEntry, 0, len(members))
	for _, member := range members {
		name := member.DisplayName
		if name == "" {
			name, err = store.DisplayName(ctx, callstate.Aliases(member.Interface)...)
			if err != nil {
				return err
			}
		}
		if name == "" {
			name = member.Interface
		}
		entries = append(entries, agentEntry{
			Queue:     member.Queue,
			Interface: member.Interface,
			Name:      name,
			Penalty:   member.Penalty,
			Status:    callstate.MemberStatusLabel(member.Status),
			Paused:    member.Paused,
		})
	}

	if outputJSON {
		return cli.WriteJSON(entries)
	}

	if len(entries) == 0 {
		if queue != "" {
			fmt.Fprintf(os.Stderr, "No members mirrored for queue %q.\n", queue)
		} else {
			fmt.Fprintln(os.Stderr, "No members mirrored yet.")
		}
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "QUEUE\tINTERFACE\tNAME\tPENALTY\tSTATUS\tPAUSED")
	for _, entry := range entries {
		paused := "-"
		if entry.Paused {
			paused = "yes"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\t%s\n",
			entry.Queue, entry.Interface, entry.Name, entry.Penalty, entry.Status, paused)
	}
	return writer.Flush()
}
