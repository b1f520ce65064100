// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
	"github.com/callboard-foundation/callboard/mirror"
)

func queuesCommand() *cli.Command {
	var mirrorConfig cli.MirrorConfig
	var outputJSON bool

	return &cli.Command{
		Name:    "queues",
		Summary: "List mirrored queues",
		Description: `List every queue the daemon has mirrored, with its ring strategy and
current membership count.`,
		Usage: "callboard queues [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("queues", pflag.ContinueOnError)
			mirrorConfig.AddFlags(flagSet)
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			store, err := mirrorConfig.Open(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			return runQueues(ctx, store, outputJSON)
		},
	}
}

// queueEntry is one row of the queues listing.
type queueEntry struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Strategy    string `json:"strategy,omitempty"`
	Members     int    `json:"members"`
	Paused      int    `json:"paused"`
	UpdatedAt   string `json:"updated_at"`
}

func runQueues(ctx context.Context, store *mirror.Store, outputJSON bool) error {
	queues, err := store.Queues(ctx)
	if err != nil {
		return err
	}
	members, err := store.Members(ctx, "")
	if err != nil {
		return err
	}

	memberCount := make(map[string]int)
	pausedCount := make(map[string]int)
	for _, member := range members {
		memberCount[member.Queue]++
		if member.Paused {
			pausedCount[member.Queue]++
		}
	}

	entries := make([]queueEntry, 0, len(queues))
	for _, queue := range queues {
		entries = append(entries, queueEntry{
			Name:        queue.Name,
			DisplayName: queue.DisplayName,
			Strategy:    queue.Strategy,
			Members:     memberCount[queue.Name],
			Paused:      pausedCount[queue.Name],
			UpdatedAt:   queue.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	if outputJSON {
		return cli.WriteJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No queues mirrored yet.")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "QUEUE\tDISPLAY\tSTRATEGY\tMEMBERS\tPAUSED\tUPDATED")
	for _, entry := range entries {
		display := entry.DisplayName
		if display == "" {
			display = "-"
		}
		strategy := entry.Strategy
		if strategy == "" {
			strategy = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d\t%s\n",
			entry.Name, display, strategy, entry.Members, entry.Paused, entry.UpdatedAt)
	}
	return writer.Flush()
}
