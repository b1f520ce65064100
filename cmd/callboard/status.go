// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
	"github.com/callboard-foundation/callboard/mirror"
)

func statusCommand() *cli.Command {
	var mirrorConfig cli.MirrorConfig
	var outputJSON bool

	return &cli.Command{
		Name:    "status",
		Summary: "Show a mirror summary",
		Description: `Show how much state the daemon has mirrored: queue, member, and
display-name mapping counts, plus the most recent update stamp. Works
without a reachable PBX.`,
		Usage: "callboard status [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
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

			return runStatus(ctx, store, outputJSON)
		},
	}
}

// mirrorStatus is the status command's output shape.
type mirrorStatus struct {
	Queues      int    `json:"queues"`
	Members     int    `json:"members"`
	Paused      int    `json:"paused"`
	Mappings    int    `json:"mappings"`
	ManualNames int    `json:"manual_names"`
	LastUpdate  string `json:"last_update,omitempty"`
}

func runStatus(ctx context.Context, store *mirror.Store, outputJSON bool) error {
	queues, err := store.Queues(ctx)
	if err != nil {
		return err
	}
	members, err := store.Members(ctx, "")
	if err != nil {
		return err
	}
	mappings, err := store.Mappings(ctx)
	if err != nil {
		return err
	}

	status := mirrorStatus{
		Queues:   len(queues),
		Members:  len(members),
		Mappings: len(mappings),
	}

	var lastUpdate time.Time
	for _, queue := range queues {
		if queue.UpdatedAt.After(lastUpdate) {
			lastUpdate = queue.UpdatedAt
		}
	}
	for _, member := range members {
		if member.Paused {
			status.Paused++
		}
		if member.UpdatedAt.After(lastUpdate) {
			lastUpdate = member.UpdatedAt
		}
	}
	for _, mapping := range mappings {
		if mapping.Source == mirror.SourceManual {
			status.ManualNames++
		}
	}
	if !lastUpdate.IsZero() {
		status.LastUpdate = lastUpdate.UTC().Format(time.RFC3339)
	}

	if outputJSON {
		return cli.WriteJSON(status)
	}

	fmt.Printf("Queues:    %d\n", status.Queues)
	fmt.Printf("Members:   %d (%d paused)\n", status.Members, status.Paused)
	fmt.Printf("Mappings:  %d (%d manual)\n", status.Mappings, status.ManualNames)
	if status.LastUpdate != "" {
		fmt.Printf("Updated:   %s\n", status.LastUpdate)
	} else {
		fmt.Println("Updated:   never (empty mirror)")
	}
	return nil
}
