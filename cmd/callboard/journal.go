// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
	"github.com/callboard-foundation/callboard/journal"
)

func journalCommand() *cli.Command {
	return &cli.Command{
		Name:        "journal",
		Summary:     "Inspect event journal segments",
		Subcommands: []*cli.Command{journalReplayCommand()},
	}
}

func journalReplayCommand() *cli.Command {
	var outputJSON bool
	var eventNames []string

	return &cli.Command{
		Name:    "replay",
		Summary: "Decode and print journal segments",
		Description: `Decode journal segments written by the daemon and print one line per
event, oldest first. Segments verify against their digest sidecar when
present. Compression is detected from the file extension.`,
		Usage: "callboard journal replay <segment>... [flags]",
		Examples: []cli.Example{
			{
				Description: "Print every pause event in a segment",
				Command:     "callboard journal replay --event QueueMemberPause events-1767225600000.journal.zst",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("replay", pflag.ContinueOnError)
			flagSet.BoolVar(&outputJSON, "json", false, "output one JSON object per line")
			flagSet.StringArrayVar(&eventNames, "event", nil, "only print events with this name (repeatable)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return fmt.Errorf("expected at least one segment file")
			}

			filter := make(map[string]bool, len(eventNames))
			for _, name := range eventNames {
				filter[name] = true
			}

			output := json.NewEncoder(os.Stdout)
			for _, path := range args {
				err := journal.Replay(path, func(envelope journal.Envelope) error {
					if len(filter) > 0 && !filter[envelope.Name] {
						return nil
					}
					if outputJSON {
						return output.Encode(envelopeJSON{
							At:     envelopeStamp(envelope),
							Name:   envelope.Name,
							Fields: envelope.Fields,
						})
					}
					printEnvelope(envelope)
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// envelopeJSON is the replay command's JSON line shape.
type envelopeJSON struct {
	At     string            `json:"at"`
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields,omitempty"`
}

func printEnvelope(envelope journal.Envelope) {
	var line strings.Builder
	line.WriteString(envelopeStamp(envelope))
	line.WriteByte(' ')
	line.WriteString(envelope.Name)
	for _, key := range slices.Sorted(maps.Keys(envelope.Fields)) {
		fmt.Fprintf(&line, " %s=%s", key, envelope.Fields[key])
	}
	fmt.Println(line.String())
}

func envelopeStamp(envelope journal.Envelope) string {
	return time.UnixMilli(envelope.At).UTC().Format("2006-01-02T15:04:05.000Z")
}
