// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Command callboard is the operator CLI. The offline commands (status,
// queues, agents) answer from the mirror database maintained by
// callboard-daemon; the live commands (calls, pause, originate, hangup,
// ping) dial the PBX manager port directly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
	"github.com/callboard-foundation/callboard/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like ping) return an
		// ExitError with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("callboard")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return root().Execute(ctx, os.Args[1:])
}

func root() *cli.Command {
	return &cli.Command{
		Name: "callboard",
		Description: `Callboard: realtime PBX queue mirror and wallboard.

Read queue, agent, and call state from the local mirror maintained by
callboard-daemon, or act on the PBX directly over its manager port.`,
		Subcommands: []*cli.Command{
			statusCommand(),
			queuesCommand(),
			agentsCommand(),
			callsCommand(),
			pauseCommand(),
			unpauseCommand(),
			originateCommand(),
			hangupCommand(),
			pingCommand(),
			journalCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("callboard %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Summarize what the daemon has mirrored",
				Command:     "callboard status",
			},
			{
				Description: "List agents in the support queue with resolved names",
				Command:     "callboard agents support",
			},
			{
				Description: "Show live calls, one row per real call",
				Command:     "callboard calls --config /etc/callboard/config.yaml",
			},
			{
				Description: "Pause an agent with a wallboard reason",
				Command:     "callboard pause support PJSIP/101 --reason lunch",
			},
			{
				Description: "Place a call from an extension into the dialplan",
				Command:     "callboard originate --channel PJSIP/101 --exten 2001 --context internal",
			},
			{
				Description: "Decode a finalized journal segment",
				Command:     "callboard journal replay /var/lib/callboard/journal/events-1767225600000.journal.zst",
			},
		},
	}
}
