// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// callboard-wallboard is a full-screen terminal wallboard for queue
// supervisors. Three tabs (queues, agents, calls) refresh on a fixed
// interval; / filters the visible rows.
//
// Two data modes:
//
// Mirror mode (default): reads queue and member state from the mirror
// database maintained by callboard-daemon. No manager connection is
// made, so the board keeps rendering while the PBX is unreachable.
// The calls tab stays empty in this mode.
//
// Live mode (--live): additionally dials the manager port and fetches
// queue status, summaries, and active channels on every refresh.
// Waiting counts and hold times come straight from the server and the
// calls tab shows the channels currently up.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
	"github.com/callboard-foundation/callboard/lib/version"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var mirrorConfig cli.MirrorConfig
	var live bool
	var refresh time.Duration

	flagSet := pflag.NewFlagSet("callboard-wallboard", pflag.ContinueOnError)
	mirrorConfig.AddFlags(flagSet)
	flagSet.BoolVar(&live, "live", false, "dial the manager for waiting counts and the calls tab")
	flagSet.DurationVar(&refresh, "refresh", 2*time.Second, "refresh interval")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the other callboard
	// binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("callboard-wallboard")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if refresh < minRefresh {
		refresh = minRefresh
	}

	// Warnings land on stderr behind the alt screen; they become visible
	// when the program exits.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := mirrorConfig.Open(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	source := &boardSource{store: store}
	if live {
		sessionConfig := cli.SessionConfig{ConfigFile: mirrorConfig.ConfigFile}
		dialCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		session, err := sessionConfig.Connect(dialCtx, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("cannot reach manager for --live: %w", err)
		}
		defer session.Close()
		source.session = session
	}

	model := newModel(source, refresh, live)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Callboard wallboard: full-screen queue display for supervisors.

By default, renders from the mirror database maintained by
callboard-daemon and never touches the PBX. Queue and agent state is
as fresh as the daemon's event stream; the calls tab stays empty.

With --live, also connects to the manager port using the same config
file the daemon reads, and fetches queue status and active channels
on every refresh.

Keys: 1/2/3 switch tabs, j/k move, / filter, r refresh, q quit.

Usage:
  callboard-wallboard [flags]

Examples:
  # Wallboard from the default mirror location
  callboard-wallboard

  # Wallboard for a specific deployment
  callboard-wallboard --config /etc/callboard/callboard.yaml

  # Live mode with a faster refresh
  callboard-wallboard --config /etc/callboard/callboard.yaml --live --refresh 1s

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
