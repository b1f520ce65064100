// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "callboard",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "queues",
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					called = "queues"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"queues"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "queues" {
		t.Errorf("dispatched to %q, want %q", called, "queues")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "callboard",
		Subcommands: []*Command{
			{
				Name: "journal",
				Subcommands: []*Command{
					{
						Name: "replay",
						Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
							called = "journal replay"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"journal", "replay", "events.journal"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "journal replay" {
		t.Errorf("dispatched to %q, want %q", called, "journal replay")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "events.journal" {
		t.Errorf("args = %v, want [events.journal]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var reason string
	var target string

	command := &Command{
		Name: "pause",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pause", pflag.ContinueOnError)
			flagSet.StringVar(&reason, "reason", "", "pause reason")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--reason", "lunch", "support"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if reason != "lunch" {
		t.Errorf("reason = %q, want %q", reason, "lunch")
	}
	if target != "support" {
		t.Errorf("target = %q, want %q", target, "support")
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "pause",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pause", pflag.ContinueOnError)
			flagSet.String("reason", "", "pause reason")
			flagSet.String("config", "", "config file")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--raeson"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "did you mean --reason") {
		t.Errorf("error = %q, want suggestion for '--reason'", errStr)
	}
	if !strings.Contains(errStr, "raeson") {
		t.Errorf("error = %q, should mention the bad flag", errStr)
	}
	if !strings.Contains(errStr, "--help") {
		t.Errorf("error = %q, should point to --help", errStr)
	}
}

func TestCommand_Execute_UnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{
		Name: "pause",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pause", pflag.ContinueOnError)
			flagSet.String("reason", "", "pause reason")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err.Error())
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "callboard",
		Subcommands: []*Command{
			{Name: "queues"},
			{Name: "agents"},
			{Name: "version"},
		},
	}

	err := root.Execute(context.Background(), []string{"queue"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), "did you mean \"queues\"") {
		t.Errorf("error = %q, want suggestion for 'queues'", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandNoSuggestion(t *testing.T) {
	root := &Command{
		Name: "callboard",
		Subcommands: []*Command{
			{Name: "queues"},
			{Name: "agents"},
		},
	}

	err := root.Execute(context.Background(), []string{"zzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not contain suggestion for distant input", err.Error())
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:    "callboard",
				Summary: "PBX queue wallboard",
				Subcommands: []*Command{
					{Name: "queues", Summary: "List mirrored queues"},
				},
			}

			err := root.Execute(context.Background(), []string{helpArg})
			if err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
		})
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name: "callboard",
		Subcommands: []*Command{
			{Name: "queues", Summary: "List mirrored queues"},
		},
	}

	err := root.Execute(context.Background(), []string{})
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "callboard",
		Description: "Realtime PBX queue mirror and wallboard.",
		Subcommands: []*Command{
			{Name: "status", Summary: "Show mirror summary"},
			{Name: "queues", Summary: "List mirrored queues"},
			{Name: "version", Summary: "Print version information"},
		},
		Examples: []Example{
			{
				Description: "List live calls",
				Command:     "callboard calls --config /etc/callboard/config.yaml",
			},
			{
				Description: "Pause an agent in a queue",
				Command:     "callboard pause support PJSIP/101 --reason lunch",
			},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	// Verify structural elements are present.
	for _, want := range []string{
		"Realtime PBX queue mirror and wallboard.",
		"Usage:",
		"callboard <command> [flags]",
		"Commands:",
		"status",
		"Show mirror summary",
		"queues",
		"List mirrored queues",
		"Examples:",
		"callboard calls --config /etc/callboard/config.yaml",
		"callboard pause support PJSIP/101",
		"Run 'callboard <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_WithFlags(t *testing.T) {
	command := &Command{
		Name:    "pause",
		Summary: "Pause a queue member",
		Usage:   "callboard pause <queue> <interface> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pause", pflag.ContinueOnError)
			flagSet.String("reason", "", "reason shown on the wallboard")
			flagSet.String("config", "", "config file")
			return flagSet
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"callboard pause <queue> <interface> [flags]",
		"Flags:",
		"reason",
		"config",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "callboard"}
	journal := &Command{Name: "journal", parent: root}
	replay := &Command{Name: "replay", parent: journal}

	if got := root.fullName(); got != "callboard" {
		t.Errorf("root.fullName() = %q, want %q", got, "callboard")
	}
	if got := journal.fullName(); got != "callboard journal" {
		t.Errorf("journal.fullName() = %q, want %q", got, "callboard journal")
	}
	if got := replay.fullName(); got != "callboard journal replay" {
		t.Errorf("replay.fullName() = %q, want %q", got, "callboard journal replay")
	}
}
