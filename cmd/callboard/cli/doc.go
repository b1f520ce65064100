// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the callboard CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/callboard/main.go
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// The package also provides the two shared flag bundles used by the
// subcommand implementations:
//
//   - [SessionConfig]: manager connection flags (--config plus explicit
//     --host/--port/--username/--secret-file overrides) and a Connect
//     method that dials an authenticated manager session. Used by the
//     live commands (calls, pause, originate, hangup, ping).
//
//   - [MirrorConfig]: mirror database flags and an Open method that
//     opens the daemon's mirror read-only. Used by the offline commands
//     (status, queues, agents), which work without a reachable PBX.
package cli
