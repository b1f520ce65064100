// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides process-level helpers shared by callboard
// binaries: the fatal entrypoint error handler and the exclusive lock
// file that keeps two daemons from mirroring into one database.
package process
