// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package ami implements a client for the Asterisk Manager Interface: a
// single persistent TCP session that multiplexes correlated request/response
// exchanges with an unsolicited asynchronous event stream.
//
// The wire format is line-oriented UTF-8: each message is a block of
// "Key: Value" lines terminated by a blank line. [Record] preserves the
// field order of a parsed block and resolves its classification (response,
// event, or unroutable) once at parse time. The framer tolerates messages
// split at arbitrary byte offsets, multiple messages per read, and bare LF
// line endings; lines without a colon are skipped, which also absorbs the
// protocol banner the server prints before the first block.
//
// [Connect] dials the manager port, authenticates with a Login action, and
// starts a reader goroutine that owns the socket. Inbound records carrying
// an action identifier are routed to the matching pending action's channel;
// everything else fans out to callbacks registered with [Session.OnEvent].
// A panicking callback is isolated and logged so one bad handler cannot
// kill the reader.
//
// [Session.Send] is the correlation primitive: it registers a pending entry
// under a fresh action identifier, writes the action block, and accumulates
// reply records until a completion marker arrives or the deadline passes.
// Multi-record replies (list actions such as QueueStatus) end with an
// explicit completion event; single-record replies complete on a bare
// success status. On timeout Send returns whatever arrived with a nil
// error, so list consumers degrade to partial data instead of failing.
//
// The typed wrappers (QueueStatus, CoreShowChannels, Originate, QueuePause,
// and friends) translate between Go values and manager field conventions,
// including reshaping the flat QueueStatus record stream into [Queue]
// values with attached members. Control-style wrappers return a
// [ResponseError] when the manager answers with an error status.
package ami
