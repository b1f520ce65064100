// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/mirror"
)

// handleEvent runs on the session's reader goroutine for every manager
// event. Hook and apply failures are logged and swallowed; the next
// full sync repairs whatever an apply missed.
func (w *Worker) handleEvent(ctx context.Context, event ami.Event) {
	if ctx.Err() != nil {
		return
	}
	if w.cfg.OnEvent != nil {
		if err := w.cfg.OnEvent(event); err != nil {
			w.logger.Warn("event hook failed", "event", event.Name, "error", err)
		}
	}
	if err := w.applyEvent(ctx, event); err != nil {
		w.logger.Warn("applying event to mirror failed", "event", event.Name, "error", err)
	}
}

// applyEvent maps one queue event onto the mirror. Events that carry no
// queue or member identity, and event types the mirror does not track,
// are ignored.
func (w *Worker) applyEvent(ctx context.Context, event ami.Event) error {
	rec := event.Record
	switch event.Name {
	case "QueueParams", "QueueSummary":
		name := rec.Field("Queue")
		if name == "" {
			return nil
		}
		return w.cfg.Store.UpsertQueue(ctx, mirror.Queue{
			Name:        name,
			DisplayName: rec.Field("Description"),
			Strategy:    rec.Field("Strategy"),
		})

	case "QueueMember", "QueueMemberAdded", "QueueMemberStatus", "QueueMemberPause":
		member, ok := memberFromEvent(rec)
		if !ok {
			return nil
		}
		return w.cfg.Store.UpsertMember(ctx, member)

	case "QueueMemberRemoved":
		queue := rec.Field("Queue")
		iface := memberInterface(rec)
		if queue == "" || iface == "" {
			return nil
		}
		return w.cfg.Store.DeleteMember(ctx, queue, iface)
	}
	return nil
}

// memberFromEvent extracts a mirror row from a queue member event,
// tolerating the field spellings of both old and new server versions.
func memberFromEvent(rec ami.Record) (mirror.Member, bool) {
	queue := rec.Field("Queue")
	iface := memberInterface(rec)
	if queue == "" || iface == "" {
		return mirror.Member{}, false
	}

	name := rec.Field("MemberName")
	if name == "" {
		name = rec.Field("Name")
	}
	return mirror.Member{
		Queue:       queue,
		Interface:   iface,
		DisplayName: name,
		Penalty:     rec.Int("Penalty"),
		Paused:      rec.Bool("Paused"),
		Status:      rec.Int("Status"),
	}, true
}

// memberInterface reads the member's interface, falling back to the
// Location spelling older servers use.
func memberInterface(rec ami.Record) string {
	if iface := rec.Field("Interface"); iface != "" {
		return iface
	}
	return rec.Field("Location")
}
