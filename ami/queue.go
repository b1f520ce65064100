// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"context"
	"strconv"
)

// Queue is one queue's parameters and membership from a QueueStatus run.
type Queue struct {
	Name      string
	Strategy  string
	Max       int
	Calls     int
	Holdtime  int
	TalkTime  int
	Completed int
	Abandoned int
	Members   []Member
}

// Member is one queue member row. Field names vary across server versions;
// the parser accepts both the old and new spellings.
type Member struct {
	Queue      string
	Interface  string
	Name       string
	Membership string
	Penalty    int
	CallsTaken int
	LastCall   int
	Status     int
	Paused     bool
	InCall     bool
}

// QueueSummary is one row of a QueueSummary listing.
type QueueSummary struct {
	Queue           string
	LoggedIn        int
	Available       int
	Callers         int
	HoldTime        int
	TalkTime        int
	LongestHoldTime int
}

// QueueStatus fetches queue parameters and membership. An empty queue name
// fetches every queue. The server interleaves three event shapes in one
// flat stream; reshapeQueues replays them into Queue values.
func (s *Session) QueueStatus(ctx context.Context, queue string) ([]Queue, error) {
	records, err := s.Send(ctx, "QueueStatus", map[string]string{"Queue": queue})
	if err != nil {
		return nil, err
	}
	return reshapeQueues(records), nil
}

// reshapeQueues replays the flat QueueStatus record stream: a QueueParams
// record opens a queue, QueueMember records attach to the most recently
// opened queue, and QueueStatusComplete closes the run. A still-open queue
// at the end of the stream is kept, so a reply truncated by the deadline
// degrades to partial data instead of losing the trailing queue.
func reshapeQueues(records []Record) []Queue {
	var queues []Queue
	var current *Queue
	for _, rec := range records {
		switch rec.EventName() {
		case "QueueParams":
			if current != nil {
				queues = append(queues, *current)
			}
			q := parseQueueParams(rec)
			current = &q
		case "QueueMember":
			if current == nil {
				continue
			}
			current.Members = append(current.Members, parseQueueMember(rec))
		case "QueueStatusComplete":
			if current != nil {
				queues = append(queues, *current)
				current = nil
			}
		}
	}
	if current != nil {
		queues = append(queues, *current)
	}
	return queues
}

func parseQueueParams(rec Record) Queue {
	return Queue{
		Name:      rec.Field("Queue"),
		Strategy:  rec.Field("Strategy"),
		Max:       rec.Int("Max"),
		Calls:     rec.Int("Calls"),
		Holdtime:  rec.Int("Holdtime"),
		TalkTime:  rec.Int("TalkTime"),
		Completed: rec.Int("Completed"),
		Abandoned: rec.Int("Abandoned"),
	}
}

func parseQueueMember(rec Record) Member {
	iface := rec.Field("Interface")
	if iface == "" {
		iface = rec.Field("Location")
	}
	name := rec.Field("MemberName")
	if name == "" {
		name = rec.Field("Name")
	}
	return Member{
		Queue:      rec.Field("Queue"),
		Interface:  iface,
		Name:       name,
		Membership: rec.Field("Membership"),
		Penalty:    rec.Int("Penalty"),
		CallsTaken: rec.Int("CallsTaken"),
		LastCall:   rec.Int("LastCall"),
		Status:     rec.Int("Status"),
		Paused:     rec.Bool("Paused"),
		InCall:     rec.Bool("InCall"),
	}
}

// QueueSummaries fetches per-queue aggregate counters. An empty queue name
// fetches every queue.
func (s *Session) QueueSummaries(ctx context.Context, queue string) ([]QueueSummary, error) {
	records, err := s.Send(ctx, "QueueSummary", map[string]string{"Queue": queue})
	if err != nil {
		return nil, err
	}
	rows := filterEvents(records, "QueueSummary")
	summaries := make([]QueueSummary, 0, len(rows))
	for _, rec := range rows {
		summaries = append(summaries, QueueSummary{
			Queue:           rec.Field("Queue"),
			LoggedIn:        rec.Int("LoggedIn"),
			Available:       rec.Int("Available"),
			Callers:         rec.Int("Callers"),
			HoldTime:        rec.Int("HoldTime"),
			TalkTime:        rec.Int("TalkTime"),
			LongestHoldTime: rec.Int("LongestHoldTime"),
		})
	}
	return summaries, nil
}

// QueueAdd adds a member to a queue. memberName is the display name shown
// in queue listings; empty omits it.
func (s *Session) QueueAdd(ctx context.Context, queue, iface string, penalty int, memberName string, paused bool) error {
	return s.control(ctx, "QueueAdd", map[string]string{
		"Queue":      queue,
		"Interface":  iface,
		"Penalty":    strconv.Itoa(penalty),
		"MemberName": memberName,
		"Paused":     boolParam(paused),
	})
}

// QueueRemove removes a member from a queue.
func (s *Session) QueueRemove(ctx context.Context, queue, iface string) error {
	return s.control(ctx, "QueueRemove", map[string]string{
		"Queue":     queue,
		"Interface": iface,
	})
}

// QueuePause pauses or unpauses a member. An empty queue applies to every
// queue the interface belongs to.
func (s *Session) QueuePause(ctx context.Context, queue, iface string, paused bool, reason string) error {
	return s.control(ctx, "QueuePause", map[string]string{
		"Queue":     queue,
		"Interface": iface,
		"Paused":    boolParam(paused),
		"Reason":    reason,
	})
}

// QueueReload reloads queue configuration on the server. An empty queue
// reloads all queues.
func (s *Session) QueueReload(ctx context.Context, queue string) error {
	return s.control(ctx, "QueueReload", map[string]string{"Queue": queue})
}

// QueueLog appends a custom entry to the server's queue log.
func (s *Session) QueueLog(ctx context.Context, queue, event, uniqueID, iface, message string) error {
	return s.control(ctx, "QueueLog", map[string]string{
		"Queue":     queue,
		"Event":     event,
		"Uniqueid":  uniqueID,
		"Interface": iface,
		"Message":   message,
	})
}
