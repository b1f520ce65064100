// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package callstate

import (
	"sort"

	"github.com/callboard-foundation/callboard/ami"
)

// Board is one display snapshot assembled from live manager data.
type Board struct {
	Queues []QueueRow
	Agents []AgentRow
	Calls  []ami.Channel
	// Waiting is the total callers currently held across all queues.
	Waiting int
}

// QueueRow merges a queue's status parameters with its summary counters.
type QueueRow struct {
	Name      string
	Strategy  string
	Waiting   int
	LoggedIn  int
	Available int
	Holdtime  int
	Completed int
	Abandoned int
}

// AgentRow is one queue membership with its display identity resolved.
type AgentRow struct {
	Queue     string
	Interface string
	Name      string
	Extension string
	Penalty   int
	Status    int
	Paused    bool
	InCall    bool
}

// Build assembles a snapshot. names maps agent identifiers (extensions,
// endpoint names, technology-prefixed forms) to display names; a member
// without its own display name is resolved through its alias set, falling
// back to the raw interface.
func Build(queues []ami.Queue, summaries []ami.QueueSummary, channels []ami.Channel, names map[string]string) Board {
	summaryByQueue := make(map[string]ami.QueueSummary, len(summaries))
	for _, s := range summaries {
		summaryByQueue[s.Queue] = s
	}

	var board Board
	for _, q := range queues {
		row := QueueRow{
			Name:      q.Name,
			Strategy:  q.Strategy,
			Waiting:   q.Calls,
			Holdtime:  q.Holdtime,
			Completed: q.Completed,
			Abandoned: q.Abandoned,
		}
		if s, ok := summaryByQueue[q.Name]; ok {
			row.LoggedIn = s.LoggedIn
			row.Available = s.Available
			if row.Waiting == 0 {
				row.Waiting = s.Callers
			}
		}
		board.Waiting += row.Waiting
		board.Queues = append(board.Queues, row)
		for _, m := range q.Members {
			board.Agents = append(board.Agents, resolveAgent(q.Name, m, names))
		}
	}
	board.Calls = CollapseChannels(channels)

	sort.Slice(board.Queues, func(i, j int) bool {
		return board.Queues[i].Name < board.Queues[j].Name
	})
	sort.Slice(board.Agents, func(i, j int) bool {
		a, b := board.Agents[i], board.Agents[j]
		if a.Queue != b.Queue {
			return a.Queue < b.Queue
		}
		return a.Interface < b.Interface
	})
	return board
}

func resolveAgent(queue string, m ami.Member, names map[string]string) AgentRow {
	row := AgentRow{
		Queue:     queue,
		Interface: m.Interface,
		Name:      m.Name,
		Penalty:   m.Penalty,
		Status:    m.Status,
		Paused:    m.Paused,
		InCall:    m.InCall,
	}
	for _, alias := range Aliases(m.Interface) {
		if row.Extension == "" && isDigits(alias) {
			row.Extension = alias
		}
		if row.Name == "" {
			if name, ok := names[alias]; ok && name != "" {
				row.Name = name
			}
		}
	}
	if row.Name == "" {
		row.Name = m.Interface
	}
	return row
}

// MemberStatusLabel renders the numeric device state of a queue member.
func MemberStatusLabel(status int) string {
	switch status {
	case 1:
		return "idle"
	case 2:
		return "in use"
	case 3:
		return "busy"
	case 4:
		return "invalid"
	case 5:
		return "unavailable"
	case 6:
		return "ringing"
	case 7:
		return "ring+inuse"
	case 8:
		return "on hold"
	default:
		return "unknown"
	}
}
