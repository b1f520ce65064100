// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/callstate"
	"github.com/callboard-foundation/callboard/mirror"
)

// boardSource produces one display snapshot per refresh. The mirror
// store is always open; the session is nil unless --live was given.
type boardSource struct {
	store   *mirror.Store
	session *ami.Session
}

// snapshot assembles the board. Live mode asks the server for queue
// status, summaries, and channels; mirror mode reshapes the mirrored
// rows into the same form. Display names come from the mirror's
// mapping table either way.
func (s *boardSource) snapshot(ctx context.Context) (callstate.Board, error) {
	names, err := s.store.NameIndex(ctx)
	if err != nil {
		return callstate.Board{}, err
	}

	if s.session != nil {
		queues, err := s.session.QueueStatus(ctx, "")
		if err != nil {
			return callstate.Board{}, err
		}
		summaries, err := s.session.QueueSummaries(ctx, "")
		if err != nil {
			return callstate.Board{}, err
		}
		channels, err := s.session.CoreShowChannels(ctx)
		if err != nil {
			return callstate.Board{}, err
		}
		return callstate.Build(queues, summaries, channels, names), nil
	}

	queues, err := s.store.Queues(ctx)
	if err != nil {
		return callstate.Board{}, err
	}
	members, err := s.store.Members(ctx, "")
	if err != nil {
		return callstate.Board{}, err
	}
	return mirrorBoard(queues, members, names), nil
}

// mirrorBoard reshapes mirrored rows into the live snapshot form so the
// rendering path is shared. Counters the mirror does not carry (waiting
// callers, hold time, completed, abandoned) stay zero; logged-in and
// available counts are derived from the member rows.
func mirrorBoard(queues []mirror.Queue, members []mirror.Member, names map[string]string) callstate.Board {
	byQueue := make(map[string][]ami.Member, len(queues))
	for _, m := range members {
		byQueue[m.Queue] = append(byQueue[m.Queue], ami.Member{
			Queue:     m.Queue,
			Interface: m.Interface,
			Name:      m.DisplayName,
			Penalty:   m.Penalty,
			Status:    m.Status,
			Paused:    m.Paused,
		})
	}

	amiQueues := make([]ami.Queue, 0, len(queues))
	summaries := make([]ami.QueueSummary, 0, len(queues))
	for _, q := range queues {
		queue := ami.Queue{
			Name:     q.Name,
			Strategy: q.Strategy,
			Members:  byQueue[q.Name],
		}
		amiQueues = append(amiQueues, queue)

		summary := ami.QueueSummary{Queue: q.Name}
		for _, m := range queue.Members {
			summary.LoggedIn++
			if !m.Paused && availableStatus(m.Status) {
				summary.Available++
			}
		}
		summaries = append(summaries, summary)
	}

	return callstate.Build(amiQueues, summaries, nil, names)
}

// availableStatus reports whether a device state counts as available
// for the summary column: not-in-use, or unknown (devices without
// state hints).
func availableStatus(status int) bool {
	return status == 0 || status == 1
}
