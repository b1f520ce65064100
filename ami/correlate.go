// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Send dispatches an action and accumulates its reply records until a
// completion marker arrives. The wait is bounded by the context deadline
// when one is set, otherwise by ActionTimeout. A deadline that passes
// without a completion marker returns whatever accumulated, possibly
// nothing, with a nil error: callers distinguish "no data" from "empty
// list" by consulting the returned status fields, not the error.
//
// The pending entry is removed on every exit path. Records arriving for an
// identifier no longer pending are demoted to events by the reader.
func (s *Session) Send(ctx context.Context, action string, params map[string]string) ([]Record, error) {
	s.mu.Lock()
	live := s.running && s.authenticated
	s.mu.Unlock()
	if !live {
		return nil, ErrClosed
	}

	id := s.nextActionID()
	replies := make(chan Record, pendingBuffer)
	s.mu.Lock()
	s.pending[id] = replies
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	payload := encodeAction(action, id, params)
	s.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.ActionTimeout))
	_, err := s.conn.Write(payload)
	s.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("ami: write %s: %w", action, err)
	}

	deadline := s.clk.Now().Add(s.cfg.ActionTimeout)
	var results []Record
	for {
		// Drain everything already buffered before waiting.
		for {
			select {
			case rec := <-replies:
				results = append(results, rec)
				if isCompletionRecord(rec) {
					return results, nil
				}
				continue
			default:
			}
			break
		}
		remaining := deadline.Sub(s.clk.Now())
		if remaining <= 0 {
			return results, nil
		}
		slice := s.cfg.WaitSlice
		if slice > remaining {
			slice = remaining
		}
		select {
		case rec := <-replies:
			results = append(results, rec)
			if isCompletionRecord(rec) {
				return results, nil
			}
		case <-s.clk.After(slice):
		case <-ctx.Done():
			return results, nil
		}
	}
}

// isCompletionRecord reports whether a record ends its action's reply
// sequence: an EventList field marked Complete, an event name containing
// "Complete" (QueueStatusComplete, CoreShowChannelsComplete), or a bare
// success acknowledgement with no event or list marker. Note an error
// response matches none of these; it waits out the deadline.
func isCompletionRecord(rec Record) bool {
	if rec.Field("EventList") == "Complete" {
		return true
	}
	if strings.Contains(rec.EventName(), "Complete") {
		return true
	}
	return rec.Success() && !rec.Has("Event") && !rec.Has("EventList")
}
