// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"errors"
	"os"
	"slices"
	"time"
)

// listen is the reader goroutine. It owns conn's receive side: it frames
// inbound bytes, routes records, and exits on the first hard read error,
// marking the session stale. Reads use short real-time deadlines so the
// loop can notice Close promptly even on an idle connection.
func (s *Session) listen() {
	defer close(s.done)
	defer s.markStale()
	var f framer
	buf := make([]byte, 4096)
	for {
		if s.closing.Load() {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.WaitSlice))
		n, err := s.conn.Read(buf)
		if n > 0 {
			f.append(buf[:n])
			for {
				rec, ok := f.next()
				if !ok {
					break
				}
				s.route(rec)
			}
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if s.closing.Load() {
				s.logger.Debug("reader exiting after close")
			} else {
				s.logger.Warn("manager connection lost", "error", err)
			}
			return
		}
	}
}

// route delivers one record. An action identifier that matches a pending
// action wins over event classification; a stale identifier (the action
// already returned) demotes the record to an event if it has a name, so
// late list fragments still reach event callbacks rather than vanishing.
func (s *Session) route(rec Record) {
	if id := rec.ActionID(); id != "" {
		s.mu.Lock()
		ch, ok := s.pending[id]
		s.mu.Unlock()
		if ok {
			select {
			case ch <- rec:
			default:
				s.logger.Warn("pending action reply buffer full, dropping record",
					"action_id", id, "event", rec.EventName())
			}
			return
		}
	}
	if name := rec.EventName(); name != "" {
		s.fanout(Event{Name: name, Record: rec})
		return
	}
	s.logger.Debug("unroutable record dropped", "kind", rec.Kind().String(), "fields", rec.Len())
}

// OnEvent registers a callback for asynchronous events. Callbacks run on
// the reader goroutine in registration order and must not block; anything
// slow belongs on the callback's own goroutine or channel.
func (s *Session) OnEvent(callback func(Event)) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, callback)
	s.mu.Unlock()
}

func (s *Session) fanout(ev Event) {
	s.mu.Lock()
	callbacks := slices.Clone(s.callbacks)
	s.mu.Unlock()
	for _, callback := range callbacks {
		s.invoke(callback, ev)
	}
}

// invoke shields the reader from callback panics. A panicking handler is
// logged and skipped; the event still reaches the remaining callbacks.
func (s *Session) invoke(callback func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event callback panicked", "event", ev.Name, "panic", r)
		}
	}()
	callback(ev)
}
