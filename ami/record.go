// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Kind classifies a parsed record by shape. Classification happens once at
// parse time; routing may still demote a stale response to an event when no
// pending action claims its identifier.
type Kind int

const (
	// KindUnroutable marks a record with neither an action identifier nor
	// an event name. These are logged and dropped.
	KindUnroutable Kind = iota
	// KindResponse marks a record carrying an ActionID field. It belongs
	// to a correlated request/response exchange.
	KindResponse
	// KindEvent marks a record carrying an Event field and no ActionID.
	KindEvent
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	default:
		return "unroutable"
	}
}

// Record is one parsed manager message: an ordered mapping of field names to
// string values. Field order matches the wire. A repeated field name appends
// to the existing value with a newline separator, which preserves multi-line
// command output the manager sends as repeated Output fields.
type Record struct {
	keys   []string
	values map[string]string
}

func newRecord() Record {
	return Record{values: make(map[string]string)}
}

// NewRecord builds a record from a field map, for synthesizing events in
// tests and tooling. Keys are ordered lexicographically since a map
// carries no wire order.
func NewRecord(fields map[string]string) Record {
	rec := newRecord()
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		rec.set(key, fields[key])
	}
	return rec
}

func (r *Record) set(key, value string) {
	if prev, ok := r.values[key]; ok {
		r.values[key] = prev + "\n" + value
		return
	}
	r.keys = append(r.keys, key)
	r.values[key] = value
}

// Get returns the value for key and whether the field was present.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Field returns the value for key, or the empty string when absent.
func (r Record) Field(key string) string {
	return r.values[key]
}

// Has reports whether the record carries the field.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the field names in wire order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Fields returns a copy of the field map.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Int parses the field as a base-10 integer, returning 0 when the field is
// absent or unparsable. Manager numeric fields are decimal strings.
func (r Record) Int(key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.values[key]))
	if err != nil {
		return 0
	}
	return n
}

// Bool reports whether the field holds a manager truthy value. The manager
// is inconsistent across versions, so "1", "true", "yes", and "on" all
// count, case-insensitively.
func (r Record) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.values[key])) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ActionID returns the action identifier field, if any.
func (r Record) ActionID() string {
	return r.values["ActionID"]
}

// EventName returns the Event field, if any.
func (r Record) EventName() string {
	return r.values["Event"]
}

// Response returns the Response status field, if any.
func (r Record) Response() string {
	return r.values["Response"]
}

// Message returns the human-readable Message field, if any.
func (r Record) Message() string {
	return r.values["Message"]
}

// Success reports whether the record is a success response.
func (r Record) Success() bool {
	return r.values["Response"] == "Success"
}

// Kind returns the record's shape classification.
func (r Record) Kind() Kind {
	switch {
	case r.Has("ActionID"):
		return KindResponse
	case r.Has("Event"):
		return KindEvent
	default:
		return KindUnroutable
	}
}

// Event is an asynchronous manager event delivered to callbacks.
type Event struct {
	// Name is the value of the Event field.
	Name string
	// Record is the full parsed message, including Name.
	Record Record
}
