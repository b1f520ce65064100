// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"reflect"
	"testing"
)

func TestRecordKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		block string
		want  Kind
	}{
		{"response", "Response: Success\r\nActionID: cb_1_1", KindResponse},
		{"list fragment with id", "Event: QueueMember\r\nActionID: cb_1_1", KindResponse},
		{"plain event", "Event: QueueMemberPause", KindEvent},
		{"neither", "Message: floating text", KindUnroutable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseBlock([]byte(tt.block)).Kind(); got != tt.want {
				t.Fatalf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordAccessors(t *testing.T) {
	t.Parallel()
	rec := parseBlock([]byte("Event: QueueMember\r\nQueue: support\r\nPenalty: 5\r\nPaused: yes\r\nCallsTaken: not-a-number"))

	if got, want := rec.EventName(), "QueueMember"; got != want {
		t.Fatalf("EventName() = %q, want %q", got, want)
	}
	if got := rec.Int("Penalty"); got != 5 {
		t.Fatalf("Int(Penalty) = %d, want 5", got)
	}
	if got := rec.Int("CallsTaken"); got != 0 {
		t.Fatalf("Int of unparsable field = %d, want 0", got)
	}
	if got := rec.Int("Missing"); got != 0 {
		t.Fatalf("Int of missing field = %d, want 0", got)
	}
	if !rec.Bool("Paused") {
		t.Fatal("Bool(Paused) = false for yes")
	}
	if rec.Has("Response") {
		t.Fatal("Has(Response) = true for event record")
	}
	if v, ok := rec.Get("Queue"); !ok || v != "support" {
		t.Fatalf("Get(Queue) = %q %v", v, ok)
	}
	if _, ok := rec.Get("Missing"); ok {
		t.Fatal("Get of missing field reported ok")
	}
	want := []string{"Event", "Queue", "Penalty", "Paused", "CallsTaken"}
	if got := rec.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want wire order %v", got, want)
	}
}

func TestRecordBoolTruthyForms(t *testing.T) {
	t.Parallel()
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"on", true},
		{" 1 ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"2", false},
	}
	for _, tt := range tests {
		rec := newRecord()
		rec.set("Paused", tt.value)
		if got := rec.Bool("Paused"); got != tt.want {
			t.Fatalf("Bool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestRecordSuccess(t *testing.T) {
	t.Parallel()
	if !parseBlock([]byte("Response: Success")).Success() {
		t.Fatal("Success() = false for success response")
	}
	if parseBlock([]byte("Response: Error\r\nMessage: denied")).Success() {
		t.Fatal("Success() = true for error response")
	}
}
