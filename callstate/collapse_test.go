// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package callstate

import (
	"testing"

	"github.com/callboard-foundation/callboard/ami"
)

func TestCollapseChannelsKeepsQueueLeg(t *testing.T) {
	t.Parallel()
	rows := []ami.Channel{
		{
			Channel:     "PJSIP/101-00000002",
			Application: "AppQueue",
			Linkedid:    "1755700000.10",
			CallerIDNum: "101",
			Duration:    "00:05:00",
		},
		{
			Channel:          "PJSIP/trunk-00000001",
			Application:      "Queue",
			Linkedid:         "1755700000.10",
			CallerIDNum:      "5550100",
			ConnectedLineNum: "101",
			Duration:         "00:04:58",
		},
	}
	got := CollapseChannels(rows)
	if len(got) != 1 {
		t.Fatalf("collapsed count = %d, want 1", len(got))
	}
	if got[0].Channel != "PJSIP/trunk-00000001" {
		t.Fatalf("kept %q, want the queue leg", got[0].Channel)
	}
}

func TestCollapseChannelsLongerDurationWins(t *testing.T) {
	t.Parallel()
	rows := []ami.Channel{
		{Channel: "PJSIP/a-1", Application: "Dial", BridgeID: "b1", CallerIDNum: "101", Duration: "00:00:30"},
		{Channel: "PJSIP/b-1", Application: "Dial", BridgeID: "b1", CallerIDNum: "202", Duration: "00:01:30"},
	}
	got := CollapseChannels(rows)
	if len(got) != 1 || got[0].Channel != "PJSIP/b-1" {
		t.Fatalf("collapsed = %+v, want the longer-running leg", got)
	}
}

func TestCollapseChannelsKnownPartiesBreakTies(t *testing.T) {
	t.Parallel()
	rows := []ami.Channel{
		{Channel: "PJSIP/a-1", Application: "Dial", Linkedid: "x", CallerIDNum: "<unknown>", Duration: "00:09:00"},
		{Channel: "PJSIP/b-1", Application: "Dial", Linkedid: "x", CallerIDNum: "5550100", ConnectedLineNum: "101", Duration: "00:01:00"},
	}
	got := CollapseChannels(rows)
	if len(got) != 1 || got[0].Channel != "PJSIP/b-1" {
		t.Fatalf("collapsed = %+v, want the leg with known parties", got)
	}
}

func TestCollapseChannelsUngroupedRowsStay(t *testing.T) {
	t.Parallel()
	rows := []ami.Channel{
		{Channel: "PJSIP/a-1", Application: "Playback"},
		{Channel: "PJSIP/b-1", Application: "Playback"},
		{Channel: "Message/ast_msg_queue", Application: "SendMessage"},
	}
	got := CollapseChannels(rows)
	if len(got) != 2 {
		t.Fatalf("collapsed count = %d, want 2 (message channel dropped)", len(got))
	}
	if got[0].Channel != "PJSIP/a-1" || got[1].Channel != "PJSIP/b-1" {
		t.Fatalf("order not preserved: %+v", got)
	}
}

func TestDurationSeconds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want int
	}{
		{"00:03:12", 192},
		{"01:00:00", 3600},
		{"45", 45},
		{"", 0},
		{"garbage", 0},
		{"1:2", 0},
	}
	for _, tt := range tests {
		if got := durationSeconds(tt.in); got != tt.want {
			t.Fatalf("durationSeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestApplicationPriority(t *testing.T) {
	t.Parallel()
	if applicationPriority("Queue") <= applicationPriority("Dial") {
		t.Fatal("queue leg must outrank dial leg")
	}
	if applicationPriority("Dial") <= applicationPriority("AppQueue") {
		t.Fatal("dial leg must outrank agent queue leg")
	}
	if applicationPriority("AppQueue") <= applicationPriority("Playback") {
		t.Fatal("agent queue leg must outrank generic application")
	}
}
