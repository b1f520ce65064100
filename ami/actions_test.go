// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/callboard-foundation/callboard/lib/testutil"
)

func record(lines ...string) Record {
	return parseBlock([]byte(block(lines...)))
}

func TestReshapeQueues(t *testing.T) {
	t.Parallel()
	records := []Record{
		record("Event: QueueParams", "Queue: support", "Strategy: ringall", "Calls: 2", "Holdtime: 30", "Completed: 15", "Abandoned: 3"),
		record("Event: QueueMember", "Queue: support", "Interface: PJSIP/101", "MemberName: Ada", "Penalty: 1", "Paused: 1", "CallsTaken: 7", "Status: 2"),
		record("Event: QueueMember", "Queue: support", "Interface: PJSIP/202", "MemberName: Grace", "Penalty: 0", "Paused: 0"),
		record("Event: QueueStatusComplete"),
	}
	queues := reshapeQueues(records)
	if len(queues) != 1 {
		t.Fatalf("queue count = %d, want 1", len(queues))
	}
	q := queues[0]
	if q.Name != "support" || q.Strategy != "ringall" || q.Calls != 2 || q.Holdtime != 30 {
		t.Fatalf("queue params = %+v", q)
	}
	if len(q.Members) != 2 {
		t.Fatalf("member count = %d, want 2", len(q.Members))
	}
	m := q.Members[0]
	if m.Interface != "PJSIP/101" || m.Name != "Ada" || m.Penalty != 1 || !m.Paused || m.CallsTaken != 7 {
		t.Fatalf("first member = %+v", m)
	}
	if q.Members[1].Paused {
		t.Fatal("second member parsed as paused")
	}
}

func TestReshapeQueuesMultipleAndTrailing(t *testing.T) {
	t.Parallel()
	records := []Record{
		record("Event: QueueParams", "Queue: support"),
		record("Event: QueueMember", "Queue: support", "Location: SIP/101", "Name: Ada"),
		record("Event: QueueParams", "Queue: sales"),
		record("Event: QueueMember", "Queue: sales", "Interface: PJSIP/303"),
		// Stream truncated: no QueueStatusComplete.
	}
	queues := reshapeQueues(records)
	if len(queues) != 2 {
		t.Fatalf("queue count = %d, want 2", len(queues))
	}
	if queues[0].Name != "support" || len(queues[0].Members) != 1 {
		t.Fatalf("first queue = %+v", queues[0])
	}
	// Old-style field spellings map onto the same member shape.
	if m := queues[0].Members[0]; m.Interface != "SIP/101" || m.Name != "Ada" {
		t.Fatalf("member from old spellings = %+v", m)
	}
	if queues[1].Name != "sales" || len(queues[1].Members) != 1 {
		t.Fatalf("trailing queue not kept: %+v", queues[1])
	}
}

func TestReshapeQueuesIgnoresOrphanMember(t *testing.T) {
	t.Parallel()
	queues := reshapeQueues([]Record{
		record("Event: QueueMember", "Queue: support", "Interface: PJSIP/101"),
	})
	if len(queues) != 0 {
		t.Fatalf("queues = %+v, want none for member without params", queues)
	}
}

func TestQueueStatusEndToEnd(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, false)
	s := dialTestSession(t, ts)

	type result struct {
		queues []Queue
		err    error
	}
	results := make(chan result, 1)
	go func() {
		queues, err := s.QueueStatus(context.Background(), "")
		results <- result{queues, err}
	}()

	req := ts.expect("QueueStatus")
	id := req.ActionID()
	ts.write(block("Response: Success", "ActionID: "+id, "EventList: start", "Message: Queue status will follow"))
	ts.write(block("Event: QueueParams", "ActionID: "+id, "Queue: support", "Strategy: leastrecent", "Calls: 1"))
	ts.write(block("Event: QueueMember", "ActionID: "+id, "Queue: support", "Interface: PJSIP/101", "MemberName: Ada", "Paused: 1"))
	ts.write(block("Event: QueueStatusComplete", "ActionID: "+id, "EventList: Complete"))

	got := testutil.RequireReceive(t, results, 5*time.Second, "QueueStatus result")
	if got.err != nil {
		t.Fatalf("QueueStatus: %v", got.err)
	}
	if len(got.queues) != 1 || got.queues[0].Name != "support" {
		t.Fatalf("queues = %+v", got.queues)
	}
	if len(got.queues[0].Members) != 1 || !got.queues[0].Members[0].Paused {
		t.Fatalf("members = %+v", got.queues[0].Members)
	}
}

func TestControlReturnsResponseError(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, false)
	s := dialTestSession(t, ts)

	errs := make(chan error, 1)
	go func() {
		errs <- s.QueuePause(context.Background(), "support", "PJSIP/999", true, "")
	}()
	req := ts.expect("QueuePause")
	if got := req.Field("Paused"); got != "1" {
		t.Fatalf("Paused param = %q, want 1", got)
	}
	// An error response carries no completion marker, so the call waits
	// out the deadline before reporting.
	ts.write(block("Response: Error", "ActionID: "+req.ActionID(), "Message: Interface not found"))

	err := testutil.RequireReceive(t, errs, 10*time.Second, "QueuePause error")
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("error = %v, want *ResponseError", err)
	}
	if respErr.Message != "Interface not found" {
		t.Fatalf("message = %q", respErr.Message)
	}
}

func TestCommandJoinsOutput(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, false)
	s := dialTestSession(t, ts)

	results := make(chan string, 1)
	go func() {
		out, err := s.Command(context.Background(), "pjsip show endpoint 101")
		if err != nil {
			results <- "error: " + err.Error()
			return
		}
		results <- out
	}()
	req := ts.expect("Command")
	if got := req.Field("Command"); got != "pjsip show endpoint 101" {
		t.Fatalf("Command param = %q", got)
	}
	ts.write(block("Response: Success", "ActionID: "+req.ActionID(),
		"Output: Endpoint: 101", "Output:  callerid : \"Ada\" <101>"))

	got := testutil.RequireReceive(t, results, 5*time.Second, "command output")
	want := "Endpoint: 101\ncallerid : \"Ada\" <101>"
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestGetvar(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, false)
	s := dialTestSession(t, ts)

	results := make(chan string, 1)
	go func() {
		v, err := s.Getvar(context.Background(), "PJSIP/101-00000001", "QUEUENAME")
		if err != nil {
			results <- "error: " + err.Error()
			return
		}
		results <- v
	}()
	req := ts.expect("Getvar")
	ts.write(block("Response: Success", "ActionID: "+req.ActionID(), "Variable: QUEUENAME", "Value: support"))

	if got := testutil.RequireReceive(t, results, 5*time.Second, "getvar value"); got != "support" {
		t.Fatalf("value = %q, want support", got)
	}
}

func TestOriginateParams(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, false)
	s := dialTestSession(t, ts)

	errs := make(chan error, 1)
	go func() {
		errs <- s.Originate(context.Background(), OriginateRequest{
			Channel:  "PJSIP/101",
			Context:  "internal",
			Exten:    "202",
			CallerID: "Wallboard <100>",
			Timeout:  30 * time.Second,
			Async:    true,
			Variables: map[string]string{
				"CAMPAIGN": "renewals",
				"ATTEMPT":  "2",
			},
		})
	}()
	req := ts.expect("Originate")
	if got := req.Field("Priority"); got != "1" {
		t.Fatalf("Priority = %q, want defaulted 1", got)
	}
	if got := req.Field("Timeout"); got != "30000" {
		t.Fatalf("Timeout = %q, want milliseconds", got)
	}
	if got := req.Field("Async"); got != "true" {
		t.Fatalf("Async = %q", got)
	}
	if got := req.Field("Variable"); got != "ATTEMPT=2,CAMPAIGN=renewals" {
		t.Fatalf("Variable = %q, want sorted comma-joined pairs", got)
	}
	ts.write(block("Response: Success", "ActionID: "+req.ActionID(), "Message: Originate successfully queued"))

	if err := testutil.RequireReceive(t, errs, 5*time.Second, "originate result"); err != nil {
		t.Fatalf("Originate: %v", err)
	}
}

func TestOriginateValidation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, false)
	s := dialTestSession(t, ts)

	if err := s.Originate(context.Background(), OriginateRequest{}); err == nil {
		t.Fatal("Originate accepted empty request")
	}
	if err := s.Originate(context.Background(), OriginateRequest{Channel: "PJSIP/101"}); err == nil {
		t.Fatal("Originate accepted request without destination")
	}
}

func TestParseChannel(t *testing.T) {
	t.Parallel()
	rec := record(
		"Event: CoreShowChannel",
		"Channel: PJSIP/101-00000042",
		"ChannelStateDesc: Up",
		"Application: Queue",
		"ApplicationData: support",
		"CallerIDNum: 5550100",
		"CallerIDName: Caller",
		"ConnectedLineNum: 101",
		"ConnectedLineName: Ada",
		"Duration: 00:03:12",
		"BridgeId: bridge-1",
		"Linkedid: 1755700000.42",
	)
	got := parseChannel(rec)
	if got.Channel != "PJSIP/101-00000042" || got.State != "Up" || got.Application != "Queue" {
		t.Fatalf("parsed channel = %+v", got)
	}
	if got.BridgeID != "bridge-1" || got.Linkedid != "1755700000.42" || got.Duration != "00:03:12" {
		t.Fatalf("correlation fields = %+v", got)
	}
}

func TestFilterEvents(t *testing.T) {
	t.Parallel()
	records := []Record{
		record("Response: Success", "EventList: start"),
		record("Event: ParkedCall", "Channel: PJSIP/101-1"),
		record("Event: ParkedCallsComplete", "EventList: Complete"),
	}
	got := filterEvents(records, "ParkedCall")
	if len(got) != 1 || got[0].Field("Channel") != "PJSIP/101-1" {
		t.Fatalf("filtered = %+v", got)
	}
}
