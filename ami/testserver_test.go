// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/callboard-foundation/callboard/lib/testutil"
)

// testServer is a scripted in-process manager endpoint. It accepts one
// connection, prints the banner, answers Login itself, and hands every
// other inbound action block to the test through the actions channel. The
// test goroutine scripts replies with write.
type testServer struct {
	t         *testing.T
	listener  net.Listener
	failLogin bool

	mu   sync.Mutex
	conn net.Conn

	actions chan Record
	logins  chan Record
}

func newTestServer(t *testing.T, failLogin bool) *testServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ts := &testServer{
		t:         t,
		listener:  listener,
		failLogin: failLogin,
		actions:   make(chan Record, 64),
		logins:    make(chan Record, 1),
	}
	t.Cleanup(ts.shutdown)
	go ts.serve()
	return ts
}

func (ts *testServer) addr() string {
	return ts.listener.Addr().String()
}

func (ts *testServer) serve() {
	conn, err := ts.listener.Accept()
	if err != nil {
		return
	}
	ts.mu.Lock()
	ts.conn = conn
	ts.mu.Unlock()
	conn.Write([]byte("Asterisk Call Manager/5.0.2\r\n"))
	var f framer
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			f.append(buf[:n])
			for {
				rec, ok := f.next()
				if !ok {
					break
				}
				ts.handle(rec)
			}
		}
		if err != nil {
			return
		}
	}
}

func (ts *testServer) handle(rec Record) {
	switch rec.Field("Action") {
	case "Login":
		select {
		case ts.logins <- rec:
		default:
		}
		if ts.failLogin {
			ts.write(block("Response: Error", "ActionID: "+rec.ActionID(), "Message: Authentication failed"))
			return
		}
		ts.write(block("Response: Success", "ActionID: "+rec.ActionID(), "Message: Authentication accepted"))
	case "Logoff":
	default:
		ts.actions <- rec
	}
}

// write sends raw bytes on the accepted connection.
func (ts *testServer) write(raw string) {
	ts.mu.Lock()
	conn := ts.conn
	ts.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Write([]byte(raw))
}

// expect receives the next scripted action and asserts its name.
func (ts *testServer) expect(action string) Record {
	ts.t.Helper()
	rec := testutil.RequireReceive(ts.t, ts.actions, 5*time.Second, "waiting for %s action", action)
	if got := rec.Field("Action"); got != action {
		ts.t.Fatalf("action = %q, want %q", got, action)
	}
	return rec
}

// dropConnection closes the accepted connection, simulating a transport
// failure while the listener socket stays up.
func (ts *testServer) dropConnection() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.conn != nil {
		ts.conn.Close()
	}
}

func (ts *testServer) shutdown() {
	ts.listener.Close()
	ts.dropConnection()
}

// block renders "Key: Value" lines as one terminated wire block.
func block(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n\r\n"
}

// dialTestSession connects with short timeouts suited to scripted tests.
func dialTestSession(t *testing.T, ts *testServer) *Session {
	t.Helper()
	s, err := Connect(context.Background(), Config{
		Address:       ts.addr(),
		Username:      "wallboard",
		Secret:        "hunter2",
		DialTimeout:   5 * time.Second,
		ActionTimeout: 2 * time.Second,
		WaitSlice:     20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type sendResult struct {
	records []Record
	err     error
}

// startSend dispatches Send on its own goroutine and returns the result
// channel, letting the test goroutine script the server side.
func startSend(ctx context.Context, s *Session, action string, params map[string]string) <-chan sendResult {
	ch := make(chan sendResult, 1)
	go func() {
		records, err := s.Send(ctx, action, params)
		ch <- sendResult{records: records, err: err}
	}()
	return ch
}
