// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"bytes"
	"sort"
	"strings"
)

// framer accumulates raw socket bytes and yields complete message blocks.
// The protocol terminates a block with CRLF CRLF; some builds emit bare LF,
// so a lone LF LF also terminates. Bytes for an incomplete block stay
// buffered until the rest arrives.
type framer struct {
	buf []byte
}

func (f *framer) append(data []byte) {
	f.buf = append(f.buf, data...)
}

// next extracts the earliest complete block from the buffer. It returns
// ok=false when no terminator is buffered yet.
func (f *framer) next() (Record, bool) {
	end, skip := findTerminator(f.buf)
	if end < 0 {
		return Record{}, false
	}
	block := f.buf[:end]
	f.buf = f.buf[end+skip:]
	return parseBlock(block), true
}

// findTerminator locates the first block terminator, returning the offset
// where the block's content ends and the terminator's length. CRLF CRLF and
// LF LF are both accepted; whichever appears first wins.
func findTerminator(buf []byte) (end, skip int) {
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	lf := bytes.Index(buf, []byte("\n\n"))
	switch {
	case crlf < 0 && lf < 0:
		return -1, 0
	case lf < 0 || (crlf >= 0 && crlf < lf):
		return crlf, 4
	default:
		return lf, 2
	}
}

// parseBlock splits a terminated block into a Record. Each line is divided
// at its first colon; whitespace around the key and value is trimmed, so
// values may themselves contain colons. Lines without a colon (including
// the server's connect banner) and lines with an empty key are skipped.
func parseBlock(block []byte) Record {
	rec := newRecord()
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			continue
		}
		rec.set(key, strings.TrimSpace(line[idx+1:]))
	}
	return rec
}

// encodeAction renders an action block. Action and ActionID lead so the
// exchange is legible in packet captures; the remaining parameters follow
// in sorted order for deterministic output. Empty parameter values are
// omitted, matching how the manager treats absent fields.
func encodeAction(action, actionID string, params map[string]string) []byte {
	var b bytes.Buffer
	b.WriteString("Action: ")
	b.WriteString(action)
	b.WriteString("\r\n")
	if actionID != "" {
		b.WriteString("ActionID: ")
		b.WriteString(actionID)
		b.WriteString("\r\n")
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		if params[key] == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(params[key])
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}
