// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package callstate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/callboard-foundation/callboard/ami"
)

// CollapseChannels reduces a raw channel listing to one row per logical
// call. Both legs of a bridged call share a Linkedid (or failing that a
// BridgeID); rows with neither key form their own group. Within a group
// the row with the highest rank survives: application priority first, then
// how many caller/connected parties are actually known, then call
// duration. Internal message channels are dropped outright.
func CollapseChannels(rows []ami.Channel) []ami.Channel {
	best := make(map[string]ami.Channel)
	var order []string
	for i, row := range rows {
		if strings.HasPrefix(row.Channel, "Message/") {
			continue
		}
		key := row.Linkedid
		if key == "" {
			key = row.BridgeID
		}
		if key == "" {
			key = fmt.Sprintf("row-%d", i)
		}
		current, ok := best[key]
		if !ok {
			best[key] = row
			order = append(order, key)
			continue
		}
		if rankChannel(row).beats(rankChannel(current)) {
			best[key] = row
		}
	}
	out := make([]ami.Channel, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// channelRank orders rows within a collapse group. Compared
// lexicographically, highest wins.
type channelRank struct {
	app      int
	parties  int
	duration int
}

func (r channelRank) beats(o channelRank) bool {
	if r.app != o.app {
		return r.app > o.app
	}
	if r.parties != o.parties {
		return r.parties > o.parties
	}
	return r.duration > o.duration
}

func rankChannel(c ami.Channel) channelRank {
	return channelRank{
		app:      applicationPriority(c.Application),
		parties:  knownParties(c),
		duration: durationSeconds(c.Duration),
	}
}

// applicationPriority ranks call-routing applications above generic ones,
// so the queue leg of a call wins over its agent or bridge legs.
func applicationPriority(app string) int {
	switch strings.ToLower(app) {
	case "queue":
		return 4
	case "dial", "bridge":
		return 3
	case "appqueue":
		return 2
	default:
		return 1
	}
}

func knownParties(c ami.Channel) int {
	count := 0
	for _, v := range []string{c.CallerIDNum, c.CallerIDName, c.ConnectedLineNum, c.ConnectedLineName} {
		if !placeholderParty(v) {
			count++
		}
	}
	return count
}

func placeholderParty(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "unknown", "<unknown>":
		return true
	}
	return false
}

// durationSeconds parses the server's duration formats: plain seconds or
// hours:minutes:seconds. Anything else counts as zero.
func durationSeconds(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return h*3600 + m*60 + sec
}
