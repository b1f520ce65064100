// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package callstate derives display state from live manager data: alias
// sets for cross-referencing agent identifiers, caller-id parsing,
// collapsing raw channel listings into one row per logical call, and
// assembling the wallboard snapshot.
package callstate

import (
	"regexp"
	"strings"
)

// Aliases expands a raw interface string into its equivalent short forms:
// the string minus any host and leg suffixes, the bare endpoint name minus
// technology prefix and channel suffix, and every standalone run of three
// to six digits. The result is ordered and de-duplicated, and is recomputed
// per lookup rather than stored. "PJSIP/101", "101", and "Local/101;1" all
// yield a set containing "101".
func Aliases(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(alias string) {
		if alias == "" || seen[alias] {
			return
		}
		seen[alias] = true
		out = append(out, alias)
	}

	cleaned := raw
	if i := strings.Index(cleaned, "@"); i >= 0 {
		cleaned = cleaned[:i]
	}
	if i := strings.Index(cleaned, ";"); i >= 0 {
		cleaned = cleaned[:i]
	}
	add(cleaned)

	name := cleaned
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	// Live channels carry a dialed-instance suffix, PJSIP/101-00000042.
	if i := strings.LastIndex(name, "-"); i >= 0 && isDigits(name[i+1:]) {
		name = name[:i]
	}
	add(name)

	for _, token := range digitRuns(raw) {
		add(token)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// digitRuns returns the maximal digit runs of length three to six. Longer
// runs (unique ids, channel suffixes) are not extension numbers and yield
// nothing.
func digitRuns(s string) []string {
	var runs []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if n := end - start; n >= 3 && n <= 6 {
			runs = append(runs, s[start:end])
		}
		start = -1
	}
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(s))
	return runs
}

var callerIDPattern = regexp.MustCompile(`^\s*"?([^"<]*?)"?\s*<\s*([^>]*?)\s*>\s*$`)

// ParseCallerID splits a caller-id string of the form `"Name" <number>`
// into its parts. Quotes are optional and surrounding whitespace is
// tolerated. A string without the angle-bracket form returns two empties.
func ParseCallerID(callerID string) (name, number string) {
	m := callerIDPattern.FindStringSubmatch(callerID)
	if m == nil {
		return "", ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// PartyLabel renders one call party for display: `Name <number>` when
// both are known, whichever one is known otherwise, empty when neither.
func PartyLabel(name, number string) string {
	switch {
	case name != "" && number != "":
		return name + " <" + number + ">"
	case name != "":
		return name
	default:
		return number
	}
}
