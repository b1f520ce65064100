// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package callstate

import (
	"slices"
	"testing"
)

func TestAliasesEquivalence(t *testing.T) {
	t.Parallel()
	// All spellings of the same agent must share the extension alias.
	for _, raw := range []string{"PJSIP/101", "101", "Local/101;1"} {
		aliases := Aliases(raw)
		if !slices.Contains(aliases, "101") {
			t.Fatalf("Aliases(%q) = %v, want to contain 101", raw, aliases)
		}
	}
}

func TestAliases(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want []string
	}{
		{"PJSIP/101", []string{"PJSIP/101", "101"}},
		{"101", []string{"101"}},
		{"Local/101@agents;2", []string{"Local/101", "101"}},
		{"PJSIP/101-00000042", []string{"PJSIP/101-00000042", "101"}},
		{"SIP/helpdesk", []string{"SIP/helpdesk", "helpdesk"}},
		{"", nil},
		{"  ", nil},
	}
	for _, tt := range tests {
		got := Aliases(tt.raw)
		if !slices.Equal(got, tt.want) {
			t.Fatalf("Aliases(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestDigitRunsLengthBounds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{"PJSIP/101", []string{"101"}},
		{"ab12cd", nil},
		{"1755700000.42", nil},
		{"agent-123456", []string{"123456"}},
		{"x404y50505z", []string{"404", "50505"}},
	}
	for _, tt := range tests {
		got := digitRuns(tt.in)
		if !slices.Equal(got, tt.want) {
			t.Fatalf("digitRuns(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCallerID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in         string
		wantName   string
		wantNumber string
	}{
		{`"Ada Lovelace" <101>`, "Ada Lovelace", "101"},
		{`Ada <101>`, "Ada", "101"},
		{`<101>`, "", "101"},
		{` "Grace"  < 202 > `, "Grace", "202"},
		{`101`, "", ""},
		{``, "", ""},
	}
	for _, tt := range tests {
		name, number := ParseCallerID(tt.in)
		if name != tt.wantName || number != tt.wantNumber {
			t.Fatalf("ParseCallerID(%q) = %q, %q, want %q, %q",
				tt.in, name, number, tt.wantName, tt.wantNumber)
		}
	}
}
