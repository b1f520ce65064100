// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/callstate"
)

// calleridFields lists the spellings under which endpoint detail events
// report the caller id, across server versions.
var calleridFields = []string{"Callerid", "CallerID", "CallerId", "callerid"}

// reconcileMappings derives agent display names from endpoint caller
// ids and inserts any that are missing. Existing mappings, manual ones
// above all, are never modified; EnsureMapping enforces that.
func (w *Worker) reconcileMappings(ctx context.Context, session *ami.Session) error {
	endpoints, err := w.endpointCandidates(ctx, session)
	if err != nil {
		return err
	}

	inserted := 0
	for _, endpoint := range endpoints {
		name, ext := w.endpointCallerID(ctx, session, endpoint)
		if name == "" {
			continue
		}
		seen := make(map[string]bool)
		for _, identifier := range []string{ext, "PJSIP/" + ext, endpoint, "PJSIP/" + endpoint} {
			if identifier == "" || identifier == "PJSIP/" || seen[identifier] {
				continue
			}
			seen[identifier] = true
			if err := w.cfg.Store.EnsureMapping(ctx, identifier, name); err != nil {
				return fmt.Errorf("realtime: reconcile: %w", err)
			}
			inserted++
		}
	}
	w.logger.Debug("agent mapping reconciliation complete",
		"endpoints", len(endpoints), "ensured", inserted)
	return nil
}

// endpointCandidates collects the endpoint names worth querying: every
// distinct mirrored member interface that names a SIP endpoint, plus
// the live endpoint listing when the server provides one.
func (w *Worker) endpointCandidates(ctx context.Context, session *ami.Session) ([]string, error) {
	seen := make(map[string]bool)
	var endpoints []string
	add := func(endpoint string) {
		if endpoint == "" || seen[endpoint] {
			return
		}
		seen[endpoint] = true
		endpoints = append(endpoints, endpoint)
	}

	interfaces, err := w.cfg.Store.MemberInterfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime: reconcile: %w", err)
	}
	for _, iface := range interfaces {
		add(endpointFromInterface(iface))
	}

	rows, err := session.PJSIPShowEndpoints(ctx)
	if err != nil {
		// Older servers reject the action; interface-derived candidates
		// still cover every queue member.
		w.logger.Debug("endpoint listing unavailable", "error", err)
		return endpoints, nil
	}
	for _, row := range rows {
		name := row.Field("ObjectName")
		if name == "" {
			name = row.Field("Endpoint")
		}
		add(name)
	}
	return endpoints, nil
}

// endpointFromInterface extracts the endpoint name from a member
// interface. Only SIP technologies name endpoints; Local and custom
// channels yield nothing.
func endpointFromInterface(iface string) string {
	tech, rest, ok := strings.Cut(iface, "/")
	if !ok {
		return ""
	}
	switch strings.ToUpper(tech) {
	case "PJSIP", "SIP":
	default:
		return ""
	}
	rest, _, _ = strings.Cut(rest, "@")
	rest, _, _ = strings.Cut(rest, ";")
	return rest
}

// endpointCallerID reads an endpoint's configured caller id and parses
// it into a display name and extension. The typed detail action is
// tried first; the CLI rendering is the fallback for servers that omit
// the field from the event. Both misses return empty strings.
func (w *Worker) endpointCallerID(ctx context.Context, session *ami.Session, endpoint string) (name, ext string) {
	records, err := session.PJSIPShowEndpoint(ctx, endpoint)
	if err == nil {
		for _, rec := range records {
			for _, field := range calleridFields {
				value := rec.Field(field)
				if value == "" {
					continue
				}
				if name, ext = callstate.ParseCallerID(value); name != "" {
					return name, ext
				}
			}
		}
	}

	output, err := session.Command(ctx, "pjsip show endpoint "+endpoint)
	if err != nil {
		return "", ""
	}
	return callerIDFromCLI(output)
}

// callerIDFromCLI scans CLI output for a "callerid : ..." line and
// parses its value.
func callerIDFromCLI(output string) (name, ext string) {
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(key), "callerid") {
			continue
		}
		if name, ext = callstate.ParseCallerID(strings.TrimSpace(value)); name != "" {
			return name, ext
		}
	}
	return "", ""
}
