// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ResponseError is a manager error response to a control action. The
// Message text comes from the server and is operator-facing.
type ResponseError struct {
	Action  string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ami: %s failed", e.Action)
	}
	return fmt.Sprintf("ami: %s: %s", e.Action, e.Message)
}

// control dispatches an action whose reply is a single success or error
// status. A reply sequence with no status record (the deadline passed
// first) is reported as an error: a control action that cannot be
// confirmed did not happen as far as the caller knows.
func (s *Session) control(ctx context.Context, action string, params map[string]string) error {
	records, err := s.Send(ctx, action, params)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if !rec.Has("Response") {
			continue
		}
		if rec.Success() {
			return nil
		}
		return &ResponseError{Action: action, Message: rec.Message()}
	}
	return &ResponseError{Action: action, Message: "no response before deadline"}
}

func boolParam(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// Ping checks manager liveness end to end through the correlator.
func (s *Session) Ping(ctx context.Context) error {
	return s.control(ctx, "Ping", nil)
}

// Command runs a CLI command on the server and returns its output. Modern
// servers return output as repeated Output fields, which the record layer
// joins with newlines.
func (s *Session) Command(ctx context.Context, command string) (string, error) {
	records, err := s.Send(ctx, "Command", map[string]string{"Command": command})
	if err != nil {
		return "", err
	}
	var out []string
	for _, rec := range records {
		if rec.Has("Response") && !rec.Success() {
			return "", &ResponseError{Action: "Command", Message: rec.Message()}
		}
		if v, ok := rec.Get("Output"); ok {
			out = append(out, v)
		}
	}
	return strings.Join(out, "\n"), nil
}

// Getvar reads a channel variable. Channel may be empty for globals.
func (s *Session) Getvar(ctx context.Context, channel, name string) (string, error) {
	records, err := s.Send(ctx, "Getvar", map[string]string{
		"Channel":  channel,
		"Variable": name,
	})
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		if !rec.Has("Response") {
			continue
		}
		if !rec.Success() {
			return "", &ResponseError{Action: "Getvar", Message: rec.Message()}
		}
		return rec.Field("Value"), nil
	}
	return "", &ResponseError{Action: "Getvar", Message: "no response before deadline"}
}

// Setvar sets a channel variable. Channel may be empty for globals.
func (s *Session) Setvar(ctx context.Context, channel, name, value string) error {
	return s.control(ctx, "Setvar", map[string]string{
		"Channel":  channel,
		"Variable": name,
		"Value":    value,
	})
}

// OriginateRequest describes an outbound call. Exactly one destination is
// used: Application/Data when Application is set, otherwise
// Context/Exten/Priority.
type OriginateRequest struct {
	// Channel is the technology/resource to dial first.
	Channel string
	// Context, Exten, Priority name the dialplan entry point for the
	// answered call. Priority defaults to 1.
	Context  string
	Exten    string
	Priority int
	// Application and Data run an application instead of the dialplan.
	Application string
	Data        string
	// CallerID is presented to the dialed channel.
	CallerID string
	// Timeout bounds the dial attempt. Zero uses the server default.
	Timeout time.Duration
	// Variables are set on the new channel.
	Variables map[string]string
	// Async makes the server acknowledge immediately instead of waiting
	// for the call to complete.
	Async bool
}

// Originate places a call. With Async set the success response means the
// server accepted the request, not that anyone answered.
func (s *Session) Originate(ctx context.Context, req OriginateRequest) error {
	if req.Channel == "" {
		return errors.New("ami: originate: channel is required")
	}
	if req.Application == "" && req.Exten == "" {
		return errors.New("ami: originate: application or exten is required")
	}
	params := map[string]string{
		"Channel":     req.Channel,
		"Context":     req.Context,
		"Exten":       req.Exten,
		"Application": req.Application,
		"Data":        req.Data,
		"CallerID":    req.CallerID,
	}
	if req.Application == "" {
		priority := req.Priority
		if priority <= 0 {
			priority = 1
		}
		params["Priority"] = strconv.Itoa(priority)
	}
	if req.Timeout > 0 {
		params["Timeout"] = strconv.FormatInt(req.Timeout.Milliseconds(), 10)
	}
	if req.Async {
		params["Async"] = "true"
	}
	if len(req.Variables) > 0 {
		// The manager accepts one Variable header with comma-separated
		// key=value pairs.
		keys := make([]string, 0, len(req.Variables))
		for k := range req.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+req.Variables[k])
		}
		params["Variable"] = strings.Join(pairs, ",")
	}
	return s.control(ctx, "Originate", params)
}

// Hangup terminates a channel. A cause of zero lets the server pick.
func (s *Session) Hangup(ctx context.Context, channel string, cause int) error {
	params := map[string]string{"Channel": channel}
	if cause > 0 {
		params["Cause"] = strconv.Itoa(cause)
	}
	return s.control(ctx, "Hangup", params)
}

// Redirect transfers a channel to a dialplan location.
func (s *Session) Redirect(ctx context.Context, channel, dialContext, exten string, priority int) error {
	if priority <= 0 {
		priority = 1
	}
	return s.control(ctx, "Redirect", map[string]string{
		"Channel":  channel,
		"Context":  dialContext,
		"Exten":    exten,
		"Priority": strconv.Itoa(priority),
	})
}

// Park parks a channel. A zero timeout uses the server default.
func (s *Session) Park(ctx context.Context, channel string, timeout time.Duration) error {
	params := map[string]string{"Channel": channel}
	if timeout > 0 {
		params["Timeout"] = strconv.FormatInt(timeout.Milliseconds(), 10)
	}
	return s.control(ctx, "Park", params)
}

// ParkedCalls lists currently parked calls as raw records.
func (s *Session) ParkedCalls(ctx context.Context) ([]Record, error) {
	records, err := s.Send(ctx, "ParkedCalls", nil)
	if err != nil {
		return nil, err
	}
	return filterEvents(records, "ParkedCall"), nil
}

// Status reports channel state. An empty channel reports all channels.
func (s *Session) Status(ctx context.Context, channel string) ([]Record, error) {
	records, err := s.Send(ctx, "Status", map[string]string{"Channel": channel})
	if err != nil {
		return nil, err
	}
	return filterEvents(records, "Status"), nil
}

// ExtensionState queries hint state for an extension.
func (s *Session) ExtensionState(ctx context.Context, exten, dialContext string) (Record, error) {
	records, err := s.Send(ctx, "ExtensionState", map[string]string{
		"Exten":   exten,
		"Context": dialContext,
	})
	if err != nil {
		return Record{}, err
	}
	for _, rec := range records {
		if !rec.Has("Response") {
			continue
		}
		if !rec.Success() {
			return Record{}, &ResponseError{Action: "ExtensionState", Message: rec.Message()}
		}
		return rec, nil
	}
	return Record{}, &ResponseError{Action: "ExtensionState", Message: "no response before deadline"}
}

// Channel is one row of a CoreShowChannels listing.
type Channel struct {
	Channel           string
	State             string
	Application       string
	ApplicationData   string
	CallerIDNum       string
	CallerIDName      string
	ConnectedLineNum  string
	ConnectedLineName string
	// Duration is the raw server format, hours:minutes:seconds.
	Duration string
	BridgeID string
	Linkedid string
	Context  string
	Exten    string
}

// CoreShowChannels lists live channels.
func (s *Session) CoreShowChannels(ctx context.Context) ([]Channel, error) {
	records, err := s.Send(ctx, "CoreShowChannels", nil)
	if err != nil {
		return nil, err
	}
	rows := filterEvents(records, "CoreShowChannel")
	channels := make([]Channel, 0, len(rows))
	for _, rec := range rows {
		channels = append(channels, parseChannel(rec))
	}
	return channels, nil
}

func parseChannel(rec Record) Channel {
	return Channel{
		Channel:           rec.Field("Channel"),
		State:             rec.Field("ChannelStateDesc"),
		Application:       rec.Field("Application"),
		ApplicationData:   rec.Field("ApplicationData"),
		CallerIDNum:       rec.Field("CallerIDNum"),
		CallerIDName:      rec.Field("CallerIDName"),
		ConnectedLineNum:  rec.Field("ConnectedLineNum"),
		ConnectedLineName: rec.Field("ConnectedLineName"),
		Duration:          rec.Field("Duration"),
		BridgeID:          rec.Field("BridgeId"),
		Linkedid:          rec.Field("Linkedid"),
		Context:           rec.Field("Context"),
		Exten:             rec.Field("Exten"),
	}
}

// PJSIPShowEndpoints lists configured endpoints as raw records, one per
// EndpointList event.
func (s *Session) PJSIPShowEndpoints(ctx context.Context) ([]Record, error) {
	records, err := s.Send(ctx, "PJSIPShowEndpoints", nil)
	if err != nil {
		return nil, err
	}
	return filterEvents(records, "EndpointList"), nil
}

// PJSIPShowEndpoint returns the detail records for one endpoint: the
// EndpointDetail event plus its Aor, Auth, and contact detail events.
func (s *Session) PJSIPShowEndpoint(ctx context.Context, endpoint string) ([]Record, error) {
	records, err := s.Send(ctx, "PJSIPShowEndpoint", map[string]string{"Endpoint": endpoint})
	if err != nil {
		return nil, err
	}
	var details []Record
	for _, rec := range records {
		name := rec.EventName()
		if name == "" || strings.Contains(name, "Complete") {
			continue
		}
		details = append(details, rec)
	}
	return details, nil
}

// filterEvents returns the records whose event name matches exactly.
func filterEvents(records []Record, name string) []Record {
	var out []Record
	for _, rec := range records {
		if rec.EventName() == name {
			out = append(out, rec)
		}
	}
	return out
}
