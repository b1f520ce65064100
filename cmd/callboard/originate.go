// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/cmd/callboard/cli"
)

func originateCommand() *cli.Command {
	var sessionConfig cli.SessionConfig
	var request ami.OriginateRequest
	var timeout time.Duration
	var variables []string

	return &cli.Command{
		Name:    "originate",
		Summary: "Place a call",
		Description: `Dial a channel and, once it answers, connect it to a dialplan entry
(--exten and --context) or run an application on it (--application
and --data). With --async the command returns as soon as the server
accepts the request instead of waiting for the dial to finish.`,
		Usage: "callboard originate --channel <tech/resource> [flags]",
		Examples: []cli.Example{
			{
				Description: "Ring extension 101 and drop it into the dialplan at 2001",
				Command:     "callboard originate --channel PJSIP/101 --exten 2001 --context internal",
			},
			{
				Description: "Ring extension 101 and play back a prompt",
				Command:     "callboard originate --channel PJSIP/101 --application Playback --data hello-world",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("originate", pflag.ContinueOnError)
			sessionConfig.AddFlags(flagSet)
			flagSet.StringVar(&request.Channel, "channel", "", "channel to dial first (required)")
			flagSet.StringVar(&request.Exten, "exten", "", "dialplan extension for the answered call")
			flagSet.StringVar(&request.Context, "context", "", "dialplan context for --exten")
			flagSet.IntVar(&request.Priority, "priority", 0, "dialplan priority for --exten (default 1)")
			flagSet.StringVar(&request.Application, "application", "", "application to run instead of the dialplan")
			flagSet.StringVar(&request.Data, "data", "", "argument string for --application")
			flagSet.StringVar(&request.CallerID, "callerid", "", "caller id presented to the dialed channel")
			flagSet.DurationVar(&timeout, "timeout", 0, "dial attempt bound (server default when zero)")
			flagSet.BoolVar(&request.Async, "async", false, "return once the server accepts the request")
			flagSet.StringArrayVar(&variables, "variable", nil, "KEY=VALUE set on the new channel (repeatable)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			request.Timeout = timeout
			if len(variables) > 0 {
				request.Variables = make(map[string]string, len(variables))
				for _, pair := range variables {
					key, value, found := strings.Cut(pair, "=")
					if !found || key == "" {
						return fmt.Errorf("--variable %q: expected KEY=VALUE", pair)
					}
					request.Variables[key] = value
				}
			}

			session, err := sessionConfig.Connect(ctx, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Originate(ctx, request); err != nil {
				return err
			}
			if request.Application != "" {
				fmt.Printf("originated %s -> %s\n", request.Channel, request.Application)
			} else {
				fmt.Printf("originated %s -> %s@%s\n", request.Channel, request.Exten, request.Context)
			}
			return nil
		},
	}
}
