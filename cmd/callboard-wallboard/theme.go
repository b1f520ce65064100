// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/charmbracelet/lipgloss"

// Theme defines the wallboard color palette. All colors use lipgloss
// ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Row accents for device and channel states.
	ActiveAccent  lipgloss.Color // Agents on calls, queues with callers waiting.
	RingingAccent lipgloss.Color // Ringing devices and channels.
	AlertAccent   lipgloss.Color // Unavailable or invalid members, refresh errors.
}

// defaultTheme is the built-in dark-terminal color scheme.
var defaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	ActiveAccent:  lipgloss.Color("220"), // amber
	RingingAccent: lipgloss.Color("75"),  // blue
	AlertAccent:   lipgloss.Color("196"), // red
}

// toneColor maps a row tone to its theme color.
func (theme Theme) toneColor(tone rowTone) lipgloss.Color {
	switch tone {
	case toneFaint:
		return theme.FaintText
	case toneActive:
		return theme.ActiveAccent
	case toneRinging:
		return theme.RingingAccent
	case toneAlert:
		return theme.AlertAccent
	default:
		return theme.NormalText
	}
}
