// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/callstate"
)

// tab identifies which of the three views is showing.
type tab int

const (
	tabQueues tab = iota
	tabAgents
	tabCalls
)

var tabDefs = []struct {
	label string
	tab   tab
}{
	{"1:Queues", tabQueues},
	{"2:Agents", tabAgents},
	{"3:Calls", tabCalls},
}

const (
	// minRefresh is the floor for --refresh. Queue listings cost one
	// action round-trip per refresh in live mode.
	minRefresh = 500 * time.Millisecond

	// snapshotTimeout bounds one refresh. Mirror reads finish in
	// microseconds; live refreshes wait on three manager actions.
	snapshotTimeout = 10 * time.Second

	minColumnWidth = 4
	columnGap      = 2
)

// tickMsg fires when the refresh interval elapses.
type tickMsg struct{}

// boardMsg delivers one snapshot from the source.
type boardMsg struct {
	board callstate.Board
	at    time.Time
}

// boardErrMsg delivers a failed refresh. The previous board stays on
// screen.
type boardErrMsg struct {
	err error
}

// rowTone classifies a row for coloring. Tones are resolved to theme
// colors at render time so row building stays free of lipgloss.
type rowTone int

const (
	toneNormal rowTone = iota
	toneFaint
	toneActive
	toneRinging
	toneAlert
)

// tableRow is one rendered line of the active tab: plain-text cells
// plus the accent the row should carry.
type tableRow struct {
	cells []string
	tone  rowTone
}

type model struct {
	source  *boardSource
	live    bool
	refresh time.Duration

	theme Theme
	keys  KeyMap

	board   callstate.Board
	fetched time.Time
	loaded  bool
	err     error

	activeTab    tab
	filter       FilterModel
	cursor       int
	scrollOffset int

	width  int
	height int
	ready  bool
}

func newModel(source *boardSource, refresh time.Duration, live bool) model {
	return model{
		source:  source,
		live:    live,
		refresh: refresh,
		theme:   defaultTheme,
		keys:    defaultKeyMap,
	}
}

func (m model) Init() tea.Cmd {
	return fetchBoard(m.source)
}

// fetchBoard reads one snapshot off the source. Runs on bubbletea's
// command pool so a slow server never blocks the UI loop.
func fetchBoard(source *boardSource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		board, err := source.snapshot(ctx)
		if err != nil {
			return boardErrMsg{err: err}
		}
		return boardMsg{board: board, at: time.Now()}
	}
}

func (m model) scheduleTick() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.ensureCursorVisible()
		return m, nil

	case tickMsg:
		return m, fetchBoard(m.source)

	case boardMsg:
		m.board = msg.board
		m.fetched = msg.at
		m.loaded = true
		m.err = nil
		m.clampCursor()
		return m, m.scheduleTick()

	case boardErrMsg:
		// Keep the last good board on screen, surface the error in the
		// help bar, and keep polling.
		m.err = msg.err
		return m, m.scheduleTick()

	case tea.KeyMsg:
		if m.filter.Active {
			return m.handleFilterKeys(msg)
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

// handleFilterKeys processes keystrokes while the filter input has
// focus.
func (m model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		// ctrl+c always quits, even in filter mode.
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		// 'q' is a regular character in filter mode.
		m.filter.HandleRune('q')
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.FilterClear):
		m.filter.Clear()
		m.clampCursor()
		return m, nil

	case msg.Type == tea.KeyEnter:
		// Confirm the filter and return to navigation.
		m.filter.Active = false
		return m, nil

	case msg.Type == tea.KeyBackspace:
		if m.filter.HandleBackspace() {
			m.clampCursor()
		}
		return m, nil

	case msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace:
		for _, r := range msg.Runes {
			m.filter.HandleRune(r)
		}
		m.clampCursor()
		return m, nil
	}
	return m, nil
}

func (m model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.tabRows())-1 {
			m.cursor++
		}
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.End):
		if rows := len(m.tabRows()); rows > 0 {
			m.cursor = rows - 1
		}
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.TabQueues):
		m.switchTab(tabQueues)
	case key.Matches(msg, m.keys.TabAgents):
		m.switchTab(tabAgents)
	case key.Matches(msg, m.keys.TabCalls):
		m.switchTab(tabCalls)
	case key.Matches(msg, m.keys.NextTab):
		next := m.activeTab + 1
		if int(next) >= len(tabDefs) {
			next = tabQueues
		}
		m.switchTab(next)

	case key.Matches(msg, m.keys.FilterActivate):
		m.filter.Active = true

	case key.Matches(msg, m.keys.FilterClear):
		m.filter.Clear()
		m.clampCursor()

	case key.Matches(msg, m.keys.Refresh):
		return m, fetchBoard(m.source)
	}
	return m, nil
}

func (m *model) switchTab(t tab) {
	if m.activeTab == t {
		return
	}
	m.activeTab = t
	m.cursor = 0
	m.scrollOffset = 0
}

// clampCursor keeps the cursor within the filtered row count after the
// board or the filter changes under it.
func (m *model) clampCursor() {
	rows := len(m.tabRows())
	if rows == 0 {
		m.cursor = 0
		m.scrollOffset = 0
		return
	}
	if m.cursor >= rows {
		m.cursor = rows - 1
	}
	m.ensureCursorVisible()
}

// ensureCursorVisible adjusts scrollOffset so the cursor stays within
// the visible window.
func (m *model) ensureCursorVisible() {
	visible := m.visibleHeight()
	if visible <= 0 {
		return
	}

	maxOffset := len(m.tabRows()) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.scrollOffset > maxOffset {
		m.scrollOffset = maxOffset
	}

	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+visible {
		m.scrollOffset = m.cursor - visible + 1
	}
}

// visibleHeight returns the number of table rows that fit between the
// chrome: tab bar, column headers, bottom separator, and help bar.
func (m model) visibleHeight() int {
	return m.height - 4
}

// tabRows returns the active tab's rows with the filter applied.
func (m model) tabRows() []tableRow {
	switch m.activeTab {
	case tabQueues:
		return queueRows(m.board.Queues, &m.filter)
	case tabAgents:
		return agentRows(m.board.Agents, &m.filter)
	default:
		return callRows(m.board.Calls, &m.filter)
	}
}

func (m model) tabHeader() []string {
	switch m.activeTab {
	case tabQueues:
		return []string{"QUEUE", "STRATEGY", "WAITING", "LOGGED IN", "AVAILABLE", "HOLD", "DONE", "LOST"}
	case tabAgents:
		return []string{"QUEUE", "AGENT", "EXT", "STATUS", "PENALTY", "PAUSED"}
	default:
		return []string{"CHANNEL", "STATE", "CALLER", "CONNECTED", "DURATION"}
	}
}

func queueRows(queues []callstate.QueueRow, filter *FilterModel) []tableRow {
	var rows []tableRow
	for _, q := range queues {
		cells := []string{
			q.Name,
			dash(q.Strategy),
			strconv.Itoa(q.Waiting),
			strconv.Itoa(q.LoggedIn),
			strconv.Itoa(q.Available),
			formatSeconds(q.Holdtime),
			strconv.Itoa(q.Completed),
			strconv.Itoa(q.Abandoned),
		}
		if !filter.MatchesRow(cells) {
			continue
		}
		tone := toneNormal
		if q.Waiting > 0 {
			tone = toneActive
		}
		rows = append(rows, tableRow{cells: cells, tone: tone})
	}
	return rows
}

func agentRows(agents []callstate.AgentRow, filter *FilterModel) []tableRow {
	var rows []tableRow
	for _, a := range agents {
		paused := "-"
		if a.Paused {
			paused = "yes"
		}
		cells := []string{
			a.Queue,
			a.Name,
			dash(a.Extension),
			callstate.MemberStatusLabel(a.Status),
			strconv.Itoa(a.Penalty),
			paused,
		}
		if !filter.MatchesRow(cells) {
			continue
		}
		rows = append(rows, tableRow{cells: cells, tone: agentTone(a)})
	}
	return rows
}

// agentTone picks the row accent from the member's device state.
// Paused members render faint regardless of state.
func agentTone(a callstate.AgentRow) rowTone {
	if a.Paused {
		return toneFaint
	}
	switch a.Status {
	case 2, 3, 7, 8: // in use, busy, ring+inuse, on hold
		return toneActive
	case 6: // ringing
		return toneRinging
	case 4, 5: // invalid, unavailable
		return toneAlert
	default:
		return toneNormal
	}
}

func callRows(calls []ami.Channel, filter *FilterModel) []tableRow {
	var rows []tableRow
	for _, c := range calls {
		cells := []string{
			c.Channel,
			c.State,
			dash(callstate.PartyLabel(c.CallerIDName, c.CallerIDNum)),
			dash(callstate.PartyLabel(c.ConnectedLineName, c.ConnectedLineNum)),
			dash(c.Duration),
		}
		if !filter.MatchesRow(cells) {
			continue
		}
		rows = append(rows, tableRow{cells: cells, tone: callTone(c)})
	}
	return rows
}

func callTone(c ami.Channel) rowTone {
	switch c.State {
	case "Ring", "Ringing":
		return toneRinging
	case "Up":
		return toneNormal
	default:
		return toneFaint
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatSeconds renders a seconds counter as m:ss, or h:mm:ss from one
// hour up.
func formatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.tabHeader()
	rows := m.tabRows()
	widths := columnWidths(header, rows, m.width)

	var sections []string

	// The filter bar replaces the tab bar while it is showing.
	if filterView := m.filter.View(m.theme, m.width); filterView != "" {
		sections = append(sections, filterView)
	} else {
		sections = append(sections, m.renderHeader())
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(m.theme.HeaderForeground)
	sections = append(sections, headerStyle.Render(joinCells(header, widths)))

	sections = append(sections, m.renderRows(rows, widths))

	separator := lipgloss.NewStyle().
		Foreground(m.theme.BorderColor).
		Render(strings.Repeat("─", m.width))
	sections = append(sections, separator)

	sections = append(sections, m.renderHelp())

	return strings.Join(sections, "\n")
}

// renderHeader renders the combined tab bar + separator as a single
// line in the btop style: tab labels embedded in a horizontal rule
// with board stats on the right.
//
// Example: ─── 1:Queues ─── 2:Agents ─── 3:Calls ─── 4 queues  12 agents ─
func (m model) renderHeader() string {
	separatorStyle := lipgloss.NewStyle().
		Foreground(m.theme.BorderColor)
	activeStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(m.theme.HeaderForeground)
	inactiveStyle := lipgloss.NewStyle().
		Foreground(m.theme.FaintText)
	statsStyle := lipgloss.NewStyle().
		Foreground(m.theme.FaintText)

	sep := separatorStyle.Render("─")

	leftParts := sep + sep + sep // Leading "───"
	cursor := 3

	for index, def := range tabDefs {
		leftParts += " "
		cursor++

		if m.activeTab == def.tab {
			leftParts += activeStyle.Render(def.label)
		} else {
			leftParts += inactiveStyle.Render(def.label)
		}
		cursor += lipgloss.Width(def.label)

		leftParts += " "
		cursor++

		sepCount := 3
		if index == len(tabDefs)-1 {
			sepCount = 1
		}
		for range sepCount {
			leftParts += sep
			cursor++
		}
	}

	statsText := m.statsText()
	statsRendered := statsStyle.Render(statsText)
	statsWidth := lipgloss.Width(statsText)

	// Fill the gap between tabs and stats with separator chars,
	// leaving 1 space on each side of the stats.
	rightPortion := " " + statsRendered + " " + sep
	rightWidth := 1 + statsWidth + 1 + 1

	fillCount := m.width - cursor - rightWidth
	if fillCount < 1 {
		fillCount = 1
	}
	fill := ""
	for range fillCount {
		fill += sep
	}

	return leftParts + fill + rightPortion
}

// statsText summarizes the board for the header: totals plus the time
// of the last successful refresh.
func (m model) statsText() string {
	parts := []string{
		fmt.Sprintf("%d queues", len(m.board.Queues)),
		fmt.Sprintf("%d agents", len(m.board.Agents)),
		fmt.Sprintf("%d waiting", m.board.Waiting),
	}
	if m.live {
		parts = append(parts, fmt.Sprintf("%d calls", len(m.board.Calls)))
	}
	if !m.fetched.IsZero() {
		parts = append(parts, m.fetched.Format("15:04:05"))
	}
	return strings.Join(parts, "  ")
}

// renderRows renders the visible window of the active tab, padded to
// the full table height so the chrome below stays put.
func (m model) renderRows(rows []tableRow, widths []int) string {
	visible := m.visibleHeight()
	if visible < 0 {
		visible = 0
	}

	var lines []string
	for index := m.scrollOffset; index < m.scrollOffset+visible && index < len(rows); index++ {
		row := rows[index]
		line := joinCells(row.cells, widths)
		if index == m.cursor {
			// Selection takes priority over state accents.
			line = lipgloss.NewStyle().
				Background(m.theme.SelectedBackground).
				Foreground(m.theme.SelectedForeground).
				Width(m.width).
				Render(line)
		} else {
			line = lipgloss.NewStyle().
				Foreground(m.theme.toneColor(row.tone)).
				Render(line)
		}
		lines = append(lines, line)
	}

	if len(rows) == 0 && visible > 0 {
		empty := lipgloss.NewStyle().Foreground(m.theme.FaintText)
		lines = append(lines, empty.Render(m.emptyText()))
	}

	for len(lines) < visible {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m model) emptyText() string {
	if m.filter.Input != "" {
		return "No rows match the filter."
	}
	if !m.loaded {
		return "Waiting for first refresh..."
	}
	switch m.activeTab {
	case tabQueues:
		return "No queues mirrored yet."
	case tabAgents:
		return "No queue members."
	default:
		if !m.live {
			return "Calls need --live (mirror mode shows queues and agents only)."
		}
		return "No calls up."
	}
}

// renderHelp renders the bottom help bar: mode, key hints, the refresh
// error if any, and scroll position when the list overflows.
func (m model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(m.theme.HelpText)

	mode := "MIRROR"
	if m.live {
		mode = "LIVE"
	}
	help := fmt.Sprintf(" [%s] q quit  ↑↓ navigate  1/2/3 tabs  / filter  r refresh", mode)

	rows := len(m.tabRows())
	visible := m.visibleHeight()
	if rows > visible && visible > 0 {
		position := ""
		if m.scrollOffset == 0 {
			position = "top"
		} else if m.scrollOffset+visible >= rows {
			position = "bottom"
		} else {
			percent := float64(m.scrollOffset) / float64(rows-visible) * 100
			position = fmt.Sprintf("%d%%", int(percent))
		}
		help += fmt.Sprintf("  [%s] %d/%d", position, m.cursor+1, rows)
	}

	line := style.Render(help)
	if m.err != nil {
		if remaining := m.width - ansi.StringWidth(help); remaining > 4 {
			errorStyle := lipgloss.NewStyle().Foreground(m.theme.AlertAccent)
			notice := ansi.Truncate(fmt.Sprintf("  refresh failed: %v", m.err), remaining, "…")
			line += errorStyle.Render(notice)
		}
	}
	return line
}

// columnWidths sizes each column to its widest cell, then shrinks the
// widest columns until a row fits the terminal.
func columnWidths(header []string, rows []tableRow, available int) []int {
	widths := make([]int, len(header))
	for i, title := range header {
		widths[i] = ansi.StringWidth(title)
	}
	for _, row := range rows {
		for i, cell := range row.cells {
			if w := ansi.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return fitColumns(widths, available-columnGap*(len(header)-1))
}

// fitColumns shrinks the widest column one cell at a time until the
// total fits. Columns never go below minColumnWidth, so a terminal
// narrower than the table degrades to truncated cells instead of
// wrapped lines.
func fitColumns(widths []int, available int) []int {
	total := 0
	for _, w := range widths {
		total += w
	}
	for total > available {
		widest := -1
		for i, w := range widths {
			if w > minColumnWidth && (widest < 0 || w > widths[widest]) {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		widths[widest]--
		total--
	}
	return widths
}

// joinCells pads each cell to its column width and joins with the
// fixed gap. Cells wider than the column are truncated with an
// ellipsis.
func joinCells(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = padCell(cell, widths[i])
	}
	return strings.Join(parts, strings.Repeat(" ", columnGap))
}

func padCell(text string, width int) string {
	truncated := ansi.Truncate(text, width, "…")
	if pad := width - ansi.StringWidth(truncated); pad > 0 {
		return truncated + strings.Repeat(" ", pad)
	}
	return truncated
}
