package ui

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/momento/internal/logtail"
)

// activityState is the client's own log, tailed from the log file.
type activityState struct {
	entries  []logtail.Entry
	follow   bool
	filter   logtail.Filter
	input    textinput.Model
	lastRead time.Time
	err      error
}

func newActivityState() activityState {
	ti := textinput.New()
	ti.Placeholder = "Filter log..."
	ti.CharLimit = 100
	ti.Prompt = "/ "
	return activityState{follow: true, input: ti}
}

type logMsg struct {
	entries []logtail.Entry
	err     error
	at      time.Time
}

func (m Model) logCmd() tea.Cmd {
	path, filter := m.cfg.LogFile, m.activity.filter
	now := m.now
	return func() tea.Msg {
		entries, err := logtail.Tail(path, LogReadLimit, filter)
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		return logMsg{entries: entries, err: err, at: now()}
	}
}

func (m *Model) handleLog(msg logMsg) {
	m.activity.lastRead = msg.at
	if m.view != ViewActivity {
		return
	}
	m.activity.err = msg.err
	if msg.err != nil {
		return
	}
	m.activity.entries = msg.entries
	if m.activity.follow {
		m.cursor[ViewActivity] = max(len(msg.entries)-1, 0)
	}
	m.clampCursor()
}

func (m Model) handleActivityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.activity.follow = !m.activity.follow
		if m.activity.follow {
			m.cursor[ViewActivity] = max(len(m.activity.entries)-1, 0)
			return m, m.logCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.activity.filter.MinLevel = (m.activity.filter.MinLevel + 1) % (logtail.LevelError + 1)
		return m, m.logCmd()

	case key.Matches(msg, m.keys.Search):
		m.activity.input.SetValue(m.activity.filter.Contains)
		m.activity.input.CursorEnd()
		cmd := m.activity.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleActivitySearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.activity.filter.Contains = strings.TrimSpace(m.activity.input.Value())
		m.activity.input.Blur()
		return m, m.logCmd()
	case key.Matches(msg, m.keys.Escape):
		m.activity.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.activity.input, cmd = m.activity.input.Update(msg)
	return m, cmd
}

func (m Model) renderActivity() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	title := "Activity log · " + m.activity.filter.MinLevel.String() + "+"
	if c := m.activity.filter.Contains; c != "" {
		title += " · /" + truncate(c, 18)
	}
	if !m.activity.follow {
		title += " · paused"
	}

	var b strings.Builder
	if m.activity.input.Focused() {
		b.WriteString(m.activity.input.View())
		b.WriteString("\n")
		height--
	}
	switch {
	case m.activity.err != nil:
		b.WriteString(styles.DangerText.Render(m.activity.err.Error()))
	case len(m.activity.entries) == 0:
		b.WriteString(styles.MutedText.Render("No log entries at " + m.cfg.LogFile))
	default:
		rows := make([]string, 0, len(m.activity.entries))
		for _, e := range m.activity.entries {
			rows = append(rows, formatEntry(e))
		}
		b.WriteString(m.renderRows(rows, m.cursor[ViewActivity], height-3))
	}
	return m.renderBox(title, b.String(), m.width, height, true)
}

func formatEntry(e logtail.Entry) string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteString(" ")
	}
	b.WriteString(e.Level.String())
	b.WriteString(" ")
	if e.Prefix != "" {
		b.WriteString(e.Prefix)
		b.WriteString(": ")
	}
	b.WriteString(oneLine(e.Message))
	for _, f := range e.Fields {
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(f.Value)
	}
	return b.String()
}
