package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is a dialog drawn over the current view. Update reports closed once
// the dialog is done; the command it returns still runs.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// promptField describes one input of a promptModal.
type promptField struct {
	label    string
	value    string
	optional bool
}

// promptModal collects one or more text values and hands them to submit.
type promptModal struct {
	title  string
	labels []string
	inputs []textinput.Model
	needs  []bool
	focus  int
	err    string
	submit func(values []string) tea.Cmd
}

func newPrompt(title string, fields []promptField, submit func([]string) tea.Cmd) *promptModal {
	p := &promptModal{title: title, submit: submit}
	for _, f := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 500
		ti.Width = 48
		ti.SetValue(f.value)
		p.labels = append(p.labels, f.label)
		p.inputs = append(p.inputs, ti)
		p.needs = append(p.needs, !f.optional)
	}
	if len(p.inputs) > 0 {
		p.inputs[0].Focus()
	}
	return p
}

func (p *promptModal) setFocus(idx int) {
	p.focus = (idx + len(p.inputs)) % len(p.inputs)
	for i := range p.inputs {
		if i == p.focus {
			p.inputs[i].Focus()
		} else {
			p.inputs[i].Blur()
		}
	}
}

func (p *promptModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil, false
	}
	switch {
	case key.Matches(km, keys.Escape):
		return p, nil, true
	case km.String() == "shift+tab" || km.String() == "up":
		p.setFocus(p.focus - 1)
		return p, nil, false
	case key.Matches(km, keys.NextField):
		p.setFocus(p.focus + 1)
		return p, nil, false
	case key.Matches(km, keys.Confirm):
		if p.focus < len(p.inputs)-1 {
			p.setFocus(p.focus + 1)
			return p, nil, false
		}
		values := make([]string, len(p.inputs))
		for i, in := range p.inputs {
			values[i] = strings.TrimSpace(in.Value())
			if values[i] == "" && p.needs[i] {
				p.err = p.labels[i] + " is required"
				p.setFocus(i)
				return p, nil, false
			}
		}
		return p, p.submit(values), true
	}
	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(km)
	return p, cmd, false
}

func (p *promptModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(p.title))
	b.WriteString("\n\n")
	for i, in := range p.inputs {
		labelStyle := styles.MutedText
		if i == p.focus {
			labelStyle = styles.AccentText
		}
		b.WriteString(labelStyle.Width(10).Render(p.labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if p.err != "" {
		b.WriteString(styles.DangerText.Render(p.err))
	} else {
		b.WriteString(styles.FaintText.Render("enter: submit  esc: cancel"))
	}
	return placeModal(theme, width, height, b.String())
}

// confirmModal asks a yes/no question before a destructive action.
type confirmModal struct {
	title   string
	body    string
	confirm func() tea.Cmd
}

func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch km.String() {
	case "y", "Y", "enter":
		return c, c.confirm(), true
	case "n", "N", "esc", "q":
		return c, nil, true
	}
	return c, nil, false
}

func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	content := styles.DangerText.Render(c.title) + "\n\n" +
		styles.Text.Render(c.body) + "\n\n" +
		styles.FaintText.Render("y: confirm  n: cancel")
	return placeModal(theme, width, height, content)
}

func placeModal(theme Theme, width, height int, content string) string {
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(min(64, max(width-4, 20)))

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
