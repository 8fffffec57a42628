package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// Titles for the groups of keyMap.FullHelp, in order.
var helpTitles = []string{"Views", "Navigation", "Posts", "People & inbox", "Activity log", "General"}

// renderHelp draws every binding, grouped under a title, in a centered box.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	h := help.New()
	h.FullSeparator = ""
	h.Styles.FullKey = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning)).Width(12)
	h.Styles.FullDesc = styles.Text
	h.Styles.FullSeparator = styles.FaintText

	var sections []string
	for i, group := range m.keys.FullHelp() {
		title := "More"
		if i < len(helpTitles) {
			title = helpTitles[i]
		}
		body := h.FullHelpView([][]key.Binding{group})
		if body == "" {
			continue
		}
		sections = append(sections, styles.AccentText.Bold(true).Render(title)+"\n"+body)
	}

	content := styles.Text.Bold(true).Render("Keyboard Shortcuts") + "\n" +
		styles.FaintText.Render(strings.Repeat("─", 30)) + "\n\n" +
		strings.Join(sections, "\n\n")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(content),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)))
}
