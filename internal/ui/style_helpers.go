package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// bar renders segments on a solid background. lipgloss resets the
// background after every styled run, so plain spaces between runs would
// show the terminal's background instead.
type bar struct {
	bg lipgloss.Style
}

func newBar(color string) bar {
	return bar{bg: lipgloss.NewStyle().Background(lipgloss.Color(color))}
}

// Render styles text word by word, painting the spaces too.
func (b bar) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	style = style.Inherit(b.bg)
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = style.Render(w)
		}
	}
	return strings.Join(words, b.Spaces(1))
}

// Spaces returns n painted spaces.
func (b bar) Spaces(n int) string {
	return b.bg.Render(strings.Repeat(" ", n))
}

// Join joins parts with a painted separator.
func (b bar) Join(parts []string, sep string) string {
	return strings.Join(parts, b.bg.Render(sep))
}

// renderBox draws a titled rounded border around content sized to the
// given outer dimensions.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	border := m.theme.Border
	if focused {
		border = m.theme.BorderFocus
	}
	styles := m.theme.Styles()
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(0, 1).
		Width(max(width-2, 1)).
		Height(max(height-2, 1))
	header := styles.AccentText.Bold(true).Render(title)
	return box.Render(header + "\n" + content)
}

// listWindow returns the slice bounds of rows to draw so that cursor stays
// visible in a window of height rows.
func listWindow(total, cursor, height int) (int, int) {
	if height <= 0 || total <= height {
		return 0, total
	}
	start := cursor - height/2
	start = max(0, min(start, total-height))
	return start, start + height
}

// renderRows renders rows with the selected one highlighted.
func (m Model) renderRows(rows []string, cursor, height int) string {
	if len(rows) == 0 {
		return ""
	}
	styles := m.theme.Styles()
	start, end := listWindow(len(rows), cursor, height)
	var b strings.Builder
	for i := start; i < end; i++ {
		line := rows[i]
		if i == cursor {
			line = styles.Selected.Render(padRight(line, max(m.width-6, 0)))
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
