package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar: logo, view tabs with unread badges,
// the signed-in user and connection state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().On(m.theme.Surface)
	bg := newBar(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("momento", styles.Logo)}

	if m.view == ViewSignIn {
		parts = append(parts, bg.Render("Sign in to continue", styles.MutedText))
		return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
	}

	parts = append(parts, m.renderTabs(styles, bg, compact))

	if m.sess != nil {
		if user, ok := m.sess.User(); ok {
			handle := "@" + user.Username
			if user.IsAdmin() {
				handle += " " + styles.Badge(badgeAdmin).Render("admin")
			}
			parts = append(parts, bg.Render(handle, styles.Text))
		}
	}

	snap := m.snapshot
	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	case snap.HasBadges:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	if !compact && !snap.LastUpdated.IsZero() {
		parts = append(parts, bg.Render("updated "+relativeTime(snap.LastUpdated, m.now()), styles.FaintText))
	}

	if snap.LastError != nil && snap.IsOffline() {
		maxErr := 60
		if compact {
			maxErr = 24
		}
		parts = append(parts, bg.Render(truncate(snap.LastError.Error(), maxErr), styles.DangerText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

type tab struct {
	view  View
	label string
	short string
}

var tabs = []tab{
	{ViewFeed, "Home", "H"},
	{ViewExplore, "Explore", "E"},
	{ViewNotifications, "Notifications", "N"},
	{ViewMessages, "Messages", "M"},
	{ViewProfile, "Profile", "P"},
	{ViewAdmin, "Admin", "A"},
	{ViewActivity, "Activity", "L"},
	{ViewSaved, "Saved", "S"},
}

func (m Model) renderTabs(styles Styles, bg bar, compact bool) string {
	active := m.view
	switch active {
	case ViewPost:
		if n := len(m.history); n > 0 {
			active = m.history[n-1]
		}
	case ViewConversation:
		active = ViewMessages
	case ViewExternal:
		active = ViewExplore
	}

	segments := make([]string, 0, len(tabs))
	for i, t := range tabs {
		if t.view == ViewAdmin && !m.isAdmin() {
			continue
		}
		label := t.label
		if compact {
			label = t.short
		}
		style := styles.MutedText
		if t.view == active {
			style = styles.AccentText.Bold(true).Underline(true)
		}
		seg := bg.Render(fmt.Sprintf("%d %s", i+1, label), style)
		if count := m.tabBadge(t.view); count != "" {
			seg += bg.Spaces(1) + styles.Badge(badgeUnread).Render(count)
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, bg.Spaces(2))
}

func (m Model) tabBadge(v View) string {
	switch v {
	case ViewNotifications:
		return badge(m.snapshot.Badges.Notifications)
	case ViewMessages:
		return badge(m.snapshot.Badges.Messages)
	}
	return ""
}

// renderCommandBar renders the command hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().On(m.theme.Surface)
	bg := newBar(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.view {
	case ViewSignIn:
		commands = []cmd{{"tab", "Next field"}, {"enter", "Submit"}, {"ctrl+n", m.signin.swapLabel()}}
	case ViewExplore:
		if m.explore.external {
			commands = []cmd{{"enter", "Open"}, {"/", "Search"}, {"m", "Next page"}, {"E", "Posts"}}
			break
		}
		commands = []cmd{{"enter", "Open"}, {"l", "Like"}, {"s", "Save"}, {"n", "New"}, {"u", "Author"}, {"/", "Search"}, {"E", "Photos"}}
	case ViewFeed, ViewSaved:
		commands = []cmd{{"enter", "Open"}, {"l", "Like"}, {"s", "Save"}, {"n", "New"}, {"u", "Author"}}
	case ViewPost:
		commands = []cmd{{"l", "Like"}, {"s", "Save"}, {"r", "Review"}, {"R", "Edit review"}, {"e", "Edit"}, {"x", "Delete"}, {"esc", "Back"}}
	case ViewExternal:
		commands = []cmd{{"r", "Review"}, {"R", "Edit review"}, {"x", "Delete review"}, {"esc", "Back"}}
	case ViewNotifications:
		commands = []cmd{{"enter", "Open"}, {"a", "Mark all read"}, {"x", "Delete"}}
	case ViewMessages:
		commands = []cmd{{"enter", "Open"}, {"n", "New message"}}
	case ViewConversation:
		commands = []cmd{{"enter", "Send"}, {"esc", "Back"}}
		if m.chat.peerID == aiPeer {
			commands = append(commands, cmd{"ctrl+k/j", "Rate reply"}, cmd{"ctrl+l", "Clear"})
		}
	case ViewProfile:
		commands = []cmd{{"f", "Follow"}, {"e", "Edit profile"}, {"enter", "Open post"}, {"m", "Message"}}
	case ViewAdmin:
		commands = []cmd{{"x", "Delete user"}, {"enter", "Profile"}}
	case ViewActivity:
		followLabel := "Pause"
		if !m.activity.follow {
			followLabel = "Follow"
		}
		commands = []cmd{{"space", followLabel}, {"/", "Search"}, {"L", "Level " + m.activity.filter.MinLevel.String()}}
	}
	commands = append(commands, cmd{"?", "More"})

	colon := bg.bg.Render(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	if m.view == ViewExplore && m.explore.term != "" {
		segments = append(segments, bg.Render("/"+truncate(m.explore.term, 18), styles.AccentText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderNotices shows the status line and the newest notice.
func (m Model) renderNotices() string {
	styles := m.theme.Styles()
	var parts []string
	if m.status != "" {
		parts = append(parts, styles.WarningText.Render(m.status))
	}
	if notices := m.snapshot.Notices; len(notices) > 0 {
		last := notices[len(notices)-1]
		text := truncate(last.Text, max(m.width-20, 20))
		if len(notices) > 1 {
			text = fmt.Sprintf("%s (+%d)", text, len(notices)-1)
		}
		parts = append(parts, styles.DangerText.Render("! ")+styles.Text.Render(text)+styles.FaintText.Render("  z:dismiss"))
	}
	return strings.Join(parts, "  ")
}
