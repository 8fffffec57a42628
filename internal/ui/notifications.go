package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/readstate"
)

func (m Model) selectedNotification() (momento.Notification, bool) {
	list, _, _ := m.q.Notifications().Cached()
	cur := m.cursor[ViewNotifications]
	if cur < 0 || cur >= len(list) {
		return momento.Notification{}, false
	}
	return list[cur], true
}

func (m Model) handleNotificationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.MarkAllRead) {
		return m, await(m.gen, "mark all notifications read", m.runner.MarkAllNotificationsRead())
	}
	n, ok := m.selectedNotification()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Open):
		markCmd := m.markReadCmd(n.ID)
		var next tea.Model = m
		var cmd tea.Cmd
		switch {
		case n.Post != nil:
			m.postID = n.Post.ID
			m.cursor[ViewPost] = 0
			next, cmd = m.switchView(ViewPost)
		case n.Actor != nil:
			m.profile.userID = n.Actor.ID
			m.cursor[ViewProfile] = 0
			next, cmd = m.switchView(ViewProfile)
		}
		return next, tea.Batch(markCmd, cmd)

	case key.Matches(msg, m.keys.Author):
		if n.Actor == nil {
			return m, nil
		}
		m.profile.userID = n.Actor.ID
		m.cursor[ViewProfile] = 0
		next, cmd := m.switchView(ViewProfile)
		return next, tea.Batch(m.markReadCmd(n.ID), cmd)

	case key.Matches(msg, m.keys.Delete):
		return m, await(m.gen, "delete notification", m.runner.DeleteNotification(n.ID))
	}
	return m, nil
}

// markReadCmd flips one notification; the result is reported against the
// current view.
func (m Model) markReadCmd(id string) tea.Cmd {
	board, ctx, gen := m.notifications, m.ctx, m.gen
	if board == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
		defer cancel()
		return actionMsg{gen: gen, action: "mark notification read", err: board.MarkRead(ctx, id)}
	}
}

func (m Model) renderNotifications() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	list, entry, ok := m.q.Notifications().Cached()

	unread := len(readstate.Unread(list))
	title := "Notifications"
	if unread > 0 {
		title = fmt.Sprintf("Notifications (%d unread)", unread)
	}

	var b strings.Builder
	switch {
	case !ok && entry.Err != nil:
		b.WriteString(styles.DangerText.Render(entry.Err.Error()))
	case !ok:
		b.WriteString(styles.MutedText.Render("Loading..."))
	case len(list) == 0:
		b.WriteString(styles.MutedText.Render("Nothing new yet."))
	default:
		rows := make([]string, 0, len(list))
		for _, n := range list {
			marker := " "
			if !n.Read {
				marker = "●"
			}
			text := n.Summary()
			if n.Post != nil && n.Post.Caption != "" {
				text += ": " + oneLine(n.Post.Caption)
			}
			rows = append(rows, fmt.Sprintf("%s %s %s  %s",
				marker,
				styles.Badge(string(n.Type)).Width(8).Render(string(n.Type)),
				padRight(truncate(text, max(m.width-36, 16)), max(m.width-36, 16)),
				relativeTime(n.CreatedAt, m.now())))
		}
		b.WriteString(m.renderRows(rows, m.cursor[ViewNotifications], height-3))
	}
	return m.renderBox(title, b.String(), m.width, height, true)
}
