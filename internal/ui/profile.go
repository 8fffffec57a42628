package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/momento/internal/momento"
)

// followsProfile reports whether the signed-in user follows the profile
// being shown, according to the cached follower list.
func (m Model) followsProfile() bool {
	me := m.sess.UserID()
	followers, _, _ := m.q.Followers(m.profile.userID).Cached()
	for _, u := range followers {
		if u.ID == me {
			return true
		}
	}
	return false
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.profile.userID
	self := id == m.sess.UserID()
	switch {
	case key.Matches(msg, m.keys.Follow):
		if self {
			return m, nil
		}
		if m.followsProfile() {
			return m, await(m.gen, "unfollow", m.runner.Unfollow(id))
		}
		return m, await(m.gen, "follow", m.runner.Follow(id))

	case key.Matches(msg, m.keys.More):
		if self {
			return m, nil
		}
		user, _, _ := m.q.User(id).Cached()
		return m.openConversation(id, user.DisplayName())

	case key.Matches(msg, m.keys.DeleteAccount):
		if !self {
			return m, nil
		}
		runner, gen := m.runner, m.gen
		m.modal = &confirmModal{
			title:   "Delete your account?",
			body:    "Your posts and messages will be removed. This cannot be undone.",
			confirm: func() tea.Cmd { return await(gen, "delete account", runner.DeleteAccount()) },
		}
		return m, nil

	case key.Matches(msg, m.keys.Edit) && self:
		user, _, ok := m.q.User(id).Cached()
		if !ok {
			return m, nil
		}
		runner, gen := m.runner, m.gen
		m.modal = newPrompt("Edit profile", []promptField{
			{label: "Name", value: user.Name},
			{label: "Bio", value: user.Bio, optional: true},
		}, func(v []string) tea.Cmd {
			return await(gen, "update profile", runner.UpdateProfile(momento.UserUpdate{
				UserID: id,
				Name:   v[0],
				Bio:    v[1],
			}))
		})
		return m, textinput.Blink
	}

	if post, ok := m.selectedPost(); ok {
		return m.handlePostAction(msg, post)
	}
	return m, nil
}

func (m Model) renderProfile() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	id := m.profile.userID
	user, entry, ok := m.q.User(id).Cached()
	if !ok {
		text := styles.MutedText.Render("Loading...")
		if entry.Err != nil {
			text = styles.DangerText.Render(entry.Err.Error())
		}
		return m.renderBox("Profile", text, m.width, height, true)
	}

	followers, _, _ := m.q.Followers(id).Cached()
	following, _, _ := m.q.Following(id).Cached()
	posts := m.visiblePosts()
	me := m.sess.UserID()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(user.DisplayName()))
	b.WriteString(styles.MutedText.Render("  @" + user.Username))
	if user.IsAdmin() {
		b.WriteString(" " + styles.Badge(badgeAdmin).Render("admin"))
	}
	switch {
	case id == me:
		b.WriteString(" " + styles.Badge(badgeYou).Render("you"))
	case m.followsProfile():
		b.WriteString(styles.SuccessText.Render("  following"))
	}
	b.WriteString("\n")
	if user.Bio != "" {
		b.WriteString(styles.Text.Render(oneLine(user.Bio)))
		b.WriteString("\n")
	}
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("%s · %s · %d following",
		countLabel(len(posts), "post", "posts"),
		countLabel(len(followers), "follower", "followers"),
		len(following))))
	b.WriteString("\n\n")

	rows := make([]string, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, m.postRow(p, me))
	}
	if len(rows) == 0 {
		b.WriteString(styles.MutedText.Render("No posts yet"))
	} else {
		used := strings.Count(b.String(), "\n")
		b.WriteString(m.renderRows(rows, m.cursor[ViewProfile], height-used-3))
	}
	return m.renderBox("Profile", b.String(), m.width, height, true)
}

// Admin

func (m Model) handleAdminKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	users, _, _ := m.q.AdminUsers().Cached()
	cur := m.cursor[ViewAdmin]
	if cur < 0 || cur >= len(users) {
		return m, nil
	}
	u := users[cur]
	switch {
	case key.Matches(msg, m.keys.Open):
		m.profile.userID = u.ID
		m.cursor[ViewProfile] = 0
		return m.switchView(ViewProfile)

	case key.Matches(msg, m.keys.Delete):
		if u.ID == m.sess.UserID() {
			m.status = "Use X on your profile to delete your own account"
			return m, nil
		}
		runner, gen := m.runner, m.gen
		m.modal = &confirmModal{
			title:   "Delete @" + u.Username + "?",
			body:    "The account and everything it posted will be removed.",
			confirm: func() tea.Cmd { return await(gen, "delete user", runner.AdminDeleteUser(u.ID)) },
		}
		return m, nil
	}
	return m, nil
}

func (m Model) renderAdmin() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	users, entry, ok := m.q.AdminUsers().Cached()
	if !ok {
		text := styles.MutedText.Render("Loading...")
		if entry.Err != nil {
			text = styles.DangerText.Render(entry.Err.Error())
		}
		return m.renderBox("Members", text, m.width, height, true)
	}
	rows := make([]string, 0, len(users))
	for _, u := range users {
		role := "member"
		if u.IsAdmin() {
			role = "admin"
		}
		rows = append(rows, fmt.Sprintf("%-20s %-24s %-28s %s",
			truncate("@"+u.Username, 20),
			truncate(u.DisplayName(), 24),
			truncate(u.Email, 28),
			role))
	}
	title := "Members (" + countLabel(len(users), "account", "accounts") + ")"
	return m.renderBox(title, m.renderRows(rows, m.cursor[ViewAdmin], height-3), m.width, height, true)
}
