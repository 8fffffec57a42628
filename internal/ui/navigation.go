package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/poll"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
	"github.com/five82/momento/internal/session"
)

// View represents the current active view.
type View int

const (
	ViewSignIn View = iota
	ViewFeed
	ViewExplore
	ViewNotifications
	ViewMessages
	ViewConversation
	ViewPost
	ViewProfile
	ViewAdmin
	ViewActivity
	ViewSaved
	ViewExternal
)

var viewNames = map[View]string{
	ViewSignIn:        "signin",
	ViewFeed:          "feed",
	ViewExplore:       "explore",
	ViewNotifications: "notifications",
	ViewMessages:      "messages",
	ViewConversation:  "conversation",
	ViewPost:          "post",
	ViewProfile:       "profile",
	ViewAdmin:         "admin",
	ViewActivity:      "activity",
	ViewSaved:         "saved",
	ViewExternal:      "external",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "feed"
}

// persisted reports whether v can be restored at startup.
func (v View) persisted() bool {
	switch v {
	case ViewFeed, ViewExplore, ViewNotifications, ViewMessages, ViewProfile, ViewActivity, ViewSaved:
		return true
	}
	return false
}

// parseView maps a saved view name back to a top-level view.
func parseView(name string) View {
	for v, n := range viewNames {
		if n == name && v.persisted() {
			return v
		}
	}
	return ViewFeed
}

var tabOrder = []View{ViewFeed, ViewExplore, ViewNotifications, ViewMessages, ViewProfile, ViewAdmin, ViewActivity, ViewSaved}

// nextTab returns the top-level view dir steps away from the current one.
func (m Model) nextTab(dir int) View {
	order := make([]View, 0, len(tabOrder))
	for _, v := range tabOrder {
		if v == ViewAdmin && !m.isAdmin() {
			continue
		}
		order = append(order, v)
	}
	idx := 0
	for i, v := range order {
		if v == m.view {
			idx = i
			break
		}
	}
	return order[(idx+dir+len(order))%len(order)]
}

// switchView leaves the current view and enters v, remembering where we
// came from for esc.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if v == m.view {
		return m, m.reload(false)
	}
	if m.view != ViewSignIn {
		m.history = append(m.history, m.view)
		if len(m.history) > 20 {
			m.history = m.history[len(m.history)-20:]
		}
	}
	if v == ViewProfile && m.profile.userID == "" && m.sess != nil {
		m.profile.userID = m.sess.UserID()
	}
	return m.enter(v)
}

// back returns to the previous view.
func (m Model) back() (tea.Model, tea.Cmd) {
	if n := len(m.history); n > 0 {
		prev := m.history[n-1]
		m.history = m.history[:n-1]
		return m.enter(prev)
	}
	if m.view == ViewFeed {
		return m, nil
	}
	return m.enter(ViewFeed)
}

// enter stops the current view's pollers synchronously, bumps the view
// generation so late results are ignored, and starts v.
func (m Model) enter(v View) (tea.Model, tea.Cmd) {
	leaveCmd := m.leave()
	m.stopGroup()
	m.gen++
	m.view = v
	m.status = ""
	if v.persisted() {
		m.startView = v
		m.savePrefs()
	}
	startCmd := m.start()
	return m, tea.Batch(leaveCmd, startCmd)
}

// leave runs exit side effects of the current view.
func (m *Model) leave() tea.Cmd {
	switch m.view {
	case ViewNotifications:
		board, ctx := m.notifications, m.ctx
		if board == nil {
			return nil
		}
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
			defer cancel()
			if _, err := board.Leave(ctx); err != nil {
				return actionMsg{action: "markAllNotificationsRead", err: err}
			}
			return nil
		}
	case ViewExplore:
		m.explore.input.Blur()
	case ViewConversation:
		m.chat.input.Blur()
	case ViewActivity:
		m.activity.input.Blur()
	}
	return nil
}

func (m *Model) newGroup() *poll.Group {
	gen, events := m.gen, m.events
	return poll.NewGroup(m.ctx, m.q.Store(), func(key query.Key, err error) {
		emit(events, pollMsg{gen: gen, key: key, err: err})
	})
}

// start binds the pollers of the current view and issues its first reads.
func (m *Model) start() tea.Cmd {
	if m.view == ViewSignIn {
		m.signin = newSigninState()
		return m.signin.focusCmd()
	}
	if m.q == nil {
		return nil
	}
	polls := m.cfg.Poll
	switch m.view {
	case ViewNotifications:
		g := m.newGroup()
		g.Every(queries.NotificationsKey(), polls.Notifications, m.q.Notifications().Fetcher())
		g.Every(queries.UnreadNotificationsKey(), polls.Unread, m.q.UnreadNotifications().Fetcher())
		m.group = g
		return nil

	case ViewMessages:
		g := m.newGroup()
		g.Every(queries.ConversationPartnersKey(), polls.Partners, m.q.ConversationPartners().Fetcher())
		g.Every(queries.UnreadMessagesKey(), polls.Unread, m.q.UnreadMessages().Fetcher())
		m.group = g
		return nil

	case ViewConversation:
		focus := m.chat.input.Focus()
		g := m.newGroup()
		m.group = g
		if m.chat.peerID == momento.AIPeerID {
			history := m.q.ChatHistory()
			g.Every(history.Key, polls.Conversation, history.Fetcher())
			return focus
		}
		conv := m.q.Conversation(m.chat.peerID)
		g.Every(conv.Key, polls.Conversation, conv.Fetcher())
		return tea.Batch(focus, m.openConversationCmd())

	case ViewActivity:
		return m.logCmd()
	}
	return m.reload(false)
}

// reload re-reads the data the current view renders. Reads of fresh keys
// are served from the cache unless force is set.
func (m Model) reload(force bool) tea.Cmd {
	if m.q == nil {
		return nil
	}
	switch m.view {
	case ViewFeed:
		return m.load(get(m.q.RecentPosts(), force))
	case ViewExplore:
		return m.reloadExplore(force)
	case ViewSaved:
		return m.load(get(m.q.SavedPosts(m.sess.UserID()), force))
	case ViewPost:
		return m.load(get(m.q.Post(m.postID), force), get(m.q.Reviews(m.postID), force))
	case ViewExternal:
		return m.load(get(m.q.ExternalDetails(m.externalID), force), get(m.q.ExternalReviews(m.externalID), force))
	case ViewNotifications:
		return m.load(get(m.q.Notifications(), force), get(m.q.UnreadNotifications(), force))
	case ViewMessages:
		return m.load(get(m.q.ConversationPartners(), force), get(m.q.UnreadMessages(), force))
	case ViewConversation:
		if m.chat.peerID == momento.AIPeerID {
			return m.load(get(m.q.ChatHistory(), force))
		}
		return m.load(get(m.q.Conversation(m.chat.peerID), force))
	case ViewProfile:
		id := m.profile.userID
		return m.load(
			get(m.q.User(id), force),
			get(m.q.UserPosts(id), force),
			get(m.q.Followers(id), force),
			get(m.q.Following(id), force),
		)
	case ViewAdmin:
		return m.load(get(m.q.AdminUsers(), force))
	case ViewActivity:
		return m.logCmd()
	}
	return nil
}

// handleSession follows session transitions. Expiry and sign-out always
// land on the sign-in view.
func (m Model) handleSession(s session.State) (tea.Model, tea.Cmd) {
	switch s {
	case session.SignedIn:
		if m.view != ViewSignIn {
			return m, nil
		}
		m.history = nil
		if m.profile.userID == "" && m.sess != nil {
			m.profile.userID = m.sess.UserID()
		}
		return m.enter(m.startView)
	case session.SignedOut, session.Expired:
		m.history = nil
		m.profile = profileState{}
		m.chat = newChatState()
		m.explore = newExploreState()
		next, cmd := m.enter(ViewSignIn)
		nm := next.(Model)
		if s == session.Expired {
			nm.signin.err = "Your session expired. Sign in again."
		}
		return nm, cmd
	}
	return m, nil
}

func (m Model) signOutCmd() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
		defer cancel()
		if err := sess.SignOut(ctx); err != nil {
			return actionMsg{action: "signOut", err: err}
		}
		return nil
	}
}

// rowCount returns the number of selectable rows in the current view.
func (m Model) rowCount() int {
	if m.q == nil {
		return 0
	}
	switch m.view {
	case ViewExplore:
		if m.explore.external {
			return len(m.externalResults().Results)
		}
		return len(m.visiblePosts())
	case ViewFeed, ViewSaved:
		return len(m.visiblePosts())
	case ViewPost:
		reviews, _, _ := m.q.Reviews(m.postID).Cached()
		return len(reviews)
	case ViewExternal:
		reviews, _, _ := m.q.ExternalReviews(m.externalID).Cached()
		return len(reviews)
	case ViewNotifications:
		list, _, _ := m.q.Notifications().Cached()
		return len(list)
	case ViewMessages:
		return len(m.inboxRows())
	case ViewProfile:
		posts, _, _ := m.q.UserPosts(m.profile.userID).Cached()
		return len(posts)
	case ViewAdmin:
		users, _, _ := m.q.AdminUsers().Cached()
		return len(users)
	case ViewActivity:
		return len(m.activity.entries)
	}
	return 0
}

// moveCursor applies navigation keys to the current view's selection.
func (m *Model) moveCursor(msg tea.KeyMsg) bool {
	count := m.rowCount()
	cur := m.cursor[m.view]
	page := max(m.contentHeight()-3, 1)
	switch {
	case key.Matches(msg, m.keys.Up):
		cur--
	case key.Matches(msg, m.keys.Down):
		cur++
	case key.Matches(msg, m.keys.Top):
		cur = 0
	case key.Matches(msg, m.keys.Bottom):
		cur = count - 1
	case key.Matches(msg, m.keys.PageUp):
		cur -= page
	case key.Matches(msg, m.keys.PageDown):
		cur += page
	case key.Matches(msg, m.keys.HalfPageUp):
		cur -= page / 2
	case key.Matches(msg, m.keys.HalfPageDown):
		cur += page / 2
	default:
		return false
	}
	m.cursor[m.view] = max(0, min(cur, count-1))
	if m.view == ViewActivity {
		m.activity.follow = m.cursor[m.view] >= count-1
	}
	return true
}

func (m *Model) clampCursor() {
	count := m.rowCount()
	if cur := m.cursor[m.view]; cur >= count {
		m.cursor[m.view] = max(count-1, 0)
	}
}

func (m *Model) resize() {
	m.chat.input.Width = max(m.width-8, 10)
	m.explore.input.Width = max(m.width-16, 10)
}
