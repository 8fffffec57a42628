package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/queries"
)

const aiPeer = momento.AIPeerID

// chatState is the open conversation: a member thread or the assistant.
type chatState struct {
	peerID   string
	peerName string
	input    textinput.Model
	scroll   int // lines scrolled up from the newest message
}

func newChatState() chatState {
	ti := textinput.New()
	ti.Placeholder = "Write a message..."
	ti.CharLimit = 1000
	ti.Prompt = "> "
	return chatState{input: ti}
}

type inboxRow struct {
	peerID string
	name   string
	last   string
	at     string
	unread int
}

// inboxRows lists the assistant first, then partners most recent first.
func (m Model) inboxRows() []inboxRow {
	rows := []inboxRow{{peerID: aiPeer, name: "Momento assistant", last: "Ask about photography and captions"}}
	if m.q == nil {
		return rows
	}
	partners, _, _ := m.q.ConversationPartners().Cached()
	me := m.sess.UserID()
	for _, p := range partners {
		last := oneLine(p.LastMessage)
		if p.LastSenderID == me {
			last = "You: " + last
		}
		rows = append(rows, inboxRow{
			peerID: p.User.ID,
			name:   p.User.DisplayName(),
			last:   last,
			at:     relativeTime(p.LastMessageAt, m.now()),
			unread: max(p.UnreadCount, 0),
		})
	}
	return rows
}

func (m Model) handleMessagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		rows := m.inboxRows()
		cur := m.cursor[ViewMessages]
		if cur < 0 || cur >= len(rows) {
			return m, nil
		}
		return m.openConversation(rows[cur].peerID, rows[cur].name)

	case key.Matches(msg, m.keys.NewPost):
		q, ctx, gen := m.q, m.ctx, m.gen
		m.modal = newPrompt("New message", []promptField{{label: "Username"}}, func(v []string) tea.Cmd {
			return findUserCmd(ctx, q, gen, strings.TrimPrefix(v[0], "@"))
		})
		return m, textinput.Blink
	}
	return m, nil
}

// findUserCmd resolves a username and opens a conversation with them.
func findUserCmd(ctx context.Context, q *queries.Set, gen uint64, username string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
		defer cancel()
		action := "find @" + username
		users, err := q.Users(0).Get(ctx)
		if err != nil {
			return actionMsg{gen: gen, action: action, err: err}
		}
		for _, u := range users {
			if strings.EqualFold(u.Username, username) {
				return actionMsg{gen: gen, action: action, then: func(m Model) (tea.Model, tea.Cmd) {
					return m.openConversation(u.ID, u.DisplayName())
				}}
			}
		}
		return actionMsg{gen: gen, action: action, err: fmt.Errorf("no member named @%s", username)}
	}
}

func (m Model) openConversation(peerID, name string) (tea.Model, tea.Cmd) {
	chat := newChatState()
	chat.peerID = peerID
	chat.peerName = name
	chat.input.Width = max(m.width-8, 10)
	m.chat = chat
	return m.switchView(ViewConversation)
}

// openConversationCmd marks the thread read once it is on screen.
func (m Model) openConversationCmd() tea.Cmd {
	conv, ctx, gen, peer := m.conversations, m.ctx, m.gen, m.chat.peerID
	if conv == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
		defer cancel()
		return loadedMsg{gen: gen, err: conv.Open(ctx, peer)}
	}
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ai := m.chat.peerID == aiPeer
	switch {
	case key.Matches(msg, m.keys.Escape):
		return m.back()

	case key.Matches(msg, m.keys.Confirm):
		text := strings.TrimSpace(m.chat.input.Value())
		if text == "" {
			return m, nil
		}
		m.chat.input.Reset()
		m.chat.scroll = 0
		if ai {
			return m, await(m.gen, "send message to assistant", m.runner.SendChat(text))
		}
		return m, await(m.gen, "send message", m.runner.SendMessage(m.chat.peerID, text))

	case ai && (key.Matches(msg, m.keys.FeedbackUp) || key.Matches(msg, m.keys.FeedbackDown)):
		reply, ok := m.lastReply()
		if !ok {
			return m, nil
		}
		want := momento.FeedbackUp
		if key.Matches(msg, m.keys.FeedbackDown) {
			want = momento.FeedbackDown
		}
		if reply.Feedback == want {
			want = momento.FeedbackNone
		}
		return m, await(m.gen, "update feedback", m.runner.RateReply(reply.ID, want))

	case ai && key.Matches(msg, m.keys.ClearChat):
		runner, gen := m.runner, m.gen
		m.modal = &confirmModal{
			title:   "Clear conversation?",
			body:    "The assistant history will be deleted.",
			confirm: func() tea.Cmd { return await(gen, "clear chat", runner.ClearChat()) },
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.chat.scroll += max(m.contentHeight()/2, 1)
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.chat.scroll = max(m.chat.scroll-max(m.contentHeight()/2, 1), 0)
		return m, nil
	}

	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	return m, cmd
}

// lastReply is the newest assistant message that can carry feedback.
func (m Model) lastReply() (momento.ChatMessage, bool) {
	history, _, _ := m.q.ChatHistory().Cached()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == momento.ChatRoleAssistant {
			return history[i], true
		}
	}
	return momento.ChatMessage{}, false
}

type bubble struct {
	author string
	mine   bool
	text   string
	at     string
	extra  string
}

func (m Model) conversationBubbles() ([]bubble, bool, error) {
	now := m.now()
	if m.chat.peerID == aiPeer {
		history, entry, ok := m.q.ChatHistory().Cached()
		if !ok && entry.Err != nil {
			return nil, false, entry.Err
		}
		var out []bubble
		for _, msg := range queries.Transcript(history, now) {
			b := bubble{author: "Assistant", text: msg.Content, at: relativeTime(msg.CreatedAt, now)}
			if msg.Role == momento.ChatRoleUser {
				b.author, b.mine = "You", true
			}
			switch msg.Feedback {
			case momento.FeedbackUp:
				b.extra = "+1"
			case momento.FeedbackDown:
				b.extra = "-1"
			}
			out = append(out, b)
		}
		return out, true, nil
	}

	thread, entry, ok := m.q.Conversation(m.chat.peerID).Cached()
	if !ok {
		return nil, false, entry.Err
	}
	me := m.sess.UserID()
	out := make([]bubble, 0, len(thread))
	for _, dm := range thread {
		b := bubble{author: m.chat.peerName, text: dm.Content, at: relativeTime(dm.CreatedAt, now)}
		if dm.SenderID == me {
			b.author, b.mine = "You", true
			if dm.Read {
				b.extra = "seen"
			}
		}
		out = append(out, b)
	}
	return out, true, nil
}

func (m Model) renderConversation() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	title := "@" + m.chat.peerName
	if m.chat.peerID == aiPeer {
		title = "Momento assistant"
	} else if m.chat.peerName == "" {
		title = "Conversation"
	}

	bubbles, ok, err := m.conversationBubbles()
	var lines []string
	switch {
	case !ok && err != nil:
		lines = []string{styles.DangerText.Render(err.Error())}
	case !ok:
		lines = []string{styles.MutedText.Render("Loading...")}
	case len(bubbles) == 0:
		lines = []string{styles.MutedText.Render("No messages yet. Say hi!")}
	}

	wrap := lipgloss.NewStyle().Width(max(m.width-10, 10))
	for _, b := range bubbles {
		nameStyle := styles.AccentText
		if b.mine {
			nameStyle = styles.SuccessText
		}
		meta := b.at
		if b.extra != "" {
			meta += "  " + b.extra
		}
		lines = append(lines, nameStyle.Render(b.author)+"  "+styles.FaintText.Render(meta))
		lines = append(lines, strings.Split(wrap.Render(styles.Text.Render(b.text)), "\n")...)
		lines = append(lines, "")
	}

	avail := max(height-5, 1)
	end := max(len(lines)-m.chat.scroll, 0)
	start := max(end-avail, 0)
	body := strings.Join(lines[start:end], "\n")
	pad := avail - (end - start)
	if pad > 0 {
		body = strings.Repeat("\n", pad) + body
	}

	return m.renderBox(title, body+"\n"+m.chat.input.View(), m.width, height, true)
}

func (m Model) renderMessages() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	rows := m.inboxRows()

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		count := badge(r.unread)
		if count != "" {
			count = "(" + count + ")"
		}
		lines = append(lines, fmt.Sprintf("%-22s %-6s %s  %s",
			truncate(r.name, 22),
			count,
			padRight(truncate(r.last, max(m.width-52, 12)), max(m.width-52, 12)),
			r.at))
	}

	title := "Messages"
	if m.conversations != nil {
		if total := m.conversations.Total(); total > 0 {
			title = fmt.Sprintf("Messages (%d unread)", total)
		}
	}
	content := m.renderRows(lines, m.cursor[ViewMessages], height-3)
	if _, entry, ok := m.q.ConversationPartners().Cached(); !ok && entry.Err == nil {
		content += "\n" + styles.MutedText.Render("Loading conversations...")
	}
	return m.renderBox(title, content, m.width, height, true)
}
