package readstate

import (
	"context"

	"github.com/five82/momento/internal/actions"
	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/queries"
)

// UnreadTotal sums the unread counts of partners. The result is never
// negative.
func UnreadTotal(partners []momento.ConversationPartner) int {
	total := 0
	for _, p := range partners {
		if p.UnreadCount > 0 {
			total += p.UnreadCount
		}
	}
	return total
}

// HasUnread reports whether any notification is still unread.
func HasUnread(list []momento.Notification) bool {
	for _, n := range list {
		if !n.Read {
			return true
		}
	}
	return false
}

// Unread returns the unread notifications in their original order.
func Unread(list []momento.Notification) []momento.Notification {
	var out []momento.Notification
	for _, n := range list {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

// Notifications applies read transitions to the cached notification list.
// The read flag only ever moves from false to true.
type Notifications struct {
	q      *queries.Set
	runner *actions.Runner
}

func NewNotifications(q *queries.Set, runner *actions.Runner) *Notifications {
	return &Notifications{q: q, runner: runner}
}

// MarkRead flips a single notification. It is a no-op for one already read
// in the cached list.
func (n *Notifications) MarkRead(ctx context.Context, notificationID string) error {
	if list, _, ok := n.q.Notifications().Cached(); ok {
		for _, item := range list {
			if item.ID == notificationID && item.Read {
				return nil
			}
		}
	}
	_, err := n.runner.MarkNotificationRead(notificationID).Wait(ctx)
	return err
}

// Leave runs when the notifications view is left. Everything is marked read
// in bulk, but only if the last known list still holds unread records.
func (n *Notifications) Leave(ctx context.Context) (bool, error) {
	list, _, ok := n.q.Notifications().Cached()
	if !ok || !HasUnread(list) {
		return false, nil
	}
	_, err := n.runner.MarkAllNotificationsRead().Wait(ctx)
	return err == nil, err
}

// Conversations tracks per-partner unread badges.
type Conversations struct {
	q      *queries.Set
	runner *actions.Runner
}

func NewConversations(q *queries.Set, runner *actions.Runner) *Conversations {
	return &Conversations{q: q, runner: runner}
}

// Open marks peerID's thread read and waits until the badge queries have
// been refetched. There is no local decrement: on failure the badge keeps the
// last count the server reported until the next poll. The assistant thread
// has no read state.
func (c *Conversations) Open(ctx context.Context, peerID string) error {
	if peerID == "" || peerID == momento.AIPeerID {
		return nil
	}
	_, err := c.runner.MarkConversationRead(peerID).Wait(ctx)
	return err
}

// Badge returns the unread count for peerID from the last partner list.
func (c *Conversations) Badge(peerID string) int {
	partners, _, _ := c.q.ConversationPartners().Cached()
	for _, p := range partners {
		if p.User.ID == peerID {
			return max(p.UnreadCount, 0)
		}
	}
	return 0
}

// Total is the global message badge. It prefers the server's unread count
// and falls back to the partner sum when that has not been fetched.
func (c *Conversations) Total() int {
	if n, _, ok := c.q.UnreadMessages().Cached(); ok {
		return max(n, 0)
	}
	partners, _, _ := c.q.ConversationPartners().Cached()
	return UnreadTotal(partners)
}
