package app

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/momento/internal/poll"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
	"github.com/five82/momento/internal/session"
	"github.com/five82/momento/internal/state"
)

// BadgePoller keeps the header's unread counters fresh while a user is
// signed in, independent of the view on screen.
type BadgePoller struct {
	ctx      context.Context
	header   *state.Store
	q        *queries.Set
	interval time.Duration

	mu      sync.Mutex
	group   *poll.Group
	unwatch []func()
	gen     uint64
}

// NewBadgePoller creates a stopped poller; interval <= 0 uses
// poll.UnreadInterval.
func NewBadgePoller(ctx context.Context, header *state.Store, q *queries.Set, interval time.Duration) *BadgePoller {
	if interval <= 0 {
		interval = poll.UnreadInterval
	}
	return &BadgePoller{ctx: ctx, header: header, q: q, interval: interval}
}

// Follow starts and stops the poller with the session.
func (p *BadgePoller) Follow(sess *session.Session) {
	sess.OnChange(p.onSession)
	if sess.Authenticated() {
		p.Start()
	}
}

func (p *BadgePoller) onSession(st session.State) {
	if st == session.SignedIn {
		p.Start()
		return
	}
	// Session changes can fire from inside one of our own fetches, so the
	// loops are torn down off this goroutine.
	if g := p.detach(); g != nil {
		go g.Stop()
	}
	p.header.Reset()
}

// Start begins polling both unread counters. It is a no-op while running.
func (p *BadgePoller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.group != nil {
		return
	}
	p.gen++
	gen := p.gen
	g := poll.NewGroup(p.ctx, p.q.Store(), func(_ query.Key, err error) { p.update(gen, err) })
	g.Every(queries.UnreadMessagesKey(), p.interval, p.q.UnreadMessages().Fetcher())
	g.Every(queries.UnreadNotificationsKey(), p.interval, p.q.UnreadNotifications().Fetcher())
	p.group = g

	// Counts refetched outside the poll loop, such as after marking a
	// conversation read, reach the header as soon as they are stored.
	changed := func(query.Key) { p.update(gen, nil) }
	p.unwatch = []func(){
		p.q.Store().Watch(queries.UnreadMessagesKey(), changed),
		p.q.Store().Watch(queries.UnreadNotificationsKey(), changed),
	}
}

// Focus refetches both counters now, for example when the terminal
// regains focus. It is a no-op while stopped.
func (p *BadgePoller) Focus() {
	p.mu.Lock()
	g := p.group
	p.mu.Unlock()
	if g != nil {
		g.Focus()
	}
}

// Stop halts polling and waits for in-flight fetches.
func (p *BadgePoller) Stop() {
	if g := p.detach(); g != nil {
		g.Stop()
	}
}

func (p *BadgePoller) detach() *poll.Group {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.unwatch {
		cancel()
	}
	p.unwatch = nil
	g := p.group
	p.group = nil
	p.gen++
	return g
}

func (p *BadgePoller) update(gen uint64, err error) {
	p.mu.Lock()
	current := gen == p.gen
	p.mu.Unlock()
	if !current {
		return
	}
	if err != nil {
		log.Debug("badge poll failed", "err", err)
		p.header.Update(nil, err)
		return
	}
	messages, _, okMessages := p.q.UnreadMessages().Cached()
	notifications, _, okNotifications := p.q.UnreadNotifications().Cached()
	if !okMessages && !okNotifications {
		return
	}
	p.header.Update(&state.Badges{Messages: messages, Notifications: notifications}, nil)
}
