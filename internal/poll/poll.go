package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/momento/internal/query"
)

// Default cadences.
const (
	ConversationInterval  = 3 * time.Second
	PartnersInterval      = 5 * time.Second
	UnreadInterval        = 5 * time.Second
	NotificationsInterval = 5 * time.Second
)

const maxBackoff = 30 * time.Second

// calculateBackoff returns the wait before the next poll after failures
// consecutive errors: the base interval doubled per failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

// Group runs the polling loops of one view. Stop it when the view goes away.
type Group struct {
	ctx      context.Context
	cancel   context.CancelFunc
	store    *query.Store
	onUpdate func(query.Key, error)

	mu      sync.Mutex
	stopped bool
	loops   []*loop
	wg      sync.WaitGroup
}

type loop struct {
	key      query.Key
	interval time.Duration
	fetch    query.Fetcher
	kick     chan struct{}
}

// NewGroup creates a group polling into store. onUpdate, when set, runs after
// every completed fetch until Stop returns.
func NewGroup(parent context.Context, store *query.Store, onUpdate func(query.Key, error)) *Group {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel, store: store, onUpdate: onUpdate}
}

// Every binds key to the group. The first fetch fires immediately and then
// every interval.
func (g *Group) Every(key query.Key, interval time.Duration, fetch query.Fetcher) {
	if interval <= 0 {
		interval = UnreadInterval
	}
	l := &loop{key: key, interval: interval, fetch: fetch, kick: make(chan struct{}, 1)}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.loops = append(g.loops, l)
	g.store.Acquire(key)
	g.wg.Add(1)
	go g.run(l)
}

// Focus refetches every bound key now, regardless of where the interval is.
func (g *Group) Focus() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	for _, l := range g.loops {
		select {
		case l.kick <- struct{}{}:
		default:
		}
	}
}

// Keys lists the bound keys.
func (g *Group) Keys() []query.Key {
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]query.Key, 0, len(g.loops))
	for _, l := range g.loops {
		keys = append(keys, l.key)
	}
	return keys
}

// Stop cancels every loop and waits for them to exit. Requests already in
// flight still complete into the store, but onUpdate is not called again.
func (g *Group) Stop() {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.stopped = true
	loops := g.loops
	g.mu.Unlock()

	g.cancel()
	g.wg.Wait()
	for _, l := range loops {
		g.store.Release(l.key)
	}
}

func (g *Group) run(l *loop) {
	defer g.wg.Done()

	failures := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-timer.C:
		case <-l.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		_, err := g.store.Refetch(g.ctx, l.key, l.fetch)
		if g.ctx.Err() != nil {
			return
		}
		switch {
		case err == nil:
			failures = 0
		case errors.Is(err, query.ErrReset):
		default:
			failures++
			log.Debug("poll failed", "key", l.key.String(), "failures", failures, "err", err)
		}
		g.deliver(l.key, err)
		timer.Reset(calculateBackoff(failures, l.interval))
	}
}

func (g *Group) deliver(key query.Key, err error) {
	if g.onUpdate == nil {
		return
	}
	g.mu.Lock()
	stopped := g.stopped
	g.mu.Unlock()
	if stopped {
		return
	}
	g.onUpdate(key, err)
}
