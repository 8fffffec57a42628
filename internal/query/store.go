package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultGCGrace      = 5 * time.Minute
)

// ErrReset is returned to fetches that started before the store was cleared.
var ErrReset = errors.New("query store reset")

// Fetcher loads the value for a key from the backend.
type Fetcher func(ctx context.Context) (any, error)

// Entry is a point-in-time view of a cached query.
type Entry struct {
	Key       Key
	Value     any
	HasValue  bool
	FetchedAt time.Time
	Stale     bool
	Err       error
	Fetching  bool
}

// Fresh reports whether the value can be served without a fetch.
func (e Entry) Fresh() bool {
	return e.HasValue && !e.Stale && e.Err == nil
}

// Options tune a Store.
type Options struct {
	// FetchTimeout bounds every backend request started by the store.
	FetchTimeout time.Duration
	// StaleAfter ages values out on read; zero keeps them fresh until
	// invalidated.
	StaleAfter time.Duration
	// GCGrace is how long an unreferenced entry survives before Sweep drops it.
	GCGrace time.Duration
	Metrics Metrics
}

// Store is the client-side query cache shared by every view of a session.
// Values are replaced wholesale and must be treated as immutable by readers.
type Store struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    Options
	metrics Metrics
	now     func() time.Time

	sf singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	epoch   uint64
	watches map[uint64]watch
	watchID uint64
}

type watch struct {
	prefix Key
	fn     func(Key)
}

type entry struct {
	key       Key
	value     any
	hasValue  bool
	fetchedAt time.Time
	stale     bool
	err       error

	// valueSeq is the sequence number of the fetch or write that produced
	// value; invalidSeq is the sequence number of the last invalidation.
	valueSeq   uint64
	invalidSeq uint64

	fetching int
	refs     int
	lastUsed time.Time
}

// New creates a Store whose fetches run on a context derived from parent.
// Cancelling parent (or calling Close) aborts in-flight requests.
func New(parent context.Context, opts Options) *Store {
	if parent == nil {
		parent = context.Background()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.GCGrace <= 0 {
		opts.GCGrace = defaultGCGrace
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	ctx, cancel := context.WithCancel(parent)
	return &Store{
		ctx:     ctx,
		cancel:  cancel,
		opts:    opts,
		metrics: metrics,
		now:     time.Now,
		entries: make(map[string]*entry),
		watches: make(map[uint64]watch),
	}
}

// Close aborts in-flight fetches. The store stays readable.
func (s *Store) Close() {
	s.cancel()
}

// Read returns the cached value for key when it is fresh. Otherwise it
// fetches, joining any request for key that is already in flight. On a
// fetch error the last known value is returned along with the error.
//
// Abandoning the wait through ctx does not cancel the request; its result is
// still stored.
func (s *Store) Read(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	s.mu.Lock()
	if e, ok := s.entries[key.id()]; ok {
		e.lastUsed = s.now()
		if s.freshLocked(e) {
			value := e.value
			s.mu.Unlock()
			s.metrics.Hit()
			return value, nil
		}
	}
	s.mu.Unlock()

	s.metrics.Miss()
	return s.fetchFresh(ctx, key, fetch)
}

// Refetch fetches key regardless of freshness. It is still deduplicated
// against an in-flight request, but a joined result that predates the
// latest invalidation is fetched again.
func (s *Store) Refetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	return s.fetchFresh(ctx, key, fetch)
}

// Peek returns the current entry without fetching.
func (s *Store) Peek(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.id()]
	if !ok {
		return Entry{Key: key.clone()}, false
	}
	e.lastUsed = s.now()
	return s.snapshotLocked(e), true
}

// Write replaces the value for key and marks it fresh.
func (s *Store) Write(key Key, value any) {
	s.mu.Lock()
	s.seq++
	e := s.entryLocked(key)
	e.value = value
	e.hasValue = true
	e.valueSeq = s.seq
	e.fetchedAt = s.now()
	e.stale = false
	e.err = nil
	fns := s.watchersLocked(key)
	s.mu.Unlock()
	notify(fns, key)
}

// Watch calls fn whenever a fetch or Write stores a value for a key under
// prefix. fn runs on the storing goroutine once the store is unlocked, and
// before the fetch returns to its callers. The returned func removes the
// watch.
func (s *Store) Watch(prefix Key, fn func(Key)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchID++
	id := s.watchID
	s.watches[id] = watch{prefix: prefix.clone(), fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watches, id)
	}
}

// Invalidate marks the given keys stale. It never fetches; stale values stay
// readable through Peek until a refresh replaces them.
func (s *Store) Invalidate(keys ...Key) int {
	s.mu.Lock()
	n := 0
	for _, key := range keys {
		if e, ok := s.entries[key.id()]; ok {
			s.markStaleLocked(e)
			n++
		}
	}
	s.mu.Unlock()
	s.metrics.Invalidate(n)
	return n
}

// InvalidatePrefix marks every key starting with prefix stale.
func (s *Store) InvalidatePrefix(prefix Key) int {
	s.mu.Lock()
	n := 0
	for _, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			s.markStaleLocked(e)
			n++
		}
	}
	s.mu.Unlock()
	s.metrics.Invalidate(n)
	return n
}

// Clear forgets every value, typically on sign-out. Fetches started before
// Clear complete but are not stored. Consumer references survive.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	for name, e := range s.entries {
		if e.refs == 0 {
			delete(s.entries, name)
			continue
		}
		s.entries[name] = &entry{key: e.key, refs: e.refs, lastUsed: e.lastUsed}
	}
}

// Acquire registers a consumer of key, protecting it from Sweep.
func (s *Store) Acquire(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(key)
	e.refs++
	e.lastUsed = s.now()
}

// Release drops a consumer registered with Acquire.
func (s *Store) Release(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key.id()]; ok && e.refs > 0 {
		e.refs--
		e.lastUsed = s.now()
	}
}

// Sweep drops entries nobody references that have not been used within the
// grace period. It returns the number of entries removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	n := 0
	for name, e := range s.entries {
		if e.refs > 0 || e.fetching > 0 {
			continue
		}
		if now.Sub(e.lastUsed) < s.opts.GCGrace {
			continue
		}
		delete(s.entries, name)
		n++
	}
	s.mu.Unlock()
	if n > 0 {
		s.metrics.Collect(n)
	}
	return n
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) fetchFresh(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	if fetch == nil {
		return nil, fmt.Errorf("query %s: no fetcher", key)
	}
	value, err := s.fetch(ctx, key, fetch)
	if err != nil || !s.staleSinceValue(key) {
		return value, err
	}
	// The joined request was issued before the latest invalidation.
	return s.fetch(ctx, key, fetch)
}

func (s *Store) fetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	name := key.id()

	s.mu.Lock()
	epoch := s.epoch
	if e, ok := s.entries[name]; ok && e.fetching > 0 {
		s.metrics.Join()
	}
	s.mu.Unlock()

	// Requests are shared within an epoch only. A read after Clear starts
	// its own request even while one from before Clear is still running,
	// since the older one can only end in ErrReset.
	ch := s.sf.DoChan(strconv.FormatUint(epoch, 10)+"|"+name, func() (any, error) {
		return s.load(key, epoch, fetch)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) load(key Key, epoch uint64, fetch Fetcher) (any, error) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil, ErrReset
	}
	s.seq++
	issued := s.seq
	e := s.entryLocked(key)
	e.fetching++
	e.lastUsed = s.now()
	s.mu.Unlock()

	s.metrics.Fetch()
	fctx, cancel := context.WithTimeout(s.ctx, s.opts.FetchTimeout)
	value, err := fetch(fctx)
	cancel()

	s.mu.Lock()
	e.fetching--
	if s.epoch != epoch {
		s.mu.Unlock()
		s.metrics.Drop()
		if err != nil {
			return nil, err
		}
		return nil, ErrReset
	}
	e = s.entryLocked(key)
	if err != nil {
		if issued > e.valueSeq {
			e.err = err
		}
		last := e.value
		s.mu.Unlock()
		return last, err
	}
	if issued < e.valueSeq {
		// A later fetch or write already landed; last issued wins.
		last := e.value
		s.mu.Unlock()
		s.metrics.Drop()
		return last, nil
	}
	e.value = value
	e.hasValue = true
	e.valueSeq = issued
	e.fetchedAt = s.now()
	e.err = nil
	e.stale = e.invalidSeq > issued
	fns := s.watchersLocked(key)
	s.mu.Unlock()
	notify(fns, key)
	return value, nil
}

func (s *Store) watchersLocked(key Key) []func(Key) {
	var fns []func(Key)
	for _, w := range s.watches {
		if key.HasPrefix(w.prefix) {
			fns = append(fns, w.fn)
		}
	}
	return fns
}

func notify(fns []func(Key), key Key) {
	for _, fn := range fns {
		fn(key)
	}
}

func (s *Store) staleSinceValue(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.id()]
	return ok && e.hasValue && e.invalidSeq > e.valueSeq
}

func (s *Store) freshLocked(e *entry) bool {
	if !e.hasValue || e.stale || e.err != nil {
		return false
	}
	if s.opts.StaleAfter > 0 && s.now().Sub(e.fetchedAt) >= s.opts.StaleAfter {
		return false
	}
	return true
}

func (s *Store) markStaleLocked(e *entry) {
	s.seq++
	e.invalidSeq = s.seq
	e.stale = true
}

func (s *Store) entryLocked(key Key) *entry {
	name := key.id()
	e, ok := s.entries[name]
	if !ok {
		e = &entry{key: key.clone(), lastUsed: s.now()}
		s.entries[name] = e
	}
	return e
}

func (s *Store) snapshotLocked(e *entry) Entry {
	stale := e.stale
	if !stale && e.hasValue && s.opts.StaleAfter > 0 && s.now().Sub(e.fetchedAt) >= s.opts.StaleAfter {
		stale = true
	}
	return Entry{
		Key:       e.key.clone(),
		Value:     e.value,
		HasValue:  e.hasValue,
		FetchedAt: e.fetchedAt,
		Stale:     stale,
		Err:       e.err,
		Fetching:  e.fetching > 0,
	}
}
