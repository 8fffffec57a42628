package query

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingFetcher struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	release  chan struct{}
	value    atomic.Value
}

func newCountingFetcher(value any) *countingFetcher {
	f := &countingFetcher{}
	f.value.Store(value)
	return f
}

func (f *countingFetcher) fetch(ctx context.Context) (any, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.value.Load(), nil
}

func TestStore_ReadDeduplicatesConcurrentFetches(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	f := newCountingFetcher("alice")
	f.release = make(chan struct{})
	key := K("user", "alice")

	const readers = 50
	var wg sync.WaitGroup
	results := make(chan any, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Read(context.Background(), key, f.fetch)
			if err != nil {
				t.Errorf("Read returned error: %v", err)
			}
			results <- v
		}()
	}

	// Let the readers pile up on the single in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()
	close(results)

	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
	if got := f.maxSeen.Load(); got != 1 {
		t.Fatalf("max concurrent fetches = %d, want 1", got)
	}
	for v := range results {
		if v != "alice" {
			t.Fatalf("Read value = %v, want alice", v)
		}
	}
}

func TestStore_ReadServesFreshValueWithoutFetching(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	f := newCountingFetcher(3)
	key := K("unreadMessageCount")
	for i := 0; i < 5; i++ {
		if _, err := s.Read(context.Background(), key, f.fetch); err != nil {
			t.Fatalf("Read returned error: %v", err)
		}
	}
	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestStore_InvalidateMarksStaleWithoutFetching(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	f := newCountingFetcher("v1")
	key := K("post", "p1")
	if _, err := s.Read(context.Background(), key, f.fetch); err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	if n := s.Invalidate(key, K("never-read")); n != 1 {
		t.Fatalf("Invalidate = %d, want 1 existing entry", n)
	}
	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls after Invalidate = %d, want 1", got)
	}

	entry, ok := s.Peek(key)
	if !ok || !entry.Stale || entry.Value != "v1" {
		t.Fatalf("Peek = %#v, want stale v1 still visible", entry)
	}

	f.value.Store("v2")
	v, err := s.Read(context.Background(), key, f.fetch)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if v != "v2" || f.calls.Load() != 2 {
		t.Fatalf("Read = %v after %d calls, want v2 after 2", v, f.calls.Load())
	}
	if entry, _ := s.Peek(key); entry.Stale {
		t.Fatalf("entry still stale after refresh")
	}
}

func TestStore_InvalidatePrefixIsElementWise(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	s.Write(K("following", "u1"), 1)
	s.Write(K("following", "u2"), 2)
	s.Write(K("followingX"), 3)

	if n := s.InvalidatePrefix(K("following")); n != 2 {
		t.Fatalf("InvalidatePrefix = %d, want 2", n)
	}
	if e, _ := s.Peek(K("followingX")); e.Stale {
		t.Fatalf("followingX should not match prefix following")
	}
}

func TestStore_FetchErrorKeepsLastKnownValue(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	key := K("notifications")
	s.Write(key, []string{"n1"})
	s.Invalidate(key)

	boom := errors.New("boom")
	v, err := s.Read(context.Background(), key, func(context.Context) (any, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Read error = %v, want boom", err)
	}
	got, ok := v.([]string)
	if !ok || len(got) != 1 || got[0] != "n1" {
		t.Fatalf("Read value = %#v, want last known [n1]", v)
	}

	entry, _ := s.Peek(key)
	if entry.Err == nil || entry.Fresh() {
		t.Fatalf("entry = %#v, want error recorded and not fresh", entry)
	}
}

func TestStore_CallerCancelDoesNotCancelFetch(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	f := newCountingFetcher("late")
	f.release = make(chan struct{})
	key := K("userConversation", "bob")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Read(ctx, key, f.fetch)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Read error = %v, want context.Canceled", err)
	}

	close(f.release)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if v, _, ok := Cached[string](s, key); ok {
			if v != "late" {
				t.Fatalf("cached = %q, want late", v)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("abandoned fetch result was never stored")
}

func TestStore_WriteDuringFetchWins(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	f := newCountingFetcher("from-server")
	f.release = make(chan struct{})
	key := K("post", "p1")

	done := make(chan any, 1)
	go func() {
		v, _ := s.Refetch(context.Background(), key, f.fetch)
		done <- v
	}()
	time.Sleep(20 * time.Millisecond)
	s.Write(key, "written-later")
	close(f.release)
	<-done

	v, _, _ := Cached[string](s, key)
	if v != "written-later" {
		t.Fatalf("cached = %q, want written-later (last issued wins)", v)
	}
}

func TestStore_RefetchAfterInvalidationDuringFlight(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		if n == 1 {
			<-release
			return "before", nil
		}
		return "after", nil
	}
	key := K("conversationPartners")

	first := make(chan any, 1)
	go func() {
		v, _ := s.Refetch(context.Background(), key, fetch)
		first <- v
	}()
	time.Sleep(20 * time.Millisecond)
	s.Invalidate(key)

	second := make(chan any, 1)
	go func() {
		v, _ := s.Refetch(context.Background(), key, fetch)
		second <- v
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	if v := <-second; v != "after" {
		t.Fatalf("Refetch after invalidation = %v, want after", v)
	}
	<-first
	if e, _ := s.Peek(key); e.Stale || e.Value != "after" {
		t.Fatalf("entry = %#v, want fresh after", e)
	}
}

func TestStore_ClearDropsInFlightResults(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	f := newCountingFetcher("old-session")
	f.release = make(chan struct{})
	key := K("currentUser")
	s.Acquire(key)

	done := make(chan error, 1)
	go func() {
		_, err := s.Refetch(context.Background(), key, f.fetch)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	s.Clear()
	close(f.release)
	if err := <-done; !errors.Is(err, ErrReset) {
		t.Fatalf("Refetch error = %v, want ErrReset", err)
	}
	if _, _, ok := Cached[string](s, key); ok {
		t.Fatalf("value from before Clear was stored")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want referenced key kept", s.Len())
	}
}

func TestStore_ReadAfterClearStartsOwnRequest(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	old := newCountingFetcher("old-session")
	old.release = make(chan struct{})
	key := K("currentUser")

	done := make(chan error, 1)
	go func() {
		_, err := s.Read(context.Background(), key, old.fetch)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	s.Clear()

	fresh := newCountingFetcher("new-session")
	got, err := s.Read(context.Background(), key, fresh.fetch)
	if err != nil || got != "new-session" {
		t.Fatalf("Read after Clear = %v, %v, want new-session", got, err)
	}
	if fresh.calls.Load() != 1 {
		t.Fatalf("read after Clear joined the earlier request")
	}

	close(old.release)
	if err := <-done; !errors.Is(err, ErrReset) {
		t.Fatalf("earlier Read error = %v, want ErrReset", err)
	}
	if v, _, _ := Cached[string](s, key); v != "new-session" {
		t.Fatalf("cached = %q, want new-session", v)
	}
}

func TestStore_WatchSeesFetchesAndWrites(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	var mu sync.Mutex
	var seen []string
	cancel := s.Watch(K("unreadMessageCount"), func(k Key) {
		// Runs before the fetch returns, so the value is already readable.
		v, _, _ := Cached[int](s, k)
		mu.Lock()
		seen = append(seen, k.String()+"="+strconv.Itoa(v))
		mu.Unlock()
	})

	key := K("unreadMessageCount")
	if _, err := s.Refetch(context.Background(), key, newCountingFetcher(3).fetch); err != nil {
		t.Fatalf("Refetch: %v", err)
	}
	s.Write(key, 0)
	s.Write(K("notifications"), 1)

	mu.Lock()
	got := append([]string(nil), seen...)
	mu.Unlock()
	if len(got) != 2 || got[0] != "unreadMessageCount=3" || got[1] != "unreadMessageCount=0" {
		t.Fatalf("watch saw %v", got)
	}

	cancel()
	s.Write(key, 5)
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("watch fired after cancel: %v", seen)
	}
}

func TestStore_WatchSkipsDroppedResults(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	f := newCountingFetcher("old-session")
	f.release = make(chan struct{})
	key := K("currentUser")
	var fired atomic.Int32
	s.Watch(key, func(Key) { fired.Add(1) })

	done := make(chan error, 1)
	go func() {
		_, err := s.Refetch(context.Background(), key, f.fetch)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	s.Clear()
	close(f.release)
	<-done
	if fired.Load() != 0 {
		t.Fatalf("watch fired for a result dropped by Clear")
	}
}

func TestStore_SweepCollectsUnreferencedEntries(t *testing.T) {
	s := New(context.Background(), Options{GCGrace: time.Minute})
	t.Cleanup(s.Close)

	held := K("chatHistory")
	s.Acquire(held)
	s.Write(held, "h")
	s.Write(K("post", "p1"), "p")

	if n := s.Sweep(time.Now()); n != 0 {
		t.Fatalf("Sweep inside grace = %d, want 0", n)
	}
	if n := s.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("Sweep after grace = %d, want 1", n)
	}
	s.Release(held)
	if n := s.Sweep(time.Now().Add(4 * time.Minute)); n != 1 {
		t.Fatalf("Sweep after release = %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestStore_StaleAfterAgesValues(t *testing.T) {
	s := New(context.Background(), Options{StaleAfter: time.Minute})
	t.Cleanup(s.Close)

	now := time.Now()
	s.now = func() time.Time { return now }
	f := newCountingFetcher(1)
	key := K("users")
	_, _ = s.Read(context.Background(), key, f.fetch)

	now = now.Add(2 * time.Minute)
	if e, _ := s.Peek(key); !e.Stale {
		t.Fatalf("entry not stale after StaleAfter")
	}
	_, _ = s.Read(context.Background(), key, f.fetch)
	if got := f.calls.Load(); got != 2 {
		t.Fatalf("fetch calls = %d, want 2", got)
	}
}

func TestKey_StringAndPrefix(t *testing.T) {
	k := K("userConversation", "u1")
	if k.String() != "userConversation/u1" {
		t.Fatalf("String = %q", k.String())
	}
	if !k.HasPrefix(K("userConversation")) || k.HasPrefix(K("userConversation", "u2")) {
		t.Fatalf("HasPrefix mismatch for %v", k)
	}
	if K("a").HasPrefix(K("a", "b")) {
		t.Fatalf("longer prefix must not match")
	}
}

func TestKey_SlashInElementKeepsKeysApart(t *testing.T) {
	s := New(context.Background(), Options{})
	t.Cleanup(s.Close)

	joined, split := K("post", "a/b"), K("post", "a", "b")
	s.Write(joined, "joined")
	s.Write(split, "split")
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2 distinct entries", s.Len())
	}
	if v, _, _ := Cached[string](s, joined); v != "joined" {
		t.Fatalf("%v = %q, want joined", joined, v)
	}
	if n := s.Invalidate(split); n != 1 {
		t.Fatalf("Invalidate = %d, want 1", n)
	}
	if e, _ := s.Peek(joined); e.Stale {
		t.Fatalf("invalidating %v marked %v stale", split, joined)
	}
}
