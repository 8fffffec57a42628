package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestDebouncer_TypingIssuesOneSearch(t *testing.T) {
	rec := &recorder{}
	d := New(100*time.Millisecond, rec.record)
	defer d.Stop()

	for _, term := range []string{"c", "ca", "cat"} {
		d.Push(term)
		time.Sleep(30 * time.Millisecond)
	}
	time.Sleep(250 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "cat" {
		t.Fatalf("calls = %v, want [cat]", got)
	}
}

func TestDebouncer_SeparatedPushesFireEach(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.record)
	defer d.Stop()

	d.Push("dog")
	time.Sleep(80 * time.Millisecond)
	d.Push("dogs")
	time.Sleep(80 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 2 || got[0] != "dog" || got[1] != "dogs" {
		t.Fatalf("calls = %v, want [dog dogs]", got)
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.record)
	d.Push("cat")
	d.Stop()
	d.Push("cats")
	time.Sleep(60 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("calls after Stop = %v, want none", got)
	}
}

func TestDebouncer_FlushDeliversImmediately(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, rec.record)
	defer d.Stop()
	d.Push("cat")
	d.Flush()
	if got := rec.snapshot(); len(got) != 1 || got[0] != "cat" {
		t.Fatalf("calls after Flush = %v, want [cat]", got)
	}
	d.Flush()
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("second Flush delivered again: %v", got)
	}
}

func TestNew_DefaultDelay(t *testing.T) {
	d := New(0, func(string) {})
	if d.delay != DefaultDelay || DefaultDelay != 500*time.Millisecond {
		t.Fatalf("delay = %v, want 500ms", d.delay)
	}
}
