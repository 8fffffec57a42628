package state

import (
	"fmt"
	"sync"
	"time"
)

// maxNotices bounds the notice list; the oldest is dropped first.
const maxNotices = 5

// Badges are the global unread counters shown in the header.
type Badges struct {
	Messages      int
	Notifications int
}

// Total is the sum of both counters.
func (b Badges) Total() int { return b.Messages + b.Notifications }

// Notice is a dismissible message for the user, usually a failed action.
type Notice struct {
	ID   int
	Text string
	At   time.Time
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Badges              Badges
	HasBadges           bool
	Notices             []Notice
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive badge poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	nextID   int
}

// Update replaces the badge counters. When err is non-nil the previous
// counters are kept but the error is recorded for visibility.
func (s *Store) Update(badges *Badges, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if badges != nil {
		s.snapshot.Badges = *badges
		s.snapshot.HasBadges = true
	} else {
		s.snapshot.Badges = Badges{}
		s.snapshot.HasBadges = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Notify appends a notice and returns its id.
func (s *Store) Notify(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.snapshot.Notices = append(s.snapshot.Notices, Notice{ID: s.nextID, Text: text, At: time.Now()})
	if over := len(s.snapshot.Notices) - maxNotices; over > 0 {
		s.snapshot.Notices = append([]Notice(nil), s.snapshot.Notices[over:]...)
	}
	return s.nextID
}

// Dismiss removes the notice with id. Unknown ids are ignored.
func (s *Store) Dismiss(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.snapshot.Notices[:0]
	for _, n := range s.snapshot.Notices {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.snapshot.Notices = kept
}

// Reset drops everything, used when the session ends.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Snapshot{}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Notices = cloneNotices(s.snapshot.Notices)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneNotices(items []Notice) []Notice {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Notice, len(items))
	copy(dup, items)
	return dup
}
