// Package state holds the app-wide header state shared between the badge
// poller and the UI.
//
// # Overview
//
// The query cache owns per-view data. What is left over is global: the two
// unread badges, whether the API looks reachable, and the notices raised by
// failed actions. Store keeps that behind a single RWMutex:
//
//	Badge poller:                   UI:
//	┌────────────────────┐         ┌────────────────────┐
//	│ UnreadMessages()   │         │                    │
//	│ UnreadNotifs()     │         │                    │
//	│ store.Update()     │────────→│ store.Snapshot()   │
//	└────────────────────┘ (mutex) └────────────────────┘
//	Action runner:
//	┌────────────────────┐
//	│ store.Notify(text) │─────────→ notice bar, dismissed by the user
//	└────────────────────┘
//
// # Update Semantics
//
//	// Success: replace the badges
//	store.Update(&Badges{Messages: 4}, nil)
//	→ LastError = nil, ConsecutiveFailures = 0
//
//	// Error: keep the last badges, record the error
//	store.Update(nil, err)
//	→ Badges unchanged, ConsecutiveFailures++
//
// Two consecutive failures mark the snapshot offline (IsOffline). The UI
// keeps rendering the last counts with an offline marker.
//
// # Notices
//
// Notify appends a notice; at most five are kept and the oldest is dropped
// first. Dismiss removes one by id. Reset drops everything on sign-out.
//
// # Copying
//
// Snapshot returns a copy: the notice slice is cloned and LastError is
// wrapped in a new error value. The zero Store is ready to use.
package state
