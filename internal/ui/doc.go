// Package ui is the Bubble Tea front end of the Momento client.
//
// # Views
//
// Sign-in, home feed, explore (paged, with debounced search over captions
// or the photo library), notifications, messages, a conversation (member or
// assistant), post detail, library photo detail, profile, saved posts,
// admin and the activity log. Every view renders from the query cache; reads
// and mutations run as tea.Cmds so Update never blocks on the network.
//
// # Lifecycle
//
// Entering a view bumps the model's generation, stops the previous view's
// poll group synchronously and starts the new one:
//
//	notifications   notifications 5s, unread count 5s
//	messages        partners 5s, unread count 5s
//	conversation    thread 3s (assistant history for the assistant)
//
// Poll results, loads and mutation results carry the generation they were
// issued under; anything older than the current view is dropped. Poll loops
// and other background callbacks talk to the program through a buffered
// events channel and never block, so stopping a group from Update cannot
// deadlock. Session transitions use their own one-slot mailbox that keeps
// the newest state, so a busy events queue never hides an expiry.
//
// Regaining terminal focus refetches the current view and the header
// counters. A settled mutation re-reads the view; its invalidated keys go
// back to the network.
//
// # Session
//
// The model follows session transitions: an expired or ended session always
// returns to the sign-in form, a new one restores the last top-level view.
package ui
