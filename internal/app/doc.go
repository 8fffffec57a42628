// Package app provides the orchestration layer for the Momento client.
//
// # Overview
//
// This package wires together configuration, logging, the query cache, the
// session and the UI. It is the composition root: every long-lived object is
// built here and handed to the packages that use it.
//
// # Architecture
//
//  1. Load config.toml (plus .env and MOMENTO_* overrides) and apply flags
//  2. Point the default charmbracelet logger at the log file
//  3. Connect: API client, query.Store, session, queries and action runner
//  4. Follow the session with the badge poller
//  5. Restore the session from the backend's cookie, if any
//  6. Start the cache sweeper and the optional /metrics endpoint
//  7. Run the TUI and block until the user exits or the context ends
//
// # Components
//
//   - app.go: Options, LoadConfig, Connect and Run
//   - poller.go: BadgePoller, the global unread counters
//   - metrics.go: Prometheus endpoint over the client's private registry
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> LoadConfig()       config file, env, flags
//	       ├─────> logging.Setup()    log file
//	       ├─────> Connect()          Client bundle
//	       ├─────> BadgePoller        unread counters -> state.Store
//	       ├─────> sweep()            drops unreferenced cache entries
//	       ├─────> ServeMetrics()     optional
//	       └─────> ui.Run()           blocks
//
// # Badge Polling
//
// The header shows unread message and notification counts on every view,
// so they are polled here rather than by the views. Polling starts when the
// session becomes SignedIn and stops on sign-out or expiry. Session changes
// can be triggered by a 401 inside one of the poller's own fetches, so the
// poll group is detached immediately and stopped on another goroutine;
// results from a detached group are ignored.
//
// # Error Handling
//
// Fatal (returned from Run): invalid configuration, log file errors, a
// metrics address that cannot be bound.
//
// Recoverable (logged): session restore failures, poll failures, failed
// mutations. Failed mutations also raise a notice in the header.
package app
