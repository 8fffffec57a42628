package ui

import "time"

// LayoutCompactWidth is the width below which the header abbreviates.
const LayoutCompactWidth = 100

// Activity log limits.
const (
	// LogReadLimit is the number of log lines read per refresh.
	LogReadLimit = 2000

	// LogRefreshInterval is how often the activity view re-reads the log
	// while following.
	LogRefreshInterval = 2 * time.Second
)

// Timing constants.
const (
	// CommandTimeout bounds reads issued from the UI.
	CommandTimeout = 15 * time.Second

	// DefaultUIInterval is the header refresh interval.
	DefaultUIInterval = time.Second
)
