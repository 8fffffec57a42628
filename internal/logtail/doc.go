// Package logtail reads the tail of the client's log file for the activity
// view.
//
// # Reading
//
// Read keeps a ring buffer of maxLines while scanning the file once, so
// memory stays O(maxLines) however large the log grows. A missing file
// returns nil, nil.
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//
// # Parsing
//
// The logger writes logfmt. Parse decodes a line with go-logfmt into an
// Entry; the well-known keys (time, level, prefix, msg) become fields of the
// Entry and everything else is kept in order as Fields:
//
//	time=2026-10-18T09:30:00Z level=warn prefix=actions msg="action failed" action=likePost
//
// Lines that are not logfmt (a panic trace, for example) are kept as info
// entries with the raw text as message.
//
// # Filtering
//
// Filter drops entries below MinLevel and, when Contains is set, entries
// whose message, prefix and field values all miss the needle. Tail combines
// Read, Parse and Filter.
package logtail
