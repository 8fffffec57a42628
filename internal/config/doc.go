// Package config loads the Momento client configuration.
//
// # Resolution
//
//  1. Start from Default()
//  2. Merge ~/.config/momento/config.toml (or the --config path) when present
//  3. Apply the .env file next to the config file
//  4. Apply MOMENTO_API_URL, MOMENTO_LOG_FILE and MOMENTO_LOG_LEVEL from the
//     process environment
//
// Empty or non-positive values in the file keep their defaults. A malformed
// file is an error ("parse config: ..."), as is an api_url that is not an
// absolute http(s) URL.
//
// # Example
//
//	api_url = "http://localhost:4000/api"
//	log_file = "~/.local/state/momento/momento.log"
//	page_size = 10
//	search_debounce_ms = 500
//	requests_per_second = 20
//
//	[poll]
//	conversation_ms = 3000
//	partners_ms = 5000
//	unread_ms = 5000
//	notifications_ms = 5000
package config
