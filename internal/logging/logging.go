// Package logging configures the process-wide charmbracelet logger. The TUI
// owns the terminal, so records go to a file in logfmt for the activity view
// to tail.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options select where and how much to log.
type Options struct {
	// Path is the log file; empty logs to Writer.
	Path   string
	Level  string
	Debug  bool
	Writer io.Writer
}

// Setup builds the logger, installs it as the default and returns a closer
// for the underlying file.
func Setup(opts Options) (*log.Logger, func() error, error) {
	level, err := parseLevel(opts.Level, opts.Debug)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = opts.Writer
	closer := func() error { return nil }
	if strings.TrimSpace(opts.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
		closer = file.Close
	}
	if out == nil {
		out = os.Stderr
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.LogfmtFormatter,
	})
	log.SetDefault(logger)
	return logger, closer, nil
}

func parseLevel(name string, debug bool) (log.Level, error) {
	if debug {
		return log.DebugLevel, nil
	}
	if strings.TrimSpace(name) == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
