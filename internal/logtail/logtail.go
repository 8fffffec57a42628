package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-logfmt/logfmt"
)

// Read returns at most maxLines from the end of the file at path.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a level name to a Level; unknown names are info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "fatal":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBU"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERRO"
	default:
		return "INFO"
	}
}

// Field is one key=value pair after the message.
type Field struct {
	Key   string
	Value string
}

// Entry is a parsed logfmt line.
type Entry struct {
	Time    time.Time
	Level   Level
	Prefix  string
	Message string
	Fields  []Field
	Raw     string
}

// Parse decodes a logfmt line. Lines that are not logfmt come back as an
// info entry whose message is the raw text.
func Parse(line string) Entry {
	entry := Entry{Level: LevelInfo, Raw: line}
	dec := logfmt.NewDecoder(strings.NewReader(line))
	if !dec.ScanRecord() {
		entry.Message = line
		return entry
	}
	sawMsg := false
	for dec.ScanKeyval() {
		key, value := string(dec.Key()), string(dec.Value())
		switch key {
		case "time", "ts":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				entry.Time = t
			}
		case "level", "lvl":
			entry.Level = ParseLevel(value)
		case "prefix":
			entry.Prefix = value
		case "msg":
			entry.Message = value
			sawMsg = true
		default:
			entry.Fields = append(entry.Fields, Field{Key: key, Value: value})
		}
	}
	if dec.Err() != nil || !sawMsg {
		return Entry{Level: LevelInfo, Message: line, Raw: line}
	}
	return entry
}

// Filter selects entries for the activity view.
type Filter struct {
	MinLevel Level
	// Contains matches the message, prefix or any field value,
	// case-insensitively.
	Contains string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if e.Level < f.MinLevel {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(f.Contains))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Message), needle) || strings.Contains(strings.ToLower(e.Prefix), needle) {
		return true
	}
	for _, field := range e.Fields {
		if strings.Contains(strings.ToLower(field.Value), needle) {
			return true
		}
	}
	return false
}

// Tail reads the last maxLines of path, parses them and keeps those passing
// the filter, oldest first.
func Tail(path string, maxLines int, f Filter) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if e := Parse(line); f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
