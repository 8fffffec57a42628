package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}
	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "zero", maxLines: 0, expected: nil},
		{name: "negative", maxLines: -1, expected: nil},
		{name: "read partial (5)", maxLines: 5, expected: expectedAll[5:]},
		{name: "read exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "read more than exists (20)", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read(missing) = %v, %v, want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		level   Level
		prefix  string
		message string
		fields  []Field
	}{
		{
			name:    "logfmt",
			line:    `time=2026-10-18T09:30:00Z level=warn prefix=actions msg="action failed" action=likePost err="api POST /posts/1/like returned status 404"`,
			level:   LevelWarn,
			prefix:  "actions",
			message: "action failed",
			fields: []Field{
				{Key: "action", Value: "likePost"},
				{Key: "err", Value: "api POST /posts/1/like returned status 404"},
			},
		},
		{
			name:    "debug without prefix",
			line:    `level=debug msg=poll key=unreadMessageCount`,
			level:   LevelDebug,
			message: "poll",
			fields:  []Field{{Key: "key", Value: "unreadMessageCount"}},
		},
		{
			name:    "plain text",
			line:    "panic: something went wrong",
			level:   LevelInfo,
			message: "panic: something went wrong",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Parse(tt.line)
			if e.Level != tt.level || e.Prefix != tt.prefix || e.Message != tt.message {
				t.Fatalf("Parse() = level %v prefix %q msg %q, want %v %q %q", e.Level, e.Prefix, e.Message, tt.level, tt.prefix, tt.message)
			}
			if !reflect.DeepEqual(e.Fields, tt.fields) {
				t.Fatalf("Parse().Fields = %#v, want %#v", e.Fields, tt.fields)
			}
			if e.Raw != tt.line {
				t.Fatalf("Parse().Raw = %q, want the input", e.Raw)
			}
		})
	}
	if e := Parse(`time=2026-10-18T09:30:00Z msg=x`); e.Time.IsZero() {
		t.Fatalf("Parse() did not read the timestamp")
	}
}

func TestFilter_Match(t *testing.T) {
	e := Entry{Level: LevelWarn, Prefix: "poll", Message: "refetch failed", Fields: []Field{{Key: "key", Value: "userConversation/alice"}}}
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"level below", Filter{MinLevel: LevelError}, false},
		{"level equal", Filter{MinLevel: LevelWarn}, true},
		{"message", Filter{Contains: "REFETCH"}, true},
		{"prefix", Filter{Contains: "poll"}, true},
		{"field value", Filter{Contains: "alice"}, true},
		{"no match", Filter{Contains: "bob"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(e); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTail_FiltersParsedLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "momento.log")
	content := strings.Join([]string{
		`level=debug msg="cache hit" key=currentUser`,
		`level=info msg="signed in" user=sam`,
		``,
		`level=error msg="action failed" action=sendMessage`,
	}, "\n")
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := Tail(logPath, 100, Filter{MinLevel: LevelInfo})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 2 || entries[0].Message != "signed in" || entries[1].Level != LevelError {
		t.Fatalf("Tail() = %+v", entries)
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]Level{"DEBUG": LevelDebug, "info": LevelInfo, "warning": LevelWarn, "error": LevelError, "": LevelInfo} {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}
