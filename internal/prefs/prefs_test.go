package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string // empty means no file
		want    Prefs
		wantErr bool
	}{
		{"missing file", "", Default(), false},
		{"theme and view", "theme = \"Kanagawa\"\nlast_view = \"messages\"\n", Prefs{Theme: "Kanagawa", LastView: "messages"}, false},
		{"blank fields", "theme = \"  \"\n", Default(), false},
		{"malformed", "not valid toml {{{\n", Default(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			if tt.content != "" {
				writeFile(t, path, tt.content)
			}
			got, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Load = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad_DefaultPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".config", "momento", "prefs.toml"), "theme = \"Nightfox\"\n")

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Theme != "Nightfox" || p.LastView != defaultView {
		t.Fatalf("prefs = %+v", p)
	}
}

func TestSave_RoundTripsAndLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "prefs.toml")

	want := Prefs{Theme: "Kanagawa", LastView: "notifications"}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want only prefs.toml", len(entries))
	}
}

func TestSave_FillsBlankFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := Save(path, Prefs{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := Load(path)
	if got != Default() {
		t.Fatalf("Load = %+v, want defaults", got)
	}
}
