// Package logging tests for transcript files and slug generation.
package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/nibzard/agentmux/internal/msgstore"
)

// TestSlugify tests filesystem-safe project names.
func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"my-project", "my-project"},
		{"my project!", "my_project"},
		{"   ", "project"},
		{"///", "project"},
		{"v1.2_final", "v1.2_final"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := slugify(tt.input); got != tt.want {
				t.Errorf("slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestProjectSlug tests that distinct paths with the same base name get
// distinct slugs.
func TestProjectSlug(t *testing.T) {
	a := projectSlug("/home/a/repo")
	b := projectSlug("/home/b/repo")
	if a == b {
		t.Errorf("projectSlug collision: %q", a)
	}
	if !strings.HasPrefix(a, "repo-") {
		t.Errorf("projectSlug = %q, want repo- prefix", a)
	}
}

// TestRunLoggerTranscript tests writing store records as JSONL.
func TestRunLoggerTranscript(t *testing.T) {
	base := t.TempDir()
	logger, err := NewRunLogger(base, t.TempDir())
	if err != nil {
		t.Fatalf("NewRunLogger() error = %v", err)
	}
	defer logger.Close()

	store := msgstore.New()
	done := logger.Attach(store)

	store.PushStdout(`{"type":"assistant"}`)
	store.PushFinished(0)
	<-done

	file, err := os.Open(logger.LogPath)
	if err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	defer file.Close()

	var kinds []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec msgstore.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("transcript line is not JSON: %v", err)
		}
		kinds = append(kinds, string(rec.Kind))
	}
	if len(kinds) != 2 || kinds[0] != "stdout" || kinds[1] != "finished" {
		t.Errorf("transcript kinds = %v, want [stdout finished]", kinds)
	}
}

// TestNewRunLoggerEmptyBase tests rejection of an empty base directory.
func TestNewRunLoggerEmptyBase(t *testing.T) {
	if _, err := NewRunLogger("", "."); err == nil {
		t.Error("NewRunLogger(\"\") succeeded, want error")
	}
}
