// Package msgstore tests for history, subscriptions and stream scanning.
package msgstore

import (
	"strings"
	"testing"
)

// TestPushAndHistory tests record accumulation and id assignment.
func TestPushAndHistory(t *testing.T) {
	store := New()
	store.PushStdout("line one")
	store.PushStderr("line two")

	history := store.History()
	if len(history) != 2 {
		t.Fatalf("History() length = %d, want 2", len(history))
	}
	if history[0].Kind != KindStdout || history[0].Line != "line one" {
		t.Errorf("first record = %+v", history[0])
	}
	if history[1].Kind != KindStderr || history[1].Line != "line two" {
		t.Errorf("second record = %+v", history[1])
	}
	if history[0].ID == "" || history[0].ID == history[1].ID {
		t.Error("records missing unique ids")
	}
	if history[0].Timestamp.IsZero() {
		t.Error("record timestamp not assigned")
	}
}

// TestSubscribeReplaysHistory tests that a late subscriber sees earlier
// records before live ones.
func TestSubscribeReplaysHistory(t *testing.T) {
	store := New()
	store.PushStdout("early")

	records, cancel := store.Subscribe()
	defer cancel()

	store.PushStdout("late")
	store.Close()

	var lines []string
	for rec := range records {
		lines = append(lines, rec.Line)
	}
	want := []string{"early", "late"}
	if len(lines) != len(want) || lines[0] != want[0] || lines[1] != want[1] {
		t.Errorf("subscriber saw %v, want %v", lines, want)
	}
}

// TestSubscribeAfterClose tests that a subscription on a closed store
// still replays history and terminates.
func TestSubscribeAfterClose(t *testing.T) {
	store := New()
	store.PushStdout("only")
	store.Close()

	records, cancel := store.Subscribe()
	defer cancel()

	count := 0
	for range records {
		count++
	}
	if count != 1 {
		t.Errorf("replayed records = %d, want 1", count)
	}
}

// TestPushFinishedClosesStore tests exit recording and store shutdown.
func TestPushFinishedClosesStore(t *testing.T) {
	store := New()
	records, cancel := store.Subscribe()
	defer cancel()

	store.PushFinished(2)

	var finished *Record
	for rec := range records {
		if rec.Kind == KindFinished {
			r := rec
			finished = &r
		}
	}
	if finished == nil || finished.ExitCode != 2 {
		t.Fatalf("finished record = %+v, want exit code 2", finished)
	}
	if !store.Closed() {
		t.Error("store not closed after PushFinished")
	}

	store.PushStdout("dropped")
	if len(store.History()) != 1 {
		t.Error("push after close was not dropped")
	}
}

// TestSessionIDFirstWins tests that only the first session id sticks.
func TestSessionIDFirstWins(t *testing.T) {
	store := New()
	store.PushNormalized(NormalizedEntry{Kind: "session_start", SessionID: "first"})
	store.PushNormalized(NormalizedEntry{Kind: "session_start", SessionID: "second"})

	if got := store.SessionID(); got != "first" {
		t.Errorf("SessionID() = %q, want %q", got, "first")
	}
}

// TestDroppedCountsOverflow tests that a backlogged subscriber loses the
// overflow while history and the drop counter account for it.
func TestDroppedCountsOverflow(t *testing.T) {
	store := New()
	records, cancel := store.Subscribe()
	defer cancel()

	const pushes = 300
	for i := 0; i < pushes; i++ {
		store.PushStdout("line")
	}

	overflow := pushes - cap(records)
	if overflow <= 0 {
		t.Fatalf("test needs more pushes than the buffer holds, cap = %d", cap(records))
	}
	if got := store.Dropped(); got != overflow {
		t.Errorf("Dropped() = %d, want %d", got, overflow)
	}
	if len(store.History()) != pushes {
		t.Errorf("History() length = %d, want %d", len(store.History()), pushes)
	}
}

// TestStream tests line scanning from both process streams.
func TestStream(t *testing.T) {
	store := New()
	stdout := strings.NewReader("alpha\n\n  \nbeta\n")
	stderr := strings.NewReader("oops\n")

	store.Stream(stdout, stderr)

	var outLines, errLines []string
	for _, rec := range store.History() {
		switch rec.Kind {
		case KindStdout:
			outLines = append(outLines, rec.Line)
		case KindStderr:
			errLines = append(errLines, rec.Line)
		}
	}
	if len(outLines) != 2 {
		t.Errorf("stdout lines = %v, want blank lines skipped", outLines)
	}
	if len(errLines) != 1 || errLines[0] != "oops" {
		t.Errorf("stderr lines = %v, want [oops]", errLines)
	}
}

// TestStreamNilReader tests that a missing stream is tolerated.
func TestStreamNilReader(t *testing.T) {
	store := New()
	store.Stream(strings.NewReader("solo\n"), nil)
	if len(store.History()) != 1 {
		t.Errorf("history length = %d, want 1", len(store.History()))
	}
}
