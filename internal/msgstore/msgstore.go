// Package msgstore provides a shared store for raw and normalized process output.
package msgstore

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxScanTokenSize is the maximum token size for the line scanner.
	// JSON events can be large (especially tool calls with big inputs).
	MaxScanTokenSize = 1024 * 1024

	// ScanBufferSize is the initial buffer size for the line scanner.
	ScanBufferSize = 64 * 1024
)

// subBufferSize is the per-subscriber channel capacity. A subscriber that
// falls further behind than this starts dropping records.
const subBufferSize = 256

// Kind classifies a record.
type Kind string

const (
	KindStdout     Kind = "stdout"
	KindStderr     Kind = "stderr"
	KindNormalized Kind = "normalized"
	KindFinished   Kind = "finished"
)

// NormalizedEntry is the tool-agnostic event shape produced by log
// normalization.
type NormalizedEntry struct {
	// Kind is the event kind: session_start, assistant_message, tool,
	// command, error.
	Kind string `json:"kind"`

	// Content is the human-readable payload.
	Content string `json:"content,omitempty"`

	// Tool is the tool name for tool events.
	Tool string `json:"tool,omitempty"`

	// SessionID carries the backend session identifier for session_start
	// events. Opaque; its format is owned by the underlying CLI.
	SessionID string `json:"session_id,omitempty"`
}

// Record is a single store entry.
type Record struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Timestamp time.Time        `json:"timestamp"`
	Line      string           `json:"line,omitempty"`
	Entry     *NormalizedEntry `json:"entry,omitempty"`
	ExitCode  int              `json:"exit_code,omitempty"`
}

// Store is an append-only record history with fan-out subscriptions.
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	history []Record
	subs    map[int]chan Record
	nextSub int
	closed  bool
	dropped int

	sessionID string
}

// New creates an empty store.
func New() *Store {
	return &Store{subs: map[int]chan Record{}}
}

// Push appends a record, assigning its id and timestamp.
func (s *Store) Push(rec Record) {
	rec.ID = uuid.NewString()
	rec.Timestamp = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if rec.Entry != nil && rec.Entry.SessionID != "" && s.sessionID == "" {
		s.sessionID = rec.Entry.SessionID
	}
	s.history = append(s.history, rec)
	for _, ch := range s.subs {
		select {
		case ch <- rec:
		default:
			// History keeps the record; only this subscriber misses it.
			s.dropped++
		}
	}
}

// PushStdout appends a raw stdout line.
func (s *Store) PushStdout(line string) {
	s.Push(Record{Kind: KindStdout, Line: line})
}

// PushStderr appends a raw stderr line.
func (s *Store) PushStderr(line string) {
	s.Push(Record{Kind: KindStderr, Line: line})
}

// PushNormalized appends a normalized entry.
func (s *Store) PushNormalized(entry NormalizedEntry) {
	s.Push(Record{Kind: KindNormalized, Entry: &entry})
}

// PushFinished records process exit and closes the store.
func (s *Store) PushFinished(exitCode int) {
	s.Push(Record{Kind: KindFinished, ExitCode: exitCode})
	s.Close()
}

// History returns a copy of all records pushed so far.
func (s *Store) History() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.history))
	copy(out, s.history)
	return out
}

// SessionID returns the first session identifier seen in a normalized
// entry, or "" if none was recorded yet.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Dropped reports how many record deliveries were skipped because a
// subscriber buffer was full. History is unaffected; a lossless reader
// uses History after the store closes.
func (s *Store) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Subscribe returns a channel receiving the full history followed by new
// records as they are pushed. The channel is closed when the store closes.
// Cancel must be called to release the subscription. A subscriber that
// falls more than subBufferSize records behind misses the overflow; see
// Dropped.
func (s *Store) Subscribe() (<-chan Record, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Record, subBufferSize+len(s.history))
	for _, rec := range s.history {
		ch <- rec
	}
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close marks the store closed and closes all subscriber channels.
// Pushes after Close are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Closed reports whether the store has been closed.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Stream scans stdout and stderr line by line into the store and blocks
// until both streams are drained.
func (s *Store) Stream(stdout, stderr io.Reader) {
	var wg sync.WaitGroup

	scan := func(r io.Reader, push func(string)) {
		defer wg.Done()
		if r == nil {
			return
		}
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, ScanBufferSize), MaxScanTokenSize)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			push(line)
		}
	}

	wg.Add(2)
	go scan(stdout, s.PushStdout)
	go scan(stderr, s.PushStderr)
	wg.Wait()
}
