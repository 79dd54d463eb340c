// Package convlog persists one call's transcript as an append-only CSV table.
package convlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Speaker identifies who produced a transcript row.
type Speaker string

const (
	SpeakerUser Speaker = "User"
	SpeakerAI   Speaker = "AI"
)

// Entry is one ordered transcript row. Insertion order is conversation order.
type Entry struct {
	Speaker Speaker `json:"speaker"`
	Message string  `json:"message"`
}

var header = []string{"Speaker", "Message"}

// Store owns the conversation log file for the current call session. It is the
// only writer; Reset starts a new session and destroys the prior transcript,
// so any post-call summary must be derived before the next Reset.
type Store struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
}

// Open attaches a store to path without touching existing content. The file is
// created empty if missing; Reset establishes the header for a new session.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open conversation log: %w", err)
	}
	return &Store{path: path, f: f, w: csv.NewWriter(f)}, nil
}

// Reset truncates the log and rewrites the fixed header row. Calling it twice
// in a row leaves a store containing only the header.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.f.Close(); err != nil {
		return fmt.Errorf("reset conversation log: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("reset conversation log: %w", err)
	}
	s.f = f
	s.w = csv.NewWriter(f)
	if err := s.w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}
	return nil
}

// Append writes one row and flushes it to the file before returning, so the
// caller may assume the row survives a crash immediately after the call.
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Write([]string{string(e.Speaker), e.Message}); err != nil {
		return fmt.Errorf("append conversation entry: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush conversation entry: %w", err)
	}
	return nil
}

// ReadAll returns the logged entries in file order, skipping the header.
// Rows with an unexpected column count are skipped rather than surfaced:
// the transcript readback feeds a best-effort summary, and one damaged row
// should not abort it.
func (s *Store) ReadAll() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("read conversation log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var entries []Entry
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Damaged row; keep whatever else parses.
			continue
		}
		if first {
			first = false
			continue
		}
		if len(row) != 2 {
			continue
		}
		entries = append(entries, Entry{Speaker: Speaker(row[0]), Message: row[1]})
	}
	return entries, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Flatten joins entries as "Speaker: Message" separated by single spaces, in
// order. Pure formatting; no I/O.
func Flatten(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Speaker, e.Message))
	}
	return strings.Join(parts, " ")
}
