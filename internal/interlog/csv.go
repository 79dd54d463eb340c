package interlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

var csvHeader = []string{"id", "customer_id", "timestamp", "channel", "utterance", "sentiment", "tone", "intent"}

// CSVStore keeps interaction records in a delimited text table. The header row
// is established when the store is opened against a new or empty file, before
// any append; existing content is never rewritten.
type CSVStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
}

func OpenCSV(path string) (*CSVStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open interaction log: %w", err)
	}
	s := &CSVStore{path: path, f: f, w: csv.NewWriter(f)}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat interaction log: %w", err)
	}
	if info.Size() == 0 {
		if err := s.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write interaction header: %w", err)
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush interaction header: %w", err)
		}
	}
	return s, nil
}

// NextID scans every existing id and returns max+1, or 1 for a log that holds
// no data rows. A non-numeric id fails with ErrMalformedLog.
func (s *CSVStore) NextID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("read interaction log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var max int64
	first := true
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read interaction log: %w", err)
		}
		line++
		if first {
			first = false
			continue
		}
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: non-numeric id %q at row %d", ErrMalformedLog, row[0], line)
		}
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

// Append writes one record row and flushes before returning. The timestamp is
// serialized as the wall-clock instant carried on the record.
func (s *CSVStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	row := []string{
		strconv.FormatInt(rec.ID, 10),
		strconv.FormatInt(rec.CustomerID, 10),
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Channel,
		rec.Utterance,
		rec.Sentiment,
		rec.Tone,
		rec.Intent,
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("append interaction record: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush interaction record: %w", err)
	}
	return nil
}

func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
