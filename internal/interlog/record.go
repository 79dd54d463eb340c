// Package interlog persists the structured per-turn interaction records that
// accumulate across call sessions.
package interlog

import (
	"context"
	"errors"
	"time"
)

// Channel is the fixed channel label for records produced by the voice pipeline.
const Channel = "call"

// ErrMalformedLog reports a non-numeric id field in the interaction log. A
// corrupted id breaks the monotonicity invariant, so it is surfaced rather
// than skipped.
var ErrMalformedLog = errors.New("interaction log malformed")

// Record is one ordinary turn's analysis, append-only and never mutated.
type Record struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Timestamp  time.Time `json:"timestamp"`
	Channel    string    `json:"channel"`
	Utterance  string    `json:"utterance"`
	Sentiment  string    `json:"sentiment"`
	Tone       string    `json:"tone"`
	Intent     string    `json:"intent"`
}

// Store is an append-only interaction log. Ids returned by NextID are strictly
// increasing for the lifetime of the log; gaps are tolerated, reuse is not.
type Store interface {
	NextID(ctx context.Context) (int64, error)
	Append(ctx context.Context, rec Record) error
	Close() error
}
