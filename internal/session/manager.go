package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNoCall     = errors.New("no active call")
	ErrCallActive = errors.New("a call is already active")
)

// Call is one call session: the span from transcript reset to the terminal
// turn (or a forced end).
type Call struct {
	ID             string    `json:"call_id"`
	CustomerID     int64     `json:"customer_id"`
	Status         Status    `json:"status"`
	TurnCount      int       `json:"turn_count"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Manager tracks the single active call session. The turn pipeline depends on
// the immediately preceding turn's logged state, so at most one call may be
// active at a time.
type Manager struct {
	mu                sync.RWMutex
	current           *Call
	inactivityTimeout time.Duration
	onExpire          func(*Call)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 5 * time.Minute
	}
	return &Manager{inactivityTimeout: inactivityTimeout}
}

func (m *Manager) SetExpireHook(hook func(*Call)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Begin starts a new call session. It fails with ErrCallActive while another
// call is in progress.
func (m *Manager) Begin(customerID int64) (*Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Status == StatusActive {
		return nil, ErrCallActive
	}
	now := time.Now().UTC()
	m.current = &Call{
		ID:             uuid.NewString(),
		CustomerID:     customerID,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}
	return clone(m.current), nil
}

// Current returns the active call, or ErrNoCall.
func (m *Manager) Current() (*Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.Status != StatusActive {
		return nil, ErrNoCall
	}
	return clone(m.current), nil
}

// RecordTurn bumps the turn counter and activity clock of the active call.
func (m *Manager) RecordTurn() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.Status != StatusActive {
		return ErrNoCall
	}
	m.current.TurnCount++
	m.current.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) Touch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.Status != StatusActive {
		return ErrNoCall
	}
	m.current.LastActivityAt = time.Now().UTC()
	return nil
}

// End marks the active call ended and returns its final state.
func (m *Manager) End() (*Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.Status != StatusActive {
		return nil, ErrNoCall
	}
	m.current.Status = StatusEnded
	m.current.LastActivityAt = time.Now().UTC()
	return clone(m.current), nil
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current != nil && m.current.Status == StatusActive {
		return 1
	}
	return 0
}

// StartJanitor ends abandoned calls after the inactivity timeout.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()

	m.mu.Lock()
	var expired *Call
	if m.current != nil && m.current.Status == StatusActive &&
		now.Sub(m.current.LastActivityAt) >= m.inactivityTimeout {
		m.current.Status = StatusEnded
		m.current.LastActivityAt = now
		expired = clone(m.current)
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil && expired != nil {
		hook(expired)
	}
}

func clone(c *Call) *Call {
	out := *c
	return &out
}
