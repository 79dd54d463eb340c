package assist

import (
	"sync"
	"time"
)

type TurnEventType string

const (
	EventUserUtterance TurnEventType = "user_utterance"
	EventAssistantTurn TurnEventType = "assistant_turn"
	EventCallEnded     TurnEventType = "call_ended"
	EventTurnFailed    TurnEventType = "turn_failed"
)

// TurnEvent is pushed to UI subscribers as each turn progresses.
type TurnEvent struct {
	Type             TurnEventType `json:"type"`
	TurnID           string        `json:"turn_id"`
	Utterance        string        `json:"utterance,omitempty"`
	AIResponse       string        `json:"ai_response,omitempty"`
	Sentiment        string        `json:"sentiment,omitempty"`
	RecommendedTerms string        `json:"recommended_terms,omitempty"`
	NegotiationTips  string        `json:"negotiation_tips,omitempty"`
	Stage            string        `json:"stage,omitempty"`
	Detail           string        `json:"detail,omitempty"`
	TS               time.Time     `json:"ts"`
}

// Hub fans turn events out to any number of subscribers. Slow subscribers
// drop events rather than stalling the pipeline.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan TurnEvent
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan TurnEvent)}
}

func (h *Hub) Subscribe() (<-chan TurnEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan TurnEvent, 32)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *Hub) Publish(evt TurnEvent) {
	if evt.TS.IsZero() {
		evt.TS = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
