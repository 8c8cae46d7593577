// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrDuplicateEvent = errors.New("event already recorded")

// Aggregate types.
const (
	Book    = "book"
	User    = "user"
	Invoice = "invoice"
)

// Event types.
const (
	BookAdded      = "BookAdded"
	BookUpdated    = "BookUpdated"
	BookRemoved    = "BookRemoved"
	UserRegistered = "UserRegistered"
	UserRemoved    = "UserRemoved"
	InvoiceIssued  = "InvoiceIssued"
)

// Event is one recorded fact about an aggregate.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Type          string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// New builds an event for an entity id, encoding payload as its data.
func New(aggregateType string, id int64, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(id, 10),
		Type:          eventType,
		Data:          data,
		OccurredAt:    time.Now().UTC(),
	}, nil
}

// Journal records domain events. Callers treat append failures as non-fatal.
type Journal interface {
	Append(ctx context.Context, events ...Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Append(context.Context, ...Event) error { return nil }

// Memory keeps events in process, mostly for tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, events ...Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		for _, have := range m.events {
			if have.ID == e.ID {
				return ErrDuplicateEvent
			}
		}
	}
	m.events = append(m.events, events...)
	return nil
}

// Events returns a copy of everything appended so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Types lists the recorded event types in order.
func (m *Memory) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
