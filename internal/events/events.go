package events

import (
	"context"
	"sync"
	"time"

	"deal-stats-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventDealCreated is emitted when a deal is created
	EventDealCreated EventType = "deal.created"
	// EventDealExpiryUpdated is emitted when a deal's expiry date changes
	EventDealExpiryUpdated EventType = "deal.expiry_updated"
	// EventStatsComputed is emitted after an aggregation run completes
	EventStatsComputed EventType = "stats.computed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// DealCreatedData contains data for deal created events.
type DealCreatedData struct {
	Deal models.Deal
}

// DealExpiryUpdatedData contains data for deal expiry updated events.
type DealExpiryUpdatedData struct {
	Deal models.Deal
}

// StatsComputedData contains data for stats computed events.
type StatsComputedData struct {
	Date       time.Time
	Customers  int
	Failed     int
	ComputedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Handlers run asynchronously so publishing never blocks a request or an
	// aggregation run.
	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				_ = err
			}
		}(handler)
	}
}

// PublishDealCreated publishes a deal created event.
func (m *Manager) PublishDealCreated(ctx context.Context, deal models.Deal) {
	m.Publish(ctx, EventDealCreated, DealCreatedData{Deal: deal})
}

// PublishDealExpiryUpdated publishes a deal expiry updated event.
func (m *Manager) PublishDealExpiryUpdated(ctx context.Context, deal models.Deal) {
	m.Publish(ctx, EventDealExpiryUpdated, DealExpiryUpdatedData{Deal: deal})
}

// PublishStatsComputed publishes a stats computed event.
func (m *Manager) PublishStatsComputed(ctx context.Context, date time.Time, customers, failed int) {
	m.Publish(ctx, EventStatsComputed, StatsComputedData{
		Date:       date,
		Customers:  customers,
		Failed:     failed,
		ComputedAt: time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
