package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Job lifecycle events published after successful mutations. Secondary
// consumers (metrics, audit log) subscribe; publishing never blocks or
// fails the mutation that produced the event.
const (
	EventJobCreated       = "job_created"
	EventPaymentCompleted = "payment_completed"
	EventJobDispatched    = "job_dispatched"
	EventSupplierInvoice  = "supplier_invoice"
	EventJobPurged        = "job_purged"
)

// JobEventPayload is the minimal job snapshot for event consumers.
type JobEventPayload struct {
	BookingID    string `json:"booking_id"`
	Rego         string `json:"rego,omitempty"`
	Status       string `json:"status"`
	SupplierName string `json:"supplier_name,omitempty"`
	PriceCents   int64  `json:"price,omitempty"`
	ChangedBy    string `json:"changed_by,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event. Nil-safe so
// services can run without a bus in tests.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
