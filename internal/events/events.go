package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventSnapshotReloaded       = "snapshot_reloaded"
	EventSlotSaved              = "slot_saved"
	EventSlotDeleted            = "slot_deleted"
	EventPackageSaved           = "package_saved"
	EventPackageDeleted         = "package_deleted"
	EventReservationForceCancel = "reservation_force_cancelled"
	EventSettingsSaved          = "settings_saved"
)

// SlotEventPayload describes the minimal slot state for event consumers.
type SlotEventPayload struct {
	SlotID   string `json:"slot_id"`
	Name     string `json:"name,omitempty"`
	Date     string `json:"date,omitempty"`
	Status   string `json:"status,omitempty"`
	Actor    string `json:"actor,omitempty"`
	Reserved int    `json:"reserved,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
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

// PublishJSON serializes the payload and publishes an event.
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
