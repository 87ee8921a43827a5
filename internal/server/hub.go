// hub.go - Broadcast hub fanning out file events to live subscribers.
//
// The hub owns the set of connected event streams (SSE or WebSocket).
// Broadcast is best effort and at-most-once per live subscriber: there is
// no replay for subscribers that connect after an event fired, and a
// subscriber whose send fails is dropped so it can never stall the rest.
package server

import (
	"encoding/json"
	"log"
	"sync"
)

// Event types pushed to subscribers.
const (
	EventConnected      = "connected"
	EventFileUploaded   = "fileUploaded"
	EventFileDeleted    = "fileDeleted"
	EventFilesCleanedUp = "filesCleanedUp"
)

// EventSink is the outbound side of one subscriber connection. Send must
// be safe for concurrent use; returning an error marks the connection dead
// and causes the hub to drop the subscriber.
type EventSink interface {
	Send(eventType string, data []byte) error
}

// Subscriber is one registered event-stream connection.
type Subscriber struct {
	sink EventSink
	done chan struct{}
	once sync.Once
}

// Done is closed when the subscriber has been removed from the hub,
// either because a send failed or because the hub is shutting down.
// Connection handlers block on it to keep the stream open.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Hub maintains the subscriber registry. All methods are safe for
// concurrent use; the registry mutex is never held across a send.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers the sink and immediately sends the connected event.
func (h *Hub) Subscribe(sink EventSink) *Subscriber {
	sub := &Subscriber{sink: sink, done: make(chan struct{})}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	GetMetrics().SetSubscribers(int64(n))

	if err := sub.sink.Send(EventConnected, []byte(`{"status":"connected"}`)); err != nil {
		h.Unsubscribe(sub)
	}
	return sub
}

// Unsubscribe removes the subscriber and closes its done channel. It is
// idempotent: disconnect detection can race with a broadcast's own cleanup,
// and the loser must be a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	_, present := h.subs[sub]
	delete(h.subs, sub)
	n := len(h.subs)
	h.mu.Unlock()

	if present {
		GetMetrics().SetSubscribers(int64(n))
	}
	sub.once.Do(func() { close(sub.done) })
}

// Broadcast sends one event to every current subscriber. The payload is
// marshaled once. Per-subscriber failures are collected and the failed
// subscribers removed after the loop; delivery to the rest is unaffected.
func (h *Hub) Broadcast(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("service=hub msg=%q event=%s err=%v", "marshal_failed", eventType, err)
		return
	}

	h.mu.Lock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		snapshot = append(snapshot, sub)
	}
	h.mu.Unlock()

	var failed []*Subscriber
	for _, sub := range snapshot {
		if err := sub.sink.Send(eventType, data); err != nil {
			failed = append(failed, sub)
		}
	}

	for _, sub := range failed {
		h.Unsubscribe(sub)
	}
	if len(failed) > 0 {
		log.Printf("service=hub msg=%q event=%s removed=%d", "dropped_dead_subscribers", eventType, len(failed))
	}
	GetMetrics().RecordBroadcast(len(snapshot) - len(failed))
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close removes every subscriber, unblocking all open event streams.
// Called once during process shutdown, before the HTTP server drains.
func (h *Hub) Close() {
	h.mu.Lock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		snapshot = append(snapshot, sub)
	}
	h.mu.Unlock()

	for _, sub := range snapshot {
		h.Unsubscribe(sub)
	}
}

// fileEvent is the payload for fileUploaded and fileDeleted events.
type fileEvent struct {
	FileName string `json:"fileName"`
}

// cleanupEvent is the payload for filesCleanedUp events.
type cleanupEvent struct {
	Count int `json:"count"`
}
