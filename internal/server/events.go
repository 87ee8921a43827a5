// events.go - Server-Sent Events endpoint backed by the broadcast hub.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// sseHeartbeat keeps idle connections alive through proxies that reap
// quiet streams. Comments are ignored by EventSource clients.
const sseHeartbeat = 30 * time.Second

// sseQueueSize bounds how far a subscriber may fall behind before the
// hub drops it.
const sseQueueSize = 16

// sseFrame is one pending event for a subscriber.
type sseFrame struct {
	event string
	data  []byte
}

// sseSink queues frames for the handler goroutine. The handler is the
// only writer of its ResponseWriter: Send never touches the connection,
// so a broadcast racing a client disconnect cannot write to a response
// whose handler has already returned.
type sseSink struct {
	frames chan sseFrame
}

func newSSESink() *sseSink {
	return &sseSink{frames: make(chan sseFrame, sseQueueSize)}
}

// Send enqueues one frame. A full queue means the handler stopped
// draining; the error makes the hub drop the subscriber.
func (s *sseSink) Send(eventType string, data []byte) error {
	select {
	case s.frames <- sseFrame{event: eventType, data: data}:
		return nil
	default:
		return errors.New("subscriber queue full")
	}
}

// eventsHandler handles GET /events: registers the connection with the
// hub and drains its frame queue onto the response until the client
// disconnects, the hub drops the subscriber, or the process begins
// shutdown (hub.Close unblocks every subscriber).
func (cfg Config) eventsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		sink := newSSESink()
		sub := cfg.Hub.Subscribe(sink)
		defer cfg.Hub.Unsubscribe(sub)

		rid := RequestIDFromContext(r.Context())
		logDebug("sse_connected", map[string]any{"rid": rid, "ip": clientIP(r)})

		ticker := time.NewTicker(sseHeartbeat)
		defer ticker.Stop()

		for {
			select {
			case f := <-sink.frames:
				// "event: <type>\ndata: <json>\n\n"; the trailing blank
				// line is the frame terminator clients demultiplex on.
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.event, f.data); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				logDebug("sse_disconnected", map[string]any{"rid": rid})
				return
			case <-sub.Done():
				return
			}
		}
	})
}
