// ws.go - WebSocket event stream, an alternative transport for clients
// behind proxies that buffer or break Server-Sent Events. Both transports
// feed from the same broadcast hub.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The access gate already vetted the request; browsers connecting
	// cross-origin still carry the gated cookie.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the JSON envelope for one event on the wire.
type wsMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// wsSink adapts a websocket connection to the hub's EventSink. gorilla
// connections allow one concurrent writer, so sends are serialized.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(eventType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteJSON(wsMessage{Event: eventType, Data: string(data)})
}

// wsHandler handles GET /ws: upgrades, subscribes the connection to the
// hub, and holds it open until the peer closes, a send fails, or shutdown.
func (cfg Config) wsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			return
		}
		defer func() { _ = conn.Close() }()

		sink := &wsSink{conn: conn}
		sub := cfg.Hub.Subscribe(sink)
		defer cfg.Hub.Unsubscribe(sub)

		rid := RequestIDFromContext(r.Context())
		logDebug("ws_connected", map[string]any{"rid": rid, "ip": clientIP(r)})

		// Read pump: we never expect client messages, but reading is how
		// close frames and dead peers are noticed.
		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		select {
		case <-readDone:
		case <-sub.Done():
			deadline := time.Now().Add(wsWriteTimeout)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), deadline)
		case <-r.Context().Done():
		}
		logDebug("ws_disconnected", map[string]any{"rid": rid})
	})
}
