package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"garage_door/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxMsgSize   = 1 << 12 // 4 KB
	hubQueueSize = 8
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// EventHub fans event payloads out to connected WebSocket clients. It is a
// Notifier like the MQTT and push-gateway publishers, so services publish
// once and every transport sees the same payload.
type EventHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan map[string]string]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[string]map[chan map[string]string]struct{})}
}

var _ notify.Notifier = (*EventHub)(nil)

// Publish delivers the payload to every subscriber of the topic. Slow
// subscribers drop messages rather than block the publisher.
func (hub *EventHub) Publish(_ context.Context, topic string, payload map[string]string) error {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for ch := range hub.subs[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (hub *EventHub) subscribe(topic string) chan map[string]string {
	ch := make(chan map[string]string, hubQueueSize)
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.subs[topic] == nil {
		hub.subs[topic] = make(map[chan map[string]string]struct{})
	}
	hub.subs[topic][ch] = struct{}{}
	return ch
}

func (hub *EventHub) unsubscribe(topic string, ch chan map[string]string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	delete(hub.subs[topic], ch)
	if len(hub.subs[topic]) == 0 {
		delete(hub.subs, topic)
	}
}

// Upgrader for HTTP -> WebSocket. Consider tightening CheckOrigin in production.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) wsConnect(c *gin.Context) {
	buildTimestamp := h.requireBuildTimestamp(c)
	if buildTimestamp == "" {
		return
	}
	topic := notify.TopicForDevice(buildTimestamp)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	events := h.hub.subscribe(topic)
	defer h.hub.unsubscribe(topic, events)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// Send the stored current event immediately so a client does not wait
	// for the next check-in to learn the door state.
	if err := h.sendCurrentEvent(c.Request.Context(), conn, buildTimestamp); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case payload := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsEnvelope{Type: "event", Data: payload}); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// Helper: sendCurrentEvent writes the stored event record with a write deadline.
func (h *Handler) sendCurrentEvent(ctx context.Context, conn *websocket.Conn, buildTimestamp string) error {
	rec, err := h.services.Events.Current(ctx, buildTimestamp)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_current_event_failed", "err", err)
		}
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if rec == nil {
		return conn.WriteJSON(wsEnvelope{Type: "event"})
	}
	return conn.WriteJSON(wsEnvelope{Type: "event", Data: rec})
}
