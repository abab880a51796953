package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"net/http/httptest"

	"garage_door"
	"garage_door/internal/notify"
	"garage_door/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- hub unit tests ---

func TestEventHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewEventHub()
	topic := notify.TopicForDevice("fw-2024")

	ch := hub.subscribe(topic)
	defer hub.unsubscribe(topic, ch)
	other := hub.subscribe(notify.TopicForDevice("other"))
	defer hub.unsubscribe(notify.TopicForDevice("other"), other)

	payload := map[string]string{"type": "OPEN", "timestampSeconds": "2000"}
	if err := hub.Publish(context.Background(), topic, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if got["type"] != "OPEN" {
			t.Fatalf("unexpected payload: %v", got)
		}
	default:
		t.Fatal("subscriber did not receive the payload")
	}
	select {
	case got := <-other:
		t.Fatalf("other topic received payload: %v", got)
	default:
	}
}

func TestEventHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewEventHub()
	topic := notify.TopicForDevice("fw-2024")
	ch := hub.subscribe(topic)
	defer hub.unsubscribe(topic, ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < hubQueueSize*3; i++ {
			_ = hub.Publish(context.Background(), topic, map[string]string{"type": "OPEN"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber queue")
	}
}

// --- websocket integration tests ---

func newWSServer(t *testing.T, s *service.Service, hub *EventHub) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, hub, FeatureFlags{}, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	q := u.Query()
	q.Set("buildTimestamp", "fw-2024")
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return srv, conn
}

func TestWebSocket_InitialEventThenHubDelivery(t *testing.T) {
	events := &mockEvents{
		current: &garage_door.EventRecord{
			BuildTimestamp: "fw-2024",
			CurrentEvent:   garage_door.NewSensorEvent(garage_door.StateClosed, 1000),
		},
	}
	s := &service.Service{Events: events}
	hub := NewEventHub()
	_, conn := newWSServer(t, s, hub)

	type envelope struct {
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}

	// Initial message carries the stored current event.
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if env.Type != "event" || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var rec garage_door.EventRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if rec.CurrentEvent.Type != garage_door.StateClosed {
		t.Fatalf("unexpected record: %+v", rec)
	}

	// A hub publish for this device shows up on the connection. The subscribe
	// races the dial, so retry briefly.
	payload := notify.EventPayload(garage_door.NewSensorEvent(garage_door.StateOpening, 1010))
	topic := notify.TopicForDevice("fw-2024")
	deadline := time.Now().Add(time.Second)
	for {
		_ = hub.Publish(context.Background(), topic, payload)
		_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		env = envelope{}
		if err := conn.ReadJSON(&env); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("hub publish never reached the connection")
		}
	}
	var got map[string]string
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got["type"] != string(garage_door.StateOpening) {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestWebSocket_InitialReadError_Closes(t *testing.T) {
	events := &mockEvents{err: errors.New("boom")}
	s := &service.Service{Events: events}
	_, conn := newWSServer(t, s, NewEventHub())

	// The server should close right after the initial lookup fails.
	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}
