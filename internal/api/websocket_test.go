package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/homebus/internal/automation"
	"github.com/nerrad567/homebus/internal/coordinator"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testWSConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func subscribedClient(hub *Hub, channels ...string) *wsClient {
	c := newWSClient(hub, nil)
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	hub.register(c)
	return c
}

func receive(t *testing.T, c *wsClient) wsOutbound {
	t.Helper()
	select {
	case data := <-c.send:
		var msg wsOutbound
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return wsOutbound{}
	}
}

func TestValidChannel(t *testing.T) {
	tests := []struct {
		channel string
		want    bool
	}{
		{coordinator.ChannelDeviceRegistered, true},
		{automation.ChannelProfileActivated, true},
		{WSChannelAll, true},
		{"device.*", true},
		{"command.*", true},
		{"sensor.*", false},
		{"device.", false},
		{"device*", false},
		{"weather.forecast", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			if got := validChannel(tt.channel); got != tt.want {
				t.Errorf("validChannel(%q) = %v, want %v", tt.channel, got, tt.want)
			}
		})
	}
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := newTestHub(t)
	c := subscribedClient(hub, coordinator.ChannelDeviceStateChanged)

	hub.Broadcast(coordinator.ChannelDeviceStateChanged, map[string]any{"name": "lamp", "is_on": true})
	hub.Broadcast(coordinator.ChannelDeviceStateChanged, map[string]any{"name": "lamp", "is_on": false})

	first, second := receive(t, c), receive(t, c)
	if first.Type != WSTypeEvent || first.Channel != coordinator.ChannelDeviceStateChanged {
		t.Errorf("event = %+v", first)
	}
	if second.Seq != first.Seq+1 {
		t.Errorf("seq = %d then %d, want consecutive", first.Seq, second.Seq)
	}
}

func TestHub_Subscriptions(t *testing.T) {
	tests := []struct {
		name    string
		sub     string
		channel string
		want    bool
	}{
		{"exact", coordinator.ChannelDeviceRemoved, coordinator.ChannelDeviceRemoved, true},
		{"other channel", automation.ChannelProfileActivated, coordinator.ChannelDeviceRegistered, false},
		{"wildcard", WSChannelAll, coordinator.ChannelCommandAcknowledged, true},
		{"group pattern", "device.*", coordinator.ChannelDeviceStateChanged, true},
		{"group pattern miss", "device.*", coordinator.ChannelCommandAcknowledged, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := newTestHub(t)
			c := subscribedClient(hub, tt.sub)

			hub.Broadcast(tt.channel, map[string]any{"name": "lamp"})

			select {
			case <-c.send:
				if !tt.want {
					t.Error("received event for unsubscribed channel")
				}
			case <-time.After(100 * time.Millisecond):
				if tt.want {
					t.Error("no event for subscribed channel")
				}
			}
		})
	}
}

func TestHub_DisconnectsSlowClient(t *testing.T) {
	hub := newTestHub(t)
	slow := &wsClient{
		hub:           hub,
		send:          make(chan []byte), // never drained
		subscriptions: map[string]struct{}{WSChannelAll: {}},
	}
	hub.register(slow)

	for range maxDroppedEvents - 1 {
		hub.Broadcast(coordinator.ChannelDeviceRegistered, nil)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("client dropped after %d events", maxDroppedEvents-1)
	}

	hub.Broadcast(coordinator.ChannelDeviceRegistered, nil)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want slow client removed", hub.ClientCount())
	}
	if _, ok := <-slow.send; ok {
		t.Error("send channel still open")
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := newTestHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	c := subscribedClient(hub)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}

	// A second unregister must not close the channel twice.
	hub.unregister(c)
}

func TestHub_RunClosesClients(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := subscribedClient(hub, WSChannelAll)
	cancel()
	<-done

	if _, ok := <-c.send; ok {
		t.Error("send channel still open after Run returned")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// connectWebSocket serves the router on a test listener and dials /ws.
func connectWebSocket(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) wsOutbound {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	var msg wsOutbound
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func sendRequest(t *testing.T, ws *websocket.Conn, msgType, id string, channels ...string) {
	t.Helper()
	req := map[string]any{"type": msgType, "id": id}
	if channels != nil {
		req["payload"] = WSChannels{Channels: channels}
	}
	if err := ws.WriteJSON(req); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestWebSocket_SubscribeAndReceiveEvents(t *testing.T) {
	srv, coord, _ := testServer(t, nil)
	ws := connectWebSocket(t, srv)

	sendRequest(t, ws, WSTypeSubscribe, "sub-1", "device.*")
	if resp := readMessage(t, ws); resp.Type != WSTypeResponse || resp.ID != "sub-1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	// The coordinator broadcasts through the same hub.
	register(t, coord, lamp)

	event := readMessage(t, ws)
	if event.Type != WSTypeEvent || event.Channel != coordinator.ChannelDeviceRegistered || event.Seq == 0 {
		t.Errorf("event = %+v", event)
	}
}

func TestWebSocket_SubscribeErrors(t *testing.T) {
	tests := []struct {
		name     string
		channels []string
	}{
		{"unknown channel", []string{coordinator.ChannelDeviceRegistered, "weather"}},
		{"no channels", []string{}},
		{"missing payload", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, coord, _ := testServer(t, nil)
			ws := connectWebSocket(t, srv)

			sendRequest(t, ws, WSTypeSubscribe, "sub-1", tt.channels...)
			if resp := readMessage(t, ws); resp.Type != WSTypeError || resp.ID != "sub-1" {
				t.Fatalf("response = %+v, want error", resp)
			}

			// A rejected request subscribes nothing; the next message is the pong.
			register(t, coord, lamp)
			sendRequest(t, ws, WSTypePing, "ping-1")
			if resp := readMessage(t, ws); resp.Type != WSTypePong {
				t.Errorf("response = %+v, want pong", resp)
			}
		})
	}
}

func TestWebSocket_Unsubscribe(t *testing.T) {
	srv, coord, _ := testServer(t, nil)
	ws := connectWebSocket(t, srv)

	sendRequest(t, ws, WSTypeSubscribe, "sub-1", coordinator.ChannelDeviceRegistered)
	readMessage(t, ws)

	sendRequest(t, ws, WSTypeUnsubscribe, "unsub-1", coordinator.ChannelDeviceRegistered)
	if resp := readMessage(t, ws); resp.Type != WSTypeResponse || resp.ID != "unsub-1" {
		t.Fatalf("unsubscribe response = %+v", resp)
	}

	register(t, coord, lamp)
	sendRequest(t, ws, WSTypePing, "ping-1")
	if resp := readMessage(t, ws); resp.Type != WSTypePong {
		t.Errorf("response = %+v, want pong and no event", resp)
	}
}

func TestWebSocket_ControlMessages(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantID   string
	}{
		{"ping", `{"type":"ping","id":"ping-1"}`, WSTypePong, "ping-1"},
		{"invalid JSON", `not json`, WSTypeError, ""},
		{"unknown type", `{"type":"launch","id":"x-1"}`, WSTypeError, "x-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := testServer(t, nil)
			ws := connectWebSocket(t, srv)

			if err := ws.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
				t.Fatalf("write: %v", err)
			}
			resp := readMessage(t, ws)
			if resp.Type != tt.wantType || resp.ID != tt.wantID {
				t.Errorf("response = %+v, want type %s id %q", resp, tt.wantType, tt.wantID)
			}
		})
	}
}
