package api

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/homebus/internal/automation"
	"github.com/nerrad567/homebus/internal/coordinator"
	"github.com/nerrad567/homebus/internal/infrastructure/config"
	"github.com/nerrad567/homebus/internal/infrastructure/logging"
)

const (
	// WSChannelAll subscribes a client to every channel.
	WSChannelAll = "*"

	// maxDroppedEvents disconnects a client whose buffer stayed full for this
	// many consecutive events.
	maxDroppedEvents = 64
)

// eventChannels lists everything the hub publishes.
var eventChannels = []string{
	coordinator.ChannelDeviceRegistered,
	coordinator.ChannelDeviceRemoved,
	coordinator.ChannelDeviceStateChanged,
	coordinator.ChannelCommandAcknowledged,
	automation.ChannelProfileActivated,
}

// validChannel accepts a known channel, "*", or a "<group>.*" pattern such
// as "device.*" covering at least one known channel.
func validChannel(ch string) bool {
	if ch == WSChannelAll || slices.Contains(eventChannels, ch) {
		return true
	}
	if prefix, ok := strings.CutSuffix(ch, "*"); ok && strings.HasSuffix(prefix, ".") {
		return slices.ContainsFunc(eventChannels, func(known string) bool {
			return strings.HasPrefix(known, prefix)
		})
	}
	return false
}

// channelMatches reports whether a subscription covers channel.
func channelMatches(sub, channel string) bool {
	if sub == WSChannelAll || sub == channel {
		return true
	}
	prefix, ok := strings.CutSuffix(sub, "*")
	return ok && strings.HasPrefix(channel, prefix)
}

// Hub fans coordinator and profile events out to WebSocket clients.
// It satisfies the WSHub interfaces of the coordinator and automation packages.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger
	seq    atomic.Uint64

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates a hub. Call Run to tie its lifetime to a context.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// unregister is idempotent; only the call that removes the client closes
// its send channel.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(c.send)
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// Broadcast sends an event to every client subscribed to channel.
//
// Events carry a hub-wide sequence number so clients can detect gaps left
// by a full buffer.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(wsOutbound{
		Type:      WSTypeEvent,
		Channel:   channel,
		Seq:       h.seq.Add(1),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		if c.subscribed(channel) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.trySend(data) && c.dropped.Add(1) >= maxDroppedEvents {
			h.logger.Warn("disconnecting slow websocket client", "dropped", maxDroppedEvents)
			h.unregister(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
