package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// outboundBuffer bounds each subscriber's queue. A subscriber that falls
// further behind than this loses messages instead of stalling the hub.
const outboundBuffer = 64

// SSEHub fans events out to connected clients, keyed by channel (one
// channel per org). All methods are safe for concurrent use.
type SSEHub struct {
	log *logger.Logger

	mu       sync.RWMutex
	clients  map[uuid.UUID]*SSEClient
	channels map[string]map[uuid.UUID]*SSEClient
}

func NewSSEHub(baseLog *logger.Logger) *SSEHub {
	return &SSEHub{
		log:      baseLog.With("service", "SSEHub"),
		clients:  map[uuid.UUID]*SSEClient{},
		channels: map[string]map[uuid.UUID]*SSEClient{},
	}
}

// NewSSEClient registers a fresh client with no channel subscriptions.
func (h *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	c := &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: map[string]bool{},
		Outbound: make(chan SSEMessage, outboundBuffer),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	return c
}

func (h *SSEHub) AddChannel(c *SSEClient, channel string) {
	if c == nil || channel == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, registered := h.clients[c.ID]; !registered {
		return
	}
	c.Channels[channel] = true
	set, ok := h.channels[channel]
	if !ok {
		set = map[uuid.UUID]*SSEClient{}
		h.channels[channel] = set
	}
	set[c.ID] = c
}

// Broadcast delivers to every subscriber of the message's channel. Full
// outbound queues drop the message for that client.
func (h *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}
	h.mu.RLock()
	set := h.channels[msg.Channel]
	targets := make([]*SSEClient, 0, len(set))
	for _, c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.Outbound <- msg:
		default:
			h.log.Warn("dropping event for slow subscriber",
				"event", msg.Event,
				"client_id", c.ID.String(),
			)
		}
	}
}

// CloseClient evicts the client and closes its outbound channel. Safe to
// call more than once.
func (h *SSEHub) CloseClient(c *SSEClient) {
	if c == nil {
		return
	}
	h.mu.Lock()
	_, registered := h.clients[c.ID]
	if registered {
		delete(h.clients, c.ID)
		for channel := range c.Channels {
			if set, ok := h.channels[channel]; ok {
				delete(set, c.ID)
				if len(set) == 0 {
					delete(h.channels, channel)
				}
			}
		}
	}
	h.mu.Unlock()

	if registered {
		close(c.done)
		close(c.Outbound)
	}
}

// ClientCount reports connected clients for the metrics gauge.
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
