// Package realtime pushes meeting state changes to connected WebSocket
// clients. Each meeting is a room; events fan out locally and over Redis
// pub/sub so every instance delivers to its own sockets.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Scope selects which clients in a room receive an event.
type Scope string

const (
	// ScopeAll delivers to every client in the room.
	ScopeAll Scope = "all"
	// ScopeHost delivers to host clients only.
	ScopeHost Scope = "host"
	// ScopeParticipant delivers to non-host clients only.
	ScopeParticipant Scope = "participant"
)

func (s Scope) matches(isHost bool) bool {
	switch s {
	case ScopeHost:
		return isHost
	case ScopeParticipant:
		return !isHost
	}
	return true
}

// RedisPublisher publishes room events for cross-instance broadcast.
type RedisPublisher interface {
	PublishMeetingEvent(meetingID uuid.UUID, event string, scope Scope, payload []byte) error
}

// RedisSubscriber subscribes to a meeting channel and invokes handler for
// incoming events.
type RedisSubscriber interface {
	SubscribeMeeting(meetingID uuid.UUID, handler func(event string, scope Scope, payload []byte)) (cancel func(), err error)
}

// Hub maintains meeting_id -> set of connections and broadcasts messages.
type Hub struct {
	// meetingID -> map[clientID]*Client
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per meeting
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its meeting room. The first client in a room
// starts the room's Redis subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.MeetingID] == nil {
		h.rooms[c.MeetingID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeMeeting(c.MeetingID, func(event string, scope Scope, payload []byte) {
				h.broadcastLocal(c.MeetingID, event, scope, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.MeetingID] = cancel
			}
		}
	}
	h.rooms[c.MeetingID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined meeting room", zap.String("client_id", c.ID), zap.String("meeting_id", c.MeetingID.String()))
}

// Unregister removes a client from its room. The last client out cancels the
// room's Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.MeetingID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.MeetingID)
			if cancel, ok := h.subs[c.MeetingID]; ok {
				cancel()
				delete(h.subs, c.MeetingID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left meeting room", zap.String("client_id", c.ID), zap.String("meeting_id", c.MeetingID.String()))
}

// broadcastLocal delivers an event to this instance's clients in the room
// whose host flag matches scope.
func (h *Hub) broadcastLocal(meetingID uuid.UUID, event string, scope Scope, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	// Snapshot under the lock; Register and Unregister mutate the room map
	// while broadcasts are in flight.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[meetingID]))
	for _, c := range h.rooms[meetingID] {
		if scope.matches(c.IsHost) {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Broadcast sends an event to local clients and publishes it to Redis for
// other instances.
func (h *Hub) Broadcast(meetingID uuid.UUID, event string, scope Scope, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcastLocal(meetingID, event, scope, json.RawMessage(data))
	if h.redis != nil {
		_ = h.redis.PublishMeetingEvent(meetingID, event, scope, data)
	}
}

// RoomSize returns the number of connected clients in a meeting room.
func (h *Hub) RoomSize(meetingID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[meetingID])
}

// DisconnectRoom closes every connection in the room. Used after a meeting
// is deleted, once clients had a chance to receive the deletion event.
func (h *Hub) DisconnectRoom(meetingID uuid.UUID) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[meetingID]))
	for _, c := range h.rooms[meetingID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	h.logger.Info("meeting room disconnected", zap.String("meeting_id", meetingID.String()), zap.Int("clients", len(clients)))
}
