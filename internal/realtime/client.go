package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection in a meeting room.
type Client struct {
	ID        string
	MeetingID uuid.UUID
	IsHost    bool
	hub       *Hub
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
}

// HostValidator validates a host bearer token and returns the user ID.
type HostValidator func(token string) (uuid.UUID, error)

// ParticipantResolver resolves a magic-link token to its participant.
type ParticipantResolver func(ctx context.Context, token string) (*models.Participant, error)

// HostLookup returns the host user ID of a meeting.
type HostLookup func(ctx context.Context, meetingID uuid.UUID) (uuid.UUID, error)

// ServeWs handles the WebSocket upgrade and runs the client loop. Clients
// authenticate with either a host bearer token (token query param) or a
// participant magic-link token (participant query param).
func ServeWs(hub *Hub, logger *zap.Logger, validateHost HostValidator, resolveParticipant ParticipantResolver, hostOf HostLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		meetingIDStr := c.Query("meeting_id")
		meetingID, err := uuid.Parse(meetingIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting_id"})
			return
		}

		isHost := false
		switch {
		case c.Query("token") != "":
			userID, err := validateHost(c.Query("token"))
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			hostID, err := hostOf(c.Request.Context(), meetingID)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
				return
			}
			isHost = hostID == userID
		case c.Query("participant") != "":
			p, err := resolveParticipant(c.Request.Context(), c.Query("participant"))
			if err != nil || p.MeetingID != meetingID {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired link"})
				return
			}
			isHost = p.Role == models.RoleAdmin
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "token or participant required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			MeetingID: meetingID,
			IsHost:    isHost,
			hub:       hub,
			conn:      conn,
			send:      make(chan WSMessage, 256),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// Close shuts the connection down; the read pump then unregisters.
func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	// Clients only listen; inbound frames just refresh the read deadline.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
