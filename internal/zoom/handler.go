package zoom

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/meetings"
	"github.com/meetballs/backend/internal/middleware"
	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
	"github.com/meetballs/backend/pkg/response"
)

// UserStore is the slice of user persistence the Zoom integration needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByZoomID(ctx context.Context, zoomID string) (*models.User, error)
	LinkZoom(ctx context.Context, id uuid.UUID, zoomID string) error
	UnlinkZoom(ctx context.Context, id uuid.UUID) error
}

// Handler exposes the Zoom integration REST endpoints.
type Handler struct {
	client   *Client
	users    UserStore
	meetings *meetings.Repository
	cipher   *meetings.PasswordCipher
	logger   *zap.Logger
}

// NewHandler creates a Zoom handler.
func NewHandler(client *Client, users UserStore, meetingRepo *meetings.Repository, cipher *meetings.PasswordCipher, logger *zap.Logger) *Handler {
	return &Handler{client: client, users: users, meetings: meetingRepo, cipher: cipher, logger: logger}
}

func zoomToken(c *gin.Context) (string, bool) {
	token := c.GetHeader("X-Zoom-Token")
	if token == "" {
		response.Unauthorized(c, "missing zoom token")
		return "", false
	}
	return token, true
}

// Link connects the authenticated user's account to the Zoom profile behind
// the presented token.
func (h *Handler) Link(c *gin.Context) {
	token, ok := zoomToken(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	profile, err := h.client.GetUser(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	if existing, err := h.users.GetByZoomID(c.Request.Context(), profile.ID); err != nil {
		response.Error(c, err)
		return
	} else if existing != nil && existing.ID != userID {
		response.Conflict(c, "zoom account already linked to another user")
		return
	}
	if err := h.users.LinkZoom(c.Request.Context(), userID, profile.ID); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("zoom account linked", zap.String("user_id", userID.String()))
	response.OK(c, profile)
}

// Unlink disconnects the authenticated user's Zoom account.
func (h *Handler) Unlink(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.users.UnlinkZoom(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListUpcoming returns the user's upcoming Zoom meetings, for import picking.
func (h *Handler) ListUpcoming(c *gin.Context) {
	token, ok := zoomToken(c)
	if !ok {
		return
	}
	list, err := h.client.ListUpcomingMeetings(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

type importRequest struct {
	ZoomMeetingID string `json:"zoom_meeting_id" binding:"required"`
}

// Import creates a MeetBalls meeting from an existing Zoom meeting. The
// requester must be the Zoom account owner; a Zoom meeting imports at most
// once.
func (h *Handler) Import(c *gin.Context) {
	token, ok := zoomToken(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		response.Error(c, apperr.Internal("failed to resolve user", err))
		return
	}
	if user.ZoomID == nil {
		response.Forbidden(c, "zoom account not linked")
		return
	}

	zm, err := h.client.GetMeeting(c.Request.Context(), token, req.ZoomMeetingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if existing, err := h.meetings.GetByZoomUUID(c.Request.Context(), zm.UUID); err != nil {
		response.Error(c, err)
		return
	} else if existing != nil {
		response.Conflict(c, "zoom meeting already imported")
		return
	}

	zoomID := strconv.FormatInt(zm.ID, 10)
	m := &models.Meeting{
		Name:          zm.Topic,
		Description:   zm.Agenda,
		Status:        models.MeetingWaiting,
		DurationMs:    int64(zm.Duration) * 60 * 1000,
		HostID:        userID,
		ZoomMeetingID: &zoomID,
		ZoomUUID:      &zm.UUID,
		JoinURL:       &zm.JoinURL,
	}
	if zm.Password != "" {
		enc, err := h.cipher.Encrypt(zm.Password)
		if err != nil {
			response.Error(c, apperr.Internal("failed to encrypt meeting password", err))
			return
		}
		m.MeetingPassword = enc
	}

	host := models.Participant{
		UserEmail: user.Email,
		UserName:  user.FirstName + " " + user.LastName,
		Role:      models.RoleAdmin,
		Invited:   true,
	}
	items := []models.AgendaItem{{
		Position:           0,
		Name:               "Your 1st meeting item",
		ExpectedDurationMs: 30 * 60 * 1000,
	}}
	if err := h.meetings.Create(c.Request.Context(), m, []models.Participant{host}, items); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("zoom meeting imported",
		zap.String("meeting_id", m.ID.String()),
		zap.String("zoom_uuid", zm.UUID))
	response.Created(c, m)
}
