package agenda

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/middleware"
	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/response"
)

// HostChecker answers whether a user hosts a meeting.
type HostChecker interface {
	IsHost(ctx context.Context, meetingID, userID uuid.UUID) (bool, error)
	Exists(ctx context.Context, meetingID uuid.UUID) (bool, error)
}

// Notifier announces agenda changes to connected clients.
type Notifier interface {
	AgendaUpdated(meetingID uuid.UUID)
}

type noopNotifier struct{}

func (noopNotifier) AgendaUpdated(uuid.UUID) {}

// Handler exposes the agenda REST endpoints. All writes are host only.
type Handler struct {
	repo     *Repository
	meetings HostChecker
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates an agenda handler. notifier may be nil.
func NewHandler(repo *Repository, meetings HostChecker, notifier Notifier, logger *zap.Logger) *Handler {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Handler{repo: repo, meetings: meetings, notifier: notifier, logger: logger}
}

// List returns the meeting's agenda items in position order.
func (h *Handler) List(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	items, err := h.repo.ListByMeeting(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

type insertItemRequest struct {
	Position           int     `json:"position"`
	Name               string  `json:"name" binding:"required"`
	Description        string  `json:"description"`
	ExpectedDurationMs int64   `json:"expected_duration_ms"`
	SpeakerID          *string `json:"speaker_id"`
	SpeakerName        *string `json:"speaker_name"`
	SpeakerMaterials   *string `json:"speaker_materials"`
}

// Insert adds an agenda item at the requested position.
func (h *Handler) Insert(c *gin.Context) {
	meetingID, ok := h.requireHost(c)
	if !ok {
		return
	}
	var req insertItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Position < 0 {
		response.BadRequest(c, "position must not be negative")
		return
	}

	item := &models.AgendaItem{
		MeetingID:          meetingID,
		Position:           req.Position,
		Name:               req.Name,
		Description:        req.Description,
		ExpectedDurationMs: req.ExpectedDurationMs,
		SpeakerName:        req.SpeakerName,
		SpeakerMaterials:   req.SpeakerMaterials,
	}
	if req.SpeakerID != nil {
		sid, err := uuid.Parse(*req.SpeakerID)
		if err != nil {
			response.BadRequest(c, "invalid speaker id")
			return
		}
		item.SpeakerID = &sid
	}
	if err := h.repo.Insert(c.Request.Context(), item); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.AgendaUpdated(meetingID)
	h.logger.Info("agenda item added", zap.String("meeting_id", meetingID.String()), zap.Int("position", item.Position))
	response.Created(c, item)
}

type updateItemRequest struct {
	Name               *string `json:"name"`
	Description        *string `json:"description"`
	ExpectedDurationMs *int64  `json:"expected_duration_ms"`
	SpeakerID          *string `json:"speaker_id"`
	SpeakerName        *string `json:"speaker_name"`
	SpeakerMaterials   *string `json:"speaker_materials"`
}

// Update edits one agenda item in place. Position changes go through Reorder.
func (h *Handler) Update(c *gin.Context) {
	meetingID, ok := h.requireHost(c)
	if !ok {
		return
	}
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil || position < 0 {
		response.BadRequest(c, "invalid position")
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	var speakerID *uuid.UUID
	if req.SpeakerID != nil {
		sid, err := uuid.Parse(*req.SpeakerID)
		if err != nil {
			response.BadRequest(c, "invalid speaker id")
			return
		}
		speakerID = &sid
	}
	if err := h.repo.UpdateAt(c.Request.Context(), meetingID, position, req.Name, req.Description, req.ExpectedDurationMs, speakerID, req.SpeakerName, req.SpeakerMaterials); err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.repo.GetByPosition(c.Request.Context(), meetingID, position)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.AgendaUpdated(meetingID)
	response.OK(c, item)
}

// Delete removes one agenda item and compacts the positions after it.
func (h *Handler) Delete(c *gin.Context) {
	meetingID, ok := h.requireHost(c)
	if !ok {
		return
	}
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil || position < 0 {
		response.BadRequest(c, "invalid position")
		return
	}
	if err := h.repo.DeleteAt(c.Request.Context(), meetingID, position); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.AgendaUpdated(meetingID)
	h.logger.Info("agenda item removed", zap.String("meeting_id", meetingID.String()), zap.Int("position", position))
	response.NoContent(c)
}

type reorderRequest struct {
	Positions []Move `json:"positions" binding:"required"`
}

// Reorder applies a batch of position moves atomically.
func (h *Handler) Reorder(c *gin.Context) {
	meetingID, ok := h.requireHost(c)
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.repo.Reorder(c.Request.Context(), meetingID, req.Positions); err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.repo.ListByMeeting(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.AgendaUpdated(meetingID)
	response.OK(c, items)
}

func (h *Handler) requireHost(c *gin.Context) (uuid.UUID, bool) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return uuid.Nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.meetings.IsHost(c.Request.Context(), meetingID, userID)
	if err != nil {
		response.Error(c, err)
		return uuid.Nil, false
	}
	if !ok {
		exists, exErr := h.meetings.Exists(c.Request.Context(), meetingID)
		if exErr == nil && !exists {
			response.NotFound(c, "meeting not found")
			return uuid.Nil, false
		}
		response.Forbidden(c, "only the host can modify the agenda")
		return uuid.Nil, false
	}
	return meetingID, true
}
