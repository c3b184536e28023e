package suggestions

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/middleware"
	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/response"
)

// Store is the slice of suggestion persistence the handler needs.
// Implemented by Repository.
type Store interface {
	Create(ctx context.Context, s *models.Suggestion) error
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Suggestion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Suggestion, error)
	Update(ctx context.Context, id uuid.UUID, name, description *string, expectedDurationMs *int64) error
	Delete(ctx context.Context, id uuid.UUID) error
	AcceptAndAppend(ctx context.Context, s *models.Suggestion) (*models.AgendaItem, error)
}

// HostChecker answers whether a user hosts a meeting.
type HostChecker interface {
	IsHost(ctx context.Context, meetingID, userID uuid.UUID) (bool, error)
}

// Notifier announces suggestion and agenda changes to connected clients.
type Notifier interface {
	SuggestionsUpdated(meetingID uuid.UUID)
	SuggestionDeleted(meetingID, suggestionID uuid.UUID)
	AgendaUpdated(meetingID uuid.UUID)
}

type noopNotifier struct{}

func (noopNotifier) SuggestionsUpdated(uuid.UUID)           {}
func (noopNotifier) SuggestionDeleted(uuid.UUID, uuid.UUID) {}
func (noopNotifier) AgendaUpdated(uuid.UUID)                {}

// Handler exposes the suggestion REST endpoints. Participants create and
// edit their own suggestions through magic-link auth; acceptance is the
// host's call.
type Handler struct {
	repo     Store
	meetings HostChecker
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a suggestion handler. notifier may be nil.
func NewHandler(repo Store, meetings HostChecker, notifier Notifier, logger *zap.Logger) *Handler {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Handler{repo: repo, meetings: meetings, notifier: notifier, logger: logger}
}

type createSuggestionRequest struct {
	Name               string `json:"name" binding:"required"`
	Description        string `json:"description"`
	ExpectedDurationMs int64  `json:"expected_duration_ms"`
	VolunteerAsSpeaker bool   `json:"volunteer_as_speaker"`
}

// Create records a suggestion from the magic-link participant.
func (h *Handler) Create(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	var req createSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	s := &models.Suggestion{
		MeetingID:          p.MeetingID,
		ParticipantID:      p.ID,
		Name:               req.Name,
		Description:        req.Description,
		ExpectedDurationMs: req.ExpectedDurationMs,
	}
	if req.VolunteerAsSpeaker {
		s.SpeakerID = &p.ID
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.SuggestionsUpdated(p.MeetingID)
	response.Created(c, s)
}

// ListForParticipant returns the suggestions of the participant's meeting.
func (h *Handler) ListForParticipant(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	list, err := h.repo.ListByMeeting(c.Request.Context(), p.MeetingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// List returns the meeting's suggestions for an authenticated host.
func (h *Handler) List(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	list, err := h.repo.ListByMeeting(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

type updateSuggestionRequest struct {
	Name               *string `json:"name"`
	Description        *string `json:"description"`
	ExpectedDurationMs *int64  `json:"expected_duration_ms"`
}

// Update edits the participant's own suggestion.
func (h *Handler) Update(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	s, ok := h.ownSuggestion(c, p)
	if !ok {
		return
	}
	var req updateSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.repo.Update(c.Request.Context(), s.ID, req.Name, req.Description, req.ExpectedDurationMs); err != nil {
		response.Error(c, err)
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), s.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.SuggestionsUpdated(p.MeetingID)
	response.OK(c, updated)
}

// Delete removes the participant's own suggestion.
func (h *Handler) Delete(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	s, ok := h.ownSuggestion(c, p)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), s.ID); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.SuggestionDeleted(p.MeetingID, s.ID)
	response.NoContent(c)
}

// Accept marks a suggestion accepted and appends it to the agenda at the next
// free position, both in one transaction. Host only.
func (h *Handler) Accept(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	isHost, err := h.meetings.IsHost(c.Request.Context(), meetingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !isHost {
		response.Forbidden(c, "only the host can accept suggestions")
		return
	}
	sid, err := uuid.Parse(c.Param("suggestion_id"))
	if err != nil {
		response.BadRequest(c, "invalid suggestion id")
		return
	}
	s, err := h.repo.GetByID(c.Request.Context(), sid)
	if err != nil {
		response.Error(c, err)
		return
	}
	if s.MeetingID != meetingID {
		response.NotFound(c, "suggestion not found")
		return
	}
	item, err := h.repo.AcceptAndAppend(c.Request.Context(), s)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.SuggestionsUpdated(meetingID)
	h.notifier.AgendaUpdated(meetingID)
	h.logger.Info("suggestion accepted",
		zap.String("meeting_id", meetingID.String()),
		zap.String("suggestion_id", sid.String()),
		zap.Int("position", item.Position))
	response.OK(c, item)
}

func (h *Handler) ownSuggestion(c *gin.Context, p *models.Participant) (*models.Suggestion, bool) {
	sid, err := uuid.Parse(c.Param("suggestion_id"))
	if err != nil {
		response.BadRequest(c, "invalid suggestion id")
		return nil, false
	}
	s, err := h.repo.GetByID(c.Request.Context(), sid)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if s.MeetingID != p.MeetingID || s.ParticipantID != p.ID {
		response.Forbidden(c, "not your suggestion")
		return nil, false
	}
	if s.Accepted {
		response.BadRequest(c, "suggestion already accepted")
		return nil, false
	}
	return s, true
}
