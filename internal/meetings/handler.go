package meetings

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/middleware"
	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
	"github.com/meetballs/backend/pkg/response"
)

// Notifier pushes meeting-scoped events to connected clients. Implemented by
// the realtime package; nil-safe via noopNotifier.
type Notifier interface {
	MeetingUpdated(meetingID uuid.UUID)
	MeetingDeleted(meetingID uuid.UUID)
	AgendaUpdated(meetingID uuid.UUID)
}

type noopNotifier struct{}

func (noopNotifier) MeetingUpdated(uuid.UUID) {}
func (noopNotifier) MeetingDeleted(uuid.UUID) {}
func (noopNotifier) AgendaUpdated(uuid.UUID)  {}

// UserDirectory resolves account details when seeding the host participant.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handler exposes the meeting REST endpoints.
type Handler struct {
	repo     *Repository
	users    UserDirectory
	cipher   *PasswordCipher
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a meeting handler. notifier may be nil.
func NewHandler(repo *Repository, users UserDirectory, cipher *PasswordCipher, notifier Notifier, logger *zap.Logger) *Handler {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Handler{repo: repo, users: users, cipher: cipher, notifier: notifier, logger: logger}
}

type createAgendaItem struct {
	Name               string  `json:"name" binding:"required"`
	Description        string  `json:"description"`
	ExpectedDurationMs int64   `json:"expected_duration_ms"`
	SpeakerName        *string `json:"speaker_name"`
	SpeakerMaterials   *string `json:"speaker_materials"`
}

type createParticipant struct {
	UserEmail string `json:"user_email" binding:"required,email"`
	UserName  string `json:"user_name"`
}

type createMeetingRequest struct {
	Name                string              `json:"name" binding:"required"`
	Description         string              `json:"description"`
	DurationMs          int64               `json:"duration_ms"`
	Password            string              `json:"password"`
	EnableTranscription bool                `json:"enable_transcription"`
	AgendaItems         []createAgendaItem  `json:"agenda_items"`
	Participants        []createParticipant `json:"participants"`
}

const (
	defaultMeetingDurationMs = 60 * 60 * 1000
	defaultAgendaItemName    = "Your 1st meeting item"
	defaultAgendaDurationMs  = 30 * 60 * 1000
)

// Create creates a meeting owned by the authenticated user. The host is
// seeded as an admin participant and an empty agenda gets one default item.
func (h *Handler) Create(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	hostID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	host, err := h.users.GetByID(c.Request.Context(), hostID)
	if err != nil || host == nil {
		response.Error(c, apperr.Internal("failed to resolve host", err))
		return
	}

	m := &models.Meeting{
		Name:                req.Name,
		Description:         req.Description,
		Status:              models.MeetingWaiting,
		DurationMs:          req.DurationMs,
		HostID:              hostID,
		EnableTranscription: req.EnableTranscription,
	}
	if m.DurationMs <= 0 {
		m.DurationMs = defaultMeetingDurationMs
	}
	if req.Password != "" {
		enc, err := h.cipher.Encrypt(req.Password)
		if err != nil {
			response.Error(c, apperr.Internal("failed to encrypt meeting password", err))
			return
		}
		m.MeetingPassword = enc
	}

	participants := []models.Participant{{
		UserEmail: host.Email,
		UserName:  strings.TrimSpace(host.FirstName + " " + host.LastName),
		Role:      models.RoleAdmin,
		Invited:   true,
	}}
	for _, p := range req.Participants {
		if p.UserEmail == host.Email {
			continue
		}
		participants = append(participants, models.Participant{
			UserEmail: p.UserEmail,
			UserName:  p.UserName,
			Role:      models.RoleMember,
		})
	}

	items := make([]models.AgendaItem, 0, len(req.AgendaItems))
	for i, a := range req.AgendaItems {
		expected := a.ExpectedDurationMs
		if expected <= 0 {
			expected = defaultAgendaDurationMs
		}
		items = append(items, models.AgendaItem{
			Position:           i,
			Name:               a.Name,
			Description:        a.Description,
			ExpectedDurationMs: expected,
			SpeakerName:        a.SpeakerName,
			SpeakerMaterials:   a.SpeakerMaterials,
		})
	}
	if len(items) == 0 {
		items = append(items, models.AgendaItem{
			Position:           0,
			Name:               defaultAgendaItemName,
			ExpectedDurationMs: defaultAgendaDurationMs,
		})
	}

	if err := h.repo.Create(c.Request.Context(), m, participants, items); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("meeting created", zap.String("meeting_id", m.ID.String()), zap.String("host_id", hostID.String()))
	response.Created(c, m)
}

// List returns the authenticated user's meetings. The filter query selects
// the bucket: upcoming (waiting or started), past (ended) or all.
func (h *Handler) List(c *gin.Context) {
	hostID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	bucket := c.DefaultQuery("filter", "all")
	switch bucket {
	case "upcoming", "past", "all":
	default:
		response.BadRequest(c, "invalid filter")
		return
	}
	list, err := h.repo.List(c.Request.Context(), hostID, bucket, bucket == "upcoming")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get returns one meeting with its agenda and roster. Roster contact details
// are only shown to the host.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	m, err := h.repo.GetWithRelations(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if m.HostID != c.MustGet(middleware.ContextUserID).(uuid.UUID) {
		redactRoster(m)
	}
	response.OK(c, m)
}

// GetForParticipant returns the meeting the resolved magic link belongs to.
// Participant roster details are redacted for non-admin callers.
func (h *Handler) GetForParticipant(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	m, err := h.repo.GetWithRelations(c.Request.Context(), p.MeetingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if p.Role != models.RoleAdmin {
		redactRoster(m)
	}
	response.OK(c, m)
}

func redactRoster(m *models.Meeting) {
	for i := range m.Participants {
		m.Participants[i] = m.Participants[i].Redacted()
	}
}

type updateMeetingRequest struct {
	Name                *string `json:"name"`
	Description         *string `json:"description"`
	DurationMs          *int64  `json:"duration_ms"`
	EnableTranscription *bool   `json:"enable_transcription"`
}

// Update edits the meeting's descriptive fields. Host only.
func (h *Handler) Update(c *gin.Context) {
	id, userID, ok := h.requireHost(c, "only the host can update the meeting")
	if !ok {
		return
	}
	var req updateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.repo.Update(c.Request.Context(), id, req.Name, req.Description, req.DurationMs, req.EnableTranscription); err != nil {
		response.Error(c, err)
		return
	}
	m, err := h.repo.GetWithRelations(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.MeetingUpdated(id)
	h.logger.Info("meeting updated", zap.String("meeting_id", id.String()), zap.String("user_id", userID.String()))
	response.OK(c, m)
}

// Delete removes the meeting and everything it owns. Host only. Connected
// clients are told the meeting is gone before their room is torn down.
func (h *Handler) Delete(c *gin.Context) {
	id, userID, ok := h.requireHost(c, "only the host can delete the meeting")
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.MeetingDeleted(id)
	h.logger.Info("meeting deleted", zap.String("meeting_id", id.String()), zap.String("user_id", userID.String()))
	response.NoContent(c)
}

// Start begins the meeting.
func (h *Handler) Start(c *gin.Context) {
	h.lifecycle(c, h.repo.Start, "meeting started")
}

// Next advances to the next agenda item.
func (h *Handler) Next(c *gin.Context) {
	h.lifecycle(c, h.repo.Advance, "meeting advanced")
}

// End finishes the meeting.
func (h *Handler) End(c *gin.Context) {
	h.lifecycle(c, h.repo.End, "meeting ended")
}

func (h *Handler) lifecycle(c *gin.Context, op func(ctx context.Context, meetingID, requesterID uuid.UUID, now time.Time) (*models.Meeting, error), logMsg string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	m, err := op(c.Request.Context(), id, userID, time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.MeetingUpdated(id)
	h.notifier.AgendaUpdated(id)
	h.logger.Info(logMsg, zap.String("meeting_id", id.String()), zap.String("status", string(m.Status)))
	response.OK(c, m)
}

func (h *Handler) requireHost(c *gin.Context, forbiddenMsg string) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return uuid.Nil, uuid.Nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.repo.IsHost(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	if !ok {
		exists, exErr := h.repo.Exists(c.Request.Context(), id)
		if exErr == nil && !exists {
			response.NotFound(c, "meeting not found")
			return uuid.Nil, uuid.Nil, false
		}
		response.Forbidden(c, forbiddenMsg)
		return uuid.Nil, uuid.Nil, false
	}
	return id, userID, true
}
