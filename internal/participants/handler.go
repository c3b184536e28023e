package participants

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/meetballs/backend/internal/middleware"
	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
	"github.com/meetballs/backend/pkg/response"
)

// magicLinkHashCost is the bcrypt cost for stored magic-link token hashes.
const magicLinkHashCost = 12

// MeetingStore is the slice of meeting persistence the roster needs.
type MeetingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	IsHost(ctx context.Context, meetingID, userID uuid.UUID) (bool, error)
}

// Mailer delivers invitation email.
type Mailer interface {
	SendInvitation(ctx context.Context, toEmail, toName, meetingName, link string) error
}

// InviteLogger records invitation email outcomes.
type InviteLogger interface {
	LogInvitation(ctx context.Context, meetingID uuid.UUID, recipientEmail, status string) error
}

// Notifier announces roster changes to connected clients.
type Notifier interface {
	ParticipantsUpdated(meetingID uuid.UUID)
}

type noopNotifier struct{}

func (noopNotifier) ParticipantsUpdated(uuid.UUID) {}

// Handler exposes the roster and invitation REST endpoints.
type Handler struct {
	repo      *Repository
	meetings  MeetingStore
	magic     *MagicLink
	mailer    Mailer
	mailLog   InviteLogger
	notifier  Notifier
	logger    *zap.Logger
	clientURL string
}

// NewHandler creates a participant handler. notifier may be nil.
func NewHandler(repo *Repository, meetings MeetingStore, magic *MagicLink, mailer Mailer, mailLog InviteLogger, notifier Notifier, logger *zap.Logger, clientURL string) *Handler {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Handler{repo: repo, meetings: meetings, magic: magic, mailer: mailer, mailLog: mailLog, notifier: notifier, logger: logger, clientURL: clientURL}
}

// Resolve maps a presented magic-link token to its participant. Signature,
// row lookup, roster membership and the stored hash must all check out; every
// failure collapses into the same Unauthorized error.
func (h *Handler) Resolve(ctx context.Context, token string) (*models.Participant, error) {
	denied := apperr.Unauthorized("invalid or expired link")

	pid, err := h.magic.Parse(token)
	if err != nil {
		return nil, denied
	}
	p, err := h.repo.GetByID(ctx, pid)
	if err != nil {
		return nil, denied
	}
	if p.IsDuplicate || p.HashedMagicLinkToken == nil {
		return nil, denied
	}
	if bcrypt.CompareHashAndPassword([]byte(*p.HashedMagicLinkToken), tokenDigest(token)) != nil {
		return nil, denied
	}
	return p, nil
}

// List returns the meeting's active roster. Host only; participants see the
// roster through the meeting payload, redacted.
func (h *Handler) List(c *gin.Context) {
	meetingID, _, ok := h.requireHost(c, "only the host can view the roster")
	if !ok {
		return
	}
	list, err := h.repo.ListByMeeting(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

type addParticipantRequest struct {
	UserEmail string                 `json:"user_email" binding:"required,email"`
	UserName  string                 `json:"user_name"`
	Role      models.ParticipantRole `json:"role"`
}

// Add puts a person on the roster.
func (h *Handler) Add(c *gin.Context) {
	meetingID, _, ok := h.requireHost(c, "only the host can modify the roster")
	if !ok {
		return
	}
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if !req.Role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}
	p := &models.Participant{
		MeetingID: meetingID,
		UserEmail: req.UserEmail,
		UserName:  req.UserName,
		Role:      req.Role,
	}
	if err := h.repo.Add(c.Request.Context(), p); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.ParticipantsUpdated(meetingID)
	response.Created(c, p)
}

type updateRoleRequest struct {
	Role models.ParticipantRole `json:"role" binding:"required"`
}

// UpdateRole changes a participant's role.
func (h *Handler) UpdateRole(c *gin.Context) {
	meetingID, _, ok := h.requireHost(c, "only the host can modify the roster")
	if !ok {
		return
	}
	pid, err := uuid.Parse(c.Param("participant_id"))
	if err != nil {
		response.BadRequest(c, "invalid participant id")
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}
	if err := h.repo.UpdateRole(c.Request.Context(), pid, req.Role); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.ParticipantsUpdated(meetingID)
	response.NoContent(c)
}

// Remove takes a participant off the active roster. The host cannot remove
// their own row.
func (h *Handler) Remove(c *gin.Context) {
	meetingID, userID, ok := h.requireHost(c, "only the host can modify the roster")
	if !ok {
		return
	}
	pid, err := uuid.Parse(c.Param("participant_id"))
	if err != nil {
		response.BadRequest(c, "invalid participant id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), pid)
	if err != nil {
		response.Error(c, err)
		return
	}
	if p.MeetingID != meetingID {
		response.NotFound(c, "participant not found")
		return
	}
	m, err := h.meetings.GetByID(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if m.HostID == userID && p.UserEmail == c.MustGet(middleware.ContextUserEmail).(string) {
		response.BadRequest(c, "cannot remove yourself from the meeting")
		return
	}
	if err := h.repo.MarkDuplicate(c.Request.Context(), pid); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.ParticipantsUpdated(meetingID)
	response.NoContent(c)
}

// Invite issues a fresh magic link for one participant and emails it. The
// stored hash is replaced only after the mail went out, so a failed send
// leaves the previous link usable.
func (h *Handler) Invite(c *gin.Context) {
	meetingID, _, ok := h.requireHost(c, "only the host can send invitations")
	if !ok {
		return
	}
	pid, err := uuid.Parse(c.Param("participant_id"))
	if err != nil {
		response.BadRequest(c, "invalid participant id")
		return
	}
	p, err := h.invite(c.Request.Context(), meetingID, pid)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.ParticipantsUpdated(meetingID)
	response.OK(c, p)
}

type batchInviteRequest struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids" binding:"required"`
}

type inviteResult struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Email         string    `json:"email,omitempty"`
	Sent          bool      `json:"sent"`
	Error         string    `json:"error,omitempty"`
}

// InviteBatch sends invitations to many participants. Each recipient is
// handled independently: one failed send never blocks the rest.
func (h *Handler) InviteBatch(c *gin.Context) {
	meetingID, _, ok := h.requireHost(c, "only the host can send invitations")
	if !ok {
		return
	}
	var req batchInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ParticipantIDs) == 0 {
		response.BadRequest(c, "invalid request body")
		return
	}

	results := make([]inviteResult, 0, len(req.ParticipantIDs))
	for _, pid := range req.ParticipantIDs {
		res := inviteResult{ParticipantID: pid}
		p, err := h.invite(c.Request.Context(), meetingID, pid)
		if err != nil {
			res.Error = apperr.Message(err, "failed to send email")
		} else {
			res.Email = p.UserEmail
			res.Sent = true
		}
		results = append(results, res)
	}
	h.notifier.ParticipantsUpdated(meetingID)
	response.OK(c, results)
}

func (h *Handler) invite(ctx context.Context, meetingID, participantID uuid.UUID) (*models.Participant, error) {
	m, err := h.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.MeetingEnded {
		return nil, apperr.Validation("meeting has already ended")
	}
	p, err := h.repo.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.MeetingID != meetingID || p.IsDuplicate {
		return nil, apperr.NotFound("participant not found")
	}

	token, err := h.magic.Sign(p.ID)
	if err != nil {
		return nil, apperr.Internal("failed to issue magic link", err)
	}
	link := fmt.Sprintf("%s/meetings/%s/join?token=%s", h.clientURL, meetingID, token)

	if err := h.mailer.SendInvitation(ctx, p.UserEmail, p.UserName, m.Name, link); err != nil {
		if logErr := h.mailLog.LogInvitation(ctx, meetingID, p.UserEmail, "failed"); logErr != nil {
			h.logger.Warn("failed to log invitation email", zap.Error(logErr))
		}
		return nil, apperr.Internal("failed to send email", err)
	}
	if err := h.mailLog.LogInvitation(ctx, meetingID, p.UserEmail, "sent"); err != nil {
		h.logger.Warn("failed to log invitation email", zap.Error(err))
	}

	hashed, err := bcrypt.GenerateFromPassword(tokenDigest(token), magicLinkHashCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash magic link", err)
	}
	if err := h.repo.SetMagicLink(ctx, p.ID, string(hashed)); err != nil {
		return nil, err
	}
	h.logger.Info("invitation sent", zap.String("meeting_id", meetingID.String()), zap.String("participant_id", p.ID.String()))
	return h.repo.GetByID(ctx, p.ID)
}

// Validate confirms the presented magic link and records the participant's
// presence. The link itself was already resolved by middleware.
func (h *Handler) Validate(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	if err := h.repo.MarkPresent(c.Request.Context(), p.ID, time.Now().UTC()); err != nil {
		response.Error(c, err)
		return
	}
	refreshed, err := h.repo.GetByID(c.Request.Context(), p.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.ParticipantsUpdated(p.MeetingID)
	response.OK(c, refreshed)
}

// Leave clears the participant's presence marker.
func (h *Handler) Leave(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	if err := h.repo.MarkAbsent(c.Request.Context(), p.ID); err != nil {
		response.Error(c, err)
		return
	}
	h.notifier.ParticipantsUpdated(p.MeetingID)
	response.NoContent(c)
}

func (h *Handler) requireHost(c *gin.Context, forbiddenMsg string) (uuid.UUID, uuid.UUID, bool) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return uuid.Nil, uuid.Nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.meetings.IsHost(c.Request.Context(), meetingID, userID)
	if err != nil {
		response.Error(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	if !ok {
		response.Forbidden(c, forbiddenMsg)
		return uuid.Nil, uuid.Nil, false
	}
	return meetingID, userID, true
}
