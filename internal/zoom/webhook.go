package zoom

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/config"
	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/queue"
)

// MeetingLookup finds the local meeting a Zoom webhook refers to.
type MeetingLookup interface {
	GetByZoomUUID(ctx context.Context, zoomUUID string) (*models.Meeting, error)
}

// RosterStore marks webhook-reported participants present.
type RosterStore interface {
	FindByEmail(ctx context.Context, meetingID uuid.UUID, email string) (*models.Participant, error)
	MarkPresent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RosterNotifier announces roster changes triggered by webhooks.
type RosterNotifier interface {
	ParticipantsUpdated(meetingID uuid.UUID)
}

type noopRosterNotifier struct{}

func (noopRosterNotifier) ParticipantsUpdated(uuid.UUID) {}

// WebhookHandler receives Zoom event notifications.
type WebhookHandler struct {
	cfg        config.ZoomConfig
	meetings   MeetingLookup
	roster     RosterStore
	recordings *RecordingRepository
	users      UserStore
	queue      *queue.Queue
	notifier   RosterNotifier
	logger     *zap.Logger
}

// NewWebhookHandler creates a Zoom webhook handler. notifier may be nil.
func NewWebhookHandler(cfg config.ZoomConfig, meetingLookup MeetingLookup, roster RosterStore, recordings *RecordingRepository, users UserStore, q *queue.Queue, notifier RosterNotifier, logger *zap.Logger) *WebhookHandler {
	if notifier == nil {
		notifier = noopRosterNotifier{}
	}
	return &WebhookHandler{cfg: cfg, meetings: meetingLookup, roster: roster, recordings: recordings, users: users, queue: q, notifier: notifier, logger: logger}
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		PlainToken string          `json:"plainToken"`
		Object     json.RawMessage `json:"object"`
		UserID     string          `json:"user_id"`
	} `json:"payload"`
}

type participantJoinedObject struct {
	UUID        string `json:"uuid"`
	Participant struct {
		Email    string `json:"email"`
		UserName string `json:"user_name"`
		JoinTime string `json:"join_time"`
	} `json:"participant"`
}

type recordingCompletedObject struct {
	UUID           string `json:"uuid"`
	RecordingFiles []struct {
		DownloadURL string `json:"download_url"`
		FileType    string `json:"file_type"`
	} `json:"recording_files"`
}

// Handle processes one webhook delivery. Unknown events are acknowledged and
// dropped; Zoom retries anything not answered with 2xx.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.cfg.VerificationToken != "" && c.GetHeader("Authorization") != h.cfg.VerificationToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid verification token"})
		return
	}

	var ev webhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	switch ev.Event {
	case "endpoint.url_validation":
		h.validateURL(c, ev.Payload.PlainToken)
	case "meeting.participant_joined":
		h.participantJoined(c, ev.Payload.Object)
	case "recording.completed":
		h.recordingCompleted(c, ev.Payload.Object)
	case "app_deauthorized":
		h.appDeauthorized(c, ev.Payload.UserID)
	default:
		c.Status(http.StatusOK)
	}
}

// validateURL answers Zoom's endpoint ownership challenge.
func (h *WebhookHandler) validateURL(c *gin.Context, plainToken string) {
	mac := hmac.New(sha256.New, []byte(h.cfg.VerificationToken))
	mac.Write([]byte(plainToken))
	c.JSON(http.StatusOK, gin.H{
		"plainToken":     plainToken,
		"encryptedToken": hex.EncodeToString(mac.Sum(nil)),
	})
}

func (h *WebhookHandler) participantJoined(c *gin.Context, raw json.RawMessage) {
	var obj participantJoinedObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		c.Status(http.StatusOK)
		return
	}
	m, err := h.meetings.GetByZoomUUID(c.Request.Context(), obj.UUID)
	if err != nil || m == nil {
		c.Status(http.StatusOK)
		return
	}
	if obj.Participant.Email == "" {
		c.Status(http.StatusOK)
		return
	}
	p, err := h.roster.FindByEmail(c.Request.Context(), m.ID, obj.Participant.Email)
	if err != nil || p == nil {
		c.Status(http.StatusOK)
		return
	}
	joinedAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, obj.Participant.JoinTime); err == nil {
		joinedAt = t
	}
	if err := h.roster.MarkPresent(c.Request.Context(), p.ID, joinedAt); err != nil {
		h.logger.Warn("failed to mark participant present", zap.Error(err))
	} else {
		h.notifier.ParticipantsUpdated(m.ID)
	}
	c.Status(http.StatusOK)
}

func (h *WebhookHandler) recordingCompleted(c *gin.Context, raw json.RawMessage) {
	var obj recordingCompletedObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		c.Status(http.StatusOK)
		return
	}
	m, err := h.meetings.GetByZoomUUID(c.Request.Context(), obj.UUID)
	if err != nil || m == nil {
		c.Status(http.StatusOK)
		return
	}
	for _, f := range obj.RecordingFiles {
		if f.DownloadURL == "" {
			continue
		}
		rec := &models.Recording{MeetingID: m.ID, DownloadURL: f.DownloadURL}
		if err := h.recordings.Create(c.Request.Context(), rec); err != nil {
			h.logger.Error("failed to register recording", zap.Error(err), zap.String("meeting_id", m.ID.String()))
			continue
		}
		if err := h.queue.EnqueueRecordingTransfer(c.Request.Context(), queue.RecordingTransferPayload{
			RecordingID: rec.ID,
			MeetingID:   m.ID,
			DownloadURL: f.DownloadURL,
		}); err != nil {
			h.logger.Error("failed to enqueue recording transfer", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		}
	}
	c.Status(http.StatusOK)
}

// appDeauthorized handles the compliance event sent when a user removes the
// app from their Zoom account.
func (h *WebhookHandler) appDeauthorized(c *gin.Context, zoomUserID string) {
	if zoomUserID == "" {
		c.Status(http.StatusOK)
		return
	}
	u, err := h.users.GetByZoomID(c.Request.Context(), zoomUserID)
	if err != nil || u == nil {
		c.Status(http.StatusOK)
		return
	}
	if err := h.users.UnlinkZoom(c.Request.Context(), u.ID); err != nil {
		h.logger.Error("failed to unlink zoom account", zap.Error(err), zap.String("user_id", u.ID.String()))
	} else {
		h.logger.Info("zoom account unlinked via deauthorization", zap.String("user_id", u.ID.String()))
	}
	c.Status(http.StatusOK)
}
