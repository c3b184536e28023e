// Package uploads hands out pre-signed S3 URLs for speaker material files.
// The server never proxies file bytes; clients talk to S3 directly.
package uploads

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/middleware"
	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/response"
	"github.com/meetballs/backend/pkg/storage"
)

// Handler exposes the upload URL endpoints for magic-link participants.
type Handler struct {
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates an uploads handler.
func NewHandler(s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{s3: s3, logger: logger}
}

type uploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

// UploadURL returns a short-lived pre-signed PUT URL. The object key is
// scoped to the meeting and the uploading participant.
func (h *Handler) UploadURL(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.UploadKey(p.MeetingID.String(), p.ID.String(), req.Filename)
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, contentType, h.s3.PresignExpire())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("upload url issued", zap.String("meeting_id", p.MeetingID.String()), zap.String("key", key))
	response.OK(c, gin.H{"url": url, "key": key})
}

type downloadURLRequest struct {
	UploaderID string `json:"uploader_id" binding:"required"`
	Filename   string `json:"filename" binding:"required"`
}

// DownloadURL returns a short-lived pre-signed GET URL for a previously
// uploaded file. The object must exist.
func (h *Handler) DownloadURL(c *gin.Context) {
	p := c.MustGet(middleware.ContextParticipant).(*models.Participant)
	var req downloadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if _, err := uuid.Parse(req.UploaderID); err != nil {
		response.BadRequest(c, "invalid uploader id")
		return
	}
	key := storage.UploadKey(p.MeetingID.String(), req.UploaderID, req.Filename)
	exists, err := h.s3.ObjectExists(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !exists {
		response.NotFound(c, "file not found")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), key, h.s3.PresignExpire())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"url": url, "key": key})
}
