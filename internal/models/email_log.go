package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailLog records one outbound email tied to a meeting.
type EmailLog struct {
	ID             uuid.UUID `json:"id"`
	MeetingID      uuid.UUID `json:"meeting_id"`
	RecipientEmail string    `json:"recipient_email"`
	EmailType      string    `json:"email_type"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Recording is a Zoom cloud recording tracked for transfer into S3.
type Recording struct {
	ID          uuid.UUID `json:"id"`
	MeetingID   uuid.UUID `json:"meeting_id"`
	DownloadURL string    `json:"download_url"`
	S3Key       *string   `json:"s3_key,omitempty"`
	S3URL       *string   `json:"s3_url,omitempty"`
	SizeBytes   *int64    `json:"size_bytes,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
