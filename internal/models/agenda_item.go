package models

import (
	"time"

	"github.com/google/uuid"
)

// AgendaItem is one ordered segment of a meeting's planned content,
// identified by (meeting_id, position). Positions are 0-based and dense per
// meeting; at most one item per meeting is current.
type AgendaItem struct {
	MeetingID          uuid.UUID  `json:"meeting_id"`
	Position           int        `json:"position"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	ExpectedDurationMs int64      `json:"expected_duration_ms"`
	ActualDurationMs   *int64     `json:"actual_duration_ms,omitempty"`
	StartTime          *time.Time `json:"start_time,omitempty"`
	IsCurrent          bool       `json:"is_current"`
	SpeakerID          *uuid.UUID `json:"speaker_id,omitempty"`
	SpeakerName        *string    `json:"speaker_name,omitempty"`
	SpeakerMaterials   *string    `json:"speaker_materials,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
