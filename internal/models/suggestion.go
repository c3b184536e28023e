package models

import (
	"time"

	"github.com/google/uuid"
)

// Suggestion is a participant-submitted proposal for an agenda item. On host
// acceptance one agenda item is synthesized from it; the suggestion itself is
// kept and marked accepted.
type Suggestion struct {
	ID                 uuid.UUID  `json:"id"`
	MeetingID          uuid.UUID  `json:"meeting_id"`
	ParticipantID      uuid.UUID  `json:"participant_id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	ExpectedDurationMs int64      `json:"expected_duration_ms"`
	Accepted           bool       `json:"accepted"`
	SpeakerID          *uuid.UUID `json:"speaker_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
