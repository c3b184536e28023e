package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingStatus is the meeting lifecycle state. Transitions are monotonic:
// waiting -> started -> ended.
type MeetingStatus string

const (
	MeetingWaiting MeetingStatus = "waiting"
	MeetingStarted MeetingStatus = "started"
	MeetingEnded   MeetingStatus = "ended"
)

// Valid reports whether s is one of the known lifecycle states.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingWaiting, MeetingStarted, MeetingEnded:
		return true
	}
	return false
}

// Meeting is the top-level scheduled session aggregate. It owns its agenda
// items, participants and suggestions.
type Meeting struct {
	ID                  uuid.UUID     `json:"id"`
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	Status              MeetingStatus `json:"status"`
	StartedAt           *time.Time    `json:"started_at,omitempty"`
	EndedAt             *time.Time    `json:"ended_at,omitempty"`
	DurationMs          int64         `json:"duration_ms"`
	HostID              uuid.UUID     `json:"host_id"`
	ZoomMeetingID       *string       `json:"zoom_meeting_id,omitempty"`
	ZoomUUID            *string       `json:"zoom_uuid,omitempty"`
	JoinURL             *string       `json:"join_url,omitempty"`
	MeetingPassword     string        `json:"-"` // encrypted at rest
	EnableTranscription bool          `json:"enable_transcription"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	AgendaItems  []AgendaItem  `json:"agenda_items,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}
