package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole is the participant's role within a meeting.
type ParticipantRole string

const (
	RoleMember  ParticipantRole = "member"
	RoleAdmin   ParticipantRole = "admin"
	RoleSpeaker ParticipantRole = "speaker"
)

// Valid reports whether r is one of the known roles.
func (r ParticipantRole) Valid() bool {
	switch r {
	case RoleMember, RoleAdmin, RoleSpeaker:
		return true
	}
	return false
}

// Participant is a person associated with a meeting, unique per
// (meeting_id, user_email). A non-nil TimeJoined marks presence. Rows marked
// duplicate are excluded from the active roster and can be reactivated.
type Participant struct {
	ID                   uuid.UUID       `json:"id"`
	MeetingID            uuid.UUID       `json:"meeting_id"`
	UserEmail            string          `json:"user_email"`
	UserName             string          `json:"user_name"`
	Role                 ParticipantRole `json:"role"`
	TimeJoined           *time.Time      `json:"time_joined,omitempty"`
	Invited              bool            `json:"invited"`
	IsDuplicate          bool            `json:"is_duplicate"`
	HashedMagicLinkToken *string         `json:"-"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Redacted returns a copy with contact details stripped, for broadcast to
// non-host sockets.
func (p Participant) Redacted() Participant {
	p.UserEmail = ""
	return p
}
