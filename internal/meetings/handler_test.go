package meetings

import (
	"testing"

	"github.com/google/uuid"

	"github.com/meetballs/backend/internal/models"
)

// Non-host reads get the same roster the realtime path broadcasts to
// participants: names and roles, no contact details.
func TestRedactRosterStripsEmails(t *testing.T) {
	m := &models.Meeting{
		ID:     uuid.New(),
		HostID: uuid.New(),
		Participants: []models.Participant{
			{UserEmail: "host@example.com", UserName: "Host", Role: models.RoleAdmin},
			{UserEmail: "member@example.com", UserName: "Member", Role: models.RoleMember},
		},
	}

	redactRoster(m)

	for _, p := range m.Participants {
		if p.UserEmail != "" {
			t.Errorf("participant %q still carries email %q", p.UserName, p.UserEmail)
		}
		if p.UserName == "" {
			t.Error("redaction dropped the participant name")
		}
	}
}
