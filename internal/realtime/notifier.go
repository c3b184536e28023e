package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/models"
)

const (
	// deleteDisconnectDelay is the grace between announcing a deleted
	// meeting and tearing the room down, so clients receive the event.
	deleteDisconnectDelay = 5 * time.Second

	fetchTimeout = 5 * time.Second
)

// Event names pushed to clients.
const (
	EventMeetingUpdated     = "meetingUpdated"
	EventMeetingDeleted     = "meetingDeleted"
	EventAgendaUpdated      = "agendaUpdated"
	EventParticipantsUpdate = "participantsUpdated"
	EventSuggestionsUpdate  = "suggestionsUpdated"
	EventSuggestionDeleted  = "suggestionDeleted"
)

// MeetingSource loads the full meeting payload for broadcast.
type MeetingSource interface {
	GetWithRelations(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
}

// AgendaSource loads the agenda payload for broadcast.
type AgendaSource interface {
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.AgendaItem, error)
}

// ParticipantSource loads the roster payload for broadcast.
type ParticipantSource interface {
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Participant, error)
}

// SuggestionSource loads the suggestions payload for broadcast.
type SuggestionSource interface {
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Suggestion, error)
}

// Notifier turns domain changes into room broadcasts. Every event carries a
// freshly loaded snapshot, so clients never apply diffs.
type Notifier struct {
	hub          *Hub
	meetings     MeetingSource
	agenda       AgendaSource
	participants ParticipantSource
	suggestions  SuggestionSource
	logger       *zap.Logger
}

// NewNotifier creates a notifier backed by hub.
func NewNotifier(hub *Hub, meetings MeetingSource, agendaSrc AgendaSource, participants ParticipantSource, suggestions SuggestionSource, logger *zap.Logger) *Notifier {
	return &Notifier{hub: hub, meetings: meetings, agenda: agendaSrc, participants: participants, suggestions: suggestions, logger: logger}
}

// MeetingUpdated broadcasts the meeting's current state to the room.
func (n *Notifier) MeetingUpdated(meetingID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	m, err := n.meetings.GetWithRelations(ctx, meetingID)
	if err != nil {
		n.logger.Warn("failed to load meeting for broadcast", zap.String("meeting_id", meetingID.String()), zap.Error(err))
		return
	}
	n.hub.Broadcast(meetingID, EventMeetingUpdated, ScopeAll, m)
}

// MeetingDeleted announces the deletion, then disconnects the room after a
// short grace so the event reaches every client first.
func (n *Notifier) MeetingDeleted(meetingID uuid.UUID) {
	n.hub.Broadcast(meetingID, EventMeetingDeleted, ScopeAll, map[string]string{"meeting_id": meetingID.String()})
	time.AfterFunc(deleteDisconnectDelay, func() {
		n.hub.DisconnectRoom(meetingID)
	})
}

// AgendaUpdated broadcasts the current agenda to the room.
func (n *Notifier) AgendaUpdated(meetingID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	items, err := n.agenda.ListByMeeting(ctx, meetingID)
	if err != nil {
		n.logger.Warn("failed to load agenda for broadcast", zap.String("meeting_id", meetingID.String()), zap.Error(err))
		return
	}
	n.hub.Broadcast(meetingID, EventAgendaUpdated, ScopeAll, items)
}

// ParticipantsUpdated broadcasts the roster. Hosts receive the full roster;
// everyone else gets redacted entries.
func (n *Notifier) ParticipantsUpdated(meetingID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	roster, err := n.participants.ListByMeeting(ctx, meetingID)
	if err != nil {
		n.logger.Warn("failed to load roster for broadcast", zap.String("meeting_id", meetingID.String()), zap.Error(err))
		return
	}
	redacted := make([]models.Participant, len(roster))
	for i, p := range roster {
		redacted[i] = p.Redacted()
	}
	n.hub.Broadcast(meetingID, EventParticipantsUpdate, ScopeHost, roster)
	n.hub.Broadcast(meetingID, EventParticipantsUpdate, ScopeParticipant, redacted)
}

// SuggestionsUpdated broadcasts the meeting's suggestions to the room.
func (n *Notifier) SuggestionsUpdated(meetingID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	list, err := n.suggestions.ListByMeeting(ctx, meetingID)
	if err != nil {
		n.logger.Warn("failed to load suggestions for broadcast", zap.String("meeting_id", meetingID.String()), zap.Error(err))
		return
	}
	n.hub.Broadcast(meetingID, EventSuggestionsUpdate, ScopeAll, list)
}

// SuggestionDeleted tells the room one suggestion is gone.
func (n *Notifier) SuggestionDeleted(meetingID, suggestionID uuid.UUID) {
	n.hub.Broadcast(meetingID, EventSuggestionDeleted, ScopeAll, map[string]string{"suggestion_id": suggestionID.String()})
}
