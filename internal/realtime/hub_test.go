package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/models"
)

func newTestClient(meetingID uuid.UUID, isHost bool) *Client {
	return &Client{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		IsHost:    isHost,
		send:      make(chan WSMessage, 4),
	}
}

func drain(c *Client) []WSMessage {
	var msgs []WSMessage
	for {
		select {
		case m := <-c.send:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestScopeMatches(t *testing.T) {
	tests := []struct {
		scope  Scope
		isHost bool
		want   bool
	}{
		{ScopeAll, true, true},
		{ScopeAll, false, true},
		{ScopeHost, true, true},
		{ScopeHost, false, false},
		{ScopeParticipant, true, false},
		{ScopeParticipant, false, true},
	}
	for _, tt := range tests {
		if got := tt.scope.matches(tt.isHost); got != tt.want {
			t.Errorf("%s.matches(isHost=%v) = %v, want %v", tt.scope, tt.isHost, got, tt.want)
		}
	}
}

func TestHubBroadcastScoped(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	meetingID := uuid.New()

	host := newTestClient(meetingID, true)
	member := newTestClient(meetingID, false)
	stranger := newTestClient(uuid.New(), false)
	for _, c := range []*Client{host, member, stranger} {
		c.hub = hub
		hub.Register(c)
	}

	hub.Broadcast(meetingID, EventParticipantsUpdate, ScopeHost, map[string]string{"full": "roster"})
	hub.Broadcast(meetingID, EventParticipantsUpdate, ScopeParticipant, map[string]string{"redacted": "roster"})
	hub.Broadcast(meetingID, EventAgendaUpdated, ScopeAll, []string{"item"})

	hostMsgs := drain(host)
	if len(hostMsgs) != 2 {
		t.Fatalf("host received %d messages, want 2", len(hostMsgs))
	}
	var hostPayload map[string]string
	if err := json.Unmarshal(hostMsgs[0].Data, &hostPayload); err != nil {
		t.Fatalf("unmarshal host payload: %v", err)
	}
	if hostPayload["full"] != "roster" {
		t.Errorf("host payload = %v, want full roster", hostPayload)
	}

	memberMsgs := drain(member)
	if len(memberMsgs) != 2 {
		t.Fatalf("member received %d messages, want 2", len(memberMsgs))
	}
	var memberPayload map[string]string
	if err := json.Unmarshal(memberMsgs[0].Data, &memberPayload); err != nil {
		t.Fatalf("unmarshal member payload: %v", err)
	}
	if _, leaked := memberPayload["full"]; leaked {
		t.Error("member received host-scoped payload")
	}

	if msgs := drain(stranger); len(msgs) != 0 {
		t.Errorf("client in another room received %d messages, want 0", len(msgs))
	}
}

func TestHubDropsOnFullBuffer(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	meetingID := uuid.New()

	c := &Client{ID: "slow", MeetingID: meetingID, send: make(chan WSMessage, 1), hub: hub}
	hub.Register(c)

	hub.Broadcast(meetingID, EventAgendaUpdated, ScopeAll, "first")
	hub.Broadcast(meetingID, EventAgendaUpdated, ScopeAll, "second") // dropped

	if got := len(drain(c)); got != 1 {
		t.Errorf("slow client buffered %d messages, want 1", got)
	}
}

// Joining and leaving while a broadcast is fanning out must not touch the
// room map outside the lock.
func TestHubBroadcastDuringMembershipChanges(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	meetingID := uuid.New()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c := newTestClient(meetingID, i%2 == 0)
			c.hub = hub
			hub.Register(c)
			hub.Unregister(c)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Broadcast(meetingID, EventAgendaUpdated, ScopeAll, "tick")
		}
	}()
	wg.Wait()

	if got := hub.RoomSize(meetingID); got != 0 {
		t.Errorf("RoomSize = %d after churn, want 0", got)
	}
}

func TestHubRoomLifecycle(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	meetingID := uuid.New()

	a := newTestClient(meetingID, false)
	b := newTestClient(meetingID, false)
	a.hub, b.hub = hub, hub
	hub.Register(a)
	hub.Register(b)

	if got := hub.RoomSize(meetingID); got != 2 {
		t.Fatalf("RoomSize = %d, want 2", got)
	}
	hub.Unregister(a)
	if got := hub.RoomSize(meetingID); got != 1 {
		t.Fatalf("RoomSize = %d, want 1", got)
	}
	hub.Unregister(b)
	if got := hub.RoomSize(meetingID); got != 0 {
		t.Fatalf("RoomSize = %d, want 0", got)
	}
}

func TestParticipantRedactionForBroadcast(t *testing.T) {
	p := models.Participant{UserEmail: "member@example.com", UserName: "Member"}
	r := p.Redacted()
	if r.UserEmail != "" {
		t.Errorf("redacted email = %q, want empty", r.UserEmail)
	}
	if r.UserName != "Member" {
		t.Errorf("redacted name = %q, want unchanged", r.UserName)
	}
	if p.UserEmail != "member@example.com" {
		t.Error("Redacted mutated the original")
	}
}
