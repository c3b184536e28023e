package realtime

import (
	"encoding/json"
	"testing"
)

// The publishing instance already delivered the event to its own sockets, so
// its subscriber must drop the echoed message or clients see everything twice.
func TestDecodeSkipsSelfPublishedMessages(t *testing.T) {
	self := &RedisPubSub{instanceID: "instance-a"}

	own, err := json.Marshal(redisPayload{Origin: "instance-a", Event: EventAgendaUpdated, Scope: ScopeAll})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, deliver := self.decode(own); deliver {
		t.Error("self-published message delivered")
	}

	foreign, err := json.Marshal(redisPayload{Origin: "instance-b", Event: EventAgendaUpdated, Scope: ScopeHost, Data: []byte(`{"k":"v"}`)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p, deliver := self.decode(foreign)
	if !deliver {
		t.Fatal("foreign message dropped")
	}
	if p.Event != EventAgendaUpdated || p.Scope != ScopeHost {
		t.Errorf("decoded payload = %+v, want event/scope preserved", p)
	}

	if _, deliver := self.decode([]byte("not json")); deliver {
		t.Error("malformed message delivered")
	}
}
