package zoom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/meetballs/backend/config"
	"github.com/meetballs/backend/pkg/apperr"
)

func testClient(baseURL string) *Client {
	return NewClient(config.ZoomConfig{BaseURL: baseURL}, zap.NewNop())
}

func TestClientGetMeeting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		if r.URL.Path != "/v2/meetings/123" {
			t.Errorf("path = %q, want /v2/meetings/123", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":123,"uuid":"abc==","topic":"Standup","duration":30,"join_url":"https://zoom.us/j/123"}`))
	}))
	defer srv.Close()

	m, err := testClient(srv.URL).GetMeeting(context.Background(), "tok", "123")
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if m.ID != 123 || m.UUID != "abc==" || m.Topic != "Standup" || m.Duration != 30 {
		t.Errorf("meeting = %+v", m)
	}
}

func TestClientListUpcomingMeetings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "upcoming" {
			t.Errorf("type = %q, want upcoming", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"meetings":[{"id":1,"topic":"A"},{"id":2,"topic":"B"}]}`))
	}))
	defer srv.Close()

	list, err := testClient(srv.URL).ListUpcomingMeetings(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListUpcomingMeetings: %v", err)
	}
	if len(list) != 2 || list[0].Topic != "A" || list[1].Topic != "B" {
		t.Errorf("list = %+v", list)
	}
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind apperr.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, apperr.KindUnauthorized},
		{"server error", http.StatusInternalServerError, apperr.KindUpstream},
		{"not found", http.StatusNotFound, apperr.KindUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).GetUser(context.Background(), "tok")
			if !apperr.IsKind(err, tt.wantKind) {
				t.Errorf("err = %v, want kind %d", err, tt.wantKind)
			}
		})
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.http.Timeout = 50 * time.Millisecond

	_, err := c.GetUser(context.Background(), "tok")
	if !apperr.IsKind(err, apperr.KindUpstreamTimeout) {
		t.Errorf("err = %v, want UpstreamTimeout", err)
	}
}
