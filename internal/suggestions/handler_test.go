package suggestions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetballs/backend/internal/middleware"
	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
)

type fakeStore struct {
	suggestion *models.Suggestion
	acceptErr  error
	accepts    int
}

func (f *fakeStore) Create(context.Context, *models.Suggestion) error { return nil }
func (f *fakeStore) ListByMeeting(context.Context, uuid.UUID) ([]models.Suggestion, error) {
	return nil, nil
}
func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Suggestion, error) {
	if f.suggestion == nil || f.suggestion.ID != id {
		return nil, apperr.NotFound("suggestion not found")
	}
	return f.suggestion, nil
}
func (f *fakeStore) Update(context.Context, uuid.UUID, *string, *string, *int64) error { return nil }
func (f *fakeStore) Delete(context.Context, uuid.UUID) error                           { return nil }

func (f *fakeStore) AcceptAndAppend(_ context.Context, s *models.Suggestion) (*models.AgendaItem, error) {
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	f.accepts++
	return &models.AgendaItem{MeetingID: s.MeetingID, Position: 3, Name: s.Name}, nil
}

type fakeHostChecker struct{ hostID uuid.UUID }

func (f fakeHostChecker) IsHost(_ context.Context, _, userID uuid.UUID) (bool, error) {
	return userID == f.hostID, nil
}

type recordingNotifier struct {
	suggestions int
	agenda      int
	deleted     int
}

func (r *recordingNotifier) SuggestionsUpdated(uuid.UUID)           { r.suggestions++ }
func (r *recordingNotifier) SuggestionDeleted(uuid.UUID, uuid.UUID) { r.deleted++ }
func (r *recordingNotifier) AgendaUpdated(uuid.UUID)                { r.agenda++ }

func acceptRequest(t *testing.T, h *Handler, meetingID, suggestionID, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{
		{Key: "id", Value: meetingID.String()},
		{Key: "suggestion_id", Value: suggestionID.String()},
	}
	c.Set(middleware.ContextUserID, userID)
	h.Accept(c)
	return w
}

func TestAcceptAppendsAndNotifies(t *testing.T) {
	meetingID, hostID := uuid.New(), uuid.New()
	s := &models.Suggestion{ID: uuid.New(), MeetingID: meetingID, Name: "budget review"}
	store := &fakeStore{suggestion: s}
	notifier := &recordingNotifier{}
	h := NewHandler(store, fakeHostChecker{hostID: hostID}, notifier, zap.NewNop())

	w := acceptRequest(t, h, meetingID, s.ID, hostID)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.accepts != 1 {
		t.Errorf("accept committed %d times, want 1", store.accepts)
	}
	if notifier.suggestions != 1 || notifier.agenda != 1 {
		t.Errorf("notifier fired suggestions=%d agenda=%d, want 1 each", notifier.suggestions, notifier.agenda)
	}
}

// Accept and append commit together; when the store fails, nothing was
// accepted and no events go out, so the host can simply retry.
func TestAcceptFailureLeavesNoPartialState(t *testing.T) {
	meetingID, hostID := uuid.New(), uuid.New()
	s := &models.Suggestion{ID: uuid.New(), MeetingID: meetingID, Name: "budget review"}
	store := &fakeStore{suggestion: s, acceptErr: apperr.Internal("failed to append agenda item", nil)}
	notifier := &recordingNotifier{}
	h := NewHandler(store, fakeHostChecker{hostID: hostID}, notifier, zap.NewNop())

	w := acceptRequest(t, h, meetingID, s.ID, hostID)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if store.accepts != 0 {
		t.Errorf("accept committed %d times on failure, want 0", store.accepts)
	}
	if notifier.suggestions != 0 || notifier.agenda != 0 {
		t.Errorf("notifier fired suggestions=%d agenda=%d on failure, want 0", notifier.suggestions, notifier.agenda)
	}
}

func TestAcceptTwiceIsInvalidState(t *testing.T) {
	meetingID, hostID := uuid.New(), uuid.New()
	s := &models.Suggestion{ID: uuid.New(), MeetingID: meetingID, Name: "budget review", Accepted: true}
	store := &fakeStore{suggestion: s, acceptErr: apperr.InvalidState("suggestion already accepted")}
	h := NewHandler(store, fakeHostChecker{hostID: hostID}, &recordingNotifier{}, zap.NewNop())

	if w := acceptRequest(t, h, meetingID, s.ID, hostID); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAcceptRequiresHost(t *testing.T) {
	meetingID, hostID := uuid.New(), uuid.New()
	s := &models.Suggestion{ID: uuid.New(), MeetingID: meetingID, Name: "budget review"}
	store := &fakeStore{suggestion: s}
	h := NewHandler(store, fakeHostChecker{hostID: hostID}, &recordingNotifier{}, zap.NewNop())

	if w := acceptRequest(t, h, meetingID, s.ID, uuid.New()); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if store.accepts != 0 {
		t.Errorf("accept committed for non-host")
	}
}
