package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/meetballs/backend/pkg/apperr"
)

func TestErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperr.Validation("invalid positions array"), http.StatusBadRequest, "invalid positions array"},
		{"invalid state", apperr.InvalidState("meeting not started"), http.StatusBadRequest, "meeting not started"},
		{"conflict", apperr.Conflict("participant already exists"), http.StatusConflict, "participant already exists"},
		{"not found", apperr.NotFound("meeting not found"), http.StatusNotFound, "meeting not found"},
		{"forbidden", apperr.Forbidden("cannot start meeting"), http.StatusForbidden, "cannot start meeting"},
		{"unauthorized", apperr.Unauthorized("invalid or expired link"), http.StatusUnauthorized, "invalid or expired link"},
		{"upstream timeout", apperr.UpstreamTimeout("zoom request timed out", nil), http.StatusGatewayTimeout, "zoom request timed out"},
		{"upstream", apperr.Upstream("zoom request failed", nil), http.StatusBadGateway, "zoom request failed"},
		{"foreign error hidden", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Error(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body Body
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal body: %v", err)
			}
			if body.Success {
				t.Error("success = true on error response")
			}
			if body.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}
}

func TestOKEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, gin.H{"status": "ok"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body Body
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if !body.Success || body.Error != "" {
		t.Errorf("body = %+v, want success with no error", body)
	}
}
