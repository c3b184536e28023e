package zoom

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meetballs/backend/config"
)

func webhookRequest(t *testing.T, h *WebhookHandler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/zoom", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if token != "" {
		c.Request.Header.Set("Authorization", token)
	}
	h.Handle(c)
	return w
}

func TestWebhookVerificationToken(t *testing.T) {
	h := NewWebhookHandler(config.ZoomConfig{VerificationToken: "vt"}, nil, nil, nil, nil, nil, nil, zap.NewNop())

	if w := webhookRequest(t, h, "wrong", `{"event":"x"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}
	if w := webhookRequest(t, h, "vt", `{"event":"unknown.event"}`); w.Code != http.StatusOK {
		t.Errorf("unknown event: status = %d, want 200", w.Code)
	}
}

func TestWebhookURLValidation(t *testing.T) {
	h := NewWebhookHandler(config.ZoomConfig{VerificationToken: "vt"}, nil, nil, nil, nil, nil, nil, zap.NewNop())

	w := webhookRequest(t, h, "vt", `{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		PlainToken     string `json:"plainToken"`
		EncryptedToken string `json:"encryptedToken"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.PlainToken != "abc123" {
		t.Errorf("plainToken = %q, want abc123", resp.PlainToken)
	}

	mac := hmac.New(sha256.New, []byte("vt"))
	mac.Write([]byte("abc123"))
	if want := hex.EncodeToString(mac.Sum(nil)); resp.EncryptedToken != want {
		t.Errorf("encryptedToken = %q, want %q", resp.EncryptedToken, want)
	}
}
