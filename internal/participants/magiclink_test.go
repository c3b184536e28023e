package participants

import (
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func TestMagicLinkSignParse(t *testing.T) {
	ml := NewMagicLink("unit-test-secret")
	pid := uuid.New()

	token, err := ml.Sign(pid)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	got, err := ml.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != pid {
		t.Errorf("Parse = %s, want %s", got, pid)
	}
}

func TestMagicLinkTokensAreUnique(t *testing.T) {
	ml := NewMagicLink("unit-test-secret")
	pid := uuid.New()

	a, err := ml.Sign(pid)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	b, err := ml.Sign(pid)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if a == b {
		t.Error("two tokens for the same participant are identical")
	}
}

func TestMagicLinkParseRejects(t *testing.T) {
	ml := NewMagicLink("unit-test-secret")
	other := NewMagicLink("different-secret")
	pid := uuid.New()

	foreign, err := other.Sign(pid)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ml.Parse(tt.token); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.token)
			}
		})
	}
}

// Issuing a new link replaces the stored hash, so only the latest token
// verifies against it. Tokens are hashed via their digest: bcrypt caps its
// input at 72 bytes and signed tokens are far longer.
func TestMagicLinkSingleUseViaStoredHash(t *testing.T) {
	ml := NewMagicLink("unit-test-secret")
	pid := uuid.New()

	first, err := ml.Sign(pid)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	second, err := ml.Sign(pid)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(second) <= 72 {
		t.Fatalf("token is %d bytes, expected longer than bcrypt's 72-byte limit", len(second))
	}

	stored, err := bcrypt.GenerateFromPassword(tokenDigest(second), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	if bcrypt.CompareHashAndPassword(stored, tokenDigest(second)) != nil {
		t.Error("latest token does not verify against stored hash")
	}
	if bcrypt.CompareHashAndPassword(stored, tokenDigest(first)) == nil {
		t.Error("superseded token still verifies against stored hash")
	}
}

func TestTokenDigestFitsBcrypt(t *testing.T) {
	ml := NewMagicLink("unit-test-secret")
	token, err := ml.Sign(uuid.New())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	d := tokenDigest(token)
	if len(d) != 32 {
		t.Fatalf("digest length = %d, want 32", len(d))
	}
	if string(d) == string(tokenDigest(token+"x")) {
		t.Error("digest ignores token content")
	}
	if _, err := bcrypt.GenerateFromPassword(d, bcrypt.MinCost); err != nil {
		t.Errorf("bcrypt rejects digest: %v", err)
	}
}
