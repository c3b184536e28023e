package meetings

import (
	"strings"
	"testing"
)

func TestPasswordCipherRoundTrip(t *testing.T) {
	c, err := NewPasswordCipher("unit-test-secret")
	if err != nil {
		t.Fatalf("NewPasswordCipher: %v", err)
	}

	for _, plain := range []string{"", "hunter2", "päss wörd with spaces"} {
		enc, err := c.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plain, err)
		}
		if !strings.Contains(enc, "|") {
			t.Fatalf("Encrypt(%q) = %q, want cipher|iv format", plain, enc)
		}
		got, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", enc, err)
		}
		if got != plain {
			t.Errorf("round trip = %q, want %q", got, plain)
		}
	}
}

func TestPasswordCipherFreshIVPerEncrypt(t *testing.T) {
	c, err := NewPasswordCipher("unit-test-secret")
	if err != nil {
		t.Fatalf("NewPasswordCipher: %v", err)
	}
	a, err := c.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same input produced identical output")
	}
}

func TestPasswordCipherDecryptErrors(t *testing.T) {
	c, err := NewPasswordCipher("unit-test-secret")
	if err != nil {
		t.Fatalf("NewPasswordCipher: %v", err)
	}
	tests := []struct {
		name  string
		input string
	}{
		{"no separator", "bm9zZXBhcmF0b3I="},
		{"bad base64 cipher", "%%%|aXZpdml2aXZpdml2aXY="},
		{"short iv", "Y2lwaGVy|c2hvcnQ="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.input); err == nil {
				t.Errorf("Decrypt(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestPasswordCipherKeyMatters(t *testing.T) {
	a, err := NewPasswordCipher("secret-a")
	if err != nil {
		t.Fatalf("NewPasswordCipher: %v", err)
	}
	b, err := NewPasswordCipher("secret-b")
	if err != nil {
		t.Fatalf("NewPasswordCipher: %v", err)
	}
	enc, err := a.Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := b.Decrypt(enc)
	if err == nil && got == "top secret" {
		t.Error("decrypt with wrong key recovered the plaintext")
	}
}
