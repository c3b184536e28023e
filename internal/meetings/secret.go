package meetings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// PasswordCipher encrypts stored meeting passwords with AES-256-CTR using a
// key derived from the configured meeting secret.
type PasswordCipher struct {
	key []byte
}

// NewPasswordCipher derives the AES key from secret.
func NewPasswordCipher(secret string) (*PasswordCipher, error) {
	key, err := scrypt.Key([]byte(secret), []byte("salt"), 16384, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive meeting key: %w", err)
	}
	return &PasswordCipher{key: key}, nil
}

// Encrypt returns the ciphertext encoded as "cipher|iv", both base64.
func (c *PasswordCipher) Encrypt(plain string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	out := make([]byte, len(plain))
	cipher.NewCTR(block, iv).XORKeyStream(out, []byte(plain))
	return base64.StdEncoding.EncodeToString(out) + "|" + base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt.
func (c *PasswordCipher) Decrypt(encoded string) (string, error) {
	parts := strings.SplitN(encoded, "|", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed encrypted password")
	}
	data, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", err
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("malformed iv")
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return string(out), nil
}
