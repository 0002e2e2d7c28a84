package crypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts OAuth token material before it touches the database.
// Sealed values are base64(nonce || ciphertext) under XChaCha20-Poly1305.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("sealer key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// SealerFromEnv reads MAIL_TOKEN_ENC_KEY (base64 or hex encoded 32-byte key).
func SealerFromEnv() (*Sealer, error) {
	raw := strings.TrimSpace(os.Getenv("MAIL_TOKEN_ENC_KEY"))
	if raw == "" {
		return nil, fmt.Errorf("missing env var MAIL_TOKEN_ENC_KEY")
	}
	key, err := decodeKey(raw)
	if err != nil {
		return nil, fmt.Errorf("decode MAIL_TOKEN_ENC_KEY: %w", err)
	}
	return NewSealer(key)
}

func decodeKey(raw string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil && len(b) == chacha20poly1305.KeySize {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(raw); err == nil && len(b) == chacha20poly1305.KeySize {
		return b, nil
	}
	if b, err := hex.DecodeString(raw); err == nil && len(b) == chacha20poly1305.KeySize {
		return b, nil
	}
	return nil, fmt.Errorf("expected a base64 or hex encoded %d-byte key", chacha20poly1305.KeySize)
}

func (s *Sealer) Seal(plaintext string) (string, error) {
	if s == nil || s.aead == nil {
		return "", fmt.Errorf("sealer not initialized")
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	if s == nil || s.aead == nil {
		return "", fmt.Errorf("sealer not initialized")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sealed))
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("sealed value too short")
	}
	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plain), nil
}
