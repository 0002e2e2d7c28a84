package crypt

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewSealer(testKey())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	plain := "ya29.a0AfB_byDummyAccessTokenValue"
	sealed, err := s.Seal(plain)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == plain {
		t.Fatalf("sealed value equals plaintext")
	}
	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != plain {
		t.Fatalf("round trip mismatch: got %q want %q", got, plain)
	}
}

func TestSealProducesDistinctCiphertexts(t *testing.T) {
	s, err := NewSealer(testKey())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	a, err := s.Seal("same input")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := s.Seal("same input")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if a == b {
		t.Fatalf("expected nonce to vary between seals")
	}
}

func TestOpenRejectsTamperedValue(t *testing.T) {
	s, err := NewSealer(testKey())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	sealed, err := s.Seal("refresh-token-value")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if _, err := s.Open(base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Fatalf("expected tampered value to fail")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	s1, err := NewSealer(testKey())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	s2, err := NewSealer(bytes.Repeat([]byte{0x7}, 32))
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	sealed, err := s1.Seal("secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := s2.Open(sealed); err == nil {
		t.Fatalf("expected open with wrong key to fail")
	}
}

func TestNewSealerRejectsBadKeySize(t *testing.T) {
	if _, err := NewSealer([]byte("short")); err == nil {
		t.Fatalf("expected short key to be rejected")
	}
}

func TestDecodeKeyFormats(t *testing.T) {
	key := testKey()
	b64 := base64.StdEncoding.EncodeToString(key)
	got, err := decodeKey(b64)
	if err != nil {
		t.Fatalf("decodeKey base64: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("base64 decode mismatch")
	}
	hexKey := strings.Repeat("42", 32)
	got, err = decodeKey(hexKey)
	if err != nil {
		t.Fatalf("decodeKey hex: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("hex decode mismatch")
	}
	if _, err := decodeKey("not-a-key"); err == nil {
		t.Fatalf("expected invalid key encoding to fail")
	}
}
