package secrets

import (
	"bytes"
	"strings"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0xAB}, 32)
}

func TestNewEncryptor_RejectsShortKey(t *testing.T) {
	if _, err := NewEncryptor([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	e, err := NewEncryptor(testKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ct, err := e.Encrypt("sftp-password-123")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if strings.Contains(ct, "sftp-password-123") {
		t.Error("ciphertext leaks plaintext")
	}
	pt, err := e.Decrypt(ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if pt != "sftp-password-123" {
		t.Errorf("got %q", pt)
	}
}

func TestEncrypt_NoncesDiffer(t *testing.T) {
	e, _ := NewEncryptor(testKey())
	a, _ := e.Encrypt("same")
	b, _ := e.Encrypt("same")
	if a == b {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestDecrypt_RejectsTampered(t *testing.T) {
	e, _ := NewEncryptor(testKey())
	ct, _ := e.Encrypt("secret")
	flip := "A"
	if ct[0] == 'A' {
		flip = "B"
	}
	tampered := flip + ct[1:]
	if _, err := e.Decrypt(tampered); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestDecrypt_RejectsGarbage(t *testing.T) {
	e, _ := NewEncryptor(testKey())
	if _, err := e.Decrypt("bm90LWEtY2lwaGVydGV4dA=="); err == nil {
		t.Error("expected error for non-ciphertext input")
	}
	if _, err := e.Decrypt("not base64!!"); err == nil {
		t.Error("expected error for non-base64 input")
	}
}

func TestEncryptMap_RoundTrip(t *testing.T) {
	e, _ := NewEncryptor(testKey())
	creds := map[string]string{"api_key": "k-123", "api_secret": "s-456"}
	ct, err := e.EncryptMap(creds)
	if err != nil {
		t.Fatalf("encrypt map: %v", err)
	}
	got, err := e.DecryptMap(ct)
	if err != nil {
		t.Fatalf("decrypt map: %v", err)
	}
	if got["api_key"] != "k-123" || got["api_secret"] != "s-456" {
		t.Errorf("round trip mismatch: %v", got)
	}
}
