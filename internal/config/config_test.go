package config

import (
	"strings"
	"testing"
)

func TestValidate_DevWithoutKey(t *testing.T) {
	cfg := &Config{Env: "development", ImportMaxBytes: 1024}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dev mode should not require encryption key: %v", err)
	}
}

func TestValidate_ProductionRequiresKey(t *testing.T) {
	cfg := &Config{Env: "production", AuthSigningSecret: "s", ImportMaxBytes: 1024}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing CREDENTIAL_ENCRYPTION_KEY in production")
	}
	if !strings.Contains(err.Error(), "CREDENTIAL_ENCRYPTION_KEY") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_KeyMustBeHex(t *testing.T) {
	cfg := &Config{Env: "development", CredentialEncryptionKey: "not-hex!", ImportMaxBytes: 1024}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-hex key")
	}
}

func TestValidate_KeyMustBe32Bytes(t *testing.T) {
	cfg := &Config{Env: "development", CredentialEncryptionKey: "abcd1234", ImportMaxBytes: 1024}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestValidate_AcceptsValidKey(t *testing.T) {
	key := strings.Repeat("ab", 32)
	cfg := &Config{Env: "production", AuthSigningSecret: "s", CredentialEncryptionKey: key, ImportMaxBytes: 1024}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.EncryptionKey(); len(got) != 32 {
		t.Errorf("expected 32-byte decoded key, got %d", len(got))
	}
}

func TestValidate_ProductionRequiresSigningSecret(t *testing.T) {
	key := strings.Repeat("ab", 32)
	cfg := &Config{Env: "production", CredentialEncryptionKey: key, ImportMaxBytes: 1024}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing AUTH_SIGNING_SECRET")
	}
}

func TestValidate_ImportMaxBytes(t *testing.T) {
	cfg := &Config{Env: "development"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive IMPORT_MAX_BYTES")
	}
}
