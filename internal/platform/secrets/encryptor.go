package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// Encryptor provides AES-256-GCM encryption for integration credentials
// (client API keys, SFTP passwords). Ciphertext is stored; plaintext is
// only ever returned through the explicit reveal call path.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor with the given 32-byte AES-256 key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("credential encryptor: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("credential encryptor: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("credential encryptor: create GCM: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt encrypts the plaintext and returns base64 ciphertext with the
// nonce prepended.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("credential encrypt: generate nonce: %w", err)
	}
	// Seal appends ciphertext to nonce, so the result is nonce + ciphertext.
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decodes the base64 ciphertext, splits off the nonce, and decrypts.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("credential decrypt: base64 decode: %w", err)
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("credential decrypt: ciphertext too short")
	}
	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("credential decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EncryptMap encrypts a credential map (key id, secret, token...) as one
// JSON blob so the stored ciphertext carries no structure.
func (e *Encryptor) EncryptMap(creds map[string]string) (string, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("credential encrypt: marshal: %w", err)
	}
	return e.Encrypt(string(raw))
}

// DecryptMap reverses EncryptMap.
func (e *Encryptor) DecryptMap(ciphertext string) (map[string]string, error) {
	plain, err := e.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	creds := make(map[string]string)
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return nil, fmt.Errorf("credential decrypt: unmarshal: %w", err)
	}
	return creds, nil
}
