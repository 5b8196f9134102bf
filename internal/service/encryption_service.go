package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDecryptionFailed is returned for any stored value that cannot be opened:
// bad encoding, wrong key, or a modified nonce, ciphertext or tag.
var ErrDecryptionFailed = errors.New("decryption failed")

// AESEncryptionService implements ports.EncryptionService using AES-256-GCM.
// Stored values have the form base64(nonce):base64(ciphertext||tag).
type AESEncryptionService struct {
	aead cipher.AEAD
}

// NewAESEncryptionService creates a new AES-256-GCM encryption service.
// hexKey must be a 64-character hex string (32 bytes decoded).
func NewAESEncryptionService(hexKey string) (*AESEncryptionService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding AES key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AESEncryptionService{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh 96-bit random nonce.
func (s *AESEncryptionService) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. It never returns partial plaintext.
func (s *AESEncryptionService) Decrypt(stored string) ([]byte, error) {
	noncePart, ctPart, ok := strings.Cut(stored, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing nonce separator", ErrDecryptionFailed)
	}

	nonce, err := base64.StdEncoding.DecodeString(noncePart)
	if err != nil || len(nonce) != s.aead.NonceSize() {
		return nil, fmt.Errorf("%w: invalid nonce", ErrDecryptionFailed)
	}
	sealed, err := base64.StdEncoding.DecodeString(ctPart)
	if err != nil || len(sealed) < s.aead.Overhead() {
		return nil, fmt.Errorf("%w: invalid ciphertext", ErrDecryptionFailed)
	}

	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// NonceOf returns the nonce part of a stored value.
func NonceOf(stored string) string {
	nonce, _, _ := strings.Cut(stored, ":")
	return nonce
}
