package service

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte key in hex (64 chars)
const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestEncryption(t *testing.T) *AESEncryptionService {
	t.Helper()
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	return svc
}

func TestAESEncryptionService_NewInvalidKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not hex", "zz"},
		{"short", "abcd"},
		{"16 bytes", "0123456789abcdef0123456789abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAESEncryptionService(tt.key)
			assert.Error(t, err)
		})
	}
}

func TestAESEncryptionService_EncryptDecrypt(t *testing.T) {
	svc := newTestEncryption(t)

	plaintext := []byte(`{"accessToken":"EAAAl-secret"}`)
	stored, err := svc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, stored, "EAAAl-secret")

	parts := strings.Split(stored, ":")
	require.Len(t, parts, 2)
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, nonce, 12)
	assert.Equal(t, parts[0], NonceOf(stored))

	decrypted, err := svc.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESEncryptionService_RoundTripRandomInputs(t *testing.T) {
	svc := newTestEncryption(t)

	for _, size := range []int{0, 1, 15, 16, 17, 255, 1024, 4096} {
		buf := make([]byte, size)
		_, err := rand.Read(buf)
		require.NoError(t, err)

		stored, err := svc.Encrypt(buf)
		require.NoError(t, err)

		got, err := svc.Decrypt(stored)
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, len(buf), len(got))
		assert.Equal(t, buf, append([]byte{}, got...))
	}
}

func TestAESEncryptionService_DifferentNonces(t *testing.T) {
	svc := newTestEncryption(t)

	c1, err := svc.Encrypt([]byte("same"))
	require.NoError(t, err)
	c2, err := svc.Encrypt([]byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "same plaintext should produce different ciphertext due to random nonce")
	assert.NotEqual(t, NonceOf(c1), NonceOf(c2))
}

func TestAESEncryptionService_SingleByteCorruption(t *testing.T) {
	svc := newTestEncryption(t)

	stored, err := svc.Encrypt([]byte("webhook-signature-key"))
	require.NoError(t, err)
	noncePart, ctPart, _ := strings.Cut(stored, ":")
	nonce, _ := base64.StdEncoding.DecodeString(noncePart)
	sealed, _ := base64.StdEncoding.DecodeString(ctPart)

	for i := range sealed {
		mutated := append([]byte{}, sealed...)
		mutated[i] ^= 0x01
		_, err := svc.Decrypt(noncePart + ":" + base64.StdEncoding.EncodeToString(mutated))
		assert.ErrorIs(t, err, ErrDecryptionFailed, "ciphertext byte %d", i)
	}

	for i := range nonce {
		mutated := append([]byte{}, nonce...)
		mutated[i] ^= 0x80
		_, err := svc.Decrypt(base64.StdEncoding.EncodeToString(mutated) + ":" + ctPart)
		assert.ErrorIs(t, err, ErrDecryptionFailed, "nonce byte %d", i)
	}
}

func TestAESEncryptionService_MalformedInput(t *testing.T) {
	svc := newTestEncryption(t)

	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"bad nonce encoding", "!!!:AAAA"},
		{"short nonce", base64.StdEncoding.EncodeToString([]byte("short")) + ":AAAAAAAAAAAAAAAAAAAAAA=="},
		{"bad ciphertext encoding", base64.StdEncoding.EncodeToString(make([]byte, 12)) + ":%%%"},
		{"ciphertext shorter than tag", base64.StdEncoding.EncodeToString(make([]byte, 12)) + ":" + base64.StdEncoding.EncodeToString([]byte("tiny"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Decrypt(tt.stored)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
		})
	}
}

func TestAESEncryptionService_WrongKey(t *testing.T) {
	svc1 := newTestEncryption(t)
	svc2, err := NewAESEncryptionService("abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789")
	require.NoError(t, err)

	stored, err := svc1.Encrypt([]byte("token"))
	require.NoError(t, err)

	_, err = svc2.Decrypt(stored)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
