package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256
// with base64 signatures, the format the processor puts in its webhook header.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes base64(HMAC-SHA256(key, payload)).
func (s *HMACSignatureService) Sign(key string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against HMAC-SHA256(key, payload) in constant time.
// An empty key or signature never verifies.
func (s *HMACSignatureService) Verify(key string, payload []byte, signature string) bool {
	if key == "" || signature == "" {
		return false
	}
	expected := s.Sign(key, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// BuildCanonicalPayload returns notificationURL followed by the exact body bytes.
func (s *HMACSignatureService) BuildCanonicalPayload(notificationURL string, body []byte) []byte {
	out := make([]byte, 0, len(notificationURL)+len(body))
	out = append(out, notificationURL...)
	return append(out, body...)
}
