package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// HMACSignatureService implements ports.SignatureVerifier using HMAC-SHA512,
// the scheme the payment gateway signs its webhook deliveries with.
type HMACSignatureService struct {
	secret []byte
}

// NewHMACSignatureService creates a verifier for the given gateway secret.
func NewHMACSignatureService(secret string) *HMACSignatureService {
	return &HMACSignatureService{secret: []byte(secret)}
}

// Verify checks if signature matches HMAC-SHA512(secret, payload) over the
// raw request body. Uses constant-time comparison.
func (s *HMACSignatureService) Verify(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
