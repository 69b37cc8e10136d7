package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingSecret    = errors.New("webhook secret is not configured")
)

// SignatureHeader carries the queue-origin proof on webhook deliveries.
const SignatureHeader = "X-Click-Signature"

// Signer signs and verifies webhook bodies so the consumer can prove a
// delivery originated from the dispatch queue.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer using the shared webhook secret.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the hex HMAC-SHA256 of body.
func (s *Signer) Sign(body []byte) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks signature against body in constant time.
func (s *Signer) Verify(body []byte, signature string) error {
	if len(s.secret) == 0 {
		return ErrMissingSecret
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
