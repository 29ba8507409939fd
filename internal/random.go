package internal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// SessionTokenSize is the number of random bytes behind every session token.
const SessionTokenSize = 24

// NewSessionToken returns a URL-safe opaque session token backed by
// SessionTokenSize bytes from crypto/rand.
func NewSessionToken() (string, error) {
	var raw [SessionTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("session token entropy: %w", err)
	}
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidSessionToken reports whether token has the shape produced by NewSessionToken.
func ValidSessionToken(token string) bool {
	if len(token) != base64.RawURLEncoding.EncodedLen(SessionTokenSize) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}

// NewRequestID returns a random identifier for audit events and request correlation.
func NewRequestID() string {
	return uuid.NewString()
}
