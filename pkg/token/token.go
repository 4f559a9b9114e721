package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// InviteTokenBytes is the raw entropy of an invitation token (256 bits).
const InviteTokenBytes = 32

// NewInviteToken returns a URL-safe random token suitable for single-use
// invitation links. Uniqueness is additionally enforced by the storage layer.
func NewInviteToken() (string, error) {
	b := make([]byte, InviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
