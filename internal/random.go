package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// SessionID is a 128-bit random native session identifier.
type SessionID [16]byte

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// ValidSessionID reports whether a cookie value is a well-formed session id.
// Anything else is ignored rather than used as a storage key.
func ValidSessionID(sessionID string) bool {
	_, err := ParseSessionID(sessionID)
	return err == nil
}
