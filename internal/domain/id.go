package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh time-ordered identifier for chats and sessions.
// Sorting ids as strings orders them by creation time.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ValidID reports whether id is a canonical lower-case identifier of the
// form NewID produces. Braced and urn-prefixed spellings are rejected so a
// chat has exactly one URL.
func ValidID(id string) bool {
	if len(id) != 36 || id != strings.ToLower(id) {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
