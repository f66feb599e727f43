// Package util holds small shared helpers with no domain knowledge.
package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a new unique identifier.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }

// ShortID returns a compact identifier suffix of n hex characters.
// Uniqueness, not cryptographic strength, is the requirement.
func ShortID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(id) {
		n = len(id)
	}
	return id[:n]
}
