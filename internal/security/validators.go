package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Input length constraints
const (
	MaxParticipantNameLength = 50
	MaxRoomIDLength          = 32
	MinNameLength            = 1
)

var (
	// Room IDs are the 5-digit codes minted by /host, but clients may also
	// bring their own alphanumeric identifiers.
	roomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9\-]{1,32}$`)
	// Name validation regex - Unicode letters, digits, spaces, apostrophes,
	// hyphens, underscores, dots.
	// \p{L} matches any Unicode letter (includes accented characters)
	// \p{N} matches any Unicode number
	nameRegex = regexp.MustCompile(`^[\p{L}\p{N}\s'\-_.]+$`)
)

// ValidateRoomID checks that a room identifier is well-formed.
func ValidateRoomID(id string) error {
	if id == "" {
		return fmt.Errorf("room ID cannot be empty")
	}
	if len(id) > MaxRoomIDLength {
		return fmt.Errorf("room ID too long (max %d characters)", MaxRoomIDLength)
	}
	if !roomIDRegex.MatchString(id) {
		return fmt.Errorf("room ID contains invalid characters")
	}
	return nil
}

// ValidateParticipantName validates a display name with length and character
// constraints. Returns the sanitized name.
func ValidateParticipantName(name string) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	if len(name) < MinNameLength {
		return "", fmt.Errorf("name too short (min %d characters)", MinNameLength)
	}

	if len(name) > MaxParticipantNameLength {
		return "", fmt.Errorf("name too long (max %d characters)", MaxParticipantNameLength)
	}

	if !nameRegex.MatchString(name) {
		return "", fmt.Errorf("name contains invalid characters (allowed: letters, numbers, spaces, apostrophes, hyphens, underscores, dots)")
	}

	return name, nil
}
