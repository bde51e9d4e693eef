package security

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxPlayerIDLength bounds opaque client-generated player ids. Ids are never
// interpreted, only bounded so a hostile client cannot inflate room state or
// log output.
const MaxPlayerIDLength = 128

// ValidatePlayerID checks an opaque player id: non-empty, bounded length,
// no control characters. UUIDs pass trivially but are not required.
func ValidatePlayerID(id string) error {
	if id == "" {
		return fmt.Errorf("player id cannot be empty")
	}
	if len(id) > MaxPlayerIDLength {
		return fmt.Errorf("player id too long (max %d characters)", MaxPlayerIDLength)
	}
	if _, err := uuid.Parse(id); err == nil {
		return nil
	}
	for _, r := range id {
		if r < 32 || r == 127 {
			return fmt.Errorf("player id contains control characters")
		}
	}
	return nil
}

// SanitizeCloseReason bounds a close reason to the 123 bytes a websocket
// close frame can carry.
func SanitizeCloseReason(reason string) string {
	const maxReason = 123
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReason {
		reason = reason[:maxReason]
	}
	return reason
}
