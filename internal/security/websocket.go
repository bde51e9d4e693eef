package security

import (
	"github.com/coder/websocket"
)

// OriginValidator restricts which origins may open websocket connections.
type OriginValidator struct {
	allowedPatterns []string
}

// NewOriginValidator creates a validator from origin patterns, e.g.
// "example.com" or "*.example.com". The single pattern "*" disables the
// origin check entirely.
func NewOriginValidator(patterns []string) *OriginValidator {
	return &OriginValidator{allowedPatterns: patterns}
}

// AcceptOptions returns websocket accept options carrying the configured
// origin patterns.
func (ov *OriginValidator) AcceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{OriginPatterns: ov.allowedPatterns}
	if len(ov.allowedPatterns) == 1 && ov.allowedPatterns[0] == "*" {
		opts.InsecureSkipVerify = true
		opts.OriginPatterns = nil
	}
	return opts
}
