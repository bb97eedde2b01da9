package auth

import "time"

// SessionSummary is the wire shape for listing a user's sessions.
// It deliberately omits the fingerprint and token material.
type SessionSummary struct {
	SessionID string        `json:"session_id"`
	Device    string        `json:"device"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	IsCurrent bool          `json:"is_current"`
}

type SessionsResult struct {
	Sessions []SessionSummary `json:"sessions"`
}
