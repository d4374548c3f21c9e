package domain

import "time"

// AuthorizationCode represents an OAuth 2.0 authorization code issuance.
// Codes are single use: UsedAt flips exactly once via a conditional update.
type AuthorizationCode struct {
	ID          string
	UserID      string
	ClientID    string
	CodeHash    string
	RedirectURI string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}
