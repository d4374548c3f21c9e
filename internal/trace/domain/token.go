package domain

import "time"

// TokenPair represents what the token endpoint returns: the opaque access
// token and the opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until expiry
}

// Token models a stored access/refresh token pair. Both values live in the DB
// only as deterministic fingerprints (base64url SHA-256).
//
// Rotation consumes the refresh side (RefreshConsumedAt flips once) and issues
// a new row; the old access token is left to age out on its own expiry.
type Token struct {
	ID                string
	UserID            string
	ClientID          string
	AccessTokenHash   string
	RefreshTokenHash  string
	AccessExpiresAt   time.Time
	RefreshExpiresAt  time.Time
	RefreshConsumedAt *time.Time
	Revoked           bool
	CreatedAt         time.Time
}
