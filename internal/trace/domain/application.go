package domain

import "time"

// Application is a registered OAuth application (client). The secret is only
// ever held as an Argon2id hash; the plaintext is shown to the owner once at
// creation time.
type Application struct {
	ID          string
	Name        string
	ClientID    string
	SecretHash  string
	RedirectURI string // exact-match only, no prefix or wildcard semantics
	OwnerUserID string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
