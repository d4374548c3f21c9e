package domain

import "time"

// User is a platform account that owns knowledge bases and approves OAuth
// authorization requests.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
