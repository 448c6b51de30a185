// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. PasswordHash is a bcrypt hash and never leaves the server.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Nickname     string
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
