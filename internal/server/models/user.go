// Package models defines server-side data models persisted in the store.
package models

import "time"

// User is a registered account. PasswordHash is an encoded argon2id digest
// and never leaves the server.
type User struct {
	ID           string
	UserName     string
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
}
