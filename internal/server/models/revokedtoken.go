package models

import "time"

// RevokedToken marks a session token (by jti) as unusable until ExpiresAt,
// after which the token would be rejected anyway and the row can go.
type RevokedToken struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}
