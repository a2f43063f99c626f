// Package models defines server-side data models persisted in the identity store.
package models

import "time"

// Identity is a registered caller. Email is the unique, case-sensitive key
// and doubles as the blob namespace prefix.
type Identity struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
