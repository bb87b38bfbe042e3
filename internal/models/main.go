// Package models defines the core data structures for accounts and stored secrets.
package models

import (
	"errors"
	"time"
)

// Account represents a registered vault profile.
type Account struct {
	// Identifier is the unique, case-sensitive account name (typically an email).
	Identifier string
	// CredentialHash is the PHC-encoded argon2id hash of the account credential.
	CredentialHash string
}

// SecretEntry is a single generated secret owned by exactly one account.
type SecretEntry struct {
	// ID is the unique identifier for the entry.
	ID string `json:"id"`
	// Value is the generated secret itself. Never empty.
	Value string `json:"value"`
	// Exposed records the breach-check outcome at creation time.
	// It is never re-evaluated afterwards.
	Exposed bool `json:"exposed"`
	// CreatedAt is the time the entry was generated.
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrAccountExists reports a registration conflict on an identifier.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials reports a failed authentication attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIndexOutOfRange reports a delete of a nonexistent entry index.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrCorrupt reports a persisted file that exists but cannot be read back.
	// It must reach the caller; a corrupt store is never treated as empty.
	ErrCorrupt = errors.New("storage corrupt")
	// ErrNotAuthenticated reports a secret-lifecycle call with no active session.
	ErrNotAuthenticated = errors.New("not authenticated")
)
