package identity

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists rejects a second registration for the same phone.
	ErrUserExists = errors.New("user exists")
)

// User represents a registered account holder: a player, a bank authority or
// an asset-type authority.
type User struct {
	ID           string
	Phone        string
	Tier         string
	PINHash      []byte
	DeviceID     string
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials request structure.
type Credentials struct {
	Phone    string
	PIN      string
	DeviceID string
}
