// Package model defines domain entities for the application.
package model

import "time"

// Profile is the snapshot of a Twitter profile taken at login time.
type Profile struct {
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"profile_image_url"`
	Followers int       `json:"followers_count"`
	CreatedAt time.Time `json:"created_at"`
	Verified  bool      `json:"verified"`
}

// Tokens holds the OAuth tokens obtained for a user.
// Never serialized into API responses.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// User represents an authenticated end user.
// Identity is the external platform user id and is the key for
// everything in the system; ID is a ULID assigned for storage.
type User struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Profile   Profile   `json:"profile"`
	Tokens    Tokens    `json:"-"`
	Eligible  bool      `json:"eligible"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Claim records the one-time claim performed by an identity.
// Its presence is the invariant "has claimed"; it is never updated.
type Claim struct {
	Identity  string    `json:"identity"`
	ClaimedAt time.Time `json:"claimed_at"`
}
