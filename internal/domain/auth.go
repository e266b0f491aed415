package domain

import "time"

// Identity is the set of claims carried by an access token.
type Identity struct {
	UserID    string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshIdentity is the set of claims carried by a refresh token.
type RefreshIdentity struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair groups the tokens handed to a client after sign-in.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
