// package models defines the data model for the Spotify session backend
package models

import (
	"time"
)

// DefaultExpiresIn is the token lifetime assumed when the provider omits expires_in.
const DefaultExpiresIn = 3600 * time.Second

// TokenState classifies a stored [Token] at a point in time.
type TokenState int

const (
	TokenMissing TokenState = iota // TokenMissing means no access or refresh token is stored
	TokenValid                     // TokenValid means the access token can be used as-is
	TokenExpired                   // TokenExpired means the access token must be refreshed first
)

func (s TokenState) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	default:
		return "missing"
	}
}

// Token is the OAuth token record persisted in a browser session.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IsZero reports whether no token field is set.
func (t Token) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == "" && t.ExpiresAt.IsZero()
}

// Evaluate returns the [TokenState] of t at now.
func Evaluate(t Token, now time.Time) TokenState {
	if t.AccessToken != "" && !t.ExpiresAt.IsZero() && now.Before(t.ExpiresAt) {
		return TokenValid
	}
	if t.RefreshToken != "" {
		return TokenExpired
	}
	return TokenMissing
}

// ExpiresAt computes the absolute expiry for a token issued at issuedAt.
//
// Non-positive lifetimes fall back to [DefaultExpiresIn].
func ExpiresAt(issuedAt time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return issuedAt.Add(DefaultExpiresIn)
	}
	return issuedAt.Add(time.Duration(expiresIn) * time.Second)
}

// TrackSummary is a simplified playlist track.
type TrackSummary struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	AlbumCover string `json:"album cover"`
}
