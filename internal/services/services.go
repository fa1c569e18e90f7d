// package services implements the Spotify token lifecycle and the bearer-authenticated API relay
package services

import (
	"github.com/desertthunder/spotsess/internal/models"
)

// TokenStore is the per-session persistence contract used by [TokenManager].
//
// Implementations are scoped to a single browser session.
type TokenStore interface {
	Load() (models.Token, error) // Load returns the stored token record (zero value when absent)
	Save(token models.Token) error
	Clear() error // Clear removes every value held by the session
}
