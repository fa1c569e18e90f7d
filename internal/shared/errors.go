package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthExchange     = fmt.Errorf("authorization code exchange failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrStateMismatch    = fmt.Errorf("invalid state parameter")

	// Session errors
	ErrSessionStore = fmt.Errorf("session store failure")

	// API and service errors
	ErrUpstream = fmt.Errorf("upstream request failed")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
)
