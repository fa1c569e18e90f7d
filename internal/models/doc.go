// Package models defines the value types shared by the session store, the token manager and the HTTP handlers.
//
// # Token Record
//
// [Token] is the typed session record: access token, refresh token and absolute expiry.
// Empty strings and a zero [time.Time] mean "absent".
//
// # Token State
//
// [Evaluate] is the single place that decides whether a stored [Token] can be used:
//   - [TokenValid] : access token present and the current time is before ExpiresAt
//   - [TokenExpired] : not valid, but a refresh token is available
//   - [TokenMissing] : nothing usable; the user must log in again
//
// # Track Summary
//
// [TrackSummary] is the simplified playlist entry returned by the tracks endpoint.
package models
