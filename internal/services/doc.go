// Package services implements the Spotify OAuth2 token lifecycle and the API relay used by the HTTP handlers.
//
// # Token Lifecycle
//
// [TokenManager] wraps an [oauth2.Config] built from explicit credentials. It never keeps per-user
// state; callers hand it a [TokenStore] bound to one browser session.
//
//   - [TokenManager.BuildAuthorizationURL] : authorize endpoint with client_id, response_type=code, redirect_uri, scope
//   - [TokenManager.ExchangeCode] : authorization_code grant, saves access/refresh token and expiry
//   - [TokenManager.GetValidToken] : stored token when valid, otherwise one refresh
//   - [TokenManager.Refresh] : refresh_token grant; a failure clears the session
//
// Expiry is computed from expires_in against the manager's clock, defaulting to one hour.
//
// # API Relay
//
// [APIService] sends a single bearer-authenticated request and returns the raw [APIResponse].
// [SpotifyAPI] names the relayed endpoints (profile, playlist tracks, play, pause).
// [TopTracks] shapes a playlist payload into [models.TrackSummary] records.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrAuthExchange] : code missing, rejected, or the token call failed
//   - [shared.ErrRefreshFailed] : refresh rejected or failed; the session was cleared
//   - [shared.ErrNotAuthenticated] : nothing usable in the session
//   - [shared.ErrUpstream] : transport failure talking to the Web API
package services
