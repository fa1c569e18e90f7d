// Package server provides HTTP routing, middleware, and the Spotify OAuth/proxy handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with per-path method dispatch.
// Unknown methods get a JSON 405, unknown paths the [BasicRouter.Fallback] handler.
//
// # Middleware
//
// [New] installs, outermost first:
//   - [RequestID]: reuses or assigns X-Request-ID
//   - [AccessLog]: one charmbracelet/log line per request
//   - [Recover]: panics become JSON 500s
//   - [CORS]: credentialed access for the configured frontend origin
//
// # OAuth Flow
//
// /spotify/login stores a random state (and an optional relative ?next= target) in the session and
// redirects to the authorization endpoint. /spotify/callback checks the state, exchanges the code
// through [services.TokenManager] and redirects to the stored target, /spotify/me by default.
//
// # Proxy Routes
//
// /spotify/me, /spotify/tracks, /spotify/play and /spotify/pause resolve a valid token (refreshing
// it at most once) and call the Web API. Upstream non-2xx responses are relayed with their status
// and body. Every error produced here is a JSON object of the form {"error": "..."}:
//   - 400: authorization code exchange failed, or forced refresh failed
//   - 401: no usable token, or refresh failed and the session was cleared
//   - 502: the upstream could not be reached
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
