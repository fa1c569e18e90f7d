package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsess/internal/services"
	"github.com/desertthunder/spotsess/internal/session"
	"github.com/desertthunder/spotsess/internal/shared"
)

// DefaultPostLoginPath is where the callback redirects when login was started without a target.
const DefaultPostLoginPath = "/spotify/me"

// SpotifyHandler serves the OAuth flow and the Web API proxy routes under /spotify.
type SpotifyHandler struct {
	tokens     *services.TokenManager
	api        *services.SpotifyAPI
	sessions   *session.Manager
	playlistID string
	market     string
	logger     *log.Logger
}

// NewSpotifyHandler creates a handler from the server [Options].
func NewSpotifyHandler(opts Options) *SpotifyHandler {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyHandler{
		tokens:     opts.Tokens,
		api:        opts.API,
		sessions:   opts.Sessions,
		playlistID: opts.PlaylistID,
		market:     opts.Market,
		logger:     shared.WithLogger(logger, "component", "spotify"),
	}
}

// Register mounts every Spotify route on r.
func (h *SpotifyHandler) Register(r Router) {
	r.Handle(http.MethodGet, "/spotify/login", http.HandlerFunc(h.Login))
	r.Handle(http.MethodGet, "/spotify/callback", http.HandlerFunc(h.Callback))
	r.Handle(http.MethodGet, "/spotify/token", http.HandlerFunc(h.Token))
	r.Handle(http.MethodGet, "/spotify/refresh", http.HandlerFunc(h.Refresh))
	r.Handle(http.MethodGet, "/spotify/logout", http.HandlerFunc(h.Logout))
	r.Handle(http.MethodGet, "/spotify/config", http.HandlerFunc(h.Config))
	r.Handle(http.MethodGet, "/spotify/me", http.HandlerFunc(h.Me))
	r.Handle(http.MethodGet, "/spotify/tracks", http.HandlerFunc(h.Tracks))
	r.Handle(http.MethodPut, "/spotify/play", http.HandlerFunc(h.Play))
	r.Handle(http.MethodPut, "/spotify/pause", http.HandlerFunc(h.Pause))
}

// Login issues a fresh state, remembers an optional relative ?next= target and redirects to Spotify.
func (h *SpotifyHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.For(w, r)

	state, err := shared.GenerateState()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if err := sess.SetState(state); err != nil {
		h.internalError(w, r, err)
		return
	}

	next := r.URL.Query().Get("next")
	if next != "" && !isLocalPath(next) {
		h.logger.Warn("ignoring non-local post-login target", "next", next, "request_id", RequestIDFrom(r.Context()))
		next = ""
	}
	if err := sess.SetRedirect(next); err != nil {
		h.internalError(w, r, err)
		return
	}

	http.Redirect(w, r, h.tokens.BuildAuthorizationURL(state), http.StatusFound)
}

// Callback validates the state, exchanges the code and redirects to the stored post-login target.
func (h *SpotifyHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess := h.sessions.For(w, r)

	// The issued state is spent by any callback, including a denied one.
	expected, err := sess.PopState()
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if errParam := q.Get("error"); errParam != "" {
		msg := "authorization failed: " + errParam
		if desc := q.Get("error_description"); desc != "" {
			msg += " - " + desc
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, shared.ErrAuthExchange.Error()+": authorization code missing")
		return
	}
	if expected == "" || q.Get("state") != expected {
		writeError(w, http.StatusBadRequest, shared.ErrStateMismatch.Error())
		return
	}

	if _, err := h.tokens.ExchangeCode(r.Context(), sess, code); err != nil {
		if errors.Is(err, shared.ErrAuthExchange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, r, err)
		return
	}

	target, err := sess.PopRedirect()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if target == "" {
		target = DefaultPostLoginPath
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Token returns a valid access token, refreshing it when expired.
func (h *SpotifyHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.GetValidToken(r.Context(), h.sessions.For(w, r))
	if err != nil {
		h.tokenError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token.AccessToken})
}

// Refresh forces a refresh regardless of expiry. Every token failure is a 400.
func (h *SpotifyHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Refresh(r.Context(), h.sessions.For(w, r))
	if err != nil {
		if errors.Is(err, shared.ErrRefreshFailed) || errors.Is(err, shared.ErrNotAuthenticated) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":      "token refreshed",
		"access_token": token.AccessToken,
	})
}

// Logout clears the session.
func (h *SpotifyHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.For(w, r).Clear(); err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Config reports the public OAuth client settings. The secret is never included.
func (h *SpotifyHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"client_id":    h.tokens.ClientID(),
		"redirect_uri": h.tokens.RedirectURI(),
		"scope":        strings.Join(h.tokens.Scopes(), " "),
	})
}

// tokenError maps token lookup failures on token-consuming routes.
func (h *SpotifyHandler) tokenError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrRefreshFailed):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		h.internalError(w, r, err)
	}
}

func (h *SpotifyHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFrom(r.Context()))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// isLocalPath accepts only same-origin absolute paths such as "/spotify/tracks?x=1".
func isLocalPath(target string) bool {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}
