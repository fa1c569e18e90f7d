package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/desertthunder/spotsess/internal/services"
	"github.com/desertthunder/spotsess/internal/shared"
)

type apiCall func(ctx context.Context, token string) (*services.APIResponse, error)

// Me relays the current user's profile.
func (h *SpotifyHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.api.Profile)
}

// Play resumes playback on the active device.
func (h *SpotifyHandler) Play(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.api.Play)
}

// Pause pauses playback on the active device.
func (h *SpotifyHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.api.Pause)
}

// Tracks returns the first [services.TopTrackLimit] tracks of the configured playlist.
func (h *SpotifyHandler) Tracks(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.call(w, r, func(ctx context.Context, token string) (*services.APIResponse, error) {
		return h.api.PlaylistTracks(ctx, token, h.playlistID, h.market)
	})
	if !ok {
		return
	}
	if !resp.OK() {
		relay(w, resp)
		return
	}

	tracks, err := services.TopTracks(resp.Body, services.TopTrackLimit)
	if err != nil {
		h.logger.Warn("unexpected playlist payload", "error", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusBadGateway, shared.ErrUpstream.Error()+": unexpected playlist payload")
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}

func (h *SpotifyHandler) proxy(w http.ResponseWriter, r *http.Request, fn apiCall) {
	if resp, ok := h.call(w, r, fn); ok {
		relay(w, resp)
	}
}

// call resolves a valid token and performs fn, writing the error response itself when it reports false.
func (h *SpotifyHandler) call(w http.ResponseWriter, r *http.Request, fn apiCall) (*services.APIResponse, bool) {
	token, err := h.tokens.GetValidToken(r.Context(), h.sessions.For(w, r))
	if err != nil {
		h.tokenError(w, r, err)
		return nil, false
	}

	resp, err := fn(r.Context(), token.AccessToken)
	if err != nil {
		if errors.Is(err, shared.ErrUpstream) {
			h.logger.Warn("upstream call failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFrom(r.Context()))
			writeError(w, http.StatusBadGateway, err.Error())
			return nil, false
		}
		h.internalError(w, r, err)
		return nil, false
	}

	return resp, true
}
