// Spotify Web API endpoints used by the proxy routes
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/desertthunder/spotsess/internal/models"
)

const (
	// TopTrackLimit is the number of tracks returned by the tracks endpoint.
	TopTrackLimit = 10

	unknownTrack  = "Unknown Track"
	unknownArtist = "Unknown Artist"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for removed or unavailable items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks is the payload of GET /playlists/{id}/tracks.
type SpotifyPaginatedPlaylistTracks struct {
	Items    []SpotifyPlaylistTrack `json:"items"`
	Total    int                    `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
	Next     *string                `json:"next"`
	Previous *string                `json:"previous"`
}

// SpotifyAPI exposes the handful of Web API endpoints relayed by the server.
type SpotifyAPI struct {
	api *APIService
}

// NewSpotifyAPI wraps an [APIService] pointed at the Spotify Web API.
func NewSpotifyAPI(api *APIService) *SpotifyAPI {
	if api == nil {
		api = NewAPIService("", nil)
	}
	return &SpotifyAPI{api: api}
}

// Profile retrieves the current user's profile (GET /me).
func (s *SpotifyAPI) Profile(ctx context.Context, token string) (*APIResponse, error) {
	return s.api.Get(ctx, "/me", token)
}

// PlaylistTracks retrieves the first page of a playlist's tracks.
func (s *SpotifyAPI) PlaylistTracks(ctx context.Context, token, playlistID, market string) (*APIResponse, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("playlist id is required")
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprint(TopTrackLimit))
	if market != "" {
		q.Set("market", market)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), q.Encode())
	return s.api.Get(ctx, endpoint, token)
}

// Play resumes playback on the user's active device.
func (s *SpotifyAPI) Play(ctx context.Context, token string) (*APIResponse, error) {
	return s.api.Put(ctx, "/me/player/play", token)
}

// Pause pauses playback on the user's active device.
func (s *SpotifyAPI) Pause(ctx context.Context, token string) (*APIResponse, error) {
	return s.api.Put(ctx, "/me/player/pause", token)
}

// TopTracks decodes a playlist tracks payload and returns at most limit summaries in input order.
func TopTracks(payload []byte, limit int) ([]models.TrackSummary, error) {
	var page SpotifyPaginatedPlaylistTracks
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, fmt.Errorf("failed to decode playlist tracks: %w", err)
	}

	items := page.Items
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}

	tracks := make([]models.TrackSummary, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, summarize(item.Track))
	}

	return tracks, nil
}

func summarize(track *SpotifyTrack) models.TrackSummary {
	summary := models.TrackSummary{Name: unknownTrack, Artist: unknownArtist}
	if track == nil {
		return summary
	}

	if track.Name != "" {
		summary.Name = track.Name
	}
	if len(track.Artists) > 0 && track.Artists[0].Name != "" {
		summary.Artist = track.Artists[0].Name
	}
	if len(track.Album.Images) > 0 {
		summary.AlbumCover = track.Album.Images[0].URL
	}

	return summary
}
