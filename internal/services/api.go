// Bearer-authenticated HTTP relay for the Spotify Web API
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/spotsess/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// APIService performs single outbound requests against a fixed base URL with a bearer token.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the given base URL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
}

// OK reports whether the upstream answered with a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path, token string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, token)
}

// Put performs a body-less PUT request to the specified path and returns the raw response.
func (a *APIService) Put(ctx context.Context, path, token string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, token)
}

// Do sends one request with `Authorization: Bearer <token>`.
//
// Transport and read failures are reported as [shared.ErrUpstream]; non-2xx statuses are returned as responses, not errors.
func (a *APIService) Do(ctx context.Context, method, path, token string) (*APIResponse, error) {
	fullURL := a.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrUpstream, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	apiResp.IsJSON = len(body) > 0 && json.Valid(body)

	return apiResp, nil
}
