package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsess/internal/models"
	"github.com/desertthunder/spotsess/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	defaultRedirectURI = "http://localhost:5000/spotify/callback"
)

// DefaultRequestTimeout bounds token and Web API calls when no timeout is configured.
const DefaultRequestTimeout = 10 * time.Second

// TokenManager obtains, stores, validates and refreshes Spotify OAuth2 tokens.
//
// It holds no per-user state: every operation works against the [TokenStore] passed in.
type TokenManager struct {
	config     *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
	logger     *log.Logger
}

// TokenManagerOpts configures a [TokenManager].
type TokenManagerOpts struct {
	Credentials shared.SpotifyConfig
	AuthURL     string
	TokenURL    string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Now         func() time.Time
	Logger      *log.Logger
}

// NewTokenManager creates a [TokenManager] from explicit client credentials.
func NewTokenManager(opts TokenManagerOpts) (*TokenManager, error) {
	creds := opts.Credentials
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if creds.RedirectURI == "" {
		creds.RedirectURI = defaultRedirectURI
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       creds.Scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &TokenManager{
		config:     config,
		httpClient: opts.HTTPClient,
		now:        opts.Now,
		logger:     shared.WithLogger(opts.Logger, "component", "tokens"),
	}, nil
}

// BuildAuthorizationURL returns the provider authorization URL.
//
// The URL carries client_id, response_type=code, redirect_uri, the space-joined scope and, when non-empty, state.
func (m *TokenManager) BuildAuthorizationURL(state string) string {
	return m.config.AuthCodeURL(state)
}

// ClientID returns the configured OAuth client id.
func (m *TokenManager) ClientID() string { return m.config.ClientID }

// RedirectURI returns the configured callback URI.
func (m *TokenManager) RedirectURI() string { return m.config.RedirectURL }

// Scopes returns the requested scopes.
func (m *TokenManager) Scopes() []string { return m.config.Scopes }

// ExchangeCode trades an authorization code for tokens and saves them in store.
//
// The store is left untouched on failure.
func (m *TokenManager) ExchangeCode(ctx context.Context, store TokenStore, code string) (models.Token, error) {
	if code == "" {
		return models.Token{}, fmt.Errorf("%w: authorization code missing", shared.ErrAuthExchange)
	}

	issuedAt := m.now()
	tok, err := m.config.Exchange(m.clientContext(ctx), code)
	if err != nil {
		m.logger.Warn("authorization code exchange failed", "error", err)
		return models.Token{}, fmt.Errorf("%w: %s", shared.ErrAuthExchange, describe(err))
	}

	token := models.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    models.ExpiresAt(issuedAt, tok.ExpiresIn),
	}

	if err := store.Save(token); err != nil {
		return models.Token{}, err
	}

	m.logger.Debug("authorization code exchanged", "expires_at", token.ExpiresAt, "refreshable", token.RefreshToken != "")
	return token, nil
}

// GetValidToken returns a usable token, refreshing it once when the stored one has expired.
func (m *TokenManager) GetValidToken(ctx context.Context, store TokenStore) (models.Token, error) {
	current, err := store.Load()
	if err != nil {
		return models.Token{}, err
	}

	switch models.Evaluate(current, m.now()) {
	case models.TokenValid:
		return current, nil
	case models.TokenExpired:
		return m.Refresh(ctx, store)
	default:
		return models.Token{}, shared.ErrNotAuthenticated
	}
}

// Refresh mints a new access token from the stored refresh token.
//
// The refresh token is kept unless the provider issues a new one. Any failure clears the whole session.
func (m *TokenManager) Refresh(ctx context.Context, store TokenStore) (models.Token, error) {
	current, err := store.Load()
	if err != nil {
		return models.Token{}, err
	}
	if current.RefreshToken == "" {
		return models.Token{}, fmt.Errorf("%w: no refresh token available", shared.ErrNotAuthenticated)
	}

	issuedAt := m.now()
	src := m.config.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		m.logger.Warn("token refresh failed, clearing session", "error", err)
		refreshErr := fmt.Errorf("%w: %s", shared.ErrRefreshFailed, describe(err))
		if clearErr := store.Clear(); clearErr != nil {
			return models.Token{}, errors.Join(refreshErr, clearErr)
		}
		return models.Token{}, refreshErr
	}

	token := models.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: current.RefreshToken,
		ExpiresAt:    models.ExpiresAt(issuedAt, tok.ExpiresIn),
	}
	if tok.RefreshToken != "" {
		token.RefreshToken = tok.RefreshToken
	}

	if err := store.Save(token); err != nil {
		return models.Token{}, err
	}

	m.logger.Debug("access token refreshed", "expires_at", token.ExpiresAt, "rotated", token.RefreshToken != current.RefreshToken)
	return token, nil
}

func (m *TokenManager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// describe extracts the provider's error_description from token endpoint failures.
func describe(err error) string {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		switch {
		case rErr.ErrorDescription != "":
			return rErr.ErrorDescription
		case rErr.ErrorCode != "":
			return rErr.ErrorCode
		case rErr.Response != nil:
			return fmt.Sprintf("token endpoint returned status %d", rErr.Response.StatusCode)
		}
	}
	return err.Error()
}
