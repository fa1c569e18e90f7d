package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsess/internal/services"
	"github.com/desertthunder/spotsess/internal/session"
	"github.com/desertthunder/spotsess/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for self-routing HTTP handlers.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Options holds the collaborators of the HTTP surface.
type Options struct {
	Tokens         *services.TokenManager
	API            *services.SpotifyAPI
	Sessions       *session.Manager
	PlaylistID     string
	Market         string
	FrontendOrigin string
	Logger         *log.Logger
}

// New builds the fully wired router: middleware stack, Spotify routes, health check and JSON 404s.
func New(opts Options) (*BasicRouter, error) {
	if opts.Tokens == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("%w: token manager and session store are required", shared.ErrInvalidConfig)
	}
	if opts.API == nil {
		opts.API = services.NewSpotifyAPI(nil)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	router.Use(
		RequestID(),
		AccessLog(opts.Logger),
		Recover(opts.Logger),
		CORS(opts.FrontendOrigin),
	)

	NewSpotifyHandler(opts).Register(router)
	router.Handler(HealthHandler{})
	router.Fallback(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))

	return router, nil
}
