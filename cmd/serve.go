package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/spotsess/internal/server"
	"github.com/desertthunder/spotsess/internal/services"
	"github.com/desertthunder/spotsess/internal/session"
	"github.com/desertthunder/spotsess/internal/shared"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Serve starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts down gracefully.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = int(port)
	}

	handler, err := r.newHandler(config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Server.Addr(), err)
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadTimeout:       config.Server.ReadTimeout,
		ReadHeaderTimeout: config.Server.ReadTimeout,
		WriteTimeout:      config.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Serve(listener)
	}()

	baseURL := "http://" + listener.Addr().String()
	r.logger.Info("server listening", "addr", baseURL, "redirect_uri", config.Credentials.Spotify.RedirectURI)

	if cmd.Bool("open") {
		loginURL := baseURL + "/spotify/login"
		if err := r.openURL(loginURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlain("Open this URL in your browser:\n%s\n", loginURL)
		}
	}

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

// newHandler validates config and wires the token manager, session store and Web API client into the router.
func (r *Runner) newHandler(config *shared.Config) (http.Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpClient := r.spotifyClient(config)

	tokens, err := services.NewTokenManager(services.TokenManagerOpts{
		Credentials: config.Credentials.Spotify,
		AuthURL:     config.Spotify.AuthURL,
		TokenURL:    config.Spotify.TokenURL,
		HTTPClient:  httpClient,
		Logger:      r.logger,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := r.newSessionManager(config)
	if err != nil {
		return nil, err
	}

	return server.New(server.Options{
		Tokens:         tokens,
		API:            services.NewSpotifyAPI(services.NewAPIService(config.Spotify.APIBaseURL, httpClient)),
		Sessions:       sessions,
		PlaylistID:     config.Spotify.PlaylistID,
		Market:         config.Spotify.Market,
		FrontendOrigin: config.Server.FrontendOrigin,
		Logger:         r.logger,
	})
}

// spotifyClient returns the injected client, or one bounded by the configured request timeout.
func (r *Runner) spotifyClient(config *shared.Config) *http.Client {
	if r.httpClient != nil {
		return r.httpClient
	}

	timeout := config.Spotify.RequestTimeout
	if timeout <= 0 {
		timeout = services.DefaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (r *Runner) newSessionManager(config *shared.Config) (*session.Manager, error) {
	return session.NewManager(session.Options{
		Dir:        config.Session.Dir,
		SecretKey:  config.Session.SecretKey,
		CookieName: config.Session.CookieName,
		MaxAge:     config.Session.MaxAge,
		Secure:     config.Session.Secure,
		Logger:     r.logger,
	})
}
