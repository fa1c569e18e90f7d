package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotsess/internal/shared"
)

// SetupConfig writes the example config with a freshly generated session secret.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Set client_id and client_secret under [credentials.spotify] (or CLIENT_ID / CLIENT_SECRET)\n")
	r.writePlain("2. Register the redirect URI with your Spotify app\n")
	r.writePlain("3. Run 'spotsess serve --open'\n")
	return nil
}

// SetupSessions creates the session directory from the resolved config.
func (r *Runner) SetupSessions(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if _, err := r.newSessionManager(config); err != nil {
		return err
	}

	r.logger.Info("session directory ready", "path", config.Session.Dir)
	r.writePlain("✓ Session directory ready at %s\n", config.Session.Dir)
	return nil
}

// SessionsPrune removes session files older than the configured max age.
func (r *Runner) SessionsPrune(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	sessions, err := r.newSessionManager(config)
	if err != nil {
		return err
	}

	removed, err := sessions.Prune(r.now())
	if err != nil {
		return err
	}

	r.logger.Info("pruned sessions", "removed", removed, "path", config.Session.Dir)
	r.writePlain("✓ Removed %d expired session(s)\n", removed)
	return nil
}

// ConfigShow prints the effective configuration with secrets masked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	redacted := config.Redacted()
	if cmd.Bool("json") {
		return r.writeJSON(redacted, true)
	}

	if err := toml.NewEncoder(r.output).Encode(redacted); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		r.logger.Warn("configuration is not ready to serve", "error", err)
	}
	return nil
}
