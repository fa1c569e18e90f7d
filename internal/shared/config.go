package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/securecookie"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// MinSecretKeyLen is the shortest accepted session signing key, in bytes.
const MinSecretKeyLen = 32

// Config represents the application configuration loaded from a TOML file and overridden by the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Session     SessionConfig     `toml:"session"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify OAuth client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"REDIRECT_URI"`
	Scope        string `toml:"scope" env:"SCOPE"`
}

// Scopes splits the configured scope string on whitespace.
func (s SpotifyConfig) Scopes() []string {
	return strings.Fields(s.Scope)
}

// SpotifyAPIConfig contains the provider endpoints and the proxied playlist.
type SpotifyAPIConfig struct {
	AuthURL        string        `toml:"auth_url"`
	TokenURL       string        `toml:"token_url"`
	APIBaseURL     string        `toml:"api_base_url"`
	PlaylistID     string        `toml:"playlist_id" env:"PLAYLIST_ID"`
	Market         string        `toml:"market"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// SessionConfig contains the filesystem session store settings.
type SessionConfig struct {
	SecretKey  string `toml:"secret_key" env:"SECRET_KEY"`
	Dir        string `toml:"dir" env:"SESSION_DIR"`
	CookieName string `toml:"cookie_name"`
	MaxAge     int    `toml:"max_age"`
	Secure     bool   `toml:"secure"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string        `toml:"host" env:"HOST"`
	Port           int           `toml:"port" env:"PORT"`
	FrontendOrigin string        `toml:"frontend_origin" env:"FRONTEND_ORIGIN"`
	ReadTimeout    time.Duration `toml:"read_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads path when it exists (defaults otherwise), then applies .env and environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadDotEnv loads variables from the given .env files into the process environment.
//
// Missing files are ignored and variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields tagged with `env` from the process environment.
func (c *Config) ApplyEnv() error {
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks that the credentials and session key required to serve are present.
func (c *Config) Validate() error {
	spotify := c.Credentials.Spotify
	switch {
	case spotify.ClientID == "":
		return fmt.Errorf("%w: client_id", ErrMissingCredentials)
	case spotify.ClientSecret == "":
		return fmt.Errorf("%w: client_secret", ErrMissingCredentials)
	case spotify.RedirectURI == "":
		return fmt.Errorf("%w: redirect_uri", ErrMissingCredentials)
	case len(c.Session.SecretKey) < MinSecretKeyLen:
		return fmt.Errorf("%w: secret_key must be at least %d bytes", ErrInvalidConfig, MinSecretKeyLen)
	case c.Session.SecretKey == placeholderSecret:
		return fmt.Errorf("%w: secret_key is still the example placeholder", ErrInvalidConfig)
	case c.Session.Dir == "":
		return fmt.Errorf("%w: session dir", ErrInvalidConfig)
	}
	return nil
}

// Redacted returns a copy of the config with secrets masked, for display.
func (c Config) Redacted() Config {
	if c.Credentials.Spotify.ClientSecret != "" {
		c.Credentials.Spotify.ClientSecret = "********"
	}
	if c.Session.SecretKey != "" {
		c.Session.SecretKey = "********"
	}
	return c
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
//
// The placeholder session secret is replaced with a freshly generated key.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	key := securecookie.GenerateRandomKey(MinSecretKeyLen)
	if key == nil {
		return fmt.Errorf("failed to generate session secret")
	}

	data := strings.Replace(string(exampleConf), placeholderSecret, fmt.Sprintf("%x", key), 1)
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const placeholderSecret = "change-me-to-a-random-string-of-at-least-32-bytes"
