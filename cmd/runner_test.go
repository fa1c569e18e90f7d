package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotsess/internal/services"
	"github.com/desertthunder/spotsess/internal/shared"
	tu "github.com/desertthunder/spotsess/internal/testing"
)

func newTestRunner(output io.Writer) *Runner {
	return NewRunner(RunnerOpts{
		Logger: shared.NewLogger(io.Discard),
		Output: output,
	})
}

func readyConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "test_client_id"
	config.Credentials.Spotify.ClientSecret = "test_client_secret"
	config.Session.SecretKey = "0123456789abcdef0123456789abcdef"
	config.Session.Dir = filepath.Join(t.TempDir(), "sessions")
	return config
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.openURL == nil || runner.now == nil {
				t.Error("expected browser opener and clock defaults")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("compact", func(t *testing.T) {
			output := &bytes.Buffer{}
			if err := newTestRunner(output).writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("pretty", func(t *testing.T) {
			output := &bytes.Buffer{}
			newTestRunner(output).writeJSON(map[string]string{"key": "value"}, true)
			if !strings.Contains(output.String(), "  \"key\": \"value\"") {
				t.Errorf("expected indented output, got %q", output.String())
			}
		})

		t.Run("unmarshalable", func(t *testing.T) {
			if err := newTestRunner(&bytes.Buffer{}).writeJSON(make(chan int), false); err == nil {
				t.Error("expected marshal error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		newTestRunner(output).writePlain("Hello %s, count: %d\n", "World", 42)
		if output.String() != "Hello World, count: 42\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestCommands(t *testing.T) {
	run := func(t *testing.T, r *Runner, args ...string) error {
		t.Helper()
		return newApp(r).Run(context.Background(), append([]string{"spotsess"}, args...))
	}

	t.Run("Setup Config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}

		if err := run(t, newTestRunner(output), "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		config, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("expected written config to load, got %v", err)
		}
		if len(config.Session.SecretKey) < shared.MinSecretKeyLen {
			t.Errorf("expected generated secret, got %q", config.Session.SecretKey)
		}
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected path in output, got %s", output.String())
		}

		if err := run(t, newTestRunner(output), "setup", "config", "--config", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("Setup Sessions", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "sessions")
		t.Setenv("SESSION_DIR", dir)

		path := filepath.Join(t.TempDir(), "config.toml")
		if err := run(t, newTestRunner(io.Discard), "setup", "sessions", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertDirExists(t, dir)
	})

	t.Run("Sessions Prune", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "sessions")
		t.Setenv("SESSION_DIR", dir)
		os.MkdirAll(dir, 0700)
		stale := filepath.Join(dir, "session_OLD")
		os.WriteFile(stale, []byte("x"), 0600)
		old := time.Now().Add(-60 * 24 * time.Hour)
		os.Chtimes(stale, old, old)

		output := &bytes.Buffer{}
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := run(t, newTestRunner(output), "sessions", "prune", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := os.Stat(stale); !os.IsNotExist(err) {
			t.Error("expected stale session file to be removed")
		}
		if !strings.Contains(output.String(), "Removed 1") {
			t.Errorf("unexpected output %s", output.String())
		}
	})

	t.Run("Config Show Redacts Secrets", func(t *testing.T) {
		t.Setenv("CLIENT_SECRET", "super-secret-value")
		path := filepath.Join(t.TempDir(), "config.toml")

		output := &bytes.Buffer{}
		if err := run(t, newTestRunner(output), "config", "show", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Contains(output.String(), "super-secret-value") {
			t.Error("expected secret to be redacted")
		}
		if !strings.Contains(output.String(), "********") {
			t.Errorf("expected mask in output, got %s", output.String())
		}

		output.Reset()
		if err := run(t, newTestRunner(output), "config", "show", "--json", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(output.Bytes(), &decoded); err != nil {
			t.Errorf("expected JSON output, got %s", output.String())
		}
	})

	t.Run("Invalid Log Level", func(t *testing.T) {
		err := run(t, newTestRunner(io.Discard), "--log-level", "loud", "config", "show")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Serve Rejects Incomplete Config", func(t *testing.T) {
		t.Setenv("CLIENT_ID", "")
		path := filepath.Join(t.TempDir(), "config.toml")
		err := run(t, newTestRunner(io.Discard), "serve", "--config", path)
		if !errors.Is(err, shared.ErrInvalidConfig) && !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected config error, got %v", err)
		}
	})
}

func TestNewHandler(t *testing.T) {
	t.Run("Wires Routes", func(t *testing.T) {
		handler, err := newTestRunner(io.Discard).newHandler(readyConfig(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 from /health, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/spotify/login", nil))
		if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "https://accounts.spotify.com/authorize") {
			t.Errorf("expected redirect to Spotify, got %d %s", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("Spotify Client Timeout", func(t *testing.T) {
		config := readyConfig(t)
		runner := newTestRunner(io.Discard)

		config.Spotify.RequestTimeout = 0
		if got := runner.spotifyClient(config).Timeout; got != services.DefaultRequestTimeout {
			t.Errorf("expected default timeout %v, got %v", services.DefaultRequestTimeout, got)
		}

		config.Spotify.RequestTimeout = 3 * time.Second
		if got := runner.spotifyClient(config).Timeout; got != 3*time.Second {
			t.Errorf("expected 3s timeout, got %v", got)
		}

		injected := &http.Client{}
		runner = NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), HTTPClient: injected})
		if runner.spotifyClient(config) != injected {
			t.Error("expected injected client to be used")
		}
	})

	t.Run("Rejects Placeholder Secret", func(t *testing.T) {
		config := readyConfig(t)
		config.Session.SecretKey = shared.DefaultConfig().Session.SecretKey

		if _, err := newTestRunner(io.Discard).newHandler(config); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
