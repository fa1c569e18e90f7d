package session

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/spotsess/internal/models"
	"github.com/desertthunder/spotsess/internal/shared"
	tu "github.com/desertthunder/spotsess/internal/testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		Dir:       filepath.Join(t.TempDir(), "sessions"),
		SecretKey: testSecret,
		Logger:    shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

// roundTrip runs fn against a fresh request carrying cookies and returns the cookies set by the response.
func roundTrip(m *Manager, cookies []*http.Cookie, fn func(h *Handle)) []*http.Cookie {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	fn(m.For(w, r))

	if set := w.Result().Cookies(); len(set) > 0 {
		return set[len(set)-1:]
	}
	return cookies
}

func TestNewManager(t *testing.T) {
	t.Run("Creates Directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "sessions")
		if _, err := NewManager(Options{Dir: dir, SecretKey: testSecret, Logger: shared.NewLogger(io.Discard)}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertDirExists(t, dir)
	})

	t.Run("Rejects Short Secret", func(t *testing.T) {
		_, err := NewManager(Options{Dir: t.TempDir(), SecretKey: "short"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Rejects Empty Dir", func(t *testing.T) {
		_, err := NewManager(Options{SecretKey: testSecret})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		m := newTestManager(t)
		if m.CookieName() != defaultCookieName {
			t.Errorf("expected cookie name %s, got %s", defaultCookieName, m.CookieName())
		}
		if m.maxAge != defaultMaxAge {
			t.Errorf("expected max age %d, got %d", defaultMaxAge, m.maxAge)
		}
	})
}

func TestHandle(t *testing.T) {
	expiresAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	t.Run("Empty Session Loads Zero Token", func(t *testing.T) {
		m := newTestManager(t)
		roundTrip(m, nil, func(h *Handle) {
			token, err := h.Load()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !token.IsZero() {
				t.Errorf("expected zero token, got %+v", token)
			}
		})
	})

	t.Run("Save Persists Across Requests", func(t *testing.T) {
		m := newTestManager(t)
		want := models.Token{AccessToken: "A", RefreshToken: "R", ExpiresAt: expiresAt}

		cookies := roundTrip(m, nil, func(h *Handle) {
			if err := h.Save(want); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
		if len(cookies) == 0 {
			t.Fatal("expected a session cookie")
		}

		c := cookies[0]
		if c.Name != defaultCookieName || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
			t.Errorf("unexpected cookie attributes %+v", c)
		}
		if c.Value == "" || c.Value == "A" {
			t.Errorf("expected an opaque signed id, got %q", c.Value)
		}

		roundTrip(m, cookies, func(h *Handle) {
			got, err := h.Load()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.ExpiresAt.Equal(want.ExpiresAt) {
				t.Errorf("expected %+v, got %+v", want, got)
			}
		})
	})

	t.Run("Clear Removes Everything", func(t *testing.T) {
		m := newTestManager(t)
		cookies := roundTrip(m, nil, func(h *Handle) {
			h.Save(models.Token{AccessToken: "A", RefreshToken: "R", ExpiresAt: expiresAt})
			h.SetState("state")
			h.SetRedirect("/somewhere")
		})

		cookies = roundTrip(m, cookies, func(h *Handle) {
			if err := h.Clear(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		roundTrip(m, cookies, func(h *Handle) {
			token, _ := h.Load()
			if !token.IsZero() {
				t.Errorf("expected cleared token, got %+v", token)
			}
			if state, _ := h.PopState(); state != "" {
				t.Errorf("expected cleared state, got %q", state)
			}
			if target, _ := h.PopRedirect(); target != "" {
				t.Errorf("expected cleared redirect, got %q", target)
			}
		})
	})

	t.Run("Pop State Is Single Use", func(t *testing.T) {
		m := newTestManager(t)
		cookies := roundTrip(m, nil, func(h *Handle) {
			if err := h.SetState("abc"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		cookies = roundTrip(m, cookies, func(h *Handle) {
			if state, err := h.PopState(); err != nil || state != "abc" {
				t.Errorf("expected abc, got %q (%v)", state, err)
			}
		})

		roundTrip(m, cookies, func(h *Handle) {
			if state, _ := h.PopState(); state != "" {
				t.Errorf("expected state consumed, got %q", state)
			}
		})
	})

	t.Run("Tampered Cookie Starts Fresh", func(t *testing.T) {
		m := newTestManager(t)
		cookies := roundTrip(m, nil, func(h *Handle) {
			h.Save(models.Token{AccessToken: "A", ExpiresAt: expiresAt})
		})
		cookies[0].Value = "tampered" + cookies[0].Value

		roundTrip(m, cookies, func(h *Handle) {
			token, err := h.Load()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !token.IsZero() {
				t.Errorf("expected empty session, got %+v", token)
			}
		})
	})

	t.Run("Sessions Are Isolated", func(t *testing.T) {
		m := newTestManager(t)
		first := roundTrip(m, nil, func(h *Handle) { h.Save(models.Token{AccessToken: "first"}) })
		roundTrip(m, nil, func(h *Handle) { h.Save(models.Token{AccessToken: "second"}) })

		roundTrip(m, first, func(h *Handle) {
			if token, _ := h.Load(); token.AccessToken != "first" {
				t.Errorf("expected first, got %s", token.AccessToken)
			}
		})
	})
}

func TestPrune(t *testing.T) {
	m := newTestManager(t)
	roundTrip(m, nil, func(h *Handle) { h.Save(models.Token{AccessToken: "old"}) })
	roundTrip(m, nil, func(h *Handle) { h.Save(models.Token{AccessToken: "new"}) })

	entries, err := os.ReadDir(m.dir)
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected two session files, got %d (%v)", len(entries), err)
	}

	stale := time.Now().Add(-time.Duration(m.maxAge+60) * time.Second)
	if err := os.Chtimes(filepath.Join(m.dir, entries[0].Name()), stale, stale); err != nil {
		t.Fatalf("failed to age file: %v", err)
	}
	os.WriteFile(filepath.Join(m.dir, "unrelated.txt"), []byte("x"), 0600)
	os.Chtimes(filepath.Join(m.dir, "unrelated.txt"), stale, stale)

	removed, err := m.Prune(time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(m.dir, "unrelated.txt")); err != nil {
		t.Error("expected unrelated files to be kept")
	}
}
