// Package session persists the per-browser token record in a signed, filesystem-backed session.
//
// The browser only holds a cookie carrying the signed session id; values live in files under the
// configured directory (one file per session, named "session_<id>").
package session

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsess/internal/models"
	"github.com/desertthunder/spotsess/internal/shared"
	"github.com/gorilla/sessions"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiresAt    = "expires_at"
	keyState        = "oauth_state"
	keyRedirect     = "post_login_redirect"

	filePrefix = "session_"

	defaultCookieName = "spotsess"
	defaultMaxAge     = 30 * 24 * 60 * 60
	maxEncodedLength  = 16 * 1024
)

// Options configures a [Manager].
type Options struct {
	Dir        string
	SecretKey  string
	CookieName string
	MaxAge     int
	Secure     bool
	Logger     *log.Logger
}

// Manager owns the filesystem store and hands out per-request [Handle] values.
type Manager struct {
	store  *sessions.FilesystemStore
	dir    string
	name   string
	maxAge int
	logger *log.Logger
}

// NewManager creates the session directory if needed and configures the cookie.
func NewManager(opts Options) (*Manager, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("%w: session dir is required", shared.ErrInvalidConfig)
	}
	if len(opts.SecretKey) < shared.MinSecretKeyLen {
		return nil, fmt.Errorf("%w: secret key must be at least %d bytes", shared.ErrInvalidConfig, shared.MinSecretKeyLen)
	}
	if opts.CookieName == "" {
		opts.CookieName = defaultCookieName
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultMaxAge
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	if err := os.MkdirAll(opts.Dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: failed to create session dir: %v", shared.ErrSessionStore, err)
	}

	store := sessions.NewFilesystemStore(opts.Dir, []byte(opts.SecretKey))
	store.MaxLength(maxEncodedLength)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Sets the cookie max age and the signed timestamp window together.
	store.MaxAge(opts.MaxAge)

	return &Manager{
		store:  store,
		dir:    opts.Dir,
		name:   opts.CookieName,
		maxAge: opts.MaxAge,
		logger: shared.WithLogger(opts.Logger, "component", "session"),
	}, nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.name }

// For binds a [Handle] to one request/response pair.
func (m *Manager) For(w http.ResponseWriter, r *http.Request) *Handle {
	return &Handle{manager: m, w: w, r: r}
}

// Prune deletes session files not modified within the cookie max age and returns how many were removed.
func (m *Manager) Prune(now time.Time) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrSessionStore, err)
	}

	cutoff := now.Add(-time.Duration(m.maxAge) * time.Second)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil {
				m.logger.Warn("failed to remove session file", "file", entry.Name(), "error", err)
				continue
			}
			removed++
		}
	}

	return removed, nil
}

// Handle is the session of a single request. It implements services.TokenStore.
type Handle struct {
	manager *Manager
	w       http.ResponseWriter
	r       *http.Request
	session *sessions.Session
}

func (h *Handle) get() (*sessions.Session, error) {
	if h.session != nil {
		return h.session, nil
	}

	// A cookie that fails to decode or points at a missing file still yields a fresh session.
	sess, err := h.manager.store.Get(h.r, h.manager.name)
	if sess == nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSessionStore, err)
	}
	if err != nil {
		h.manager.logger.Debug("starting new session", "reason", err)
	}

	h.session = sess
	return sess, nil
}

func (h *Handle) persist(sess *sessions.Session) error {
	if err := sess.Save(h.r, h.w); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSessionStore, err)
	}
	return nil
}

// Load returns the stored token record.
func (h *Handle) Load() (models.Token, error) {
	sess, err := h.get()
	if err != nil {
		return models.Token{}, err
	}

	token := models.Token{
		AccessToken:  stringValue(sess, keyAccessToken),
		RefreshToken: stringValue(sess, keyRefreshToken),
	}
	if unix, ok := sess.Values[keyExpiresAt].(int64); ok && unix > 0 {
		token.ExpiresAt = time.Unix(unix, 0)
	}

	return token, nil
}

// Save replaces the token record. Empty fields are removed.
func (h *Handle) Save(token models.Token) error {
	sess, err := h.get()
	if err != nil {
		return err
	}

	setOrDelete(sess, keyAccessToken, token.AccessToken)
	setOrDelete(sess, keyRefreshToken, token.RefreshToken)
	if token.ExpiresAt.IsZero() {
		delete(sess.Values, keyExpiresAt)
	} else {
		sess.Values[keyExpiresAt] = token.ExpiresAt.Unix()
	}

	return h.persist(sess)
}

// Clear removes every value from the session.
func (h *Handle) Clear() error {
	sess, err := h.get()
	if err != nil {
		return err
	}

	for k := range sess.Values {
		delete(sess.Values, k)
	}

	return h.persist(sess)
}

// SetState records the OAuth state issued at login.
func (h *Handle) SetState(state string) error {
	return h.set(keyState, state)
}

// PopState returns and removes the recorded OAuth state.
func (h *Handle) PopState() (string, error) {
	return h.pop(keyState)
}

// SetRedirect records where to send the browser after a successful login.
func (h *Handle) SetRedirect(target string) error {
	return h.set(keyRedirect, target)
}

// PopRedirect returns and removes the post-login target.
func (h *Handle) PopRedirect() (string, error) {
	return h.pop(keyRedirect)
}

func (h *Handle) set(key, value string) error {
	sess, err := h.get()
	if err != nil {
		return err
	}
	setOrDelete(sess, key, value)
	return h.persist(sess)
}

func (h *Handle) pop(key string) (string, error) {
	sess, err := h.get()
	if err != nil {
		return "", err
	}

	value := stringValue(sess, key)
	if _, ok := sess.Values[key]; !ok {
		return "", nil
	}

	delete(sess.Values, key)
	return value, h.persist(sess)
}

func stringValue(sess *sessions.Session, key string) string {
	v, _ := sess.Values[key].(string)
	return v
}

func setOrDelete(sess *sessions.Session, key, value string) {
	if value == "" {
		delete(sess.Values, key)
		return
	}
	sess.Values[key] = value
}
