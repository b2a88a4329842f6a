package internal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/keelframework/keel/pkg/cookie"
	"github.com/keelframework/keel/pkg/session"
)

// SessionManager ties the session store to the transport: it reads the
// session token from a signed cookie, loads and touches sessions, and
// writes the cookie back on create/rotate/destroy.
type SessionManager struct {
	store         session.Store
	cookieManager *cookie.Manager
	cookieName    string
	ttl           time.Duration
	touchInterval time.Duration
}

// SessionOption customizes the session manager.
type SessionOption func(*SessionManager)

// WithSessionCookieName overrides the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return func(m *SessionManager) { m.cookieName = name }
}

// WithSessionTTL sets how long sessions live without activity.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) { m.ttl = ttl }
}

// WithSessionTouchInterval sets how often LastActiveAt is persisted. A
// lower value means fresher activity tracking at the cost of more writes.
func WithSessionTouchInterval(d time.Duration) SessionOption {
	return func(m *SessionManager) { m.touchInterval = d }
}

// NewSessionManager creates a session manager over the given store. The
// cookie manager must carry a secret; session cookies are always signed.
func NewSessionManager(store session.Store, cm *cookie.Manager, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store:         store,
		cookieManager: cm,
		cookieName:    "keel_session",
		ttl:           24 * time.Hour,
		touchInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store exposes the underlying session store.
func (m *SessionManager) Store() session.Store {
	return m.store
}

// LoadSession resolves the request's session from its cookie. It returns
// (nil, nil) when the request carries no session cookie, and drops expired
// or unknown tokens silently so callers can treat them as anonymous.
func (m *SessionManager) LoadSession(ctx context.Context, r *http.Request) (*session.Session, error) {
	token, err := m.cookieManager.GetSigned(r, m.cookieName)
	if err != nil {
		if errors.Is(err, cookie.ErrNotFound) || errors.Is(err, cookie.ErrBadSig) {
			return nil, nil
		}
		return nil, err
	}

	sess, err := m.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return nil, nil
		}
		return nil, err
	}

	if sess.IsExpired() {
		_ = m.store.Delete(ctx, sess.ID)
		return nil, nil
	}

	if time.Since(sess.LastActiveAt) > m.touchInterval {
		sess.LastActiveAt = time.Now()
		if err := m.store.Touch(ctx, sess.ID, sess.LastActiveAt); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

// CreateSession persists a fresh anonymous session.
func (m *SessionManager) CreateSession(ctx context.Context) (*session.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	sess := session.New(uuid.NewString(), token, time.Now().Add(m.ttl))
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// RotateToken replaces the session token and persists the change. Called
// on privilege changes such as login.
func (m *SessionManager) RotateToken(ctx context.Context, sess *session.Session) error {
	token, err := newToken()
	if err != nil {
		return err
	}

	sess.Token = token
	sess.MarkDirty()
	if err := m.store.Update(ctx, sess); err != nil {
		return err
	}
	sess.ClearDirty()
	return nil
}

// SaveSession writes the session cookie for the given session.
func (m *SessionManager) SaveSession(w http.ResponseWriter, sess *session.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	// The cookie manager is constructed with a secret; signing cannot fail.
	_ = m.cookieManager.SetSigned(w, m.cookieName, sess.Token, maxAge)
}

// DeleteSession clears the session cookie.
func (m *SessionManager) DeleteSession(w http.ResponseWriter) {
	m.cookieManager.Delete(w, m.cookieName)
}

// newToken returns a 256-bit random token in URL-safe base64.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
