package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/angelmondragon/pharmalink-go/pkg/models"
)

// Session is the authenticated state shared by the gateway, the auth service,
// and the realtime channel.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// Authenticated reports whether the session holds an access token. Absence
// of the access token is the sole authoritative logged-out signal; leftover
// refresh tokens or user snapshots do not count.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Listener observes session changes. A zero Session means logged out.
type Listener func(Session)

// Manager is the single process-wide session object. Every consumer holds a
// reference to the manager, never a private copy of the session.
type Manager struct {
	mu        sync.RWMutex
	store     Store
	current   Session
	listeners []Listener
	log       *logger.Logger
}

// NewManager loads any persisted session from the store. A persisted record
// without an access token is treated as logged out.
func NewManager(ctx context.Context, store Store, logg *logger.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}

	m := &Manager{store: store, log: logg}
	loaded, err := m.loadPersisted(ctx)
	if err != nil {
		return nil, err
	}
	m.current = loaded
	if loaded.Authenticated() {
		logg.Debug(logg.WithUserID(ctx, loaded.userID()), "restored persisted session")
	}
	return m, nil
}

func (s Session) userID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

func (m *Manager) loadPersisted(ctx context.Context) (Session, error) {
	access, err := m.store.Get(ctx, KeyAccessToken)
	if errors.Is(err, ErrKeyMissing) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load access token: %w", err)
	}
	if access == "" {
		return Session{}, nil
	}

	sess := Session{AccessToken: access}
	if refresh, err := m.store.Get(ctx, KeyRefreshToken); err == nil {
		sess.RefreshToken = refresh
	} else if !errors.Is(err, ErrKeyMissing) {
		return Session{}, fmt.Errorf("load refresh token: %w", err)
	}

	raw, err := m.store.Get(ctx, KeyUser)
	if errors.Is(err, ErrKeyMissing) {
		return sess, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// A corrupt snapshot is stale display data, not an auth failure.
		m.log.Warn(ctx, "discarding undecodable persisted user record")
		return sess, nil
	}
	sess.User = &user
	return sess, nil
}

// Current returns the session as of the last Set or Clear.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// AccessToken returns the stored access token, or "" when logged out.
func (m *Manager) AccessToken() string {
	return m.Current().AccessToken
}

// RefreshToken returns the stored refresh token, or "" when logged out.
func (m *Manager) RefreshToken() string {
	return m.Current().RefreshToken
}

// User returns the last persisted user snapshot or nil.
func (m *Manager) User() *models.User {
	return m.Current().User
}

// Authenticated reports whether an access token is held.
func (m *Manager) Authenticated() bool {
	return m.Current().Authenticated()
}

// Set persists the full session and notifies listeners. The user and refresh
// token land before the access token so a reader that sees the token always
// sees a complete session.
func (m *Manager) Set(ctx context.Context, sess Session) error {
	if !sess.Authenticated() {
		return fmt.Errorf("session requires an access token; use Clear to log out")
	}

	userJSON := ""
	if sess.User != nil {
		encoded, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		userJSON = string(encoded)
	}

	if userJSON != "" {
		if err := m.store.Set(ctx, KeyUser, userJSON); err != nil {
			return fmt.Errorf("persist user: %w", err)
		}
	}
	if err := m.store.Set(ctx, KeyRefreshToken, sess.RefreshToken); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	if err := m.store.Set(ctx, KeyAccessToken, sess.AccessToken); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}

	m.mu.Lock()
	m.current = sess
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.notify(sess, listeners)
	return nil
}

// SetTokens rewrites the token pair after a refresh, keeping the user
// snapshot untouched.
func (m *Manager) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	m.mu.RLock()
	sess := m.current
	m.mu.RUnlock()

	sess.AccessToken = accessToken
	sess.RefreshToken = refreshToken
	return m.Set(ctx, sess)
}

// Clear removes every persisted key and notifies listeners of logout. The
// access token is deleted first so a crash mid-clear still reads as logged
// out on the next start.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, KeyAccessToken); err != nil {
		return fmt.Errorf("clear access token: %w", err)
	}
	if err := m.store.Delete(ctx, KeyRefreshToken, KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	m.mu.Lock()
	m.current = Session{}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.notify(Session{}, listeners)
	return nil
}

// Subscribe registers a listener invoked after every Set and Clear.
func (m *Manager) Subscribe(fn Listener) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(sess Session, listeners []Listener) {
	for _, fn := range listeners {
		fn(sess)
	}
}
