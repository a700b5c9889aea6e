// Package auth owns the client's session state: the token pair, the
// current user profile, and the transitions between anonymous and
// authenticated. It is the single source of truth for "who is the
// caller"; every other component reads session state from here.
package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/api"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/credstore"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/event"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/logging"
	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

// Status is the session lifecycle status.
type Status string

const (
	// StatusRestoring means the session is not yet known: a restore is
	// pending or in flight. Dependent components should wait.
	StatusRestoring Status = "restoring"
	// StatusAuthenticated means a valid token pair and profile are held.
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous means no valid session exists.
	StatusAnonymous Status = "anonymous"
)

// Session is an atomic snapshot of session state. Status is
// StatusAuthenticated exactly when AccessToken and User are both set.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *types.UserProfile
	Status       Status
}

// Manager owns session state and serializes all transitions.
type Manager struct {
	mu           sync.RWMutex
	status       Status
	accessToken  string
	refreshToken string
	user         *types.UserProfile

	restoreMu sync.Mutex
	restored  bool

	api   *api.Client
	store *credstore.Store
	bus   *event.Bus
	log   zerolog.Logger
}

// NewManager creates a session manager. The bus receives a
// session.changed event after every transition.
func NewManager(apiClient *api.Client, store *credstore.Store, bus *event.Bus) *Manager {
	return &Manager{
		status: StatusRestoring,
		api:    apiClient,
		store:  store,
		bus:    bus,
		log:    logging.Component("auth"),
	}
}

// Snapshot returns the current session state. The token/user pair is
// always observed together; no partial state is ever visible.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Session{
		AccessToken:  m.accessToken,
		RefreshToken: m.refreshToken,
		User:         m.user,
		Status:       m.status,
	}
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// UserID returns the authenticated user id, or "" when anonymous.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return ""
	}
	return m.user.ID
}

// AccessToken returns the current access token, or "" when anonymous.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// RestoreSession resolves the persisted session exactly once at
// startup. With no stored refresh credential it resolves to anonymous
// without any network call. Otherwise it exchanges the credential for
// a fresh access token and fetches the profile; any failure discards
// the stored credentials and resolves to anonymous. Never retries and
// never returns an error: the result is always a terminal status.
// Safe to call concurrently; later calls wait for the first and return
// the resolved status.
func (m *Manager) RestoreSession(ctx context.Context) Status {
	m.restoreMu.Lock()
	defer m.restoreMu.Unlock()

	if m.restored {
		return m.Status()
	}
	m.restored = true

	creds, err := m.store.Load()
	if err != nil || creds.RefreshToken == "" {
		m.log.Debug().Msg("no stored refresh credential")
		m.becomeAnonymous(false)
		return StatusAnonymous
	}

	tok, err := m.api.RefreshToken(ctx, creds.RefreshToken)
	if err != nil {
		m.log.Info().Err(err).Msg("session restore failed at token refresh")
		m.becomeAnonymous(true)
		return StatusAnonymous
	}

	user, err := m.api.Me(ctx, tok.AccessToken)
	if err != nil {
		m.log.Info().Err(err).Msg("session restore failed at profile fetch")
		m.becomeAnonymous(true)
		return StatusAnonymous
	}

	m.setAuthenticated(tok.AccessToken, creds.RefreshToken, user, true)
	m.log.Info().Str("user", user.ID).Msg("session restored")
	return StatusAuthenticated
}

// Login transitions to authenticated with the given token pair and
// profile, persisting them durably. It performs no network I/O; the
// credential exchange happens upstream. A response without a usable
// profile is rejected: an authenticated session always has both a
// token and a user.
func (m *Manager) Login(accessToken string, user *types.UserProfile, refreshToken string) error {
	if accessToken == "" {
		return errors.New("login requires an access token")
	}
	if user == nil || user.ID == "" {
		return errors.New("login requires a user profile")
	}

	m.restoreMu.Lock()
	m.restored = true
	m.restoreMu.Unlock()

	m.setAuthenticated(accessToken, refreshToken, user, true)
	m.log.Info().Str("user", user.ID).Msg("logged in")
	return nil
}

// Logout transitions to anonymous and clears all durable and in-memory
// state. Safe to call when already anonymous.
func (m *Manager) Logout() {
	m.becomeAnonymous(true)
	m.log.Info().Msg("logged out")
}

// WatchExternal observes the durable credential store for changes made
// by another process (another window logging out, for example) and
// folds them into session state. Runs until ctx is canceled.
func (m *Manager) WatchExternal(ctx context.Context) error {
	changes, err := m.store.Watch(ctx)
	if err != nil {
		return err
	}

	go func() {
		for range changes {
			m.syncFromStore()
		}
	}()
	return nil
}

// syncFromStore reconciles in-memory state with the credential file.
func (m *Manager) syncFromStore() {
	creds, err := m.store.Load()
	if err != nil {
		// Credentials gone: another process logged out.
		if m.Status() == StatusAuthenticated {
			m.log.Info().Msg("credentials cleared externally")
			m.becomeAnonymous(false)
		}
		return
	}

	if creds.AccessToken != "" && creds.User != nil {
		snap := m.Snapshot()
		if snap.AccessToken != creds.AccessToken {
			m.log.Info().Str("user", creds.User.ID).Msg("credentials updated externally")
			m.setAuthenticated(creds.AccessToken, creds.RefreshToken, creds.User, false)
		}
	}
}

// setAuthenticated performs the atomic transition to authenticated.
// Token and user are set together under one lock hold.
func (m *Manager) setAuthenticated(accessToken, refreshToken string, user *types.UserProfile, persist bool) {
	if persist {
		if err := m.store.Save(&credstore.Credentials{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			User:         user,
		}); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist credentials")
		}
	}

	m.mu.Lock()
	m.accessToken = accessToken
	m.refreshToken = refreshToken
	m.user = user
	m.status = StatusAuthenticated
	m.mu.Unlock()

	m.publish()
}

// becomeAnonymous performs the transition to anonymous, optionally
// clearing the durable store.
func (m *Manager) becomeAnonymous(clearStore bool) {
	if clearStore {
		if err := m.store.Clear(); err != nil {
			m.log.Warn().Err(err).Msg("failed to clear credentials")
		}
	}

	m.mu.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.status = StatusAnonymous
	m.mu.Unlock()

	m.publish()
}

// publish emits session.changed with the post-transition snapshot.
// Synchronous so the realtime channel observes transitions in order.
func (m *Manager) publish() {
	if m.bus == nil {
		return
	}
	snap := m.Snapshot()
	data := event.SessionChangedData{Status: string(snap.Status), User: snap.User}
	if snap.User != nil {
		data.UserID = snap.User.ID
	}
	m.bus.PublishSync(event.Event{Type: event.SessionChanged, Data: data})
}
