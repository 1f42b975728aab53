// Package session tracks the bearer token's lifecycle on the client:
// issue time, expiry warnings, refresh, and the one-shot merge guard
// that fires the guest-cart reconciliation after login.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/miorah/storefront/client"
	"github.com/miorah/storefront/client/localcart"
	"github.com/miorah/storefront/client/state"
)

const (
	// TokenValidity mirrors the server's 24h token window.
	TokenValidity = 24 * time.Hour
	// CheckInterval is how often the expiration check runs while a
	// session exists, plus one immediate check on Start.
	CheckInterval = 5 * time.Minute
	// WarningWindow is how close to expiry the session warning appears.
	WarningWindow = 30 * time.Minute
	// ProactiveRefreshAge is the token age past which LoadUserFromStorage
	// refreshes before fetching the profile.
	ProactiveRefreshAge = 23 * time.Hour
)

var (
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrNoSession         = errors.New("no active session")
)

// State is the session lifecycle position.
type State int

const (
	NoSession State = iota
	Authenticated
	Refreshing
	Expired
)

// MergeState is the one-shot guard for the cart merge. It lives in the
// session, not in UI refs, and resets only on logout.
type MergeState int

const (
	MergeIdle MergeState = iota
	MergePending
	MergeDone
)

// Warning is surfaced to the UI as a non-blocking banner.
type Warning struct {
	Type             string `json:"type"` // "warning" or "expired"
	Message          string `json:"message"`
	MinutesRemaining int    `json:"minutesRemaining,omitempty"`
}

type Manager struct {
	api    *client.Client
	store  state.Store
	local  *localcart.Store
	logger zerolog.Logger

	nowFunc       func() time.Time
	checkInterval time.Duration

	mu                sync.Mutex
	token             string
	tokenIssuedAt     time.Time
	user              *client.User
	refreshing        bool
	warning           *Warning
	mergeState        MergeState
	generation        int // bumped on logout so stale merges cannot write back
	lastActivity      time.Time
	expiredHandled    bool // one refresh attempt per expiry
	authFailureActive bool // forced logout fired once already
}

type Option func(*Manager)

// WithNowFunc overrides the clock, primarily for tests.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithCheckInterval shortens the periodic check, primarily for tests.
func WithCheckInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.checkInterval = d
	}
}

// NewManager hydrates persisted state (token, issue timestamp, cached
// profile, guest cart) and wires itself as the API client's token
// source. Missing or corrupt storage silently degrades to NoSession.
func NewManager(api *client.Client, store state.Store, local *localcart.Store, logger zerolog.Logger, options ...Option) *Manager {
	m := &Manager{
		api:           api,
		store:         store,
		local:         local,
		logger:        logger.With().Str("component", "session").Logger(),
		nowFunc:       time.Now,
		checkInterval: CheckInterval,
	}
	for _, opt := range options {
		opt(m)
	}

	st, err := store.Load()
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to load persisted session state")
		st = state.State{}
	}
	m.token = st.Token
	m.tokenIssuedAt = st.TokenTimestamp
	m.user = st.UserInfo
	if len(st.CartItems) > 0 {
		local.Restore(st.CartItems)
	}

	api.SetTokenSource(m.Token)
	return m
}

// Token implements client.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) User() *client.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) Warning() *Warning {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.warning == nil {
		return nil
	}
	w := *m.warning
	return &w
}

func (m *Manager) SessionState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.token == "":
		return NoSession
	case m.refreshing:
		return Refreshing
	case m.warning != nil && m.warning.Type == "expired":
		return Expired
	default:
		return Authenticated
	}
}

func (m *Manager) MergeState() MergeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mergeState
}

// Touch records user activity (pointer, keyboard, scroll, touch). It is
// a signal only; expiration is driven by token age, not idleness.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.nowFunc()
}

func (m *Manager) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *client.User `json:"user"`
}

type refreshResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Login authenticates and arms the merge guard. The guest cart is left
// untouched here; the merge coordinator reads it.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	var resp sessionResponse
	if err := m.api.Do(ctx, http.MethodPost, "/auth", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return err
	}

	m.mu.Lock()
	m.token = resp.Token
	m.tokenIssuedAt = m.nowFunc()
	m.user = resp.User
	m.warning = nil
	m.expiredHandled = false
	m.authFailureActive = false
	m.mergeState = MergeIdle
	m.persistLocked()
	m.mu.Unlock()

	return nil
}

// CheckTokenExpiration computes the remaining validity and updates the
// session warning. Inside the warning window it emits a "warning"; at
// or past expiry it emits "expired" and triggers exactly one refresh
// attempt for that expiry.
func (m *Manager) CheckTokenExpiration(ctx context.Context) {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return
	}

	remaining := TokenValidity - m.nowFunc().Sub(m.tokenIssuedAt)
	switch {
	case remaining <= 0:
		m.warning = &Warning{Type: "expired", Message: "your session has expired"}
		if m.expiredHandled {
			m.mu.Unlock()
			return
		}
		m.expiredHandled = true
		m.mu.Unlock()
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("refresh after expiry failed")
		}
		return
	case remaining <= WarningWindow:
		minutes := int(remaining.Minutes())
		m.warning = &Warning{
			Type:             "warning",
			Message:          fmt.Sprintf("your session expires in %d minutes", minutes),
			MinutesRemaining: minutes,
		}
	default:
		m.warning = nil
	}
	m.mu.Unlock()
}

// Start runs the periodic expiration check until ctx is cancelled. One
// check fires immediately.
func (m *Manager) Start(ctx context.Context) {
	m.CheckTokenExpiration(ctx)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckTokenExpiration(ctx)
		}
	}
}

// Refresh exchanges the current token for a fresh one. Failure is fatal
// to the session: token and user are cleared, forcing re-login. It is
// not retried automatically.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.beginRefreshing() {
		return ErrRefreshInProgress
	}
	defer m.endRefreshing()

	return m.doRefresh(ctx, true)
}

// LoadUserFromStorage validates the persisted token against the server
// and caches the profile. The refreshing flag rejects a concurrent call
// outright, which also keeps a duplicate merge trigger from racing. A
// token older than ProactiveRefreshAge is refreshed first; if that
// refresh fails the profile fetch still runs with the old token.
func (m *Manager) LoadUserFromStorage(ctx context.Context) error {
	if !m.beginRefreshing() {
		return ErrRefreshInProgress
	}
	defer m.endRefreshing()

	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return ErrNoSession
	}
	age := m.nowFunc().Sub(m.tokenIssuedAt)
	m.mu.Unlock()

	if age > ProactiveRefreshAge {
		if err := m.doRefresh(ctx, false); err != nil {
			m.logger.Warn().Err(err).Msg("proactive refresh failed, trying existing token")
		}
	}

	var user client.User
	if err := m.api.Do(ctx, http.MethodGet, "/auth", nil, &user); err != nil {
		if errors.Is(err, client.ErrAuthentication) {
			m.HandleAuthFailure()
		}
		return err
	}

	m.mu.Lock()
	m.user = &user
	m.persistLocked()
	m.mu.Unlock()
	return nil
}

// Logout invalidates the server-side token best-effort, then clears
// everything local regardless: token, profile, warnings, guest cart,
// and the merge guard. The generation bump makes any in-flight merge
// completion a no-op.
func (m *Manager) Logout(ctx context.Context) {
	if m.Token() != "" {
		if err := m.api.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
			m.logger.Warn().Err(err).Msg("server-side logout failed")
		}
	}

	m.mu.Lock()
	m.clearSessionLocked()
	m.generation++
	m.mergeState = MergeIdle
	m.mu.Unlock()

	m.local.Clear()

	m.mu.Lock()
	m.persistLocked()
	m.mu.Unlock()
}

// HandleAuthFailure is the single forced-logout path for a rejected
// token discovered during any request. It runs its cleanup once; repeat
// 401s while already logged out do not loop.
func (m *Manager) HandleAuthFailure() {
	m.mu.Lock()
	if m.authFailureActive || m.token == "" {
		m.mu.Unlock()
		return
	}
	m.authFailureActive = true
	m.clearSessionLocked()
	m.mergeState = MergeIdle
	m.generation++
	m.persistLocked()
	m.mu.Unlock()

	m.logger.Info().Msg("session cleared after authentication failure")
}

// BeginMerge is the coordinator's entry gate: it requires a loaded
// user, no refresh in flight, and an armed (MergeIdle) guard. On
// success the guard moves to MergePending and the session generation is
// returned for the completion handshake.
func (m *Manager) BeginMerge() (userID string, generation int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.refreshing || m.mergeState != MergeIdle {
		return "", 0, false
	}
	m.mergeState = MergePending
	return m.user.ID, m.generation, true
}

// FinishMerge marks the merge done for this session. A stale
// generation (logout happened mid-merge) is ignored so the completed
// merge cannot resurrect a cleared session.
func (m *Manager) FinishMerge(generation int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation {
		return
	}
	m.mergeState = MergeDone
}

// Persist writes the current snapshot (token, profile, guest cart)
// through the state boundary. Callers invoke it after guest-cart
// mutations so a reload does not lose items.
func (m *Manager) Persist() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistLocked()
}

func (m *Manager) beginRefreshing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshing {
		return false
	}
	m.refreshing = true
	return true
}

func (m *Manager) endRefreshing() {
	m.mu.Lock()
	m.refreshing = false
	m.mu.Unlock()
}

// doRefresh assumes the refreshing flag is already held by the caller.
func (m *Manager) doRefresh(ctx context.Context, clearOnFailure bool) error {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return ErrNoSession
	}
	m.mu.Unlock()

	var resp refreshResponse
	err := m.api.Do(ctx, http.MethodPost, "/auth/refresh", nil, &resp)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if clearOnFailure {
			m.clearSessionLocked()
			m.persistLocked()
		}
		return err
	}

	m.token = resp.Token
	m.tokenIssuedAt = m.nowFunc()
	m.warning = nil
	m.expiredHandled = false
	m.persistLocked()
	return nil
}

func (m *Manager) clearSessionLocked() {
	m.token = ""
	m.tokenIssuedAt = time.Time{}
	m.user = nil
	m.warning = nil
	m.expiredHandled = false
}

func (m *Manager) persistLocked() {
	st := state.State{
		Token:          m.token,
		TokenTimestamp: m.tokenIssuedAt,
		UserInfo:       m.user,
		CartItems:      m.local.Items(),
	}
	if err := m.store.Save(st); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist session state")
	}
}
