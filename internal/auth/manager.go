// Package auth manages the application credential and the signed-in user's session.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pscheid92/streamhub/internal/adapter/metrics"
	"github.com/pscheid92/streamhub/internal/domain"
	"golang.org/x/oauth2"
)

const DefaultAuthorizeURL = "https://id.twitch.tv/oauth2/authorize"

// Scopes requested by the implicit grant.
var Scopes = []string{"user:read:email", "user:read:follows"}

// Config holds the parameters of the implicit-grant authorize URL.
type Config struct {
	ClientID     string
	RedirectURI  string
	AuthorizeURL string
}

// ResumeResult describes the session after a page load.
type ResumeResult struct {
	// Location is the page URL with any grant fragment removed.
	Location string
	SignedIn bool
	// SignedInNow is true only when this call completed a fresh sign-in with a known profile.
	SignedInNow bool
	Profile     *domain.Profile
}

// Manager holds both credentials. The app token is fetched once and never refreshed; the user
// token lives until sign-out. Safe for concurrent use.
type Manager struct {
	oauth     oauth2.Config
	exchanger domain.AppTokenExchanger
	profiles  domain.ProfileFetcher
	storage   domain.KeyValueStore
	metrics   *metrics.AuthMetrics

	mu        sync.RWMutex
	appToken  string
	appState  domain.AppTokenState
	userToken string
	profile   *domain.Profile
}

// NewManager creates a manager. exchanger may be nil when no client secret is configured, in which
// case the app token stays absent. authMetrics may be nil.
func NewManager(cfg Config, exchanger domain.AppTokenExchanger, profiles domain.ProfileFetcher, storage domain.KeyValueStore, authMetrics *metrics.AuthMetrics) *Manager {
	authURL := cfg.AuthorizeURL
	if authURL == "" {
		authURL = DefaultAuthorizeURL
	}

	return &Manager{
		oauth: oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      Scopes,
			Endpoint:    oauth2.Endpoint{AuthURL: authURL},
		},
		exchanger: exchanger,
		profiles:  profiles,
		storage:   storage,
		metrics:   authMetrics,
		appState:  domain.AppTokenAbsent,
	}
}

// AcquireAppToken runs the client-credential exchange. Failure leaves the token absent and is only logged.
func (m *Manager) AcquireAppToken(ctx context.Context) {
	if m.exchanger == nil {
		slog.Warn("No client secret configured, channel search disabled")
		return
	}

	m.mu.Lock()
	m.appState = domain.AppTokenPending
	m.mu.Unlock()

	token, err := m.exchanger.ExchangeAppToken(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.appState = domain.AppTokenAbsent
		m.count("app_token", "error")
		slog.ErrorContext(ctx, "Failed to acquire app token", "error", err)
		return
	}

	m.appToken = token
	m.appState = domain.AppTokenPresent
	m.count("app_token", "success")
	slog.InfoContext(ctx, "App token acquired")
}

// AppToken returns the app token when present.
func (m *Manager) AppToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appToken, m.appState == domain.AppTokenPresent
}

func (m *Manager) AppState() domain.AppTokenState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appState
}

// SignInURL builds the implicit-grant authorize URL. An empty redirectURI falls back to the configured one.
func (m *Manager) SignInURL(redirectURI string) string {
	cfg := m.oauth
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}
	return cfg.AuthCodeURL("", oauth2.SetAuthURLParam("response_type", "token"))
}

// Resume runs on every page load. A redirect carrying a grant signs the user in: the token is
// adopted and persisted, then the profile is fetched and persisted. Without a grant the persisted
// session is restored unless one is already active.
func (m *Manager) Resume(ctx context.Context, r Redirect) (ResumeResult, error) {
	if r.HasGrant() {
		return m.signIn(ctx, r)
	}

	if token, profile := m.session(); token != "" {
		return ResumeResult{Location: r.CleanURL, SignedIn: true, Profile: profile}, nil
	}

	if err := m.restore(ctx); err != nil {
		return ResumeResult{Location: r.CleanURL}, err
	}

	token, profile := m.session()
	return ResumeResult{Location: r.CleanURL, SignedIn: token != "", Profile: profile}, nil
}

func (m *Manager) signIn(ctx context.Context, r Redirect) (ResumeResult, error) {
	m.mu.Lock()
	m.userToken = r.Token
	m.profile = nil
	m.mu.Unlock()
	m.observeSession()

	result := ResumeResult{Location: r.CleanURL, SignedIn: true}

	if err := m.storage.Set(ctx, domain.StorageKeyUserToken, r.Token); err != nil {
		slog.ErrorContext(ctx, "Failed to persist user token", "error", err)
	}

	profile, raw, err := m.profiles.FetchProfile(ctx, r.Token)
	if err != nil {
		m.count("profile", "error")
		return result, fmt.Errorf("fetch profile: %w", err)
	}
	m.count("profile", "success")

	m.mu.Lock()
	stale := m.userToken != r.Token
	if !stale {
		m.profile = &profile
	}
	m.mu.Unlock()
	if stale {
		// a newer grant replaced this one mid-fetch; report whatever session is current now
		token, current := m.session()
		return ResumeResult{Location: r.CleanURL, SignedIn: token != "", Profile: current}, nil
	}

	if err := m.storage.Set(ctx, domain.StorageKeyUserData, string(raw)); err != nil {
		slog.ErrorContext(ctx, "Failed to persist user data", "error", err)
	}

	slog.InfoContext(ctx, "User signed in", "login", profile.Login)
	result.SignedInNow = true
	result.Profile = &profile
	return result, nil
}

func (m *Manager) restore(ctx context.Context) error {
	token, err := m.storage.Get(ctx, domain.StorageKeyUserToken)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("load user token: %w", err)
	}

	var profile *domain.Profile
	raw, err := m.storage.Get(ctx, domain.StorageKeyUserData)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
	case err != nil:
		slog.WarnContext(ctx, "Failed to load user data", "error", err)
	default:
		var p domain.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			slog.WarnContext(ctx, "Discarding unreadable user data", "error", err)
		} else {
			profile = &p
		}
	}

	m.mu.Lock()
	if m.userToken == "" {
		m.userToken = token
		m.profile = profile
	}
	m.mu.Unlock()
	m.observeSession()
	m.count("restore", "success")
	return nil
}

// SignOut forgets the user session and purges it from storage. Nothing is revoked remotely.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.userToken = ""
	m.profile = nil
	m.mu.Unlock()
	m.observeSession()

	if err := m.storage.Delete(ctx, domain.StorageKeyUserToken, domain.StorageKeyUserData); err != nil {
		return fmt.Errorf("purge session: %w", err)
	}
	slog.InfoContext(ctx, "User signed out")
	return nil
}

// UserToken returns the user token when signed in.
func (m *Manager) UserToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userToken, m.userToken != ""
}

// Profile returns a copy of the signed-in user's profile, or nil.
func (m *Manager) Profile() *domain.Profile {
	_, p := m.session()
	return p
}

func (m *Manager) SignedIn() bool {
	_, ok := m.UserToken()
	return ok
}

func (m *Manager) session() (string, *domain.Profile) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return m.userToken, nil
	}
	p := *m.profile
	return m.userToken, &p
}

func (m *Manager) count(kind, result string) {
	if m.metrics != nil {
		m.metrics.TokenOperations.WithLabelValues(kind, result).Inc()
	}
}

func (m *Manager) observeSession() {
	if m.metrics == nil {
		return
	}
	if m.SignedIn() {
		m.metrics.SignedIn.Set(1)
	} else {
		m.metrics.SignedIn.Set(0)
	}
}
