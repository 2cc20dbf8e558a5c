package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pscheid92/streamhub/internal/auth"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/platform/config"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockViewer struct {
	snapshotFn         func() (domain.Snapshot, error)
	addSlotFn          func(platform domain.Platform, identifier string) (domain.Slot, []domain.Notice, error)
	addFollowedFn      func(login string) (domain.Slot, []domain.Notice, error)
	removeSlotFn       func(id domain.SlotID) (bool, error)
	updateSlotFn       func(id domain.SlotID, field domain.SlotField, value string) error
	selectSuggestionFn func(id domain.SlotID, name string) error
	focusFn            func(id domain.SlotID) error
	clearFocusFn       func() error
	resumeFn           func(ctx context.Context, href string) (auth.ResumeResult, error)
	signInURLFn        func(redirectURI string) string
	signOutFn          func(ctx context.Context) error
	loadFollowsFn      func(ctx context.Context) ([]domain.FollowedChannel, error)
}

func (m *mockViewer) Snapshot() (domain.Snapshot, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return domain.Snapshot{}, nil
}

func (m *mockViewer) AddSlot(platform domain.Platform, identifier string) (domain.Slot, []domain.Notice, error) {
	if m.addSlotFn != nil {
		return m.addSlotFn(platform, identifier)
	}
	return domain.Slot{}, nil, errors.New("not implemented")
}

func (m *mockViewer) AddFollowed(login string) (domain.Slot, []domain.Notice, error) {
	if m.addFollowedFn != nil {
		return m.addFollowedFn(login)
	}
	return domain.Slot{}, nil, errors.New("not implemented")
}

func (m *mockViewer) RemoveSlot(id domain.SlotID) (bool, error) {
	if m.removeSlotFn != nil {
		return m.removeSlotFn(id)
	}
	return false, nil
}

func (m *mockViewer) UpdateSlot(id domain.SlotID, field domain.SlotField, value string) error {
	if m.updateSlotFn != nil {
		return m.updateSlotFn(id, field, value)
	}
	return nil
}

func (m *mockViewer) SelectSuggestion(id domain.SlotID, name string) error {
	if m.selectSuggestionFn != nil {
		return m.selectSuggestionFn(id, name)
	}
	return nil
}

func (m *mockViewer) Focus(id domain.SlotID) error {
	if m.focusFn != nil {
		return m.focusFn(id)
	}
	return nil
}

func (m *mockViewer) ClearFocus() error {
	if m.clearFocusFn != nil {
		return m.clearFocusFn()
	}
	return nil
}

func (m *mockViewer) Resume(ctx context.Context, href string) (auth.ResumeResult, error) {
	if m.resumeFn != nil {
		return m.resumeFn(ctx, href)
	}
	return auth.ResumeResult{Location: href}, nil
}

func (m *mockViewer) SignInURL(redirectURI string) string {
	if m.signInURLFn != nil {
		return m.signInURLFn(redirectURI)
	}
	return "https://id.twitch.tv/oauth2/authorize?redirect_uri=" + redirectURI
}

func (m *mockViewer) SignOut(ctx context.Context) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx)
	}
	return nil
}

func (m *mockViewer) LoadFollows(ctx context.Context) ([]domain.FollowedChannel, error) {
	if m.loadFollowsFn != nil {
		return m.loadFollowsFn(ctx)
	}
	return nil, nil
}

type mockHub struct {
	mu           sync.Mutex
	hosts        []string
	unregistered []uuid.UUID
	err          error
}

func (m *mockHub) Register(conn *websocket.Conn, host string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		_ = conn.Close()
		return uuid.Nil, m.err
	}
	m.hosts = append(m.hosts, host)
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"version":1}`))
	return uuid.New(), nil
}

func (m *mockHub) Unregister(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregistered = append(m.unregistered, id)
}

func (m *mockHub) unregisterCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.unregistered)
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:         "development",
		Port:           "8080",
		TwitchClientID: "test-client-id",
		StorageBackend: config.StorageMemory,
		APIRateLimit:   1000,
		APIRateBurst:   1000,
	}
}

func newTestServer(t *testing.T, viewer viewerService, opts ...func(*Server)) *Server {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(), viewer, opts...)
}

// newTestServerWithConfig is for settings that are read while routes are built.
func newTestServerWithConfig(t *testing.T, cfg *config.Config, viewer viewerService, opts ...func(*Server)) *Server {
	t.Helper()

	srv, err := NewServer(cfg, viewer, &mockHub{}, Options{})
	require.NoError(t, err)

	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withHub(hub stateHub) func(*Server) {
	return func(s *Server) {
		s.hub = hub
	}
}

func withConfig(mutate func(*config.Config)) func(*Server) {
	return func(s *Server) {
		mutate(s.config)
	}
}

// csrfSession fetches the page once and returns the cookie and token needed for unsafe requests.
func csrfSession(t *testing.T, srv *Server) (*http.Cookie, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" {
			return c, c.Value
		}
	}
	t.Fatal("no csrf cookie set")
	return nil, ""
}

// do sends a request through the full middleware stack with a valid CSRF token.
func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doFrom(t, srv, "192.0.2.1:1234", method, path, body)
}

// doFrom is do for a specific client address.
func doFrom(t *testing.T, srv *Server, remoteAddr, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	cookie, token := csrfSession(t, srv)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
