package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/pscheid92/streamhub/internal/adapter/memory"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockExchanger struct {
	exchangeFn func(ctx context.Context) (string, error)
}

func (m *mockExchanger) ExchangeAppToken(ctx context.Context) (string, error) {
	return m.exchangeFn(ctx)
}

type mockProfiles struct {
	fetchFn func(ctx context.Context, userToken string) (domain.Profile, []byte, error)
	tokens  []string
}

func (m *mockProfiles) FetchProfile(ctx context.Context, userToken string) (domain.Profile, []byte, error) {
	m.tokens = append(m.tokens, userToken)
	return m.fetchFn(ctx, userToken)
}

var testProfile = domain.Profile{ID: "141981764", Login: "twitchdev", DisplayName: "TwitchDev", AvatarURL: "https://example.com/a.png"}

const testProfileJSON = `{"id":"141981764","login":"twitchdev","display_name":"TwitchDev","type":"","broadcaster_type":"partner","profile_image_url":"https://example.com/a.png"}`

func okProfiles() *mockProfiles {
	return &mockProfiles{fetchFn: func(context.Context, string) (domain.Profile, []byte, error) {
		return testProfile, []byte(testProfileJSON), nil
	}}
}

func newTestManager(exchanger domain.AppTokenExchanger, profiles domain.ProfileFetcher, storage domain.KeyValueStore) *Manager {
	return NewManager(Config{ClientID: "client-id", RedirectURI: "http://localhost:8080/"}, exchanger, profiles, storage, nil)
}

// --- App token ---

func TestAcquireAppToken_Success(t *testing.T) {
	m := newTestManager(&mockExchanger{exchangeFn: func(context.Context) (string, error) {
		return "app-token", nil
	}}, okProfiles(), memory.NewStore())

	assert.Equal(t, domain.AppTokenAbsent, m.AppState())
	m.AcquireAppToken(t.Context())

	token, ok := m.AppToken()
	assert.True(t, ok)
	assert.Equal(t, "app-token", token)
	assert.Equal(t, domain.AppTokenPresent, m.AppState())
}

func TestAcquireAppToken_FailureLeavesAbsent(t *testing.T) {
	m := newTestManager(&mockExchanger{exchangeFn: func(context.Context) (string, error) {
		return "", errors.New("invalid client")
	}}, okProfiles(), memory.NewStore())

	m.AcquireAppToken(t.Context())

	_, ok := m.AppToken()
	assert.False(t, ok)
	assert.Equal(t, domain.AppTokenAbsent, m.AppState())
}

func TestAcquireAppToken_PendingDuringExchange(t *testing.T) {
	var m *Manager
	m = newTestManager(&mockExchanger{exchangeFn: func(context.Context) (string, error) {
		assert.Equal(t, domain.AppTokenPending, m.AppState())
		_, ok := m.AppToken()
		assert.False(t, ok, "pending token must not be usable")
		return "app-token", nil
	}}, okProfiles(), memory.NewStore())

	m.AcquireAppToken(t.Context())
	assert.Equal(t, domain.AppTokenPresent, m.AppState())
}

func TestAcquireAppToken_NoExchanger(t *testing.T) {
	m := newTestManager(nil, okProfiles(), memory.NewStore())

	m.AcquireAppToken(t.Context())
	assert.Equal(t, domain.AppTokenAbsent, m.AppState())
}

// --- Sign-in URL ---

func TestSignInURL(t *testing.T) {
	m := newTestManager(nil, okProfiles(), memory.NewStore())

	u, err := url.Parse(m.SignInURL(""))
	require.NoError(t, err)

	assert.Equal(t, "id.twitch.tv", u.Host)
	assert.Equal(t, "/oauth2/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/", q.Get("redirect_uri"))
	assert.Equal(t, "token", q.Get("response_type"))
	assert.Equal(t, "user:read:email user:read:follows", q.Get("scope"))
	assert.False(t, q.Has("state"))
}

func TestSignInURL_OverridesRedirect(t *testing.T) {
	m := newTestManager(nil, okProfiles(), memory.NewStore())

	u, err := url.Parse(m.SignInURL("https://viewer.example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "https://viewer.example.com/", u.Query().Get("redirect_uri"))
}

// --- Resume ---

func TestResume_GrantSignsInAndPersists(t *testing.T) {
	ctx := t.Context()
	storage := memory.NewStore()
	profiles := okProfiles()
	m := newTestManager(nil, profiles, storage)

	r, err := ParseRedirect("http://localhost:8080/#access_token=abc&scope=user%3Aread%3Afollows")
	require.NoError(t, err)

	res, err := m.Resume(ctx, r)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/", res.Location)
	assert.True(t, res.SignedIn)
	assert.True(t, res.SignedInNow)
	assert.Equal(t, &testProfile, res.Profile)
	assert.Equal(t, []string{"abc"}, profiles.tokens)

	token, ok := m.UserToken()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	stored, err := storage.Get(ctx, domain.StorageKeyUserToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", stored)

	data, err := storage.Get(ctx, domain.StorageKeyUserData)
	require.NoError(t, err)
	assert.JSONEq(t, testProfileJSON, data)
}

func TestResume_SupersededGrantReportsCurrentSession(t *testing.T) {
	ctx := t.Context()
	second := domain.Profile{ID: "7", Login: "second", DisplayName: "Second"}

	var m *Manager
	profiles := &mockProfiles{}
	profiles.fetchFn = func(ctx context.Context, userToken string) (domain.Profile, []byte, error) {
		if userToken == "first" {
			// another tab completes a newer sign-in while this profile request is outstanding
			r, err := ParseRedirect("http://localhost:8080/#access_token=second")
			require.NoError(t, err)
			res, err := m.Resume(ctx, r)
			require.NoError(t, err)
			require.True(t, res.SignedInNow)
			return testProfile, []byte(testProfileJSON), nil
		}
		return second, []byte(`{"id":"7","login":"second","display_name":"Second"}`), nil
	}
	m = newTestManager(nil, profiles, memory.NewStore())

	r, err := ParseRedirect("http://localhost:8080/#access_token=first")
	require.NoError(t, err)

	res, err := m.Resume(ctx, r)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/", res.Location)
	assert.True(t, res.SignedIn, "a session exists even though this grant lost")
	assert.False(t, res.SignedInNow)
	assert.Equal(t, &second, res.Profile)

	token, _ := m.UserToken()
	assert.Equal(t, "second", token)
}

func TestResume_ProfileFailureKeepsToken(t *testing.T) {
	ctx := t.Context()
	storage := memory.NewStore()
	m := newTestManager(nil, &mockProfiles{fetchFn: func(context.Context, string) (domain.Profile, []byte, error) {
		return domain.Profile{}, nil, errors.New("401 Unauthorized")
	}}, storage)

	res, err := m.Resume(ctx, Redirect{Token: "abc", Scope: "s", CleanURL: "http://localhost:8080/"})
	require.Error(t, err)

	assert.Equal(t, "http://localhost:8080/", res.Location)
	assert.True(t, res.SignedIn)
	assert.False(t, res.SignedInNow)
	assert.Nil(t, m.Profile())

	stored, err := storage.Get(ctx, domain.StorageKeyUserToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", stored)
	_, err = storage.Get(ctx, domain.StorageKeyUserData)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestResume_RestoresPersistedSession(t *testing.T) {
	ctx := t.Context()
	storage := memory.NewStore()
	require.NoError(t, storage.Set(ctx, domain.StorageKeyUserToken, "saved"))
	require.NoError(t, storage.Set(ctx, domain.StorageKeyUserData, testProfileJSON))

	profiles := okProfiles()
	m := newTestManager(nil, profiles, storage)

	res, err := m.Resume(ctx, Redirect{CleanURL: "http://localhost:8080/"})
	require.NoError(t, err)

	assert.True(t, res.SignedIn)
	assert.False(t, res.SignedInNow, "restoring must not trigger the follow auto-load")
	assert.Equal(t, &testProfile, res.Profile)
	assert.Empty(t, profiles.tokens, "restoring must not call the provider")

	token, _ := m.UserToken()
	assert.Equal(t, "saved", token)
}

func TestResume_RestoreTokenWithoutProfile(t *testing.T) {
	ctx := t.Context()
	storage := memory.NewStore()
	require.NoError(t, storage.Set(ctx, domain.StorageKeyUserToken, "saved"))
	require.NoError(t, storage.Set(ctx, domain.StorageKeyUserData, "{not json"))

	m := newTestManager(nil, okProfiles(), storage)

	res, err := m.Resume(ctx, Redirect{})
	require.NoError(t, err)
	assert.True(t, res.SignedIn)
	assert.Nil(t, res.Profile)
}

func TestResume_NothingPersisted(t *testing.T) {
	m := newTestManager(nil, okProfiles(), memory.NewStore())

	res, err := m.Resume(t.Context(), Redirect{CleanURL: "http://localhost:8080/"})
	require.NoError(t, err)
	assert.False(t, res.SignedIn)
	assert.False(t, m.SignedIn())
}

func TestResume_ActiveSessionIsNotReplacedByStorage(t *testing.T) {
	ctx := t.Context()
	storage := memory.NewStore()
	m := newTestManager(nil, okProfiles(), storage)

	_, err := m.Resume(ctx, Redirect{Token: "fresh", Scope: "s"})
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, domain.StorageKeyUserToken, "other"))

	res, err := m.Resume(ctx, Redirect{})
	require.NoError(t, err)
	assert.True(t, res.SignedIn)
	assert.False(t, res.SignedInNow)

	token, _ := m.UserToken()
	assert.Equal(t, "fresh", token)
}

// --- Sign-out ---

func TestSignOut_PurgesMemoryAndStorage(t *testing.T) {
	ctx := t.Context()
	storage := memory.NewStore()
	m := newTestManager(nil, okProfiles(), storage)

	_, err := m.Resume(ctx, Redirect{Token: "abc", Scope: "s"})
	require.NoError(t, err)
	require.True(t, m.SignedIn())

	require.NoError(t, m.SignOut(ctx))

	assert.False(t, m.SignedIn())
	assert.Nil(t, m.Profile())
	_, err = storage.Get(ctx, domain.StorageKeyUserToken)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	_, err = storage.Get(ctx, domain.StorageKeyUserData)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	res, err := m.Resume(ctx, Redirect{})
	require.NoError(t, err)
	assert.False(t, res.SignedIn, "a purged session must not come back on the next page load")
}

func TestProfile_ReturnsCopy(t *testing.T) {
	m := newTestManager(nil, okProfiles(), memory.NewStore())
	_, err := m.Resume(t.Context(), Redirect{Token: "abc", Scope: "s"})
	require.NoError(t, err)

	p := m.Profile()
	p.Login = "mutated"
	assert.Equal(t, "twitchdev", m.Profile().Login)
}
