package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nicklaw5/helix/v2"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/platform/version"
)

const (
	DefaultAPIBaseURL = "https://api.twitch.tv/helix"
	httpCallTimeout   = 10 * time.Second
)

// contextDoer binds the helix client's requests to the context of the call that holds the lock.
type contextDoer struct {
	client *http.Client
	ctx    context.Context
}

func (d *contextDoer) Do(req *http.Request) (*http.Response, error) {
	if d.ctx != nil {
		req = req.WithContext(d.ctx)
	}
	return d.client.Do(req)
}

// HelixClient wraps the Helix API for channel search and user lookup.
// The underlying client carries one token at a time, so calls are serialized.
type HelixClient struct {
	mu     sync.Mutex
	client *helix.Client
	doer   *contextDoer
}

// NewHelixClient creates a client. An empty apiBaseURL selects the public Helix endpoint.
func NewHelixClient(clientID, apiBaseURL string) (*HelixClient, error) {
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}

	doer := &contextDoer{client: &http.Client{Timeout: httpCallTimeout}}
	client, err := helix.NewClient(&helix.Options{
		ClientID:   clientID,
		APIBaseURL: apiBaseURL,
		HTTPClient: doer,
		UserAgent:  version.UserAgent(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	return &HelixClient{client: client, doer: doer}, nil
}

// SearchChannels returns broadcaster logins matching query, using the app token.
func (hc *HelixClient) SearchChannels(ctx context.Context, appToken, query string, first int) ([]string, error) {
	hc.mu.Lock()
	hc.doer.ctx = ctx
	hc.client.SetUserAccessToken("")
	hc.client.SetAppAccessToken(appToken)
	resp, err := hc.client.SearchChannels(&helix.SearchChannelsParams{
		Channel: query,
		First:   first,
	})
	hc.doer.ctx = nil
	hc.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to search channels: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.ResponseCommon)
	}

	logins := make([]string, 0, len(resp.Data.Channels))
	for _, ch := range resp.Data.Channels {
		logins = append(logins, ch.BroadcasterLogin)
	}
	return logins, nil
}

// FetchProfile resolves the user that owns userToken. raw is the user object as returned by Helix.
func (hc *HelixClient) FetchProfile(ctx context.Context, userToken string) (domain.Profile, []byte, error) {
	hc.mu.Lock()
	hc.doer.ctx = ctx
	hc.client.SetAppAccessToken("")
	hc.client.SetUserAccessToken(userToken)
	resp, err := hc.client.GetUsers(&helix.UsersParams{})
	hc.client.SetUserAccessToken("")
	hc.doer.ctx = nil
	hc.mu.Unlock()

	if err != nil {
		return domain.Profile{}, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Profile{}, nil, statusError(resp.ResponseCommon)
	}
	if len(resp.Data.Users) == 0 {
		return domain.Profile{}, nil, errors.New("no user data returned")
	}

	user := resp.Data.Users[0]
	raw, err := json.Marshal(user)
	if err != nil {
		return domain.Profile{}, nil, fmt.Errorf("failed to encode user: %w", err)
	}

	profile := domain.Profile{
		ID:          user.ID,
		Login:       user.Login,
		DisplayName: user.DisplayName,
		AvatarURL:   user.ProfileImageURL,
	}
	return profile, raw, nil
}

func statusError(rc helix.ResponseCommon) error {
	return fmt.Errorf("unexpected status code: %d, error: %s, message: %s", rc.StatusCode, rc.Error, rc.ErrorMessage)
}
