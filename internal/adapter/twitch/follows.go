package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/platform/version"
)

// FollowsClient lists followed channels from the users/follows endpoint.
type FollowsClient struct {
	clientID   string
	apiBaseURL string
	httpClient *http.Client
}

// NewFollowsClient creates a client. An empty apiBaseURL selects the public Helix endpoint.
func NewFollowsClient(clientID, apiBaseURL string) *FollowsClient {
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	return &FollowsClient{
		clientID:   clientID,
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{Timeout: httpCallTimeout},
	}
}

func (c *FollowsClient) FetchFollows(ctx context.Context, userToken, userID string, first int) ([]domain.FollowedChannel, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("first", strconv.Itoa(first))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/users/follows?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create follows request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+userToken)
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute follows request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitch follows API returned status %d", resp.StatusCode)
	}

	var followsResp struct {
		Data []domain.FollowedChannel `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&followsResp); err != nil {
		return nil, fmt.Errorf("failed to decode follows response: %w", err)
	}

	return followsResp.Data, nil
}
