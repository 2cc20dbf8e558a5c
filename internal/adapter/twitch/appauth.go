package twitch

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// AppTokenExchanger obtains app access tokens with the client-credential grant.
// Each call makes exactly one request; a failure is returned to the caller as is.
type AppTokenExchanger struct {
	config     clientcredentials.Config
	httpClient *http.Client
}

// NewAppTokenExchanger creates an exchanger. An empty tokenURL selects the Twitch token endpoint.
func NewAppTokenExchanger(clientID, clientSecret, tokenURL string) *AppTokenExchanger {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &AppTokenExchanger{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: &http.Client{Timeout: httpCallTimeout},
	}
}

func (e *AppTokenExchanger) ExchangeAppToken(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	token, err := e.config.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("client credentials exchange failed: %w", err)
	}
	return token.AccessToken, nil
}
