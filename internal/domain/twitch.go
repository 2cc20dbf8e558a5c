package domain

import "context"

// AppTokenExchanger obtains an application access token via the client-credential grant.
type AppTokenExchanger interface {
	ExchangeAppToken(ctx context.Context) (string, error)
}

// ChannelSearcher queries channels by name using the application token.
// It returns broadcaster logins in relevance order.
type ChannelSearcher interface {
	SearchChannels(ctx context.Context, appToken, query string, first int) ([]string, error)
}

// ProfileFetcher resolves the user owning a user access token.
// raw is the provider's user object as JSON, persisted verbatim.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userToken string) (profile Profile, raw []byte, err error)
}

// FollowFetcher lists the channels a user follows.
type FollowFetcher interface {
	FetchFollows(ctx context.Context, userToken, userID string, first int) ([]FollowedChannel, error)
}
