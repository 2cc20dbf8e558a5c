// Package follows loads the channels the signed-in user follows.
package follows

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pscheid92/streamhub/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PageSize is the number of followed channels requested. Only the first page is loaded.
const PageSize = 100

// Session exposes the signed-in user's credential and identity.
type Session interface {
	UserToken() (string, bool)
	Profile() *domain.Profile
}

// Loader fetches the follow list at most once automatically per sign-in and again on every
// explicit request. Concurrent loads share one request.
type Loader struct {
	fetcher domain.FollowFetcher
	session Session
	group   singleflight.Group

	mu         sync.Mutex
	channels   []domain.FollowedChannel
	autoLoaded bool
	// epoch advances on every Reset; a fetch started under an older epoch is discarded.
	epoch uint64
}

func NewLoader(fetcher domain.FollowFetcher, session Session) *Loader {
	return &Loader{fetcher: fetcher, session: session}
}

// Load fetches the follow list. On failure the previous list is kept. A result that arrives after
// a Reset, or after the session changed hands, is dropped and reported as ErrNotSignedIn.
func (l *Loader) Load(ctx context.Context) ([]domain.FollowedChannel, error) {
	token, ok := l.session.UserToken()
	profile := l.session.Profile()
	if !ok || profile == nil {
		return nil, domain.ErrNotSignedIn
	}

	l.mu.Lock()
	epoch := l.epoch
	l.mu.Unlock()

	key := fmt.Sprintf("%d:%s", epoch, profile.ID)
	v, err, shared := l.group.Do(key, func() (any, error) {
		return l.fetcher.FetchFollows(ctx, token, profile.ID, PageSize)
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to load followed channels", "user_id", profile.ID, "error", err)
		return nil, fmt.Errorf("load follows: %w", err)
	}

	channels := slices.Clone(v.([]domain.FollowedChannel))

	l.mu.Lock()
	current, _ := l.session.UserToken()
	if l.epoch != epoch || current != token {
		l.mu.Unlock()
		slog.DebugContext(ctx, "Discarding follow list of an ended session", "user_id", profile.ID)
		return nil, domain.ErrNotSignedIn
	}
	l.channels = channels
	l.mu.Unlock()

	slog.DebugContext(ctx, "Followed channels loaded", "count", len(channels), "shared", shared)
	return slices.Clone(channels), nil
}

// AutoLoad runs Load the first time it is called after construction or Reset. Later calls do
// nothing and report false.
func (l *Loader) AutoLoad(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.autoLoaded {
		l.mu.Unlock()
		return false, nil
	}
	l.autoLoaded = true
	l.mu.Unlock()

	_, err := l.Load(ctx)
	return true, err
}

// Channels returns the last loaded list.
func (l *Loader) Channels() []domain.FollowedChannel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.channels)
}

// Reset forgets the list, re-arms the automatic load and invalidates loads still in flight.
// Called on sign-out and on every fresh sign-in.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = nil
	l.autoLoaded = false
	l.epoch++
}
