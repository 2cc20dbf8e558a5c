// Package viewer owns the state of one multi-stream viewer and serializes every change to it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamhub/internal/adapter/metrics"
	"github.com/pscheid92/streamhub/internal/auth"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/follows"
	"github.com/pscheid92/streamhub/internal/search"
	"github.com/pscheid92/streamhub/internal/slots"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
	cmdBuffer      = 256
)

// ErrStopped is returned by every operation once the controller has stopped.
var ErrStopped = errors.New("viewer stopped")

// Publisher receives a snapshot after every state change. Publish must not block.
type Publisher interface {
	Publish(domain.Snapshot)
}

// Dependencies wires a Controller. Publisher and both metric sets may be nil.
type Dependencies struct {
	Clock         clockwork.Clock
	Auth          *auth.Manager
	Searcher      domain.ChannelSearcher
	Follows       domain.FollowFetcher
	Publisher     Publisher
	SlotMetrics   *metrics.SlotMetrics
	SearchMetrics *metrics.SearchMetrics
	SearchDelay   time.Duration
}

// Controller is an actor: a single goroutine runs every command and every timer or network
// continuation, so the slot store and the search engine are never touched concurrently.
type Controller struct {
	cmdCh chan func()
	quit  chan struct{}
	done  chan struct{}
	clock clockwork.Clock

	store     *slots.Store
	search    *search.Engine
	auth      *auth.Manager
	follows   *follows.Loader
	publisher Publisher

	focus   domain.SlotID
	notices []domain.Notice
	version uint64

	// Background work (app token exchange, follow loads) is bound to ctx and awaited on Stop.
	// bgMu orders every wg.Go against the stopped flag so no work is added once Stop waits.
	ctx      context.Context
	cancel   context.CancelFunc
	bgMu     sync.Mutex
	stopped  bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func New(deps Dependencies) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cmdCh:     make(chan func(), cmdBuffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		clock:     deps.Clock,
		auth:      deps.Auth,
		follows:   follows.NewLoader(deps.Follows, deps.Auth),
		publisher: deps.Publisher,
		ctx:       ctx,
		cancel:    cancel,
	}

	c.store = slots.NewStore(deps.Clock, domain.NotifierFunc(c.collect), deps.SlotMetrics)

	opts := []search.Option{search.OnChange(c.publish), search.WithMetrics(deps.SearchMetrics)}
	if deps.SearchDelay > 0 {
		opts = append(opts, search.WithDelay(deps.SearchDelay))
	}
	c.search = search.NewEngine(deps.Clock, c, deps.Auth, deps.Searcher, c.store, opts...)

	c.store.OnRemove(func(id domain.SlotID) {
		if c.focus == id {
			c.focus = 0
		}
	})
	return c
}

// Start launches the command loop and the one-shot app token exchange.
func (c *Controller) Start() {
	go c.run()

	c.background(func() {
		c.auth.AcquireAppToken(c.ctx)
		c.Dispatch(c.publish)
	})
}

// background runs fn on the wait group unless the controller is stopping.
func (c *Controller) background(fn func()) bool {
	c.bgMu.Lock()
	defer c.bgMu.Unlock()
	if c.stopped {
		return false
	}
	c.wg.Go(fn)
	return true
}

// Stop cancels background work, stops pending searches and waits for the loop to exit.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.bgMu.Lock()
		c.stopped = true
		c.bgMu.Unlock()

		c.cancel()
		close(c.quit)

		timeout := c.clock.NewTimer(stopTimeout)
		defer timeout.Stop()

		select {
		case <-c.done:
			slog.Info("Viewer stopped gracefully")
		case <-timeout.Chan():
			slog.Warn("Viewer stop timeout exceeded", "timeout", stopTimeout)
		}
		c.wg.Wait()
	})
}

// Dispatch queues fn onto the command loop. It is dropped once the controller stops.
func (c *Controller) Dispatch(fn func()) {
	select {
	case c.cmdCh <- fn:
	case <-c.quit:
	}
}

func (c *Controller) run() {
	defer close(c.done)

	for {
		select {
		case fn := <-c.cmdCh:
			c.safely(fn)
		case <-c.quit:
			c.search.Close()
			return
		}
	}
}

func (c *Controller) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Viewer command panic recovered", "panic", r)
		}
	}()
	fn()
}

// exec runs fn on the loop and waits for it to finish.
func (c *Controller) exec(fn func()) error {
	reply := make(chan struct{})
	cmd := func() {
		defer close(reply)
		fn()
	}

	select {
	case c.cmdCh <- cmd:
	case <-c.quit:
		return ErrStopped
	}

	timer := c.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case <-reply:
		return nil
	case <-c.done:
		return ErrStopped
	case <-timer.Chan():
		return fmt.Errorf("viewer command timed out after %v", commandTimeout)
	}
}

// AddSlot appends a slot and returns the notices the add raised. A capacity rejection returns
// domain.ErrCapacityReached together with its notice.
func (c *Controller) AddSlot(platform domain.Platform, identifier string) (domain.Slot, []domain.Notice, error) {
	return c.add(func() (domain.Slot, error) { return c.store.Add(platform, identifier) })
}

// AddFollowed adds a twitch slot for a followed channel.
func (c *Controller) AddFollowed(login string) (domain.Slot, []domain.Notice, error) {
	return c.add(func() (domain.Slot, error) { return c.store.AddFromFollow(login) })
}

func (c *Controller) add(fn func() (domain.Slot, error)) (domain.Slot, []domain.Notice, error) {
	var (
		slot    domain.Slot
		notices []domain.Notice
		err     error
	)
	if execErr := c.exec(func() {
		c.notices = nil
		slot, err = fn()
		notices, c.notices = c.notices, nil
		if err == nil {
			c.publish()
		}
	}); execErr != nil {
		return domain.Slot{}, nil, execErr
	}
	return slot, notices, err
}

// RemoveSlot removes a slot together with its pending search and suggestions. Removing the
// focused slot returns the grid to all slots. Unknown ids are a no-op.
func (c *Controller) RemoveSlot(id domain.SlotID) (bool, error) {
	var removed bool
	err := c.exec(func() {
		removed = c.store.Remove(id)
		if removed {
			c.publish()
		}
	})
	return removed, err
}

// UpdateSlot changes one field of a slot. Identifier edits restart the slot's debounced search.
func (c *Controller) UpdateSlot(id domain.SlotID, field domain.SlotField, value string) error {
	var err error
	if execErr := c.exec(func() {
		var found bool
		switch field {
		case domain.FieldIdentifier:
			found = c.search.Edit(id, value)
		default:
			found, err = c.store.Update(id, field, value)
		}
		if !found {
			err = fmt.Errorf("%w: %d", domain.ErrSlotNotFound, id)
			return
		}
		if err == nil {
			c.publish()
		}
	}); execErr != nil {
		return execErr
	}
	return err
}

// SelectSuggestion accepts name as the slot's identifier without searching again.
func (c *Controller) SelectSuggestion(id domain.SlotID, name string) error {
	var err error
	if execErr := c.exec(func() {
		if !c.search.Select(id, name) {
			err = fmt.Errorf("%w: %d", domain.ErrSlotNotFound, id)
			return
		}
		c.publish()
	}); execErr != nil {
		return execErr
	}
	return err
}

// Focus limits the grid to a single slot.
func (c *Controller) Focus(id domain.SlotID) error {
	var err error
	if execErr := c.exec(func() {
		if _, ok := c.store.Get(id); !ok {
			err = fmt.Errorf("%w: %d", domain.ErrSlotNotFound, id)
			return
		}
		c.focus = id
		c.publish()
	}); execErr != nil {
		return execErr
	}
	return err
}

// ClearFocus shows all slots again.
func (c *Controller) ClearFocus() error {
	return c.exec(func() {
		if c.focus != 0 {
			c.focus = 0
			c.publish()
		}
	})
}

// Resume handles a page load. href is the full page URL, possibly carrying an implicit-grant
// fragment. A fresh sign-in starts the automatic follow load in the background. Profile and
// storage failures are logged and do not fail the call.
func (c *Controller) Resume(ctx context.Context, href string) (auth.ResumeResult, error) {
	redirect, err := auth.ParseRedirect(href)
	if err != nil {
		return auth.ResumeResult{}, err
	}

	select {
	case <-c.quit:
		return auth.ResumeResult{}, ErrStopped
	default:
	}

	result, err := c.auth.Resume(ctx, redirect)
	if err != nil {
		slog.WarnContext(ctx, "Session resume incomplete", "signed_in", result.SignedIn, "error", err)
	}

	if result.SignedInNow {
		c.follows.Reset()
		started := c.background(func() {
			if _, err := c.follows.AutoLoad(c.ctx); err != nil {
				slog.Warn("Automatic follow load failed", "error", err)
			}
			c.Dispatch(c.publish)
		})
		if !started {
			return result, ErrStopped
		}
	}

	c.Dispatch(c.publish)
	return result, nil
}

// SignInURL returns the implicit-grant authorize URL.
func (c *Controller) SignInURL(redirectURI string) string {
	return c.auth.SignInURL(redirectURI)
}

// SignOut ends the user session and forgets the follow list.
func (c *Controller) SignOut(ctx context.Context) error {
	err := c.auth.SignOut(ctx)
	c.follows.Reset()
	c.Dispatch(c.publish)
	return err
}

// LoadFollows fetches the follow list on explicit request.
func (c *Controller) LoadFollows(ctx context.Context) ([]domain.FollowedChannel, error) {
	channels, err := c.follows.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.Dispatch(c.publish)
	return channels, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := c.exec(func() { snap = c.snapshot() })
	return snap, err
}

func (c *Controller) snapshot() domain.Snapshot {
	return domain.Snapshot{
		Version:     c.version,
		Slots:       c.store.List(),
		Suggestions: c.search.Suggestions(),
		Focus:       c.focus,
		AppToken:    c.auth.AppState(),
		SignedIn:    c.auth.SignedIn(),
		Profile:     c.auth.Profile(),
		Follows:     c.follows.Channels(),
	}
}

func (c *Controller) publish() {
	c.version++
	if c.publisher != nil {
		c.publisher.Publish(c.snapshot())
	}
}

func (c *Controller) collect(n domain.Notice) {
	c.notices = append(c.notices, n)
}
