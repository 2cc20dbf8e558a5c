// Package search implements debounced, per-slot channel name suggestions.
//
// Every edit of a slot's identifier restarts a settle timer for that slot. When the timer fires the
// slot's current identifier is queried and the returned channel logins become the slot's suggestions.
// Results are tagged with the slot's edit generation and discarded when the slot has moved on.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamhub/internal/adapter/metrics"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/platform/correlation"
	"github.com/pscheid92/streamhub/internal/slots"
)

const (
	// DefaultDelay is how long input must settle before a query is issued.
	DefaultDelay = 300 * time.Millisecond

	// MaxSuggestions bounds both the query page size and the stored suggestions.
	MaxSuggestions = 5

	queryTimeout = 10 * time.Second
)

// Dispatcher runs fn on the goroutine that owns the engine.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// AppTokenSource exposes the application credential. ok is false while the token is absent or pending.
type AppTokenSource interface {
	AppToken() (token string, ok bool)
}

// Engine owns the debounce timers and suggestion sets for all slots.
// All methods must be called from the dispatcher's goroutine.
type Engine struct {
	clock      clockwork.Clock
	dispatcher Dispatcher
	tokens     AppTokenSource
	searcher   domain.ChannelSearcher
	store      *slots.Store
	metrics    *metrics.SearchMetrics
	delay      time.Duration

	onChange func()

	ctx    context.Context
	cancel context.CancelFunc

	timers      map[domain.SlotID]clockwork.Timer
	generations map[domain.SlotID]uint64
	suggestions map[domain.SlotID][]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// WithMetrics records query outcomes and debounce activity.
func WithMetrics(m *metrics.SearchMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// OnChange registers fn to run on the dispatcher goroutine whenever suggestions change asynchronously.
func OnChange(fn func()) Option {
	return func(e *Engine) { e.onChange = fn }
}

// NewEngine creates an engine bound to store. Removing a slot from the store cancels its pending
// search and erases its suggestions.
func NewEngine(clock clockwork.Clock, dispatcher Dispatcher, tokens AppTokenSource, searcher domain.ChannelSearcher, store *slots.Store, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		clock:       clock,
		dispatcher:  dispatcher,
		tokens:      tokens,
		searcher:    searcher,
		store:       store,
		delay:       DefaultDelay,
		ctx:         ctx,
		cancel:      cancel,
		timers:      make(map[domain.SlotID]clockwork.Timer),
		generations: make(map[domain.SlotID]uint64),
		suggestions: make(map[domain.SlotID][]string),
	}
	for _, opt := range opts {
		opt(e)
	}

	store.OnRemove(e.Forget)
	return e
}

// Edit sets the slot's identifier to value and restarts its debounce. An empty value or a missing
// app token clears the slot's suggestions and schedules nothing. It returns false for unknown slots.
func (e *Engine) Edit(id domain.SlotID, value string) bool {
	if found, _ := e.store.Update(id, domain.FieldIdentifier, value); !found {
		return false
	}

	gen := e.bump(id)

	if _, ok := e.tokens.AppToken(); value == "" || !ok {
		delete(e.suggestions, id)
		return true
	}

	e.timers[id] = e.clock.AfterFunc(e.delay, func() {
		e.dispatcher.Dispatch(func() { e.fire(id, gen) })
	})
	e.observePending()
	return true
}

// Select accepts a suggestion: the identifier becomes name and the suggestions are cleared.
// Pending timers and in-flight queries for the slot are superseded.
func (e *Engine) Select(id domain.SlotID, name string) bool {
	if found, _ := e.store.Update(id, domain.FieldIdentifier, name); !found {
		return false
	}

	e.bump(id)
	delete(e.suggestions, id)
	return true
}

// Forget drops all search state for a slot.
func (e *Engine) Forget(id domain.SlotID) {
	e.stopTimer(id)
	delete(e.generations, id)
	delete(e.suggestions, id)
	e.observePending()
}

// Suggestions returns a copy of the current suggestion sets keyed by slot.
func (e *Engine) Suggestions() map[domain.SlotID][]string {
	out := make(map[domain.SlotID][]string, len(e.suggestions))
	for id, names := range e.suggestions {
		out[id] = append([]string(nil), names...)
	}
	return out
}

// SuggestionsFor returns the suggestions of one slot.
func (e *Engine) SuggestionsFor(id domain.SlotID) []string {
	return append([]string(nil), e.suggestions[id]...)
}

// Close stops every pending timer and cancels in-flight queries.
func (e *Engine) Close() {
	for id := range e.timers {
		e.stopTimer(id)
	}
	e.cancel()
	e.observePending()
}

// bump invalidates any scheduled or in-flight query for the slot and returns the new generation.
func (e *Engine) bump(id domain.SlotID) uint64 {
	if e.stopTimer(id) && e.metrics != nil {
		e.metrics.DebounceResets.Inc()
	}
	e.generations[id]++
	e.observePending()
	return e.generations[id]
}

func (e *Engine) stopTimer(id domain.SlotID) bool {
	t, ok := e.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(e.timers, id)
	return true
}

func (e *Engine) fire(id domain.SlotID, gen uint64) {
	if e.generations[id] != gen {
		return
	}
	delete(e.timers, id)
	e.observePending()

	slot, ok := e.store.Get(id)
	if !ok || slot.Identifier == "" {
		return
	}
	token, ok := e.tokens.AppToken()
	if !ok {
		return
	}

	query := slot.Identifier
	ctx := correlation.WithID(e.ctx, correlation.NewID())
	go func() {
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()

		start := e.clock.Now()
		names, err := e.searcher.SearchChannels(ctx, token, query, MaxSuggestions)
		if e.metrics != nil {
			e.metrics.QueryDuration.Observe(e.clock.Since(start).Seconds())
		}
		if err != nil {
			slog.WarnContext(ctx, "Channel search failed", "slot_id", id, "query", query, "error", err)
		}

		e.dispatcher.Dispatch(func() { e.apply(id, gen, query, names, err) })
	}()
}

func (e *Engine) apply(id domain.SlotID, gen uint64, query string, names []string, err error) {
	slot, ok := e.store.Get(id)
	if !ok || e.generations[id] != gen || slot.Identifier != query {
		e.count("stale")
		if e.metrics != nil {
			e.metrics.StaleResponses.Inc()
		}
		return
	}

	if err != nil {
		e.count("error")
		return
	}
	e.count("success")

	if len(names) > MaxSuggestions {
		names = names[:MaxSuggestions]
	}
	e.suggestions[id] = names

	if e.onChange != nil {
		e.onChange()
	}
}

func (e *Engine) count(result string) {
	if e.metrics != nil {
		e.metrics.Queries.WithLabelValues(result).Inc()
	}
}

func (e *Engine) observePending() {
	if e.metrics != nil {
		e.metrics.PendingTimers.Set(float64(len(e.timers)))
	}
}
