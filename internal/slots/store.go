// Package slots holds the ordered, bounded collection of stream slots.
package slots

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamhub/internal/adapter/metrics"
	"github.com/pscheid92/streamhub/internal/domain"
)

const (
	capacityMessage      = "You can only add a maximum of 12 streams."
	crossPlatformMessage = "Warning: If you are streaming this website on Twitch and you pull up a Kick or YouTube streamer, Twitch may ban you."
)

// Store keeps slots in insertion order and never holds more than domain.MaxSlots.
// It is not safe for concurrent use: the viewer controller serializes every call.
type Store struct {
	clock    clockwork.Clock
	notifier domain.Notifier
	metrics  *metrics.SlotMetrics

	slots  []domain.Slot
	lastID domain.SlotID

	removeListeners []func(domain.SlotID)
}

// NewStore creates an empty store. notifier and slotMetrics may be nil.
func NewStore(clock clockwork.Clock, notifier domain.Notifier, slotMetrics *metrics.SlotMetrics) *Store {
	return &Store{
		clock:    clock,
		notifier: notifier,
		metrics:  slotMetrics,
		slots:    make([]domain.Slot, 0, domain.MaxSlots),
	}
}

// OnRemove registers fn to run synchronously whenever a slot is removed.
func (s *Store) OnRemove(fn func(domain.SlotID)) {
	s.removeListeners = append(s.removeListeners, fn)
}

// Add appends a slot. The identifier is trimmed; an empty result is rejected without a notice.
// A full store rejects the add and raises a capacity notice. Adding a non-native platform raises
// a cross-platform advisory but still succeeds.
func (s *Store) Add(platform domain.Platform, identifier string) (domain.Slot, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		s.reject("empty_identifier")
		return domain.Slot{}, domain.ErrEmptyIdentifier
	}
	if !platform.Valid() {
		s.reject("unknown_platform")
		return domain.Slot{}, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, platform)
	}
	if len(s.slots) >= domain.MaxSlots {
		s.reject("capacity")
		s.notify(domain.Notice{Kind: domain.NoticeCapacity, Message: capacityMessage})
		return domain.Slot{}, domain.ErrCapacityReached
	}

	if !platform.Native() {
		s.notify(domain.Notice{Kind: domain.NoticeCrossPlatform, Message: crossPlatformMessage})
	}

	slot := domain.Slot{ID: s.nextID(), Platform: platform, Identifier: identifier}
	s.slots = append(s.slots, slot)
	s.observe()

	slog.Debug("Slot added", "slot_id", slot.ID, "platform", slot.Platform, "identifier", slot.Identifier, "total", len(s.slots))
	return slot, nil
}

// AddFromFollow adds a twitch slot for a followed channel login.
func (s *Store) AddFromFollow(login string) (domain.Slot, error) {
	return s.Add(domain.PlatformTwitch, login)
}

// Remove deletes the slot with the given id. Removing an unknown id is a no-op and returns false.
func (s *Store) Remove(id domain.SlotID) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}

	s.slots = slices.Delete(s.slots, i, i+1)
	s.observe()

	for _, fn := range s.removeListeners {
		fn(id)
	}

	slog.Debug("Slot removed", "slot_id", id, "total", len(s.slots))
	return true
}

// Update replaces one field of the slot with the given id and leaves every other slot untouched.
// It returns false when the slot does not exist.
func (s *Store) Update(id domain.SlotID, field domain.SlotField, value string) (bool, error) {
	i := s.index(id)
	if i < 0 {
		return false, nil
	}

	switch field {
	case domain.FieldIdentifier:
		s.slots[i].Identifier = value
	case domain.FieldPlatform:
		p, err := domain.ParsePlatform(value)
		if err != nil {
			return true, err
		}
		s.slots[i].Platform = p
	default:
		return true, fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}
	return true, nil
}

// Get returns a copy of the slot with the given id.
func (s *Store) Get(id domain.SlotID) (domain.Slot, bool) {
	i := s.index(id)
	if i < 0 {
		return domain.Slot{}, false
	}
	return s.slots[i], true
}

// List returns a copy of all slots in insertion order.
func (s *Store) List() []domain.Slot {
	return slices.Clone(s.slots)
}

func (s *Store) Len() int {
	return len(s.slots)
}

func (s *Store) index(id domain.SlotID) int {
	return slices.IndexFunc(s.slots, func(slot domain.Slot) bool { return slot.ID == id })
}

// nextID derives ids from creation time in milliseconds and bumps past collisions.
func (s *Store) nextID() domain.SlotID {
	id := domain.SlotID(s.clock.Now().UnixMilli())
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Store) notify(n domain.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}

func (s *Store) reject(reason string) {
	if s.metrics != nil {
		s.metrics.RejectedAdds.WithLabelValues(reason).Inc()
	}
}

func (s *Store) observe() {
	if s.metrics != nil {
		s.metrics.Slots.Set(float64(len(s.slots)))
	}
}
