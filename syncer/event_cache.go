package syncer

import (
	"sync"
	"time"

	"EventSync/model"
)

// Cache is the session-scoped local view of the store: the current user's
// visible events ordered by date, creator display names per event, and the
// user's reminder times per event. It is single-writer by construction -
// every mutation goes through mutate, which serializes writers and then
// notifies subscribers - so consumers never observe a partially applied
// snapshot. The cache lives for one authenticated session and is cleared
// wholesale on sign-out.
type Cache struct {
	mu          sync.Mutex
	events      []model.Event
	names       map[string]string    // event id -> creator display name
	reminders   map[string]time.Time // event id -> reminder time
	lastErr     error
	subscribers map[int]chan struct{}
	nextSubID   int
}

func NewCache() *Cache {
	return &Cache{
		names:       make(map[string]string),
		reminders:   make(map[string]time.Time),
		subscribers: make(map[int]chan struct{}),
	}
}

// Events returns a copy of the cached event list, ordered by date.
func (c *Cache) Events() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// CreatorName returns the cached display name of the event's creator.
func (c *Cache) CreatorName(eventID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.names[eventID]
	return name, ok
}

// ReminderTime returns the current user's reminder time for the event.
func (c *Cache) ReminderTime(eventID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.reminders[eventID]
	return t, ok
}

// LastError returns the standing feed error, nil while the feeds are
// healthy. A feed error does not empty the cache; consumers keep the last
// good snapshot alongside the error.
func (c *Cache) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe registers a change listener. The returned channel receives a
// coalesced signal after every cache update; the cancel func removes the
// subscription.
func (c *Cache) Subscribe() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan struct{}, 1)
	c.subscribers[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// ReplaceEvents swaps in a complete new event list and the creator names
// resolved for it. The previous list is discarded, never merged.
func (c *Cache) ReplaceEvents(events []model.Event, names map[string]string) {
	c.mutate(func() {
		c.events = events
		c.names = names
		c.lastErr = nil
	})
}

// ReplaceReminders swaps in a complete new reminder map.
func (c *Cache) ReplaceReminders(reminders map[string]time.Time) {
	c.mutate(func() {
		c.reminders = reminders
		c.lastErr = nil
	})
}

// SetError records a standing feed error without touching cached data.
func (c *Cache) SetError(err error) {
	c.mutate(func() {
		c.lastErr = err
	})
}

// Clear empties the cache. Called on sign-out, before the next session
// starts from scratch.
func (c *Cache) Clear() {
	c.mutate(func() {
		c.events = nil
		c.names = make(map[string]string)
		c.reminders = make(map[string]time.Time)
		c.lastErr = nil
	})
}

// mutate is the cache's single update entry point.
func (c *Cache) mutate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	for _, ch := range c.subscribers {
		select {
		case ch <- struct{}{}:
		default: // subscriber already has a pending signal
		}
	}
}
