package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"EventSync/model"
)

// Store is the slice of the store adapter the reconciler needs: the two
// standing change feeds plus creator-name resolution.
type Store interface {
	// WatchEvents delivers full snapshots of the events collection ordered
	// by date, for as long as ctx lives.
	WatchEvents(ctx context.Context) (<-chan model.EventSnapshot, error)

	// WatchReminders delivers full snapshots of userID's reminder records.
	WatchReminders(ctx context.Context, userID string) (<-chan model.ReminderSnapshot, error)

	// GetUserName resolves a user id to a display name.
	GetUserName(ctx context.Context, userID string) (string, error)
}

// Reconciler owns the session's two standing subscriptions and is the only
// writer of the Cache. Every event snapshot is filtered down to the events
// visible to the session user and replaces the cached list wholesale; every
// reminder snapshot replaces the reminder map wholesale. Creator display
// names are looked up once per unique creator id and kept for the session -
// a rename on the server shows up next session, not this one.
type Reconciler struct {
	store Store
	cache *Cache

	mu     sync.Mutex
	userID string
	cancel context.CancelFunc
	done   sync.WaitGroup

	resolved map[string]string // creator user id -> display name, session scoped
}

func NewReconciler(store Store, cache *Cache) *Reconciler {
	return &Reconciler{
		store: store,
		cache: cache,
	}
}

// Start opens both feeds for userID. A reconciler runs at most one session
// at a time; starting while a session is live is an error.
func (r *Reconciler) Start(ctx context.Context, userID string) error {
	if userID == "" {
		return model.ErrAuthenticationRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return fmt.Errorf("sync session already running for user %s", r.userID)
	}

	ctx, cancel := context.WithCancel(ctx)

	eventCh, err := r.store.WatchEvents(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: opening event feed: %v", model.ErrStoreFailure, err)
	}
	reminderCh, err := r.store.WatchReminders(ctx, userID)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: opening reminder feed: %v", model.ErrStoreFailure, err)
	}

	r.userID = userID
	r.cancel = cancel
	r.resolved = make(map[string]string)

	r.done.Add(2)
	go r.runEvents(ctx, userID, eventCh)
	go r.runReminders(ctx, reminderCh)

	log.Info().Str("user_id", userID).Msg("sync session started")
	return nil
}

// Stop tears down the session: cancels both feeds, waits for them to drain
// and clears the cache. Safe to call when no session is running.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	userID := r.userID
	r.cancel = nil
	r.userID = ""
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.done.Wait()
	r.cache.Clear()
	log.Info().Str("user_id", userID).Msg("sync session stopped")
}

func (r *Reconciler) runEvents(ctx context.Context, userID string, ch <-chan model.EventSnapshot) {
	defer r.done.Done()
	for snap := range ch {
		if snap.Err != nil {
			log.Error().Err(snap.Err).Msg("event feed error")
			r.cache.SetError(snap.Err)
			continue
		}

		visible := make([]model.Event, 0, len(snap.Events))
		for _, ev := range snap.Events {
			if ev.VisibleTo(userID) {
				visible = append(visible, ev)
			}
		}

		names := make(map[string]string, len(visible))
		for i := range visible {
			if name, ok := r.resolveCreator(ctx, &visible[i]); ok {
				names[visible[i].ID] = name
			}
		}

		r.cache.ReplaceEvents(visible, names)
	}
}

func (r *Reconciler) runReminders(ctx context.Context, ch <-chan model.ReminderSnapshot) {
	defer r.done.Done()
	for snap := range ch {
		if snap.Err != nil {
			log.Error().Err(snap.Err).Msg("reminder feed error")
			r.cache.SetError(snap.Err)
			continue
		}

		reminders := make(map[string]time.Time, len(snap.Reminders))
		for _, rem := range snap.Reminders {
			reminders[rem.EventID] = rem.ReminderTime
		}
		r.cache.ReplaceReminders(reminders)
	}
}

// resolveCreator returns the display name for the event's creator, looking
// it up at most once per unique creator id per session. Failed lookups are
// logged and retried on the next snapshot.
func (r *Reconciler) resolveCreator(ctx context.Context, ev *model.Event) (string, bool) {
	if ev.CreatedBy == "" {
		return "", false
	}
	if name, ok := r.resolved[ev.CreatedBy]; ok {
		return name, true
	}

	name, err := r.store.GetUserName(ctx, ev.CreatedBy)
	if err != nil {
		log.Warn().Err(err).
			Str("user_id", ev.CreatedBy).
			Msg("failed to resolve creator name")
		return "", false
	}
	r.resolved[ev.CreatedBy] = name
	return name, true
}
