package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"EventSync/model"
	"EventSync/notify"
)

// ReminderService couples the remote reminder record for a (user, event)
// pair with a best-effort local one-shot alert. The remote write is
// authoritative: it completes before the call returns, and a failure of the
// local alert never rolls it back.
type ReminderService struct {
	Events    EventStore
	Reminders ReminderStore
	Gateway   notify.Gateway
	Cache     ReminderCache

	wg sync.WaitGroup // outstanding local scheduling goroutines
}

func NewReminderService(events EventStore, reminders ReminderStore, gateway notify.Gateway, cache ReminderCache) *ReminderService {
	return &ReminderService{
		Events:    events,
		Reminders: reminders,
		Gateway:   gateway,
		Cache:     cache,
	}
}

// SetReminder upserts the reminder record for (userID, event) and then,
// asynchronously, negotiates notification permission and schedules the local
// alert. Only the creator and accepted participants may set a reminder, and
// the reminder must fire before the event starts.
func (s *ReminderService) SetReminder(ctx context.Context, eventID, userID string, at time.Time) error {
	if userID == "" {
		return model.ErrAuthenticationRequired
	}

	event, err := s.Events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.IsCreator(userID) && !event.IsAccepted(userID) {
		return fmt.Errorf("%w: user %s is not a participant of event %s", model.ErrNotAuthorized, userID, eventID)
	}
	if !at.Before(event.Date) {
		return fmt.Errorf("%w: reminder time must be before the event time", model.ErrInvalidInput)
	}

	reminder := &model.Reminder{
		UserID:       userID,
		EventID:      eventID,
		ReminderTime: at,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.Reminders.UpsertReminder(ctx, reminder); err != nil {
		return err
	}

	// The local alert is best effort and must not delay or fail the call.
	// The remote record above already won.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scheduleAlert(context.Background(), event, at)
	}()

	return nil
}

// RemoveReminder deletes the remote reminder record and cancels the pending
// local alert. Cancellation failures are logged, not surfaced: the remote
// deletion is what counts.
func (s *ReminderService) RemoveReminder(ctx context.Context, eventID, userID string) error {
	if userID == "" {
		return model.ErrAuthenticationRequired
	}

	event, err := s.Events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.IsCreator(userID) && !event.IsAccepted(userID) {
		return fmt.Errorf("%w: user %s is not a participant of event %s", model.ErrNotAuthorized, userID, eventID)
	}

	if err := s.Reminders.DeleteReminder(ctx, userID, eventID); err != nil {
		return err
	}

	if s.Gateway != nil {
		if err := s.Gateway.Cancel(eventID); err != nil {
			log.Warn().Err(err).
				Str("event_id", eventID).
				Msg("failed to cancel local alert")
		}
	}
	return nil
}

// GetReminderTime is a pure session-cache lookup; it never touches the store.
func (s *ReminderService) GetReminderTime(eventID string) (time.Time, bool) {
	if s.Cache == nil {
		return time.Time{}, false
	}
	return s.Cache.ReminderTime(eventID)
}

func (s *ReminderService) scheduleAlert(ctx context.Context, event *model.Event, at time.Time) {
	if s.Gateway == nil {
		return
	}

	granted, err := s.Gateway.RequestPermission(ctx)
	if err != nil {
		log.Warn().Err(err).
			Str("event_id", event.ID).
			Msg("notification permission request failed")
		return
	}
	if !granted {
		log.Info().
			Str("event_id", event.ID).
			Msg("notification permission denied, skipping local alert")
		return
	}

	body := fmt.Sprintf("%s starts at %s", event.Name, event.Date.Format(time.Kitchen))
	if err := s.Gateway.Schedule(event.ID, at, event.Name, body); err != nil {
		log.Warn().Err(err).
			Str("event_id", event.ID).
			Time("fire_at", at).
			Msg("failed to schedule local alert")
	}
}

// Flush waits for outstanding local alert scheduling to finish. Used on
// shutdown so late goroutines do not race the gateway teardown.
func (s *ReminderService) Flush() {
	s.wg.Wait()
}
