package repo

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"EventSync/model"
)

const (
	eventsCollection        = "events"
	remindersCollection     = "userReminders"
	notificationsCollection = "notifications"
	usersCollection         = "users"

	// How long to wait before re-opening a snapshot listener that died.
	watchRetryInterval = 5 * time.Second
)

// FirestoreConnector struct to hold the Firebase app and Firestore client.
// It is the store adapter: per-document reads and writes, atomic array
// union/removal for the membership sets, a transaction for the leave/delete
// decision, and snapshot listeners for the change feeds.
type FirestoreConnector struct {
	app    *firebase.App
	client *firestore.Client
}

// NewFirestoreConnector creates a new Firestore connector.
func NewFirestoreConnector(ctx context.Context, serviceAccountKeyPath string, projectID string) (*FirestoreConnector, error) {
	// Load the service account key file
	opt := option.WithCredentialsFile(serviceAccountKeyPath)

	// Initialize the Firebase app
	config := &firebase.Config{
		ProjectID: projectID,
	}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %v", err)
	}

	// Get a Firestore client
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %v", err)
	}

	return &FirestoreConnector{
		app:    app,
		client: client,
	}, nil
}

// CreateEvent creates a new event document and returns its id.
func (fc *FirestoreConnector) CreateEvent(ctx context.Context, event *model.Event) (string, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_, err := fc.client.Collection(eventsCollection).Doc(event.ID).Create(ctx, event)
	if err != nil {
		return "", fmt.Errorf("%w: error creating event: %v", model.ErrStoreFailure, err)
	}
	return event.ID, nil
}

// GetEvent reads an event by its id.
func (fc *FirestoreConnector) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	snap, err := fc.client.Collection(eventsCollection).Doc(eventID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, model.ErrEventDoesNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("%w: error reading event: %v", model.ErrStoreFailure, err)
	}

	var event model.Event
	if err := snap.DataTo(&event); err != nil {
		return nil, fmt.Errorf("%w: error decoding event: %v", model.ErrStoreFailure, err)
	}
	event.ID = snap.Ref.ID
	return &event, nil
}

// DeleteEvent deletes an event by its id.
func (fc *FirestoreConnector) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := fc.client.Collection(eventsCollection).Doc(eventID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("%w: error deleting event: %v", model.ErrStoreFailure, err)
	}
	return nil
}

// updateEvent applies the given field updates to the event document.
func (fc *FirestoreConnector) updateEvent(ctx context.Context, eventID string, updates ...firestore.Update) error {
	_, err := fc.client.Collection(eventsCollection).Doc(eventID).Update(ctx, updates)
	if err != nil {
		return fmt.Errorf("%w: error updating event: %v", model.ErrStoreFailure, err)
	}
	return nil
}

// AddInvited appends userID to the event's invited set.
func (fc *FirestoreConnector) AddInvited(ctx context.Context, eventID, userID string) error {
	return fc.updateEvent(ctx, eventID, firestore.Update{
		Path: "invitedUsers", Value: firestore.ArrayUnion(userID),
	})
}

// RemoveInvited removes userID from the event's invited set.
func (fc *FirestoreConnector) RemoveInvited(ctx context.Context, eventID, userID string) error {
	return fc.updateEvent(ctx, eventID, firestore.Update{
		Path: "invitedUsers", Value: firestore.ArrayRemove(userID),
	})
}

// AcceptInvite moves userID from the invited set into the accepted set in a
// single update. Both halves are set operations, so a retried accept is a
// no-op at the store level.
func (fc *FirestoreConnector) AcceptInvite(ctx context.Context, eventID, userID string) error {
	return fc.updateEvent(ctx, eventID,
		firestore.Update{Path: "invitedUsers", Value: firestore.ArrayRemove(userID)},
		firestore.Update{Path: "acceptedUsers", Value: firestore.ArrayUnion(userID)},
	)
}

// AddCheckedIn appends userID to the event's checked-in set.
func (fc *FirestoreConnector) AddCheckedIn(ctx context.Context, eventID, userID string) error {
	return fc.updateEvent(ctx, eventID, firestore.Update{
		Path: "checkedInUsers", Value: firestore.ArrayUnion(userID),
	})
}

// RemoveCheckedIn removes userID from the event's checked-in set.
func (fc *FirestoreConnector) RemoveCheckedIn(ctx context.Context, eventID, userID string) error {
	return fc.updateEvent(ctx, eventID, firestore.Update{
		Path: "checkedInUsers", Value: firestore.ArrayRemove(userID),
	})
}

// LeaveEvent removes userID from all three membership sets and applies the
// caller's deletion decision against the post-removal event, all inside one
// transaction. Two users leaving a nearly-empty event at once therefore
// cannot both observe stale sets and skip the cleanup. A missing event is a
// no-op.
func (fc *FirestoreConnector) LeaveEvent(ctx context.Context, eventID, userID string, decide func(post *model.Event) bool) (bool, error) {
	doc := fc.client.Collection(eventsCollection).Doc(eventID)
	deleted := false

	err := fc.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var event model.Event
		if err := snap.DataTo(&event); err != nil {
			return err
		}
		event.ID = snap.Ref.ID
		event.InvitedUsers = removeID(event.InvitedUsers, userID)
		event.AcceptedUsers = removeID(event.AcceptedUsers, userID)
		event.CheckedInUsers = removeID(event.CheckedInUsers, userID)

		if decide(&event) {
			deleted = true
			return tx.Delete(doc)
		}
		return tx.Update(doc, []firestore.Update{
			{Path: "invitedUsers", Value: firestore.ArrayRemove(userID)},
			{Path: "acceptedUsers", Value: firestore.ArrayRemove(userID)},
			{Path: "checkedInUsers", Value: firestore.ArrayRemove(userID)},
		})
	})
	if err != nil {
		return false, fmt.Errorf("%w: error leaving event: %v", model.ErrStoreFailure, err)
	}
	return deleted, nil
}

// UpsertReminder creates or overwrites the reminder record for the
// reminder's (user, event) pair.
func (fc *FirestoreConnector) UpsertReminder(ctx context.Context, reminder *model.Reminder) error {
	_, err := fc.client.Collection(remindersCollection).Doc(reminder.DocID()).Set(ctx, reminder)
	if err != nil {
		return fmt.Errorf("%w: error upserting reminder: %v", model.ErrStoreFailure, err)
	}
	return nil
}

// DeleteReminder deletes the reminder record for (userID, eventID).
func (fc *FirestoreConnector) DeleteReminder(ctx context.Context, userID, eventID string) error {
	_, err := fc.client.Collection(remindersCollection).Doc(userID+"_"+eventID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("%w: error deleting reminder: %v", model.ErrStoreFailure, err)
	}
	return nil
}

// PutNotification writes a record into the notifications sink. The sink is
// write-only; nothing in this core reads it back.
func (fc *FirestoreConnector) PutNotification(ctx context.Context, notification *model.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	_, err := fc.client.Collection(notificationsCollection).Doc(notification.ID).Create(ctx, notification)
	if err != nil {
		return fmt.Errorf("%w: error writing notification: %v", model.ErrStoreFailure, err)
	}
	return nil
}

// GetUserName resolves a user id to a display name from the users
// collection.
func (fc *FirestoreConnector) GetUserName(ctx context.Context, userID string) (string, error) {
	snap, err := fc.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: error reading user: %v", model.ErrStoreFailure, err)
	}

	var user model.User
	if err := snap.DataTo(&user); err != nil {
		return "", fmt.Errorf("%w: error decoding user: %v", model.ErrStoreFailure, err)
	}
	return user.DisplayName(), nil
}

// WatchEvents opens a snapshot listener over the events collection ordered
// by date and delivers one full snapshot per change. The listener runs until
// ctx is cancelled; a dead listener is reported on the channel and re-opened
// after watchRetryInterval.
func (fc *FirestoreConnector) WatchEvents(ctx context.Context) (<-chan model.EventSnapshot, error) {
	query := fc.client.Collection(eventsCollection).OrderBy("date", firestore.Asc)
	ch := make(chan model.EventSnapshot)

	go func() {
		defer close(ch)
		it := query.Snapshots(ctx)
		defer func() { it.Stop() }()

		for {
			snap, err := it.Next()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				ch <- model.EventSnapshot{Err: fmt.Errorf("%w: event feed: %v", model.ErrStoreFailure, err)}
				it.Stop()
				if !sleepCtx(ctx, watchRetryInterval) {
					return
				}
				it = query.Snapshots(ctx)
				continue
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				ch <- model.EventSnapshot{Err: fmt.Errorf("%w: event feed: %v", model.ErrStoreFailure, err)}
				continue
			}

			events := make([]model.Event, 0, len(docs))
			for _, doc := range docs {
				var event model.Event
				if err := doc.DataTo(&event); err != nil {
					log.Warn().Err(err).Str("doc_id", doc.Ref.ID).Msg("skipping undecodable event")
					continue
				}
				event.ID = doc.Ref.ID
				events = append(events, event)
			}
			ch <- model.EventSnapshot{Events: events}
		}
	}()

	return ch, nil
}

// WatchReminders opens a snapshot listener over userID's reminder records,
// filtered server-side, with the same lifecycle as WatchEvents.
func (fc *FirestoreConnector) WatchReminders(ctx context.Context, userID string) (<-chan model.ReminderSnapshot, error) {
	query := fc.client.Collection(remindersCollection).Where("userId", "==", userID)
	ch := make(chan model.ReminderSnapshot)

	go func() {
		defer close(ch)
		it := query.Snapshots(ctx)
		defer func() { it.Stop() }()

		for {
			snap, err := it.Next()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				ch <- model.ReminderSnapshot{Err: fmt.Errorf("%w: reminder feed: %v", model.ErrStoreFailure, err)}
				it.Stop()
				if !sleepCtx(ctx, watchRetryInterval) {
					return
				}
				it = query.Snapshots(ctx)
				continue
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				ch <- model.ReminderSnapshot{Err: fmt.Errorf("%w: reminder feed: %v", model.ErrStoreFailure, err)}
				continue
			}

			reminders := make([]model.Reminder, 0, len(docs))
			for _, doc := range docs {
				var reminder model.Reminder
				if err := doc.DataTo(&reminder); err != nil {
					log.Warn().Err(err).Str("doc_id", doc.Ref.ID).Msg("skipping undecodable reminder")
					continue
				}
				reminders = append(reminders, reminder)
			}
			ch <- model.ReminderSnapshot{Reminders: reminders}
		}
	}()

	return ch, nil
}

// Close closes the Firestore client.
func (fc *FirestoreConnector) Close() error {
	return fc.client.Close()
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// sleepCtx waits for d, returning false if ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
