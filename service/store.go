package service

import (
	"context"
	"time"

	"EventSync/model"
)

// EventStore is the slice of the store adapter the membership and reminder
// services depend on. The production implementation is repo.FirestoreConnector;
// tests use an in-memory fake.
type EventStore interface {
	// CreateEvent persists a new event and returns its document id.
	CreateEvent(ctx context.Context, event *model.Event) (string, error)

	// GetEvent returns the event or model.ErrEventDoesNotExist.
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)

	// AddInvited appends userID to invitedUsers (set-union).
	AddInvited(ctx context.Context, eventID, userID string) error

	// RemoveInvited removes userID from invitedUsers (set-removal, no-op if absent).
	RemoveInvited(ctx context.Context, eventID, userID string) error

	// AcceptInvite moves userID out of invitedUsers into acceptedUsers in a
	// single update. Both halves are idempotent set operations.
	AcceptInvite(ctx context.Context, eventID, userID string) error

	// AddCheckedIn / RemoveCheckedIn mutate checkedInUsers (set-union/removal).
	AddCheckedIn(ctx context.Context, eventID, userID string) error
	RemoveCheckedIn(ctx context.Context, eventID, userID string) error

	// LeaveEvent atomically removes userID from all three membership sets,
	// hands the post-removal event to decide, and deletes the document when
	// decide returns true. The whole read-modify-delete runs as one
	// serializable unit. A missing event is a no-op. Returns whether the
	// event was deleted.
	LeaveEvent(ctx context.Context, eventID, userID string, decide func(post *model.Event) bool) (bool, error)
}

// ReminderStore persists per-(user, event) reminder records.
type ReminderStore interface {
	UpsertReminder(ctx context.Context, reminder *model.Reminder) error
	DeleteReminder(ctx context.Context, userID, eventID string) error
}

// NotificationSink is the write-only notifications collection.
type NotificationSink interface {
	PutNotification(ctx context.Context, notification *model.Notification) error
}

// ReminderCache is the session cache's reminder view. Lookups never touch
// the store.
type ReminderCache interface {
	ReminderTime(eventID string) (time.Time, bool)
}
