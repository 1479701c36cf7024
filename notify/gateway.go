package notify

import (
	"context"
	"time"
)

// Gateway is the local notification facility: one-shot calendar-time alerts
// and permission negotiation. Implementations sit in front of whatever the
// host OS offers; LocalNotifier is the in-process default.
type Gateway interface {
	// RequestPermission asks the user for notification permission. Once
	// granted, subsequent calls return true without asking again.
	RequestPermission(ctx context.Context) (bool, error)

	// Schedule registers a one-shot alert that fires at fireAt. No repeat.
	// Scheduling again with the same id replaces the pending alert.
	Schedule(id string, fireAt time.Time, title, body string) error

	// Cancel removes a pending alert if present and is a no-op otherwise.
	Cancel(id string) error
}
