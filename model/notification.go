package model

import "time"

// Notification types written to the notifications sink.
const (
	NotificationTypeEventInvite = "event_invite"
)

// Notification is a write-only record dropped into the notifications
// collection when a user is invited. Delivery is someone else's problem;
// this core never reads the collection back.
type Notification struct {
	ID         string    `firestore:"id"`
	Type       string    `firestore:"type"`
	EventID    string    `firestore:"eventId"`
	EventName  string    `firestore:"eventName"`
	FromUserID string    `firestore:"fromUserId"`
	ToUserID   string    `firestore:"toUserId"`
	CreatedAt  time.Time `firestore:"createdAt"`
}
