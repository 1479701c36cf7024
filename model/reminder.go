package model

import "time"

// Reminder is a per-user, per-event reminder record. The document id in the
// userReminders collection is "{userID}_{eventID}".
type Reminder struct {
	UserID       string    `firestore:"userId"`
	EventID      string    `firestore:"eventId"`
	ReminderTime time.Time `firestore:"reminderTime"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// DocID returns the composite document id for the reminder.
func (r *Reminder) DocID() string {
	return r.UserID + "_" + r.EventID
}
