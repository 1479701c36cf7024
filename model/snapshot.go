package model

// EventSnapshot is one delivery from the events change feed: the complete,
// current result set, never a delta. A non-nil Err marks a feed failure; the
// subscription itself stays up.
type EventSnapshot struct {
	Events []Event
	Err    error
}

// ReminderSnapshot is one delivery from the per-user reminder feed, same
// full-snapshot contract as EventSnapshot.
type ReminderSnapshot struct {
	Reminders []Reminder
	Err       error
}
