package service

import (
	"context"
	"fmt"
	"sync"

	"EventSync/model"
)

// fakeStore is an in-memory stand-in for the Firestore adapter. Array
// mutations follow the store's set semantics (union adds at most once,
// removal of an absent id is a no-op) and LeaveEvent runs under the same
// lock as everything else, mirroring the transactional contract.
type fakeStore struct {
	mu            sync.Mutex
	events        map[string]*model.Event
	reminders     map[string]*model.Reminder
	notifications []*model.Notification

	notifyErr error // forced PutNotification failure
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:    make(map[string]*model.Event),
		reminders: make(map[string]*model.Reminder),
	}
}

func (f *fakeStore) CreateEvent(_ context.Context, event *model.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event.ID == "" {
		f.nextID++
		event.ID = fmt.Sprintf("event-%d", f.nextID)
	}
	cp := cloneEvent(event)
	f.events[cp.ID] = cp
	return cp.ID, nil
}

func (f *fakeStore) GetEvent(_ context.Context, eventID string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[eventID]
	if !ok {
		return nil, model.ErrEventDoesNotExist
	}
	return cloneEvent(ev), nil
}

func (f *fakeStore) AddInvited(_ context.Context, eventID, userID string) error {
	return f.update(eventID, func(ev *model.Event) {
		ev.InvitedUsers = union(ev.InvitedUsers, userID)
	})
}

func (f *fakeStore) RemoveInvited(_ context.Context, eventID, userID string) error {
	return f.update(eventID, func(ev *model.Event) {
		ev.InvitedUsers = remove(ev.InvitedUsers, userID)
	})
}

func (f *fakeStore) AcceptInvite(_ context.Context, eventID, userID string) error {
	return f.update(eventID, func(ev *model.Event) {
		ev.InvitedUsers = remove(ev.InvitedUsers, userID)
		ev.AcceptedUsers = union(ev.AcceptedUsers, userID)
	})
}

func (f *fakeStore) AddCheckedIn(_ context.Context, eventID, userID string) error {
	return f.update(eventID, func(ev *model.Event) {
		ev.CheckedInUsers = union(ev.CheckedInUsers, userID)
	})
}

func (f *fakeStore) RemoveCheckedIn(_ context.Context, eventID, userID string) error {
	return f.update(eventID, func(ev *model.Event) {
		ev.CheckedInUsers = remove(ev.CheckedInUsers, userID)
	})
}

func (f *fakeStore) LeaveEvent(_ context.Context, eventID, userID string, decide func(post *model.Event) bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[eventID]
	if !ok {
		return false, nil
	}
	ev.InvitedUsers = remove(ev.InvitedUsers, userID)
	ev.AcceptedUsers = remove(ev.AcceptedUsers, userID)
	ev.CheckedInUsers = remove(ev.CheckedInUsers, userID)
	if decide(cloneEvent(ev)) {
		delete(f.events, eventID)
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) UpsertReminder(_ context.Context, reminder *model.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *reminder
	f.reminders[cp.DocID()] = &cp
	return nil
}

func (f *fakeStore) DeleteReminder(_ context.Context, userID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reminders, userID+"_"+eventID)
	return nil
}

func (f *fakeStore) PutNotification(_ context.Context, notification *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	cp := *notification
	f.notifications = append(f.notifications, &cp)
	return nil
}

func (f *fakeStore) reminder(userID, eventID string) (*model.Reminder, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[userID+"_"+eventID]
	return r, ok
}

func (f *fakeStore) hasEvent(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.events[eventID]
	return ok
}

func (f *fakeStore) update(eventID string, fn func(*model.Event)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[eventID]
	if !ok {
		return model.ErrEventDoesNotExist
	}
	fn(ev)
	return nil
}

func cloneEvent(ev *model.Event) *model.Event {
	cp := *ev
	cp.InvitedUsers = append([]string(nil), ev.InvitedUsers...)
	cp.AcceptedUsers = append([]string(nil), ev.AcceptedUsers...)
	cp.CheckedInUsers = append([]string(nil), ev.CheckedInUsers...)
	return &cp
}

func union(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
