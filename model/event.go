package model

import (
	"time"
)

// Event is a shared calendar event. Membership is kept in three sets:
// invitedUsers holds pending invitations, acceptedUsers holds confirmed
// participants, checkedInUsers holds accepted users (or the creator) who
// signalled presence. A user id appears in at most one of invited/accepted,
// and the creator is never listed in either - creator membership is implicit.
type Event struct {
	ID             string    `firestore:"id"`
	Name           string    `firestore:"name"`
	Date           time.Time `firestore:"date"`
	Description    string    `firestore:"description"`
	CreatedBy      string    `firestore:"createdBy"` // empty after the creator record was removed (legacy data)
	CreatedAt      time.Time `firestore:"createdAt"`
	InvitedUsers   []string  `firestore:"invitedUsers"`
	AcceptedUsers  []string  `firestore:"acceptedUsers"`
	CheckedInUsers []string  `firestore:"checkedInUsers"`
}

// IsCreator reports whether userID authored the event.
func (e *Event) IsCreator(userID string) bool {
	return e.CreatedBy != "" && e.CreatedBy == userID
}

// IsInvited reports whether userID has a pending invitation.
func (e *Event) IsInvited(userID string) bool {
	return contains(e.InvitedUsers, userID)
}

// IsAccepted reports whether userID is a confirmed participant.
func (e *Event) IsAccepted(userID string) bool {
	return contains(e.AcceptedUsers, userID)
}

// IsCheckedIn reports whether userID has checked in.
func (e *Event) IsCheckedIn(userID string) bool {
	return contains(e.CheckedInUsers, userID)
}

// CanCheckIn reports whether userID may check in: only the creator and
// accepted participants qualify.
func (e *Event) CanCheckIn(userID string) bool {
	return e.IsCreator(userID) || e.IsAccepted(userID)
}

// VisibleTo reports whether the event belongs in userID's feed: the user is
// the creator, an accepted participant, or holds a pending invitation.
func (e *Event) VisibleTo(userID string) bool {
	return e.IsCreator(userID) || e.IsAccepted(userID) || e.IsInvited(userID)
}

// IsOrphan reports whether the event has no creator and no remaining
// invited or accepted users. Orphan events are deleted on the next leave.
func (e *Event) IsOrphan() bool {
	return e.CreatedBy == "" && len(e.InvitedUsers) == 0 && len(e.AcceptedUsers) == 0
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
