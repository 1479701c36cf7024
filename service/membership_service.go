package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"EventSync/model"
)

// MembershipService holds the membership state machine for events: invite,
// accept, decline, check-in and leave, plus the creator-deletion and
// orphan-cleanup policy. Persistence goes through EventStore; decisions are
// made here.
type MembershipService struct {
	Store         EventStore
	Notifications NotificationSink
}

func NewMembershipService(store EventStore, notifications NotificationSink) *MembershipService {
	return &MembershipService{
		Store:         store,
		Notifications: notifications,
	}
}

// CreateEvent creates a new event owned by creatorID with empty membership
// sets and returns the stored event.
func (s *MembershipService) CreateEvent(ctx context.Context, creatorID, name string, date time.Time, description string) (*model.Event, error) {
	if creatorID == "" {
		return nil, model.ErrAuthenticationRequired
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: event name is required", model.ErrInvalidInput)
	}

	event := &model.Event{
		Name:           name,
		Date:           date,
		Description:    description,
		CreatedBy:      creatorID,
		CreatedAt:      time.Now().UTC(),
		InvitedUsers:   []string{},
		AcceptedUsers:  []string{},
		CheckedInUsers: []string{},
	}
	id, err := s.Store.CreateEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	event.ID = id
	return event, nil
}

// Invite adds targetID to the event's invited set and drops an invite record
// into the notifications sink. Self-invites are rejected; inviting a user who
// is already invited, already accepted or the creator contradicts the
// membership state. Any participant may invite, not only the creator.
func (s *MembershipService) Invite(ctx context.Context, eventID, inviterID, targetID string) (*model.Event, error) {
	if inviterID == "" {
		return nil, model.ErrAuthenticationRequired
	}
	if targetID == "" {
		return nil, fmt.Errorf("%w: no user to invite", model.ErrInvalidInput)
	}
	if targetID == inviterID {
		return nil, fmt.Errorf("%w: cannot invite yourself", model.ErrInvalidInput)
	}

	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.IsInvited(targetID) {
		return nil, fmt.Errorf("%w: user %s is already invited", model.ErrInvalidState, targetID)
	}
	if event.IsCreator(targetID) || event.IsAccepted(targetID) {
		return nil, fmt.Errorf("%w: user %s is already a participant", model.ErrInvalidState, targetID)
	}

	if err := s.Store.AddInvited(ctx, eventID, targetID); err != nil {
		return nil, err
	}
	s.notifyInvite(ctx, event, inviterID, targetID)

	return s.Store.GetEvent(ctx, eventID)
}

// Accept moves userID from the invited set into the accepted set. A repeated
// accept is a no-op rather than an error: the store-level set-union makes the
// transition safe to retry.
func (s *MembershipService) Accept(ctx context.Context, eventID, userID string) (*model.Event, error) {
	if userID == "" {
		return nil, model.ErrAuthenticationRequired
	}

	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.IsAccepted(userID) {
		// Already accepted, likely a retried call.
		return event, nil
	}
	if !event.IsInvited(userID) {
		return nil, fmt.Errorf("%w: user %s was not invited", model.ErrInvalidState, userID)
	}

	if err := s.Store.AcceptInvite(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.Store.GetEvent(ctx, eventID)
}

// Decline removes userID's pending invitation.
func (s *MembershipService) Decline(ctx context.Context, eventID, userID string) (*model.Event, error) {
	if userID == "" {
		return nil, model.ErrAuthenticationRequired
	}

	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsInvited(userID) {
		return nil, fmt.Errorf("%w: user %s was not invited", model.ErrInvalidState, userID)
	}

	if err := s.Store.RemoveInvited(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.Store.GetEvent(ctx, eventID)
}

// CheckIn marks userID as present. Only the creator and accepted
// participants may check in. The store mutation is a set-union, so duplicate
// concurrent check-ins are safe.
func (s *MembershipService) CheckIn(ctx context.Context, eventID, userID string) (*model.Event, error) {
	if userID == "" {
		return nil, model.ErrAuthenticationRequired
	}

	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.CanCheckIn(userID) {
		return nil, fmt.Errorf("%w: user %s is not a participant of event %s", model.ErrNotAuthorized, userID, eventID)
	}

	if err := s.Store.AddCheckedIn(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.Store.GetEvent(ctx, eventID)
}

// RevokeCheckIn withdraws a check-in. Removing an absent entry is a no-op.
func (s *MembershipService) RevokeCheckIn(ctx context.Context, eventID, userID string) (*model.Event, error) {
	if userID == "" {
		return nil, model.ErrAuthenticationRequired
	}

	event, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.CanCheckIn(userID) {
		return nil, fmt.Errorf("%w: user %s is not a participant of event %s", model.ErrNotAuthorized, userID, eventID)
	}

	if err := s.Store.RemoveCheckedIn(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.Store.GetEvent(ctx, eventID)
}

// Leave removes userID from every membership set and then applies the
// deletion policy against the post-removal event, inside one store
// transaction:
//
//   - the creator leaving deletes the event outright, invitations and all;
//   - a creator-less event whose invited and accepted sets are now both
//     empty is orphaned and deleted;
//   - otherwise the event is retained.
//
// Reminder records are deliberately left alone: a user who leaves keeps any
// reminder they had set, matching the store's reminder ownership model.
// Returns whether the event was deleted.
func (s *MembershipService) Leave(ctx context.Context, eventID, userID string) (bool, error) {
	if userID == "" {
		return false, model.ErrAuthenticationRequired
	}

	return s.Store.LeaveEvent(ctx, eventID, userID, func(post *model.Event) bool {
		if post.CreatedBy == userID {
			return true
		}
		return post.IsOrphan()
	})
}

// notifyInvite writes the invite record to the notifications sink. The sink
// is best-effort: a failed write is logged and swallowed, never surfaced to
// the inviter.
func (s *MembershipService) notifyInvite(ctx context.Context, event *model.Event, fromID, toID string) {
	if s.Notifications == nil {
		return
	}
	n := &model.Notification{
		ID:         uuid.NewString(),
		Type:       model.NotificationTypeEventInvite,
		EventID:    event.ID,
		EventName:  event.Name,
		FromUserID: fromID,
		ToUserID:   toID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Notifications.PutNotification(ctx, n); err != nil {
		log.Warn().Err(err).
			Str("event_id", event.ID).
			Str("to_user_id", toID).
			Msg("failed to write invite notification")
	}
}
