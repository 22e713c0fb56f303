package services

import (
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"chat-presence/repositories"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

type CursorAction string

const (
	CursorRead    CursorAction = "read"
	CursorLagging CursorAction = "lagging"
)

// CursorUpdate is the outcome of UpdateCursor. A lagging update left the stored cursor
// untouched; SeqID is then the stored value.
type CursorUpdate struct {
	Action  CursorAction   `json:"action"`
	TopicID domain.TopicID `json:"topicId"`
	SeqID   int64          `json:"seqId"`
}

// CursorService resolves and advances read cursors. Group cursors come from the
// current subscription or, for former members, from their latest removal snapshot.
type CursorService struct {
	log           *slog.Logger
	subscriptions repositories.ISubscriptionRepository
	memberships   repositories.IMembershipRepository
	clock         func() time.Time
}

func NewCursorService(log *slog.Logger, subscriptions repositories.ISubscriptionRepository,
	memberships repositories.IMembershipRepository, clock func() time.Time) *CursorService {
	if clock == nil {
		clock = time.Now
	}
	return &CursorService{log: log, subscriptions: subscriptions, memberships: memberships, clock: clock}
}

func (c *CursorService) GetCursor(userID domain.UserID, topicID domain.TopicID) (int64, error) {
	sub, err := c.subscriptions.GetSubscription(topicID, userID)
	if err == nil {
		return sub.LastReadSeqID, nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return 0, err
	}
	if topicID.IsP2P() {
		return 0, nil
	}

	snapshot, err := c.subscriptions.LatestRemovalSnapshot(topicID, userID)
	if err == nil {
		return snapshot.LastReadSeqID, nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return 0, err
	}
	return 0, c.missingCursor(userID, topicID)
}

// UpdateCursor moves the user's read cursor forward. A value behind the stored cursor
// is reported as lagging and changes nothing.
func (c *CursorService) UpdateCursor(userID domain.UserID, topicID domain.TopicID, seq int64) (CursorUpdate, error) {
	var (
		change repositories.CursorChange
		err    error
	)
	switch {
	case topicID.IsP2P():
		if _, ok := topicID.Peer(userID); !ok {
			return CursorUpdate{}, fmt.Errorf("%s in %s: %w", userID, topicID, apperrors.ErrNotMember)
		}
		if _, err = c.subscriptions.EnsureSubscription(topicID, userID, domain.PermMember, c.clock()); err != nil {
			return CursorUpdate{}, err
		}
		change, err = c.subscriptions.AdvanceReadCursor(topicID, userID, seq)
	case topicID.IsGroup():
		change, err = c.subscriptions.AdvanceReadCursor(topicID, userID, seq)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			change, err = c.subscriptions.AdvanceSnapshotReadCursor(topicID, userID, seq)
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				err = c.missingCursor(userID, topicID)
			}
		}
	default:
		return CursorUpdate{}, apperrors.ErrInvalidTopic
	}
	if err != nil {
		return CursorUpdate{}, err
	}

	if seq < change.Previous {
		c.log.Debug("Lagging read cursor update ignored", "user", userID, "topic", topicID, "seq", seq, "cursor", change.Previous)
		return CursorUpdate{Action: CursorLagging, TopicID: topicID, SeqID: change.Current}, nil
	}
	return CursorUpdate{Action: CursorRead, TopicID: topicID, SeqID: change.Current}, nil
}

// OthersCursor is the cursor the requester's own messages are compared to: the peer's
// cursor for P2P, the minimum over every other current member for groups. ok is false
// when nobody else can have read anything.
func (c *CursorService) OthersCursor(requesterID domain.UserID, topicID domain.TopicID) (int64, bool, error) {
	if topicID.IsP2P() {
		peer, ok := topicID.Peer(requesterID)
		if !ok {
			return 0, false, apperrors.ErrNotMember
		}
		cursor, err := c.GetCursor(peer, topicID)
		return cursor, err == nil, err
	}

	subs, err := c.subscriptions.TopicSubscriptions(topicID)
	if err != nil {
		return 0, false, err
	}
	cursor, found := int64(math.MaxInt64), false
	for _, sub := range subs {
		if sub.UserID == requesterID {
			continue
		}
		cursor, found = min(cursor, sub.LastReadSeqID), true
	}
	if !found {
		return 0, false, nil
	}
	return cursor, true, nil
}

// missingCursor classifies a group cursor lookup that found neither a subscription
// nor a snapshot. A removal in the event log without its snapshot is corrupt data.
func (c *CursorService) missingCursor(userID domain.UserID, topicID domain.TopicID) error {
	events, err := c.memberships.UserEvents(topicID, userID)
	if err != nil {
		return err
	}
	switch domain.StateOf(events, userID) {
	case domain.Removed, domain.Left:
		c.log.Error("Removal snapshot missing", "user", userID, "topic", topicID)
		return fmt.Errorf("no removal snapshot for %s in %s: %w", userID, topicID, apperrors.ErrInvariantViolation)
	case domain.Active:
		return fmt.Errorf("no subscription for active member %s in %s: %w", userID, topicID, apperrors.ErrInvariantViolation)
	}
	return fmt.Errorf("cursor of %s in %s: %w", userID, topicID, apperrors.ErrResourceNotFound)
}
