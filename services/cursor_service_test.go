package services

import (
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"chat-presence/mocks"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCursorService_GetCursor_Missing_Snapshot_Is_Invariant_Violation(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	subscriptions := mocks.NewMockISubscriptionRepository(ctrl)
	memberships := mocks.NewMockIMembershipRepository(ctrl)
	svc := NewCursorService(log, subscriptions, memberships, nil)
	group, bob := domain.TopicID("grp:1"), domain.UserID("bob")

	// Given bob has neither a subscription nor a snapshot, but the log shows a removal
	subscriptions.EXPECT().GetSubscription(group, bob).Return(domain.Subscription{}, apperrors.ErrResourceNotFound)
	subscriptions.EXPECT().LatestRemovalSnapshot(group, bob).Return(domain.RemovalSnapshot{}, apperrors.ErrResourceNotFound)
	memberships.EXPECT().UserEvents(group, bob).Return([]domain.MembershipEvent{
		{SequenceID: 2, Kind: domain.EventAddMember, ActorID: "alice", AffectedID: bob, MessageSequenceID: 2},
		{SequenceID: 3, Kind: domain.EventRemoveMember, ActorID: "alice", AffectedID: bob, MessageSequenceID: 5},
	}, nil)

	// When the cursor is read
	_, err := svc.GetCursor(bob, group)

	// Then the broken data is surfaced as such
	req.ErrorIs(err, apperrors.ErrInvariantViolation)
}

func TestCursorService_GetCursor_Never_Member_Is_Not_Found(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	subscriptions := mocks.NewMockISubscriptionRepository(ctrl)
	memberships := mocks.NewMockIMembershipRepository(ctrl)
	svc := NewCursorService(slog.Default(), subscriptions, memberships, nil)
	group, carol := domain.TopicID("grp:1"), domain.UserID("carol")

	subscriptions.EXPECT().GetSubscription(group, carol).Return(domain.Subscription{}, apperrors.ErrResourceNotFound)
	subscriptions.EXPECT().LatestRemovalSnapshot(group, carol).Return(domain.RemovalSnapshot{}, apperrors.ErrResourceNotFound)
	memberships.EXPECT().UserEvents(group, carol).Return(nil, nil)

	_, err := svc.GetCursor(carol, group)

	req.ErrorIs(err, apperrors.ErrResourceNotFound)
	req.NotErrorIs(err, apperrors.ErrInvariantViolation)
}

func TestCursorService_GetCursor_Sources(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	subscriptions := mocks.NewMockISubscriptionRepository(ctrl)
	memberships := mocks.NewMockIMembershipRepository(ctrl)
	svc := NewCursorService(slog.Default(), subscriptions, memberships, nil)
	p2p := domain.P2PTopicID("alice", "bob")
	group := domain.TopicID("grp:1")

	// A P2P topic never written to reads as zero
	subscriptions.EXPECT().GetSubscription(p2p, domain.UserID("alice")).Return(domain.Subscription{}, apperrors.ErrResourceNotFound)
	cursor, err := svc.GetCursor("alice", p2p)
	req.NoError(err)
	req.Equal(int64(0), cursor)

	// A current member reads the subscription
	subscriptions.EXPECT().GetSubscription(group, domain.UserID("alice")).Return(domain.Subscription{LastReadSeqID: 9}, nil)
	cursor, err = svc.GetCursor("alice", group)
	req.NoError(err)
	req.Equal(int64(9), cursor)

	// A former member reads the latest snapshot
	subscriptions.EXPECT().GetSubscription(group, domain.UserID("bob")).Return(domain.Subscription{}, apperrors.ErrResourceNotFound)
	subscriptions.EXPECT().LatestRemovalSnapshot(group, domain.UserID("bob")).Return(domain.RemovalSnapshot{LastReadSeqID: 4}, nil)
	cursor, err = svc.GetCursor("bob", group)
	req.NoError(err)
	req.Equal(int64(4), cursor)
}

func TestCursorService_UpdateCursor_Lagging(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	topic := domain.P2PTopicID("alice", "bob")

	// When the cursor is moved to 5
	update, err := f.cursors.UpdateCursor("alice", topic, 5)
	req.NoError(err)
	req.Equal(CursorUpdate{Action: CursorRead, TopicID: topic, SeqID: 5}, update)

	// Then moving it back to 3 is lagging
	update, err = f.cursors.UpdateCursor("alice", topic, 3)
	req.NoError(err)
	req.Equal(CursorUpdate{Action: CursorLagging, TopicID: topic, SeqID: 5}, update)

	// And the stored cursor stays at 5
	cursor, err := f.cursors.GetCursor("alice", topic)
	req.NoError(err)
	req.Equal(int64(5), cursor)

	// Repeating the current value is not lagging
	update, err = f.cursors.UpdateCursor("alice", topic, 5)
	req.NoError(err)
	req.Equal(CursorRead, update.Action)

	_, err = f.cursors.UpdateCursor("carol", topic, 1)
	req.ErrorIs(err, apperrors.ErrNotMember)
}

func TestCursorService_UpdateCursor_Converges_To_Maximum(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	topic := domain.P2PTopicID("alice", "bob")

	for _, seq := range []int64{2, 7, 3, 7, 11, 1, 10} {
		_, err := f.cursors.UpdateCursor("bob", topic, seq)
		req.NoError(err)
	}

	cursor, err := f.cursors.GetCursor("bob", topic)
	req.NoError(err)
	req.Equal(int64(11), cursor)
}

func TestCursorService_UpdateCursor_Former_Member_Advances_Snapshot(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	group := domain.TopicID("grp:former")
	at := day1

	_, _, err := f.memberships.CreateGroup(group, "alice", "g", at)
	req.NoError(err)
	_, err = f.memberships.RecordMembershipChange(domain.MembershipCommand{
		TopicID: group, Kind: domain.EventAddMember, ActorID: "alice", AffectedID: "bob",
	}, at)
	req.NoError(err)
	_, err = f.messages.AppendMessage(group, "alice", "one", at)
	req.NoError(err)
	_, err = f.messages.AppendMessage(group, "alice", "two", at)
	req.NoError(err)
	removal, err := f.memberships.RecordMembershipChange(domain.MembershipCommand{
		TopicID: group, Kind: domain.EventRemoveMember, ActorID: "alice", AffectedID: "bob",
	}, at.Add(time.Minute))
	req.NoError(err)

	// When bob, removed, catches up on cached history
	update, err := f.cursors.UpdateCursor("bob", group, 4)
	req.NoError(err)
	req.Equal(CursorUpdate{Action: CursorRead, TopicID: group, SeqID: 4}, update)

	// And acknowledges past the end of the window
	update, err = f.cursors.UpdateCursor("bob", group, removal.SequenceID+10)
	req.NoError(err)
	req.Equal(removal.SequenceID, update.SeqID)

	snapshot, err := f.subscriptions.LatestRemovalSnapshot(group, "bob")
	req.NoError(err)
	req.Equal(removal.SequenceID, snapshot.LastReadSeqID)

	cursor, err := f.cursors.GetCursor("bob", group)
	req.NoError(err)
	req.Equal(removal.SequenceID, cursor)

	// A never-member has nothing to advance
	_, err = f.cursors.UpdateCursor("carol", group, 1)
	req.ErrorIs(err, apperrors.ErrResourceNotFound)
}
