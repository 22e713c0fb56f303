package services

import (
	"chat-presence/domain"
	"chat-presence/mocks"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var day1 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fixture wires the services on a real badger store and a real registry.
// Pushes are captured through a mocked Pusher.
type fixture struct {
	log           *slog.Logger
	messages      repositories.MessageRepository
	memberships   repositories.MembershipRepository
	subscriptions repositories.SubscriptionRepository
	cursors       *CursorService
	visibility    *VisibilityFilter
	registry      *runtime.PresenceRegistry
	chat          *ChatService
	pushes        []domain.Push
	now           time.Time
}

func newFixture(t *testing.T, ctrl *gomock.Controller) *fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{log: logs.GetLoggerFromLevel(slog.LevelDebug), now: day1}
	clock := func() time.Time {
		f.now = f.now.Add(time.Minute)
		return f.now
	}
	f.messages = repositories.NewMessageRepository(db, f.log, nil)
	f.memberships = repositories.NewMembershipRepository(db, f.log)
	f.subscriptions = repositories.NewSubscriptionRepository(db, f.log)
	f.cursors = NewCursorService(f.log, f.subscriptions, f.memberships, clock)
	f.visibility = NewVisibilityFilter(f.log, f.messages, f.memberships, f.cursors, time.UTC, 50)
	f.registry = runtime.NewPresenceRegistry(f.log, time.Second, clock)

	pusher := mocks.NewMockPusher(ctrl)
	pusher.EXPECT().Push(gomock.Any()).Do(func(push domain.Push) {
		f.pushes = append(f.pushes, push)
	}).AnyTimes()

	f.chat = NewChatService(f.log, f.messages, f.memberships, f.subscriptions, f.cursors, f.visibility,
		f.registry, pusher, ChatServiceConfig{MaxContentLength: 64, Clock: clock})
	return f
}

// drain returns the pushes captured so far and forgets them.
func (f *fixture) drain() []domain.Push {
	pushes := f.pushes
	f.pushes = nil
	return pushes
}

func (f *fixture) kinds(pushes []domain.Push) []domain.PayloadKind {
	kinds := make([]domain.PayloadKind, 0, len(pushes))
	for _, p := range pushes {
		kinds = append(kinds, p.Payload.Kind)
	}
	return kinds
}
