package repositories

import (
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var baseTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func appendN(t *testing.T, repository MessageRepository, topicID domain.TopicID, n int) []domain.Message {
	t.Helper()
	var messages []domain.Message
	for i := 0; i < n; i++ {
		msg, err := repository.AppendMessage(topicID, "alice", fmt.Sprintf("message %d", i+1), baseTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		messages = append(messages, msg)
	}
	return messages
}

func Test_Record_Multiple_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	topic := domain.P2PTopicID("alice", "bob")

	stored := appendN(t, repository, topic, 3)

	// Then sequence ids are allocated in order, starting at 1
	req.Equal(int64(1), stored[0].SequenceID)
	req.Equal(int64(3), stored[2].SequenceID)

	fetched, err := repository.GetMessages(MessageQuery{TopicID: topic})
	req.NoError(err)
	req.Equal(stored, fetched)

	last, err := repository.LastSequence(topic)
	req.NoError(err)
	req.Equal(int64(3), last)

	one, err := repository.GetMessage(topic, 2)
	req.NoError(err)
	req.Equal(stored[1], one)

	_, err = repository.GetMessage(topic, 4)
	req.ErrorIs(err, apperrors.ErrResourceNotFound)
}

func Test_Record_Multiple_Message_And_Limit(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)
	topic := domain.P2PTopicID("alice", "bob")
	stored := appendN(t, repository, topic, 3)

	// The default limit keeps the most recent rows, ascending
	fetched, err := repository.GetMessages(MessageQuery{TopicID: topic})
	req.NoError(err)
	req.Equal(stored[1:], fetched)

	// An explicit limit wins over the default
	fetched, err = repository.GetMessages(MessageQuery{TopicID: topic, Limit: 3})
	req.NoError(err)
	req.Len(fetched, 3)
}

func Test_GetMessages_Restricted_To_Windows(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	topic := domain.TopicID("grp:windows")
	appendN(t, repository, topic, 20)
	// Rows of another topic are never read
	appendN(t, repository, "grp:other", 5)
	windows := []domain.MembershipWindow{
		{Start: 3, End: 5},
		{Start: 12, End: 14},
		{Start: 18, Open: true},
	}

	fetched, err := repository.GetMessages(MessageQuery{TopicID: topic, Ranges: windows})
	req.NoError(err)
	req.Equal([]int64{3, 4, 5, 12, 13, 14, 18, 19, 20}, sequenceIDs(fetched))

	fetched, err = repository.GetMessages(MessageQuery{TopicID: topic, Ranges: windows, Limit: 4})
	req.NoError(err)
	req.Equal([]int64{14, 18, 19, 20}, sequenceIDs(fetched))

	fetched, err = repository.GetMessages(MessageQuery{TopicID: topic, Ranges: windows, FromSeq: 4, ToSeq: 13})
	req.NoError(err)
	req.Equal([]int64{4, 5, 12, 13}, sequenceIDs(fetched))

	fetched, err = repository.GetMessages(MessageQuery{TopicID: topic, Ranges: []domain.MembershipWindow{}})
	req.NoError(err)
	req.Empty(fetched)
}

func Test_AppendMessage_Concurrent_Writers_Get_Gap_Free_Sequences(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	topic := domain.TopicID("grp:busy")
	const writers, perWriter = 4, 10

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seqs = make(map[int64]struct{})
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				msg, err := repository.AppendMessage(topic, "alice", "hi", baseTime)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seqs[msg.SequenceID] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	req.Len(seqs, writers*perWriter)
	for seq := int64(1); seq <= writers*perWriter; seq++ {
		req.Contains(seqs, seq)
	}
}

func Test_Deleted_For_Self_Is_Per_User(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	topic := domain.P2PTopicID("alice", "bob")
	appendN(t, repository, topic, 3)

	req.NoError(repository.MarkDeletedForSelf("alice", topic, 2))
	req.NoError(repository.MarkDeletedForSelf("alice", topic, 3))

	deleted, err := repository.DeletedForSelf("alice", topic)
	req.NoError(err)
	req.Equal(map[int64]struct{}{2: {}, 3: {}}, deleted)

	deleted, err = repository.DeletedForSelf("bob", topic)
	req.NoError(err)
	req.Empty(deleted)
}

func sequenceIDs(messages []domain.Message) []int64 {
	ids := make([]int64, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.SequenceID)
	}
	return ids
}
