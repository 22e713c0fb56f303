//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-presence/domain"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/vmihailenco/msgpack/v5"
)

type IMessageRepository interface {
	AppendMessage(topicID domain.TopicID, authorID domain.UserID, content string, at time.Time) (domain.Message, error)
	GetMessage(topicID domain.TopicID, seq int64) (domain.Message, error)
	GetMessages(query MessageQuery) ([]domain.Message, error)
	LastSequence(topicID domain.TopicID) (int64, error)
	MarkDeletedForSelf(userID domain.UserID, topicID domain.TopicID, seq int64) error
	DeletedForSelf(userID domain.UserID, topicID domain.TopicID) (map[int64]struct{}, error)
}

// MessageQuery selects the Limit most recent rows of a topic with FromSeq <= seq <= ToSeq.
// Zero bounds are unbounded. A nil Ranges reads the whole topic; a non-nil Ranges only
// reads rows inside one of its windows, which is how membership windows become the
// history predicate.
type MessageQuery struct {
	TopicID domain.TopicID
	Ranges  []domain.MembershipWindow
	FromSeq int64
	ToSeq   int64
	Limit   int
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// AppendMessage assigns the next sequence id of the topic and persists the message
// in the same transaction.
func (m MessageRepository) AppendMessage(topicID domain.TopicID, authorID domain.UserID, content string, at time.Time) (domain.Message, error) {
	var msg domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		seq, err := nextSequence(txn, messageSeqKey(topicID))
		if err != nil {
			return err
		}
		msg = domain.Message{
			TopicID:    topicID,
			SequenceID: seq,
			AuthorID:   authorID,
			Kind:       domain.MessageText,
			Content:    content,
			CreatedAt:  at.UTC(),
		}
		return setValue(txn, messageKey(topicID, seq), fromMessage(msg))
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message to %s: %w", topicID, err)
	}
	return msg, nil
}

func (m MessageRepository) GetMessage(topicID domain.TopicID, seq int64) (domain.Message, error) {
	var dm diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		return getValue(txn, messageKey(topicID, seq), &dm)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(dm), nil
}

// GetMessages walks each range from its upper bound downwards with a reverse iterator,
// newest range first, and stops once the limit is reached. Rows come back ascending.
func (m MessageRepository) GetMessages(query MessageQuery) ([]domain.Message, error) {
	ranges := query.Ranges
	if ranges == nil {
		ranges = []domain.MembershipWindow{{Start: 1, Open: true}}
	}
	ranges = domain.ClipWindows(ranges, query.FromSeq, query.ToSeq)

	limit := query.Limit
	if limit <= 0 && m.limitMessages != nil {
		limit = *m.limitMessages
	}

	var rows []diskMessage
	seen := make(map[int64]struct{})
	prefix := messagePrefix(query.TopicID)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for i := len(ranges) - 1; i >= 0; i-- {
			w := ranges[i]
			upper := int64(math.MaxInt64)
			if !w.Open {
				upper = w.End
			}
			for it.Seek(messageKey(query.TopicID, upper)); it.ValidForPrefix(prefix); it.Next() {
				if limit > 0 && len(rows) == limit {
					m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
					return nil
				}
				var dm diskMessage
				if err := it.Item().Value(func(val []byte) error {
					return msgpack.Unmarshal(val, &dm)
				}); err != nil {
					return err
				}
				if dm.SequenceID < w.Start {
					break
				}
				if _, dup := seen[dm.SequenceID]; dup {
					continue
				}
				seen[dm.SequenceID] = struct{}{}
				rows = append(rows, dm)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := lo.Map(rows, func(item diskMessage, _ int) domain.Message {
		return toMessage(item)
	})
	return lo.Reverse(messages), nil
}

func (m MessageRepository) LastSequence(topicID domain.TopicID) (int64, error) {
	var seq int64
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		seq, err = readSequence(txn, messageSeqKey(topicID))
		return err
	})
	return seq, err
}

func (m MessageRepository) MarkDeletedForSelf(userID domain.UserID, topicID domain.TopicID, seq int64) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(deletedKey(userID, topicID, seq), nil)
	})
}

// DeletedForSelf returns the sequence ids the user hid from their own view of the topic.
func (m MessageRepository) DeletedForSelf(userID domain.UserID, topicID domain.TopicID) (map[int64]struct{}, error) {
	deleted := make(map[int64]struct{})
	prefix := deletedPrefix(userID, topicID)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			seq, err := strconv.ParseInt(string(it.Item().Key()[len(prefix):]), 10, 64)
			if err != nil {
				return fmt.Errorf("malformed deleted-for-self key %q: %w", it.Item().Key(), err)
			}
			deleted[seq] = struct{}{}
		}
		return nil
	})
	return deleted, err
}
