//go:generate go run go.uber.org/mock/mockgen -source=subscription.go -destination=../mocks/mock_subscription_repository.go -package=mocks
package repositories

import (
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

type ISubscriptionRepository interface {
	GetSubscription(topicID domain.TopicID, userID domain.UserID) (domain.Subscription, error)
	EnsureSubscription(topicID domain.TopicID, userID domain.UserID, permissions domain.Permissions, at time.Time) (domain.Subscription, error)
	TopicSubscriptions(topicID domain.TopicID) ([]domain.Subscription, error)
	UserSubscriptions(userID domain.UserID) ([]domain.Subscription, error)
	AdvanceReadCursor(topicID domain.TopicID, userID domain.UserID, seq int64) (CursorChange, error)
	AdvanceReceivedCursor(topicID domain.TopicID, userID domain.UserID, seq int64) (CursorChange, error)
	LatestRemovalSnapshot(topicID domain.TopicID, userID domain.UserID) (domain.RemovalSnapshot, error)
	AdvanceSnapshotReadCursor(topicID domain.TopicID, userID domain.UserID, seq int64) (CursorChange, error)
}

// CursorChange reports a monotonic cursor update. Current equals Previous when the
// requested value was not ahead of the stored one.
type CursorChange struct {
	Previous int64
	Current  int64
}

func (c CursorChange) Advanced() bool {
	return c.Current > c.Previous
}

type SubscriptionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSubscriptionRepository(db *badger.DB, log *slog.Logger) SubscriptionRepository {
	return SubscriptionRepository{db: db, log: log}
}

func (s SubscriptionRepository) GetSubscription(topicID domain.TopicID, userID domain.UserID) (domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		sub, err = getSubscription(txn, topicID, userID)
		return err
	})
	return sub, err
}

// EnsureSubscription returns the current subscription, creating it with zero cursors
// when absent. Used for P2P topics, which have no membership log.
func (s SubscriptionRepository) EnsureSubscription(topicID domain.TopicID, userID domain.UserID, permissions domain.Permissions, at time.Time) (domain.Subscription, error) {
	var sub domain.Subscription
	err := update(s.db, func(txn *badger.Txn) error {
		var err error
		sub, err = getSubscription(txn, topicID, userID)
		if !errors.Is(err, apperrors.ErrResourceNotFound) {
			return err
		}
		sub = domain.Subscription{TopicID: topicID, UserID: userID, Permissions: permissions, CreatedAt: at.UTC()}
		return putSubscription(txn, sub)
	})
	return sub, err
}

func (s SubscriptionRepository) TopicSubscriptions(topicID domain.TopicID) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	prefix := subscriptionPrefix(topicID)
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var ds diskSubscription
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &ds)
			}); err != nil {
				return err
			}
			subs = append(subs, toSubscription(ds))
		}
		return nil
	})
	return subs, err
}

func (s SubscriptionRepository) UserSubscriptions(userID domain.UserID) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	prefix := userTopicPrefix(userID)
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			topicID := topicFromUserTopicKey(userID, it.Item().KeyCopy(nil))
			sub, err := getSubscription(txn, topicID, userID)
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				s.log.Warn("Dangling subscription index entry", "user", userID, "topic", topicID)
				continue
			}
			if err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return nil
	})
	return subs, err
}

// AdvanceReadCursor moves the subscription's read cursor forward, never backward.
func (s SubscriptionRepository) AdvanceReadCursor(topicID domain.TopicID, userID domain.UserID, seq int64) (CursorChange, error) {
	return s.advance(topicID, userID, seq, func(sub *domain.Subscription) *int64 { return &sub.LastReadSeqID })
}

func (s SubscriptionRepository) AdvanceReceivedCursor(topicID domain.TopicID, userID domain.UserID, seq int64) (CursorChange, error) {
	return s.advance(topicID, userID, seq, func(sub *domain.Subscription) *int64 { return &sub.LastReceivedSeqID })
}

func (s SubscriptionRepository) advance(topicID domain.TopicID, userID domain.UserID, seq int64, field func(*domain.Subscription) *int64) (CursorChange, error) {
	var change CursorChange
	err := update(s.db, func(txn *badger.Txn) error {
		sub, err := getSubscription(txn, topicID, userID)
		if err != nil {
			return err
		}
		cursor := field(&sub)
		change = CursorChange{Previous: *cursor, Current: *cursor}
		if seq <= *cursor {
			return nil
		}
		*cursor = seq
		change.Current = seq
		return putSubscription(txn, sub)
	})
	return change, err
}

// LatestRemovalSnapshot returns the snapshot of the most recent membership end.
func (s SubscriptionRepository) LatestRemovalSnapshot(topicID domain.TopicID, userID domain.UserID) (domain.RemovalSnapshot, error) {
	var snapshot domain.RemovalSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		ds, _, err := latestSnapshot(txn, topicID, userID)
		snapshot = toSnapshot(ds)
		return err
	})
	return snapshot, err
}

// AdvanceSnapshotReadCursor lets a removed user keep acknowledging history they
// received before leaving. The cursor is clamped to the end of their last window.
func (s SubscriptionRepository) AdvanceSnapshotReadCursor(topicID domain.TopicID, userID domain.UserID, seq int64) (CursorChange, error) {
	var change CursorChange
	err := update(s.db, func(txn *badger.Txn) error {
		ds, key, err := latestSnapshot(txn, topicID, userID)
		if err != nil {
			return err
		}
		change = CursorChange{Previous: ds.LastReadSeqID, Current: ds.LastReadSeqID}
		if ds.WindowEnd > 0 && seq > ds.WindowEnd {
			seq = ds.WindowEnd
		}
		if seq <= ds.LastReadSeqID {
			return nil
		}
		ds.LastReadSeqID = seq
		change.Current = seq
		return setValue(txn, key, ds)
	})
	return change, err
}

func getSubscription(txn *badger.Txn, topicID domain.TopicID, userID domain.UserID) (domain.Subscription, error) {
	var ds diskSubscription
	if err := getValue(txn, subscriptionKey(topicID, userID), &ds); err != nil {
		return domain.Subscription{}, err
	}
	return toSubscription(ds), nil
}

func putSubscription(txn *badger.Txn, sub domain.Subscription) error {
	if err := setValue(txn, subscriptionKey(sub.TopicID, sub.UserID), fromSubscription(sub)); err != nil {
		return err
	}
	return txn.Set(userTopicKey(sub.UserID, sub.TopicID), nil)
}

func deleteSubscription(txn *badger.Txn, sub domain.Subscription) error {
	if err := txn.Delete(subscriptionKey(sub.TopicID, sub.UserID)); err != nil {
		return err
	}
	return txn.Delete(userTopicKey(sub.UserID, sub.TopicID))
}

func latestSnapshot(txn *badger.Txn, topicID domain.TopicID, userID domain.UserID) (diskRemovalSnapshot, []byte, error) {
	prefix := removalPrefix(topicID, userID)
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	// Seek past the highest possible event id, then step back to the newest snapshot.
	it.Seek(append(prefix, maxPaddedSeq...))
	if !it.ValidForPrefix(prefix) {
		return diskRemovalSnapshot{}, nil, fmt.Errorf("removal snapshot of %s in %s: %w", userID, topicID, apperrors.ErrResourceNotFound)
	}
	item := it.Item()
	var ds diskRemovalSnapshot
	err := item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &ds)
	})
	return ds, item.KeyCopy(nil), err
}
