//go:generate go run go.uber.org/mock/mockgen -source=membership.go -destination=../mocks/mock_membership_repository.go -package=mocks
package repositories

import (
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/vmihailenco/msgpack/v5"
)

type IMembershipRepository interface {
	CreateGroup(topicID domain.TopicID, creatorID domain.UserID, name string, at time.Time) (domain.Topic, domain.Message, error)
	GetTopic(topicID domain.TopicID) (domain.Topic, error)
	RecordMembershipChange(cmd domain.MembershipCommand, at time.Time) (domain.Message, error)
	GetEvents(topicID domain.TopicID) ([]domain.MembershipEvent, error)
	UserEvents(topicID domain.TopicID, userID domain.UserID) ([]domain.MembershipEvent, error)
}

type MembershipRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMembershipRepository(db *badger.DB, log *slog.Logger) MembershipRepository {
	return MembershipRepository{db: db, log: log}
}

// CreateGroup persists the topic and its create event, and subscribes the creator as owner.
func (m MembershipRepository) CreateGroup(topicID domain.TopicID, creatorID domain.UserID, name string, at time.Time) (domain.Topic, domain.Message, error) {
	if !topicID.IsGroup() {
		return domain.Topic{}, domain.Message{}, apperrors.ErrInvalidTopic
	}
	topic := domain.Topic{ID: topicID, Name: name, CreatedBy: creatorID, CreatedAt: at.UTC()}
	var msg domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(topicKey(topicID)); err == nil {
			return apperrors.ErrInvariantViolation
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setValue(txn, topicKey(topicID), fromTopic(topic)); err != nil {
			return err
		}
		var err error
		msg, err = m.appendEvent(txn, domain.MembershipEvent{
			TopicID:     topicID,
			Kind:        domain.EventCreate,
			ActorID:     creatorID,
			Permissions: domain.PermOwner,
			At:          topic.CreatedAt,
		})
		if err != nil {
			return err
		}
		return putSubscription(txn, newSubscription(topicID, creatorID, domain.PermOwner, msg))
	})
	if err != nil {
		return domain.Topic{}, domain.Message{}, fmt.Errorf("create group %s: %w", topicID, err)
	}
	return topic, msg, nil
}

func (m MembershipRepository) GetTopic(topicID domain.TopicID) (domain.Topic, error) {
	var dt diskTopic
	err := m.db.View(func(txn *badger.Txn) error {
		return getValue(txn, topicKey(topicID), &dt)
	})
	if err != nil {
		return domain.Topic{}, err
	}
	return toTopic(dt), nil
}

// RecordMembershipChange appends the event and its synthetic message and applies the
// subscription change, all in one transaction. A subscription that ends has its
// cursors copied into a RemovalSnapshot before it is deleted.
func (m MembershipRepository) RecordMembershipChange(cmd domain.MembershipCommand, at time.Time) (domain.Message, error) {
	if !cmd.TopicID.IsGroup() {
		return domain.Message{}, apperrors.ErrInvalidTopic
	}
	subject := cmd.ActorID
	if cmd.Kind.Targeted() {
		subject = cmd.AffectedID
	}

	var msg domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(topicKey(cmd.TopicID)); errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrResourceNotFound
		} else if err != nil {
			return err
		}
		if cmd.Kind.Targeted() {
			actor, err := getSubscription(txn, cmd.TopicID, cmd.ActorID)
			if errors.Is(err, apperrors.ErrResourceNotFound) || (err == nil && !actor.Permissions.Has(domain.PermManage)) {
				return apperrors.ErrPermissionDenied
			}
			if err != nil {
				return err
			}
		}

		sub, err := getSubscription(txn, cmd.TopicID, subject)
		subscribed := err == nil
		if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
			return err
		}
		switch {
		case cmd.Kind.Opens() && subscribed:
			return apperrors.ErrAlreadyMember
		case !cmd.Kind.Opens() && !subscribed:
			return apperrors.ErrNotMember
		}

		ev := domain.MembershipEvent{
			TopicID:     cmd.TopicID,
			Kind:        cmd.Kind,
			ActorID:     cmd.ActorID,
			AffectedID:  lo.Ternary(cmd.Kind.Targeted(), cmd.AffectedID, ""),
			Permissions: cmd.Permissions,
			At:          at.UTC(),
		}
		msg, err = m.appendEvent(txn, ev)
		if err != nil {
			return err
		}

		switch {
		case cmd.Kind.Opens():
			permissions := lo.Ternary(cmd.Permissions == 0, domain.PermMember, cmd.Permissions)
			return putSubscription(txn, newSubscription(cmd.TopicID, subject, permissions, msg))
		case cmd.Kind.Closes():
			snapshot := domain.RemovalSnapshot{
				MembershipEventID: msg.Event.SequenceID,
				TopicID:           cmd.TopicID,
				UserID:            subject,
				LastReadSeqID:     sub.LastReadSeqID,
				LastReceivedSeqID: sub.LastReceivedSeqID,
				WindowEnd:         msg.SequenceID,
				RemovedAt:         at.UTC(),
			}
			if err := setValue(txn, removalKey(cmd.TopicID, subject, snapshot.MembershipEventID), fromSnapshot(snapshot)); err != nil {
				return err
			}
			return deleteSubscription(txn, sub)
		default:
			sub.Permissions = cmd.Permissions
			return putSubscription(txn, sub)
		}
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%s in %s: %w", cmd.Kind, cmd.TopicID, err)
	}
	m.log.Debug("Membership change recorded",
		"topic", cmd.TopicID, "kind", cmd.Kind, "actor", cmd.ActorID, "subject", subject, "seq", msg.SequenceID)
	return msg, nil
}

// GetEvents returns the topic's event log in ascending sequence order.
func (m MembershipRepository) GetEvents(topicID domain.TopicID) ([]domain.MembershipEvent, error) {
	var events []domain.MembershipEvent
	prefix := eventPrefix(topicID)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var de diskEvent
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &de)
			}); err != nil {
				return err
			}
			events = append(events, toEvent(de))
		}
		return nil
	})
	return events, err
}

// UserEvents returns the events whose subject is the user, ascending.
func (m MembershipRepository) UserEvents(topicID domain.TopicID, userID domain.UserID) ([]domain.MembershipEvent, error) {
	events, err := m.GetEvents(topicID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(events, func(e domain.MembershipEvent, _ int) bool {
		return e.Subject() == userID
	}), nil
}

// appendEvent allocates the event and message sequence ids and writes both rows.
func (m MembershipRepository) appendEvent(txn *badger.Txn, ev domain.MembershipEvent) (domain.Message, error) {
	eventSeq, err := nextSequence(txn, eventSeqKey(ev.TopicID))
	if err != nil {
		return domain.Message{}, err
	}
	msgSeq, err := nextSequence(txn, messageSeqKey(ev.TopicID))
	if err != nil {
		return domain.Message{}, err
	}
	ev.SequenceID = eventSeq
	ev.MessageSequenceID = msgSeq
	if err := setValue(txn, eventKey(ev.TopicID, eventSeq), fromEvent(ev)); err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		TopicID:    ev.TopicID,
		SequenceID: msgSeq,
		AuthorID:   ev.ActorID,
		Kind:       domain.MessageEvent,
		Event:      &ev,
		CreatedAt:  ev.At,
	}
	return msg, setValue(txn, messageKey(ev.TopicID, msgSeq), fromMessage(msg))
}

// newSubscription starts the cursors just before the message announcing the join:
// nothing earlier is visible to the new member, so nothing earlier counts as unread.
func newSubscription(topicID domain.TopicID, userID domain.UserID, permissions domain.Permissions, joined domain.Message) domain.Subscription {
	return domain.Subscription{
		TopicID:           topicID,
		UserID:            userID,
		Permissions:       permissions,
		LastReadSeqID:     joined.SequenceID - 1,
		LastReceivedSeqID: joined.SequenceID - 1,
		CreatedAt:         joined.CreatedAt,
	}
}
