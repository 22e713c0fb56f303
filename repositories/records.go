package repositories

import (
	"chat-presence/domain"
	"time"
)

// Disk records are msgpack encoded. Times are stored as UTC unix nanoseconds.

type diskTopic struct {
	ID        string `msgpack:"id"`
	Name      string `msgpack:"name"`
	CreatedBy string `msgpack:"by"`
	CreatedAt int64  `msgpack:"at"`
}

type diskEvent struct {
	SequenceID        int64  `msgpack:"seq"`
	TopicID           string `msgpack:"topic"`
	Kind              string `msgpack:"kind"`
	ActorID           string `msgpack:"actor"`
	AffectedID        string `msgpack:"affected,omitempty"`
	MessageSequenceID int64  `msgpack:"msg"`
	Permissions       uint8  `msgpack:"perm,omitempty"`
	At                int64  `msgpack:"at"`
}

type diskMessage struct {
	TopicID    string     `msgpack:"topic"`
	SequenceID int64      `msgpack:"seq"`
	AuthorID   string     `msgpack:"author"`
	Kind       string     `msgpack:"kind"`
	Content    string     `msgpack:"content,omitempty"`
	Event      *diskEvent `msgpack:"event,omitempty"`
	At         int64      `msgpack:"at"`
}

type diskSubscription struct {
	TopicID           string `msgpack:"topic"`
	UserID            string `msgpack:"user"`
	Permissions       uint8  `msgpack:"perm"`
	LastReadSeqID     int64  `msgpack:"read"`
	LastReceivedSeqID int64  `msgpack:"recv"`
	CreatedAt         int64  `msgpack:"at"`
}

type diskRemovalSnapshot struct {
	MembershipEventID int64  `msgpack:"event"`
	TopicID           string `msgpack:"topic"`
	UserID            string `msgpack:"user"`
	LastReadSeqID     int64  `msgpack:"read"`
	LastReceivedSeqID int64  `msgpack:"recv"`
	WindowEnd         int64  `msgpack:"end"`
	RemovedAt         int64  `msgpack:"at"`
}

func fromUnix(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func fromTopic(t domain.Topic) diskTopic {
	return diskTopic{ID: string(t.ID), Name: t.Name, CreatedBy: string(t.CreatedBy), CreatedAt: t.CreatedAt.UnixNano()}
}

func toTopic(d diskTopic) domain.Topic {
	return domain.Topic{ID: domain.TopicID(d.ID), Name: d.Name, CreatedBy: domain.UserID(d.CreatedBy), CreatedAt: fromUnix(d.CreatedAt)}
}

func fromEvent(e domain.MembershipEvent) diskEvent {
	return diskEvent{
		SequenceID:        e.SequenceID,
		TopicID:           string(e.TopicID),
		Kind:              string(e.Kind),
		ActorID:           string(e.ActorID),
		AffectedID:        string(e.AffectedID),
		MessageSequenceID: e.MessageSequenceID,
		Permissions:       uint8(e.Permissions),
		At:                e.At.UnixNano(),
	}
}

func toEvent(d diskEvent) domain.MembershipEvent {
	return domain.MembershipEvent{
		SequenceID:        d.SequenceID,
		TopicID:           domain.TopicID(d.TopicID),
		Kind:              domain.EventKind(d.Kind),
		ActorID:           domain.UserID(d.ActorID),
		AffectedID:        domain.UserID(d.AffectedID),
		MessageSequenceID: d.MessageSequenceID,
		Permissions:       domain.Permissions(d.Permissions),
		At:                fromUnix(d.At),
	}
}

func fromMessage(m domain.Message) diskMessage {
	d := diskMessage{
		TopicID:    string(m.TopicID),
		SequenceID: m.SequenceID,
		AuthorID:   string(m.AuthorID),
		Kind:       string(m.Kind),
		Content:    m.Content,
		At:         m.CreatedAt.UnixNano(),
	}
	if m.Event != nil {
		ev := fromEvent(*m.Event)
		d.Event = &ev
	}
	return d
}

func toMessage(d diskMessage) domain.Message {
	m := domain.Message{
		TopicID:    domain.TopicID(d.TopicID),
		SequenceID: d.SequenceID,
		AuthorID:   domain.UserID(d.AuthorID),
		Kind:       domain.MessageKind(d.Kind),
		Content:    d.Content,
		CreatedAt:  fromUnix(d.At),
	}
	if d.Event != nil {
		ev := toEvent(*d.Event)
		m.Event = &ev
	}
	return m
}

func fromSubscription(s domain.Subscription) diskSubscription {
	return diskSubscription{
		TopicID:           string(s.TopicID),
		UserID:            string(s.UserID),
		Permissions:       uint8(s.Permissions),
		LastReadSeqID:     s.LastReadSeqID,
		LastReceivedSeqID: s.LastReceivedSeqID,
		CreatedAt:         s.CreatedAt.UnixNano(),
	}
}

func toSubscription(d diskSubscription) domain.Subscription {
	return domain.Subscription{
		TopicID:           domain.TopicID(d.TopicID),
		UserID:            domain.UserID(d.UserID),
		Permissions:       domain.Permissions(d.Permissions),
		LastReadSeqID:     d.LastReadSeqID,
		LastReceivedSeqID: d.LastReceivedSeqID,
		CreatedAt:         fromUnix(d.CreatedAt),
	}
}

func fromSnapshot(s domain.RemovalSnapshot) diskRemovalSnapshot {
	return diskRemovalSnapshot{
		MembershipEventID: s.MembershipEventID,
		TopicID:           string(s.TopicID),
		UserID:            string(s.UserID),
		LastReadSeqID:     s.LastReadSeqID,
		LastReceivedSeqID: s.LastReceivedSeqID,
		WindowEnd:         s.WindowEnd,
		RemovedAt:         s.RemovedAt.UnixNano(),
	}
}

func toSnapshot(d diskRemovalSnapshot) domain.RemovalSnapshot {
	return domain.RemovalSnapshot{
		MembershipEventID: d.MembershipEventID,
		TopicID:           domain.TopicID(d.TopicID),
		UserID:            domain.UserID(d.UserID),
		LastReadSeqID:     d.LastReadSeqID,
		LastReceivedSeqID: d.LastReceivedSeqID,
		WindowEnd:         d.WindowEnd,
		RemovedAt:         fromUnix(d.RemovedAt),
	}
}
