package domain

import "time"

type PayloadKind string

const (
	PayloadGroupOnline    PayloadKind = "presence.group-online"
	PayloadGroupOffline   PayloadKind = "presence.group-offline"
	PayloadGroupMembers   PayloadKind = "presence.group-members"
	PayloadTyping         PayloadKind = "presence.typing"
	PayloadReadCursor     PayloadKind = "read-cursor.updated"
	PayloadMessageCreated PayloadKind = "message.created"
)

// Payload is what a ConnectionHandle receives.
type Payload struct {
	Kind         PayloadKind `json:"kind"`
	TopicID      TopicID     `json:"topicId,omitempty"`
	ByUserID     UserID      `json:"byUserId,omitempty"`
	SeqID        int64       `json:"seqId,omitempty"`
	Typing       *bool       `json:"typing,omitempty"`
	LastOnlineAt *time.Time  `json:"lastOnlineAt,omitempty"`
	Online       []UserID    `json:"online,omitempty"`
	Message      *Message    `json:"message,omitempty"`
}

// Push addresses a payload to every connection of Recipients, except Origin.
type Push struct {
	Recipients []UserID
	Origin     ConnectionID
	Payload    Payload
}

// GroupNotice names the one user to tell that a group's aggregate status flipped.
type GroupNotice struct {
	UserID  UserID
	GroupID TopicID
	At      time.Time
}

func GroupOnlinePayload(n GroupNotice) Payload {
	return Payload{Kind: PayloadGroupOnline, TopicID: n.GroupID}
}

func GroupOfflinePayload(n GroupNotice) Payload {
	at := n.At
	return Payload{Kind: PayloadGroupOffline, TopicID: n.GroupID, LastOnlineAt: &at}
}

func TypingPayload(topic TopicID, by UserID, typing bool) Payload {
	return Payload{Kind: PayloadTyping, TopicID: topic, ByUserID: by, Typing: &typing}
}

func ReadCursorPayload(topic TopicID, by UserID, seq int64) Payload {
	return Payload{Kind: PayloadReadCursor, TopicID: topic, ByUserID: by, SeqID: seq}
}
