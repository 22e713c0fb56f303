// Package domain contains core concepts of the chat system.
// This file defines Message rows and their annotated, per-requester view.
// Messages are immutable once sequenced by the store.
package domain

import "time"

type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageEvent MessageKind = "event"
)

// Message is a row of a topic's history. Rows of kind MessageEvent carry the
// membership event they announce.
type Message struct {
	TopicID    TopicID          `json:"topicId"`
	SequenceID int64            `json:"seqId"`
	AuthorID   UserID           `json:"authorId"`
	Kind       MessageKind      `json:"kind"`
	Content    string           `json:"content,omitempty"`
	Event      *MembershipEvent `json:"event,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// AnnotatedMessage is a Message as seen by one requester.
type AnnotatedMessage struct {
	Message
	Text          string `json:"text"`
	IsFirstOfDate bool   `json:"isFirstOfDate"`
	Read          bool   `json:"read"`
}
