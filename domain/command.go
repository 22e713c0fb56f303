package domain

import "time"

// Commands are validated with go-playground/validator before they reach the store.

type SendMessageCommand struct {
	TopicID   TopicID      `validate:"required"`
	SenderID  UserID       `validate:"required,excludes=:"`
	Content   string       `validate:"required"`
	Origin    ConnectionID `validate:"-"`
	CreatedAt time.Time
}

type CreateGroupCommand struct {
	CreatorID UserID `validate:"required,excludes=:"`
	Name      string `validate:"required,max=128"`
}

// MembershipCommand drives every membership transition. AffectedID is required for
// targeted kinds and must be empty for self-service ones.
type MembershipCommand struct {
	TopicID     TopicID   `validate:"required"`
	Kind        EventKind `validate:"required,oneof=add_member remove_member leave_group join_via_id join_via_link permission_change"`
	ActorID     UserID    `validate:"required,excludes=:"`
	AffectedID  UserID    `validate:"required_if=Kind add_member,required_if=Kind remove_member,required_if=Kind permission_change,excludes=:"`
	Permissions Permissions
}

type MarkReadCommand struct {
	TopicID TopicID      `validate:"required"`
	UserID  UserID       `validate:"required"`
	SeqID   int64        `validate:"gte=0"`
	Origin  ConnectionID `validate:"-"`
}

// HistoryQuery asks for the Limit most recent visible rows with FromSeq <= seq <= ToSeq.
// Zero bounds are unbounded.
type HistoryQuery struct {
	RequesterID UserID  `validate:"required"`
	TopicID     TopicID `validate:"required"`
	FromSeq     int64   `validate:"gte=0"`
	ToSeq       int64   `validate:"gte=0"`
	Limit       int     `validate:"gte=0"`
}
