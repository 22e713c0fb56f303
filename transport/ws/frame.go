package ws

import (
	"chat-presence/domain"
	"chat-presence/services"
)

type FrameType string

const (
	FrameSend         FrameType = "send"
	FrameTyping       FrameType = "typing"
	FrameRead         FrameType = "read"
	FrameHistory      FrameType = "history"
	FrameDelete       FrameType = "delete"
	FrameSubscribe    FrameType = "subscribe-status"
	FrameUnsubscribe  FrameType = "unsubscribe-status"
	FramePeerPresence FrameType = "peer-presence"
	FrameCreateGroup  FrameType = "create-group"
	FrameAddMember    FrameType = "add-member"
	FrameRemoveMember FrameType = "remove-member"
	FrameLeaveGroup   FrameType = "leave-group"
	FrameJoinGroup    FrameType = "join-group"
	FramePermissions  FrameType = "change-permissions"
)

// InboundFrame is what a client writes on the socket. Only the fields relevant to
// Type are read.
type InboundFrame struct {
	Type        FrameType          `json:"type"`
	RequestID   string             `json:"requestId,omitempty"`
	TopicID     domain.TopicID     `json:"topicId,omitempty"`
	UserID      domain.UserID      `json:"userId,omitempty"`
	Content     string             `json:"content,omitempty"`
	Name        string             `json:"name,omitempty"`
	Typing      bool               `json:"typing,omitempty"`
	SeqID       int64              `json:"seqId,omitempty"`
	FromSeq     int64              `json:"fromSeq,omitempty"`
	ToSeq       int64              `json:"toSeq,omitempty"`
	Limit       int                `json:"limit,omitempty"`
	ViaLink     bool               `json:"viaLink,omitempty"`
	Permissions domain.Permissions `json:"permissions,omitempty"`
}

const (
	replyOK    = "reply.ok"
	replyError = "reply.error"
)

// Reply answers one inbound frame on the connection that sent it. Pushes use
// domain.Payload instead.
type Reply struct {
	Kind      string                    `json:"kind"`
	RequestID string                    `json:"requestId,omitempty"`
	Error     string                    `json:"error,omitempty"`
	Message   *domain.Message           `json:"message,omitempty"`
	Messages  []domain.AnnotatedMessage `json:"messages,omitempty"`
	Topic     *domain.Topic             `json:"topic,omitempty"`
	Cursor    *services.CursorUpdate    `json:"cursor,omitempty"`
	Online    *bool                     `json:"online,omitempty"`
	Typing    *bool                     `json:"typing,omitempty"`
}

func okReply(requestID string) Reply {
	return Reply{Kind: replyOK, RequestID: requestID}
}

func errorReply(requestID string, err error) Reply {
	return Reply{Kind: replyError, RequestID: requestID, Error: err.Error()}
}
