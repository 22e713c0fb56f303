// Package domain contains core concepts of the chat system.
// This file defines user and topic identifiers.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	p2pPrefix   = "p2p:"
	groupPrefix = "grp:"
)

// UserID is an opaque stable identifier. It must not contain ':'.
type UserID string

// TopicID identifies a conversation. A topic is either peer-to-peer or a group, never both.
type TopicID string

// ConnectionID addresses one physical connection inside a user's ConnectionSet.
type ConnectionID string

// P2PTopicID returns the deterministic topic for a pair of participants,
// independent of argument order.
func P2PTopicID(a, b UserID) TopicID {
	if b < a {
		a, b = b, a
	}
	return TopicID(p2pPrefix + string(a) + ":" + string(b))
}

func NewGroupTopicID() TopicID {
	return TopicID(groupPrefix + uuid.NewString())
}

func (t TopicID) IsP2P() bool {
	return strings.HasPrefix(string(t), p2pPrefix)
}

func (t TopicID) IsGroup() bool {
	return strings.HasPrefix(string(t), groupPrefix)
}

// Participants returns both users of a P2P topic.
func (t TopicID) Participants() (UserID, UserID, bool) {
	if !t.IsP2P() {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(string(t), p2pPrefix), ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return UserID(parts[0]), UserID(parts[1]), true
}

// Peer returns the other participant of a P2P topic as seen by viewer.
func (t TopicID) Peer(viewer UserID) (UserID, bool) {
	a, b, ok := t.Participants()
	switch {
	case !ok:
		return "", false
	case a == viewer:
		return b, true
	case b == viewer:
		return a, true
	}
	return "", false
}

type Topic struct {
	ID        TopicID   `json:"id"`
	Name      string    `json:"name"`
	CreatedBy UserID    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
