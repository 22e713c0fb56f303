// Package domain contains core concepts of the chat system.
// This file defines the membership event log and the records derived from it.
package domain

import "time"

type EventKind string

const (
	EventCreate           EventKind = "create"
	EventAddMember        EventKind = "add_member"
	EventRemoveMember     EventKind = "remove_member"
	EventLeaveGroup       EventKind = "leave_group"
	EventJoinViaID        EventKind = "join_via_id"
	EventJoinViaLink      EventKind = "join_via_link"
	EventPermissionChange EventKind = "permission_change"
)

// Opens reports whether the event starts a membership window for its subject.
func (k EventKind) Opens() bool {
	switch k {
	case EventCreate, EventAddMember, EventJoinViaID, EventJoinViaLink:
		return true
	}
	return false
}

// Closes reports whether the event ends a membership window for its subject.
func (k EventKind) Closes() bool {
	return k == EventRemoveMember || k == EventLeaveGroup
}

// Targeted reports whether the event acts on another user than its actor.
func (k EventKind) Targeted() bool {
	return k == EventAddMember || k == EventRemoveMember || k == EventPermissionChange
}

// MembershipEvent is an immutable entry of a group's event log.
// MessageSequenceID is the sequence id of the synthetic message carrying the event.
type MembershipEvent struct {
	SequenceID        int64       `json:"seqId"`
	TopicID           TopicID     `json:"topicId"`
	Kind              EventKind   `json:"kind"`
	ActorID           UserID      `json:"actorId"`
	AffectedID        UserID      `json:"affectedId,omitempty"`
	MessageSequenceID int64       `json:"messageSeqId"`
	Permissions       Permissions `json:"permissions,omitempty"`
	At                time.Time   `json:"at"`
}

// Subject is the user whose membership the event is about.
func (e MembershipEvent) Subject() UserID {
	if e.AffectedID != "" {
		return e.AffectedID
	}
	return e.ActorID
}

type Permissions uint8

const (
	PermRead Permissions = 1 << iota
	PermWrite
	PermManage
)

const (
	PermMember = PermRead | PermWrite
	PermOwner  = PermRead | PermWrite | PermManage
)

func (p Permissions) Has(flag Permissions) bool {
	return p&flag == flag
}

// Subscription exists while a user is an active member of a topic.
type Subscription struct {
	TopicID           TopicID
	UserID            UserID
	Permissions       Permissions
	LastReadSeqID     int64
	LastReceivedSeqID int64
	CreatedAt         time.Time
}

// RemovalSnapshot captures a subscription's cursors at the moment it was deleted.
// MembershipEventID is the sequence id of the event that ended the membership.
type RemovalSnapshot struct {
	MembershipEventID int64
	TopicID           TopicID
	UserID            UserID
	LastReadSeqID     int64
	LastReceivedSeqID int64
	WindowEnd         int64
	RemovedAt         time.Time
}

// MembershipState is the per user, per group state machine.
type MembershipState string

const (
	NeverMember MembershipState = "never_member"
	Active      MembershipState = "active"
	Removed     MembershipState = "removed"
	Left        MembershipState = "left"
)

// StateOf replays a user's events in order and returns the resulting state.
func StateOf(events []MembershipEvent, user UserID) MembershipState {
	state := NeverMember
	for _, e := range events {
		if e.Subject() != user {
			continue
		}
		switch e.Kind {
		case EventRemoveMember:
			state = Removed
		case EventLeaveGroup:
			state = Left
		default:
			if e.Kind.Opens() {
				state = Active
			}
		}
	}
	return state
}

// MembershipBounds splits a user's events into ascending join and leave message
// sequence ids, the inputs of ResolveWindows.
func MembershipBounds(events []MembershipEvent, user UserID) (joins, leaves []int64) {
	for _, e := range events {
		if e.Subject() != user {
			continue
		}
		switch {
		case e.Kind.Opens():
			joins = append(joins, e.MessageSequenceID)
		case e.Kind.Closes():
			leaves = append(leaves, e.MessageSequenceID)
		}
	}
	return joins, leaves
}
