package repositories

import (
	"chat-presence/domain"
	"fmt"
	"math"
	"strings"
)

// Key layout. Sequence numbers are zero padded to 20 digits so that badger's
// lexicographical order is numeric order.
//
//	topic:{topic}                   topic metadata
//	seq:msg:{topic}                 last message sequence id
//	seq:evt:{topic}                 last membership event sequence id
//	msg:{topic}:{seq}               message row
//	evt:{topic}:{seq}               membership event
//	sub:{topic}:{user}              current subscription
//	usub:{user}:{topic}             reverse index of subscriptions
//	rm:{topic}:{user}:{eventSeq}    removal snapshot
//	del:{user}:{topic}:{seq}        deleted-for-self marker

const maxPaddedSeq = "99999999999999999999"

func pad(seq int64) string {
	return fmt.Sprintf("%020d", seq)
}

func topicKey(t domain.TopicID) []byte {
	return []byte("topic:" + string(t))
}

func messageSeqKey(t domain.TopicID) []byte {
	return []byte("seq:msg:" + string(t))
}

func eventSeqKey(t domain.TopicID) []byte {
	return []byte("seq:evt:" + string(t))
}

func messagePrefix(t domain.TopicID) []byte {
	return []byte("msg:" + string(t) + ":")
}

func messageKey(t domain.TopicID, seq int64) []byte {
	if seq == math.MaxInt64 {
		return append(messagePrefix(t), maxPaddedSeq...)
	}
	return append(messagePrefix(t), pad(seq)...)
}

func eventPrefix(t domain.TopicID) []byte {
	return []byte("evt:" + string(t) + ":")
}

func eventKey(t domain.TopicID, seq int64) []byte {
	return append(eventPrefix(t), pad(seq)...)
}

func subscriptionPrefix(t domain.TopicID) []byte {
	return []byte("sub:" + string(t) + ":")
}

func subscriptionKey(t domain.TopicID, u domain.UserID) []byte {
	return append(subscriptionPrefix(t), u...)
}

func userTopicPrefix(u domain.UserID) []byte {
	return []byte("usub:" + string(u) + ":")
}

func userTopicKey(u domain.UserID, t domain.TopicID) []byte {
	return append(userTopicPrefix(u), t...)
}

func topicFromUserTopicKey(u domain.UserID, key []byte) domain.TopicID {
	return domain.TopicID(strings.TrimPrefix(string(key), string(userTopicPrefix(u))))
}

func removalPrefix(t domain.TopicID, u domain.UserID) []byte {
	return []byte("rm:" + string(t) + ":" + string(u) + ":")
}

func removalKey(t domain.TopicID, u domain.UserID, eventSeq int64) []byte {
	return append(removalPrefix(t, u), pad(eventSeq)...)
}

func deletedPrefix(u domain.UserID, t domain.TopicID) []byte {
	return []byte("del:" + string(u) + ":" + string(t) + ":")
}

func deletedKey(u domain.UserID, t domain.TopicID, seq int64) []byte {
	return append(deletedPrefix(u, t), pad(seq)...)
}
