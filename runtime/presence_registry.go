package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

type Set[T comparable] map[T]struct{}

// Typing is the last typing indicator a user set. Expiry is up to the caller.
type Typing struct {
	TopicID   domain.TopicID
	StartedAt time.Time
}

type presenceEntry struct {
	conns    *ConnectionSet
	groups   Set[domain.TopicID] // groups where the user counts as an online member
	watching Set[domain.TopicID] // groups whose member list the user subscribed to
	typing   *Typing
}

type groupPresence struct {
	online      Set[domain.UserID]
	subscribers Set[domain.UserID]
}

type ConnectResult struct {
	ConnectionID       domain.ConnectionID
	FirstConnection    bool
	GroupsTurnedOnline []domain.GroupNotice
}

type DisconnectResult struct {
	UserStillOnline          bool
	GroupsTurnedOffline      []domain.GroupNotice
	GroupsLeftAsOnlineMember []domain.TopicID
}

type PeerStatus struct {
	Online         bool
	TypingAtViewer bool
}

// PresenceRegistry tracks online users, their connections and per-group online sets.
//
// Every mutation runs under one write lock so that the 1<->2 online-member threshold
// is observed and acted upon atomically. Delivery to connections never happens under
// the lock: Deliver snapshots the connection sets first.
type PresenceRegistry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	sendTimeout time.Duration
	clock       func() time.Time
	users       map[domain.UserID]*presenceEntry
	groups      map[domain.TopicID]*groupPresence
}

var _ contract.Deliverer = (*PresenceRegistry)(nil)

// NewPresenceRegistry builds an empty registry. A nil clock means time.Now.
func NewPresenceRegistry(log *slog.Logger, sendTimeout time.Duration, clock func() time.Time) *PresenceRegistry {
	if clock == nil {
		clock = time.Now
	}
	return &PresenceRegistry{
		log:         log,
		sendTimeout: sendTimeout,
		clock:       clock,
		users:       make(map[domain.UserID]*presenceEntry),
		groups:      make(map[domain.TopicID]*groupPresence),
	}
}

// Connect registers a new connection for the user and marks them online in each group.
// A group that reaches exactly two online members yields a notice for the member that
// was already there.
func (r *PresenceRegistry) Connect(userID domain.UserID, groupIDs []domain.TopicID, handle contract.ConnectionHandle) ConnectResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[userID]
	if !ok {
		entry = &presenceEntry{
			conns:    NewConnectionSet(r.sendTimeout),
			groups:   make(Set[domain.TopicID]),
			watching: make(Set[domain.TopicID]),
		}
		r.users[userID] = entry
	}
	res := ConnectResult{ConnectionID: entry.conns.Add(handle), FirstConnection: !ok}
	for _, groupID := range lo.Uniq(groupIDs) {
		if notice, ok := r.joinGroupLocked(userID, entry, groupID); ok {
			res.GroupsTurnedOnline = append(res.GroupsTurnedOnline, notice)
		}
	}
	return res
}

// Disconnect removes one connection. When it was the user's last one, the user leaves
// every group online set and a group dropping to exactly one online member yields a
// notice for that member. Unknown users and connection ids are no-ops.
func (r *PresenceRegistry) Disconnect(userID domain.UserID, connectionID domain.ConnectionID) DisconnectResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[userID]
	if !ok {
		return DisconnectResult{}
	}
	entry.conns.Remove(connectionID)
	if !entry.conns.IsEmpty() {
		return DisconnectResult{UserStillOnline: true}
	}
	delete(r.users, userID)

	var res DisconnectResult
	for _, groupID := range sortedKeys(entry.groups) {
		notice, ok := r.leaveGroupLocked(userID, groupID)
		res.GroupsLeftAsOnlineMember = append(res.GroupsLeftAsOnlineMember, groupID)
		if ok {
			res.GroupsTurnedOffline = append(res.GroupsTurnedOffline, notice)
		}
	}
	for groupID := range entry.watching {
		if gp, ok := r.groups[groupID]; ok {
			delete(gp.subscribers, userID)
		}
	}
	return res
}

func (r *PresenceRegistry) IsUserOnline(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// IsGroupOnline is true when more than one member is online: a lone member does not
// make a group online from anyone's point of view.
func (r *PresenceRegistry) IsGroupOnline(groupID domain.TopicID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gp, ok := r.groups[groupID]
	return ok && len(gp.online) > 1
}

func (r *PresenceRegistry) IsPeerOnline(viewerID, peerID domain.UserID) PeerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.users[peerID]
	if !ok {
		return PeerStatus{}
	}
	typing := entry.typing != nil && entry.typing.TopicID == domain.P2PTopicID(viewerID, peerID)
	return PeerStatus{Online: true, TypingAtViewer: typing}
}

// SetTyping records that the user is typing in the topic. No-op for offline users.
func (r *PresenceRegistry) SetTyping(userID domain.UserID, topicID domain.TopicID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.users[userID]; ok {
		entry.typing = &Typing{TopicID: topicID, StartedAt: r.clock()}
	}
}

func (r *PresenceRegistry) ClearTyping(userID domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.users[userID]; ok {
		entry.typing = nil
	}
}

func (r *PresenceRegistry) TypingOf(userID domain.UserID) (Typing, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.users[userID]
	if !ok || entry.typing == nil {
		return Typing{}, false
	}
	return *entry.typing, true
}

// AddMemberToGroupPresence marks an already-online user as online in a group they just
// joined. Same threshold rule as Connect. No-op for offline users.
func (r *PresenceRegistry) AddMemberToGroupPresence(userID domain.UserID, groupID domain.TopicID) (domain.GroupNotice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.users[userID]
	if !ok {
		return domain.GroupNotice{}, false
	}
	return r.joinGroupLocked(userID, entry, groupID)
}

// RemoveMemberFromGroupPresence takes a user out of a group's online and status sets.
// Same threshold rule as Disconnect.
func (r *PresenceRegistry) RemoveMemberFromGroupPresence(userID domain.UserID, groupID domain.TopicID) (domain.GroupNotice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.users[userID]; ok {
		delete(entry.groups, groupID)
		delete(entry.watching, groupID)
		if entry.typing != nil && entry.typing.TopicID == groupID {
			entry.typing = nil
		}
	}
	return r.leaveGroupLocked(userID, groupID)
}

// SubscribeToGroupStatus opts an online member into member-list pushes for the group.
func (r *PresenceRegistry) SubscribeToGroupStatus(userID domain.UserID, groupID domain.TopicID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, member := entry.groups[groupID]; !member {
		return false
	}
	r.groupLocked(groupID).subscribers[userID] = struct{}{}
	entry.watching[groupID] = struct{}{}
	return true
}

func (r *PresenceRegistry) UnsubscribeFromGroupStatus(userID domain.UserID, groupID domain.TopicID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.users[userID]; ok {
		delete(entry.watching, groupID)
	}
	if gp, ok := r.groups[groupID]; ok {
		delete(gp.subscribers, userID)
	}
}

func (r *PresenceRegistry) OnlineMembers(groupID domain.TopicID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gp, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	return sortedKeys(gp.online)
}

func (r *PresenceRegistry) StatusSubscribers(groupID domain.TopicID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gp, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	return sortedKeys(gp.subscribers)
}

// Deliver sends the push to every connection of its recipients except its origin.
// Connection sets are copied under the read lock and used after it is released.
func (r *PresenceRegistry) Deliver(ctx context.Context, push domain.Push) error {
	r.mu.RLock()
	targets := make(map[domain.UserID]*ConnectionSet, len(push.Recipients))
	for _, userID := range push.Recipients {
		if entry, ok := r.users[userID]; ok {
			targets[userID] = entry.conns.Clone()
		}
	}
	r.mu.RUnlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for userID, conns := range targets {
		wg.Add(1)
		go func(userID domain.UserID, conns *ConnectionSet) {
			defer wg.Done()
			if err := conns.BroadcastExcept(ctx, push.Payload, push.Origin); err != nil {
				r.log.Warn("Push delivery failed", "user", userID, "kind", push.Payload.Kind, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(userID, conns)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (r *PresenceRegistry) groupLocked(groupID domain.TopicID) *groupPresence {
	gp, ok := r.groups[groupID]
	if !ok {
		gp = &groupPresence{
			online:      make(Set[domain.UserID]),
			subscribers: make(Set[domain.UserID]),
		}
		r.groups[groupID] = gp
	}
	return gp
}

func (r *PresenceRegistry) joinGroupLocked(userID domain.UserID, entry *presenceEntry, groupID domain.TopicID) (domain.GroupNotice, bool) {
	gp := r.groupLocked(groupID)
	entry.groups[groupID] = struct{}{}
	if _, already := gp.online[userID]; already {
		return domain.GroupNotice{}, false
	}
	gp.online[userID] = struct{}{}
	if len(gp.online) != 2 {
		return domain.GroupNotice{}, false
	}
	for other := range gp.online {
		if other != userID {
			return domain.GroupNotice{UserID: other, GroupID: groupID, At: r.clock()}, true
		}
	}
	return domain.GroupNotice{}, false
}

func (r *PresenceRegistry) leaveGroupLocked(userID domain.UserID, groupID domain.TopicID) (domain.GroupNotice, bool) {
	gp, ok := r.groups[groupID]
	if !ok {
		return domain.GroupNotice{}, false
	}
	delete(gp.subscribers, userID)
	if _, member := gp.online[userID]; !member {
		return domain.GroupNotice{}, false
	}
	delete(gp.online, userID)
	if len(gp.online) != 1 {
		return domain.GroupNotice{}, false
	}
	for remaining := range gp.online {
		return domain.GroupNotice{UserID: remaining, GroupID: groupID, At: r.clock()}, true
	}
	return domain.GroupNotice{}, false
}

func sortedKeys[T ~string](s Set[T]) []T {
	keys := lo.Keys(s)
	slices.Sort(keys)
	return keys
}
