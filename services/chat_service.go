package services

import (
	"chat-presence/contract"
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

type IChatService interface {
	Login(userID domain.UserID, handle contract.ConnectionHandle) (domain.ConnectionID, error)
	Logout(userID domain.UserID, connectionID domain.ConnectionID)
	SendMessage(cmd domain.SendMessageCommand) (domain.Message, error)
	DeleteForSelf(userID domain.UserID, topicID domain.TopicID, seq int64) error
	History(query domain.HistoryQuery) ([]domain.AnnotatedMessage, error)
	CreateGroup(cmd domain.CreateGroupCommand) (domain.Topic, error)
	AddMember(actorID domain.UserID, topicID domain.TopicID, userID domain.UserID, permissions domain.Permissions) (domain.Message, error)
	RemoveMember(actorID domain.UserID, topicID domain.TopicID, userID domain.UserID) (domain.Message, error)
	LeaveGroup(userID domain.UserID, topicID domain.TopicID) (domain.Message, error)
	JoinGroup(userID domain.UserID, topicID domain.TopicID, viaLink bool) (domain.Message, error)
	ChangePermissions(actorID domain.UserID, topicID domain.TopicID, userID domain.UserID, permissions domain.Permissions) (domain.Message, error)
	MarkRead(cmd domain.MarkReadCommand) (CursorUpdate, error)
	SetTyping(userID domain.UserID, topicID domain.TopicID, typing bool) error
	PeerPresence(viewerID, peerID domain.UserID) runtime.PeerStatus
	SubscribeGroupStatus(userID domain.UserID, groupID domain.TopicID) error
	UnsubscribeGroupStatus(userID domain.UserID, groupID domain.TopicID)
}

// ChatService runs every mutating flow in the same order: persist, update presence,
// then hand the resulting pushes to the Pusher without waiting for delivery.
// Once persistence succeeded, nothing that follows can fail the call.
type ChatService struct {
	log              *slog.Logger
	messages         repositories.IMessageRepository
	memberships      repositories.IMembershipRepository
	subscriptions    repositories.ISubscriptionRepository
	cursors          *CursorService
	visibility       *VisibilityFilter
	registry         *runtime.PresenceRegistry
	pusher           contract.Pusher
	clock            func() time.Time
	maxContentLength int
}

var _ IChatService = (*ChatService)(nil)

type ChatServiceConfig struct {
	MaxContentLength int
	Clock            func() time.Time
}

func NewChatService(log *slog.Logger,
	messages repositories.IMessageRepository,
	memberships repositories.IMembershipRepository,
	subscriptions repositories.ISubscriptionRepository,
	cursors *CursorService,
	visibility *VisibilityFilter,
	registry *runtime.PresenceRegistry,
	pusher contract.Pusher,
	config ChatServiceConfig) *ChatService {
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ChatService{
		log:              log,
		messages:         messages,
		memberships:      memberships,
		subscriptions:    subscriptions,
		cursors:          cursors,
		visibility:       visibility,
		registry:         registry,
		pusher:           pusher,
		clock:            clock,
		maxContentLength: config.MaxContentLength,
	}
}

// Login registers an authenticated connection and marks the user online in every group
// they are subscribed to.
func (s *ChatService) Login(userID domain.UserID, handle contract.ConnectionHandle) (domain.ConnectionID, error) {
	subs, err := s.subscriptions.UserSubscriptions(userID)
	if err != nil {
		return "", err
	}
	groupIDs := lo.FilterMap(subs, func(sub domain.Subscription, _ int) (domain.TopicID, bool) {
		return sub.TopicID, sub.TopicID.IsGroup()
	})

	res := s.registry.Connect(userID, groupIDs, handle)
	s.log.Debug("User connected", "user", userID, "connection", res.ConnectionID, "groups", len(groupIDs))

	// A membership change committed between the read above and Connect found the user
	// offline and left the registry alone, so the stored subscriptions are read again.
	current := s.groupSubscriptions(userID, groupIDs)
	turnedOnline := res.GroupsTurnedOnline
	for _, groupID := range lo.Without(groupIDs, current...) {
		notice, flipped := s.registry.RemoveMemberFromGroupPresence(userID, groupID)
		if flipped && lo.ContainsBy(turnedOnline, func(n domain.GroupNotice) bool { return n.GroupID == groupID }) {
			// online then offline again before anyone was told
			turnedOnline = lo.Reject(turnedOnline, func(n domain.GroupNotice, _ int) bool { return n.GroupID == groupID })
			continue
		}
		if flipped {
			s.pushTo(notice.UserID, domain.GroupOfflinePayload(notice))
		}
		s.pushMembers(groupID)
	}
	added := lo.Without(current, groupIDs...)
	for _, groupID := range added {
		if notice, ok := s.registry.AddMemberToGroupPresence(userID, groupID); ok {
			turnedOnline = append(turnedOnline, notice)
		}
	}

	for _, notice := range turnedOnline {
		s.pushTo(notice.UserID, domain.GroupOnlinePayload(notice))
	}
	for _, groupID := range added {
		s.pushMembers(groupID)
	}
	if res.FirstConnection {
		for _, groupID := range lo.Intersect(current, groupIDs) {
			s.pushMembers(groupID)
		}
	}
	return res.ConnectionID, nil
}

// groupSubscriptions lists the group topics the user is subscribed to, falling back
// to known when the store cannot be read.
func (s *ChatService) groupSubscriptions(userID domain.UserID, known []domain.TopicID) []domain.TopicID {
	subs, err := s.subscriptions.UserSubscriptions(userID)
	if err != nil {
		s.log.Warn("Subscriptions re-read failed after connect", "user", userID, "error", err)
		return known
	}
	return lo.FilterMap(subs, func(sub domain.Subscription, _ int) (domain.TopicID, bool) {
		return sub.TopicID, sub.TopicID.IsGroup()
	})
}

// Logout drops one connection. Callers invoke it at most once per connection.
func (s *ChatService) Logout(userID domain.UserID, connectionID domain.ConnectionID) {
	res := s.registry.Disconnect(userID, connectionID)
	s.log.Debug("User disconnected", "user", userID, "connection", connectionID, "stillOnline", res.UserStillOnline)
	for _, notice := range res.GroupsTurnedOffline {
		s.pushTo(notice.UserID, domain.GroupOfflinePayload(notice))
	}
	for _, groupID := range res.GroupsLeftAsOnlineMember {
		s.pushMembers(groupID)
	}
}

func (s *ChatService) SendMessage(cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Message{}, err
	}
	if s.maxContentLength > 0 && len(cmd.Content) > s.maxContentLength {
		return domain.Message{}, fmt.Errorf("%d bytes: %w", len(cmd.Content), apperrors.ErrContentTooLong)
	}
	at := lo.Ternary(cmd.CreatedAt.IsZero(), s.clock(), cmd.CreatedAt)

	var recipients []domain.UserID
	switch {
	case cmd.TopicID.IsP2P():
		peer, ok := cmd.TopicID.Peer(cmd.SenderID)
		if !ok {
			return domain.Message{}, fmt.Errorf("%s in %s: %w", cmd.SenderID, cmd.TopicID, apperrors.ErrNotMember)
		}
		for _, userID := range []domain.UserID{cmd.SenderID, peer} {
			if _, err := s.subscriptions.EnsureSubscription(cmd.TopicID, userID, domain.PermMember, at); err != nil {
				return domain.Message{}, err
			}
		}
		recipients = []domain.UserID{cmd.SenderID, peer}
	case cmd.TopicID.IsGroup():
		sub, err := s.subscriptions.GetSubscription(cmd.TopicID, cmd.SenderID)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return domain.Message{}, fmt.Errorf("%s in %s: %w", cmd.SenderID, cmd.TopicID, apperrors.ErrNotMember)
		}
		if err != nil {
			return domain.Message{}, err
		}
		if !sub.Permissions.Has(domain.PermWrite) {
			return domain.Message{}, apperrors.ErrPermissionDenied
		}
	default:
		return domain.Message{}, apperrors.ErrInvalidTopic
	}

	msg, err := s.messages.AppendMessage(cmd.TopicID, cmd.SenderID, cmd.Content, at)
	if err != nil {
		return domain.Message{}, err
	}

	if _, err := s.subscriptions.AdvanceReadCursor(cmd.TopicID, cmd.SenderID, msg.SequenceID); err != nil {
		s.log.Warn("Could not advance sender read cursor", "user", cmd.SenderID, "topic", cmd.TopicID, "error", err)
	}
	if _, err := s.subscriptions.AdvanceReceivedCursor(cmd.TopicID, cmd.SenderID, msg.SequenceID); err != nil {
		s.log.Warn("Could not advance sender received cursor", "user", cmd.SenderID, "topic", cmd.TopicID, "error", err)
	}
	if typing, ok := s.registry.TypingOf(cmd.SenderID); ok && typing.TopicID == cmd.TopicID {
		s.registry.ClearTyping(cmd.SenderID)
	}

	if recipients == nil {
		recipients = s.memberIDs(cmd.TopicID)
	}
	s.pusher.Push(domain.Push{
		Recipients: recipients,
		Origin:     cmd.Origin,
		Payload:    domain.Payload{Kind: domain.PayloadMessageCreated, TopicID: cmd.TopicID, Message: &msg},
	})
	return msg, nil
}

// DeleteForSelf hides a message from the user's own view of the topic only.
func (s *ChatService) DeleteForSelf(userID domain.UserID, topicID domain.TopicID, seq int64) error {
	if topicID.IsP2P() {
		if _, ok := topicID.Peer(userID); !ok {
			return apperrors.ErrNotMember
		}
	} else {
		windows, err := s.visibility.Windows(userID, topicID)
		if err != nil {
			return err
		}
		if !domain.WindowsContain(windows, seq) {
			return fmt.Errorf("message %d of %s: %w", seq, topicID, apperrors.ErrResourceNotFound)
		}
	}
	if _, err := s.messages.GetMessage(topicID, seq); err != nil {
		return err
	}
	return s.messages.MarkDeletedForSelf(userID, topicID, seq)
}

func (s *ChatService) History(query domain.HistoryQuery) ([]domain.AnnotatedMessage, error) {
	return s.visibility.History(query)
}

func (s *ChatService) CreateGroup(cmd domain.CreateGroupCommand) (domain.Topic, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Topic{}, err
	}
	topic, msg, err := s.memberships.CreateGroup(domain.NewGroupTopicID(), cmd.CreatorID, cmd.Name, s.clock())
	if err != nil {
		return domain.Topic{}, err
	}
	s.registry.AddMemberToGroupPresence(cmd.CreatorID, topic.ID)
	s.pushMessage(topic.ID, []domain.UserID{cmd.CreatorID}, msg)
	return topic, nil
}

func (s *ChatService) AddMember(actorID domain.UserID, topicID domain.TopicID, userID domain.UserID, permissions domain.Permissions) (domain.Message, error) {
	return s.changeMembership(domain.MembershipCommand{
		TopicID:     topicID,
		Kind:        domain.EventAddMember,
		ActorID:     actorID,
		AffectedID:  userID,
		Permissions: permissions,
	})
}

func (s *ChatService) RemoveMember(actorID domain.UserID, topicID domain.TopicID, userID domain.UserID) (domain.Message, error) {
	return s.changeMembership(domain.MembershipCommand{
		TopicID:    topicID,
		Kind:       domain.EventRemoveMember,
		ActorID:    actorID,
		AffectedID: userID,
	})
}

func (s *ChatService) LeaveGroup(userID domain.UserID, topicID domain.TopicID) (domain.Message, error) {
	return s.changeMembership(domain.MembershipCommand{TopicID: topicID, Kind: domain.EventLeaveGroup, ActorID: userID})
}

func (s *ChatService) JoinGroup(userID domain.UserID, topicID domain.TopicID, viaLink bool) (domain.Message, error) {
	kind := lo.Ternary(viaLink, domain.EventJoinViaLink, domain.EventJoinViaID)
	return s.changeMembership(domain.MembershipCommand{TopicID: topicID, Kind: kind, ActorID: userID})
}

func (s *ChatService) ChangePermissions(actorID domain.UserID, topicID domain.TopicID, userID domain.UserID, permissions domain.Permissions) (domain.Message, error) {
	return s.changeMembership(domain.MembershipCommand{
		TopicID:     topicID,
		Kind:        domain.EventPermissionChange,
		ActorID:     actorID,
		AffectedID:  userID,
		Permissions: permissions,
	})
}

// MarkRead advances the reader's cursor and tells the other members and the reader's
// other connections. Lagging updates are returned as such and push nothing.
func (s *ChatService) MarkRead(cmd domain.MarkReadCommand) (CursorUpdate, error) {
	if err := validate.Struct(cmd); err != nil {
		return CursorUpdate{}, err
	}
	update, err := s.cursors.UpdateCursor(cmd.UserID, cmd.TopicID, cmd.SeqID)
	if err != nil || update.Action == CursorLagging {
		return update, err
	}

	var recipients []domain.UserID
	switch {
	case cmd.TopicID.IsP2P():
		peer, _ := cmd.TopicID.Peer(cmd.UserID)
		recipients = []domain.UserID{cmd.UserID, peer}
	default:
		recipients = s.memberIDs(cmd.TopicID)
		if !lo.Contains(recipients, cmd.UserID) {
			// A former member only syncs their own devices.
			recipients = []domain.UserID{cmd.UserID}
		}
	}
	s.pusher.Push(domain.Push{
		Recipients: recipients,
		Origin:     cmd.Origin,
		Payload:    domain.ReadCursorPayload(cmd.TopicID, cmd.UserID, update.SeqID),
	})
	return update, nil
}

// SetTyping stores or clears the user's typing indicator and tells the peer, or the
// other online members of a group.
func (s *ChatService) SetTyping(userID domain.UserID, topicID domain.TopicID, typing bool) error {
	var recipients []domain.UserID
	switch {
	case topicID.IsP2P():
		peer, ok := topicID.Peer(userID)
		if !ok {
			return apperrors.ErrNotMember
		}
		recipients = []domain.UserID{peer}
	case topicID.IsGroup():
		if _, err := s.subscriptions.GetSubscription(topicID, userID); err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				return apperrors.ErrNotMember
			}
			return err
		}
		recipients = lo.Without(s.registry.OnlineMembers(topicID), userID)
	default:
		return apperrors.ErrInvalidTopic
	}

	if typing {
		s.registry.SetTyping(userID, topicID)
	} else if current, ok := s.registry.TypingOf(userID); ok && current.TopicID == topicID {
		s.registry.ClearTyping(userID)
	}
	s.pusher.Push(domain.Push{Recipients: recipients, Payload: domain.TypingPayload(topicID, userID, typing)})
	return nil
}

func (s *ChatService) PeerPresence(viewerID, peerID domain.UserID) runtime.PeerStatus {
	return s.registry.IsPeerOnline(viewerID, peerID)
}

// SubscribeGroupStatus opts an online member into member-list pushes and sends them
// the current list right away.
func (s *ChatService) SubscribeGroupStatus(userID domain.UserID, groupID domain.TopicID) error {
	if !s.registry.SubscribeToGroupStatus(userID, groupID) {
		return fmt.Errorf("%s is not an online member of %s: %w", userID, groupID, apperrors.ErrNotMember)
	}
	s.pushTo(userID, domain.Payload{
		Kind:    domain.PayloadGroupMembers,
		TopicID: groupID,
		Online:  s.registry.OnlineMembers(groupID),
	})
	return nil
}

func (s *ChatService) UnsubscribeGroupStatus(userID domain.UserID, groupID domain.TopicID) {
	s.registry.UnsubscribeFromGroupStatus(userID, groupID)
}

func (s *ChatService) changeMembership(cmd domain.MembershipCommand) (domain.Message, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Message{}, err
	}
	msg, err := s.memberships.RecordMembershipChange(cmd, s.clock())
	if err != nil {
		return domain.Message{}, err
	}

	subject := msg.Event.Subject()
	recipients := s.memberIDs(cmd.TopicID)
	switch {
	case cmd.Kind.Opens():
		if notice, ok := s.registry.AddMemberToGroupPresence(subject, cmd.TopicID); ok {
			s.pushTo(notice.UserID, domain.GroupOnlinePayload(notice))
		}
		s.pushMembers(cmd.TopicID)
	case cmd.Kind.Closes():
		if notice, ok := s.registry.RemoveMemberFromGroupPresence(subject, cmd.TopicID); ok {
			s.pushTo(notice.UserID, domain.GroupOfflinePayload(notice))
		}
		s.pushMembers(cmd.TopicID)
		// The departing user still sees the event that closed their window.
		recipients = append(recipients, subject)
	}
	s.pushMessage(cmd.TopicID, recipients, msg)
	return msg, nil
}

// memberIDs lists the current members of a topic for fanout. A lookup failure is
// logged and yields no recipients.
func (s *ChatService) memberIDs(topicID domain.TopicID) []domain.UserID {
	subs, err := s.subscriptions.TopicSubscriptions(topicID)
	if err != nil {
		s.log.Warn("Could not list topic members", "topic", topicID, "error", err)
		return nil
	}
	return lo.Map(subs, func(sub domain.Subscription, _ int) domain.UserID {
		return sub.UserID
	})
}

func (s *ChatService) pushMembers(groupID domain.TopicID) {
	subscribers := s.registry.StatusSubscribers(groupID)
	if len(subscribers) == 0 {
		return
	}
	s.pusher.Push(domain.Push{
		Recipients: subscribers,
		Payload: domain.Payload{
			Kind:    domain.PayloadGroupMembers,
			TopicID: groupID,
			Online:  s.registry.OnlineMembers(groupID),
		},
	})
}

func (s *ChatService) pushMessage(topicID domain.TopicID, recipients []domain.UserID, msg domain.Message) {
	s.pusher.Push(domain.Push{
		Recipients: recipients,
		Payload:    domain.Payload{Kind: domain.PayloadMessageCreated, TopicID: topicID, Message: &msg},
	})
}

func (s *ChatService) pushTo(userID domain.UserID, payload domain.Payload) {
	s.pusher.Push(domain.Push{Recipients: []domain.UserID{userID}, Payload: payload})
}
