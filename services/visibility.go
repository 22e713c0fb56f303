package services

import (
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"chat-presence/repositories"
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"
)

// VisibilityFilter decides which history rows a requester may see and annotates them.
type VisibilityFilter struct {
	log          *slog.Logger
	messages     repositories.IMessageRepository
	memberships  repositories.IMembershipRepository
	cursors      *CursorService
	location     *time.Location
	defaultLimit int
}

func NewVisibilityFilter(log *slog.Logger, messages repositories.IMessageRepository,
	memberships repositories.IMembershipRepository, cursors *CursorService,
	location *time.Location, defaultLimit int) *VisibilityFilter {
	if location == nil {
		location = time.UTC
	}
	return &VisibilityFilter{
		log:          log,
		messages:     messages,
		memberships:  memberships,
		cursors:      cursors,
		location:     location,
		defaultLimit: defaultLimit,
	}
}

// Windows resolves the requester's membership windows in a group.
// A user who never was a member gets ErrNotMember.
func (v *VisibilityFilter) Windows(requesterID domain.UserID, topicID domain.TopicID) ([]domain.MembershipWindow, error) {
	events, err := v.memberships.UserEvents(topicID, requesterID)
	if err != nil {
		return nil, err
	}
	if domain.StateOf(events, requesterID) == domain.NeverMember {
		return nil, fmt.Errorf("%s in %s: %w", requesterID, topicID, apperrors.ErrNotMember)
	}
	windows, stale := domain.ResolveWindows(domain.MembershipBounds(events, requesterID))
	if len(stale) > 0 {
		v.log.Warn("Leave events preceding their join were skipped",
			"user", requesterID, "topic", topicID, "stale", stale)
	}
	return windows, nil
}

// History returns the most recent visible rows of the query's range, ascending.
// Rows the requester deleted for themselves do not count towards the limit.
func (v *VisibilityFilter) History(query domain.HistoryQuery) ([]domain.AnnotatedMessage, error) {
	if err := validate.Struct(query); err != nil {
		return nil, err
	}

	var windows []domain.MembershipWindow
	switch {
	case query.TopicID.IsP2P():
		if _, ok := query.TopicID.Peer(query.RequesterID); !ok {
			return nil, fmt.Errorf("%s in %s: %w", query.RequesterID, query.TopicID, apperrors.ErrNotMember)
		}
	case query.TopicID.IsGroup():
		var err error
		if windows, err = v.Windows(query.RequesterID, query.TopicID); err != nil {
			return nil, err
		}
		if len(domain.ClipWindows(windows, query.FromSeq, query.ToSeq)) == 0 {
			return []domain.AnnotatedMessage{}, nil
		}
	default:
		return nil, apperrors.ErrInvalidTopic
	}

	deleted, err := v.messages.DeletedForSelf(query.RequesterID, query.TopicID)
	if err != nil {
		return nil, err
	}

	limit := lo.Ternary(query.Limit > 0, query.Limit, v.defaultLimit)
	want := 0
	if limit > 0 {
		want = limit + 1
	}
	rows, err := v.visibleRows(query.TopicID, windows, deleted, query.FromSeq, query.ToSeq, want)
	if err != nil {
		return nil, err
	}

	// The extra oldest row only provides the date the page starts after.
	var precedingAt *time.Time
	if limit > 0 && len(rows) > limit {
		at := rows[0].CreatedAt
		precedingAt = &at
		rows = rows[1:]
	} else if len(rows) > 0 && rows[0].SequenceID > 1 {
		// The range ran out first, e.g. at FromSeq: look below it.
		before, err := v.visibleRows(query.TopicID, windows, deleted, 0, rows[0].SequenceID-1, 1)
		if err != nil {
			return nil, err
		}
		if len(before) > 0 {
			at := before[0].CreatedAt
			precedingAt = &at
		}
	}
	return v.FilterAndAnnotate(query.RequesterID, query.TopicID, rows, precedingAt)
}

// visibleRows walks the topic downwards from upper and returns, ascending, up to want
// rows at or above lower that lie in windows (all rows when windows is nil) and are not
// in deleted. Zero bounds are unbounded; want <= 0 takes what a single read returns.
func (v *VisibilityFilter) visibleRows(topicID domain.TopicID, windows []domain.MembershipWindow,
	deleted map[int64]struct{}, lower, upper int64, want int) ([]domain.Message, error) {
	visible := func(m domain.Message, _ int) bool {
		_, hidden := deleted[m.SequenceID]
		return !hidden
	}
	query := repositories.MessageQuery{TopicID: topicID, Ranges: windows, FromSeq: lower, ToSeq: upper}
	if want <= 0 {
		rows, err := v.messages.GetMessages(query)
		if err != nil {
			return nil, err
		}
		return lo.Filter(rows, visible), nil
	}

	var collected []domain.Message
	for len(collected) < want {
		query.Limit = want - len(collected)
		rows, err := v.messages.GetMessages(query)
		if err != nil {
			return nil, err
		}
		collected = append(lo.Filter(rows, visible), collected...)
		if len(rows) < query.Limit {
			break
		}
		query.ToSeq = rows[0].SequenceID - 1
		if query.ToSeq < 1 || query.ToSeq < lower {
			break
		}
	}
	return collected, nil
}

// FilterAndAnnotate drops rows the requester deleted for themselves or, in groups,
// rows outside their membership windows. Remaining rows get their display text,
// their first-of-date flag and their read flag.
func (v *VisibilityFilter) FilterAndAnnotate(requesterID domain.UserID, topicID domain.TopicID,
	rows []domain.Message, precedingAt *time.Time) ([]domain.AnnotatedMessage, error) {
	rows = slices.SortedFunc(slices.Values(rows), func(a, b domain.Message) int {
		return cmp.Compare(a.SequenceID, b.SequenceID)
	})

	deleted, err := v.messages.DeletedForSelf(requesterID, topicID)
	if err != nil {
		return nil, err
	}
	rows = lo.Reject(rows, func(m domain.Message, _ int) bool {
		_, hidden := deleted[m.SequenceID]
		return hidden
	})

	if topicID.IsGroup() {
		windows, err := v.Windows(requesterID, topicID)
		if err != nil {
			return nil, err
		}
		rows = lo.Filter(rows, func(m domain.Message, _ int) bool {
			return domain.WindowsContain(windows, m.SequenceID)
		})
	}

	ownCursor, err := v.cursors.GetCursor(requesterID, topicID)
	if err != nil {
		return nil, err
	}
	othersCursor, othersExist, err := v.cursors.OthersCursor(requesterID, topicID)
	if err != nil {
		return nil, err
	}

	annotated := make([]domain.AnnotatedMessage, 0, len(rows))
	var previous *time.Time
	if precedingAt != nil {
		p := precedingAt.In(v.location)
		previous = &p
	}
	for _, row := range rows {
		at := row.CreatedAt.In(v.location)
		read := row.SequenceID <= ownCursor
		if row.AuthorID == requesterID {
			read = othersExist && row.SequenceID <= othersCursor
		}
		annotated = append(annotated, domain.AnnotatedMessage{
			Message:       row,
			Text:          displayText(requesterID, row),
			IsFirstOfDate: previous == nil || !sameDate(*previous, at),
			Read:          read,
		})
		previous = &at
	}
	return annotated, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func displayText(requesterID domain.UserID, m domain.Message) string {
	if m.Kind != domain.MessageEvent || m.Event == nil {
		return m.Content
	}
	e := m.Event
	actor := displayName(requesterID, e.ActorID, true)
	affected := displayName(requesterID, e.AffectedID, false)
	switch e.Kind {
	case domain.EventCreate:
		return actor + " created the group"
	case domain.EventAddMember:
		return actor + " added " + affected
	case domain.EventRemoveMember:
		return actor + " removed " + affected
	case domain.EventLeaveGroup:
		return actor + " left the group"
	case domain.EventJoinViaID:
		return actor + " joined the group"
	case domain.EventJoinViaLink:
		return actor + " joined via invite link"
	case domain.EventPermissionChange:
		return actor + " changed permissions of " + affected
	}
	return m.Content
}

func displayName(requesterID, userID domain.UserID, leading bool) string {
	if userID != requesterID {
		return string(userID)
	}
	return lo.Ternary(leading, "You", "you")
}
