package services

import (
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"chat-presence/repositories"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// rejoinScenario builds a group where bob was removed, missed one message, then
// came back through an invite link. Day two starts at the message bob missed.
//
//	1 create (alice)        day 1
//	2 alice added bob       day 1
//	3 "hello bob"           day 1
//	4 alice removed bob     day 1
//	5 "bob is gone"         day 2
//	6 bob joined via link   day 2
//	7 "welcome back"        day 2
func rejoinScenario(t *testing.T, f *fixture) domain.TopicID {
	req := require.New(t)
	group := domain.TopicID("grp:rejoin")
	day2 := day1.Add(24 * time.Hour)

	_, _, err := f.memberships.CreateGroup(group, "alice", "rejoin", day1)
	req.NoError(err)
	_, err = f.memberships.RecordMembershipChange(domain.MembershipCommand{
		TopicID: group, Kind: domain.EventAddMember, ActorID: "alice", AffectedID: "bob",
	}, day1.Add(time.Minute))
	req.NoError(err)
	_, err = f.messages.AppendMessage(group, "alice", "hello bob", day1.Add(2*time.Minute))
	req.NoError(err)
	_, err = f.memberships.RecordMembershipChange(domain.MembershipCommand{
		TopicID: group, Kind: domain.EventRemoveMember, ActorID: "alice", AffectedID: "bob",
	}, day1.Add(3*time.Minute))
	req.NoError(err)
	_, err = f.messages.AppendMessage(group, "alice", "bob is gone", day2)
	req.NoError(err)
	_, err = f.memberships.RecordMembershipChange(domain.MembershipCommand{
		TopicID: group, Kind: domain.EventJoinViaLink, ActorID: "bob",
	}, day2.Add(time.Minute))
	req.NoError(err)
	_, err = f.messages.AppendMessage(group, "alice", "welcome back", day2.Add(2*time.Minute))
	req.NoError(err)
	return group
}

func TestVisibility_History_Hides_Absence_Period(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	group := rejoinScenario(t, f)
	// Given alice has read everything
	_, err := f.subscriptions.AdvanceReadCursor(group, "alice", 7)
	req.NoError(err)

	// When bob reads the history
	rows, err := f.visibility.History(domain.HistoryQuery{RequesterID: "bob", TopicID: group})
	req.NoError(err)

	// Then the message sent while bob was away is not there
	req.Equal([]int64{2, 3, 4, 6, 7}, annotatedIDs(rows))
	req.Equal([]string{
		"alice added you",
		"hello bob",
		"alice removed you",
		"You joined via invite link",
		"welcome back",
	}, texts(rows))
	req.Equal([]bool{true, false, false, true, false}, firstOfDate(rows))

	// bob's cursor sits right before the rejoin: older messages are read, the newest is not.
	// The join row is bob's own, and alice has read it.
	req.Equal([]bool{true, true, true, true, false}, readFlags(rows))
}

func TestVisibility_Rows_Stay_Inside_Windows(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	group := rejoinScenario(t, f)

	windows, err := f.visibility.Windows("bob", group)
	req.NoError(err)

	all, err := f.messages.GetMessages(repositories.MessageQuery{TopicID: group})
	req.NoError(err)
	rows, err := f.visibility.FilterAndAnnotate("bob", group, all, nil)
	req.NoError(err)

	req.NotEmpty(rows)
	for _, row := range rows {
		req.True(domain.WindowsContain(windows, row.SequenceID), "row %d is outside bob's windows", row.SequenceID)
	}

	// alice sees everything, rendered from alice's point of view
	rows, err = f.visibility.FilterAndAnnotate("alice", group, all, nil)
	req.NoError(err)
	req.Len(rows, 7)
	req.Equal("You created the group", rows[0].Text)
	req.Equal("You added bob", rows[1].Text)
	req.Equal("bob joined via invite link", rows[5].Text)
}

func TestVisibility_History_Page_Uses_Preceding_Row_Date(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	group := rejoinScenario(t, f)

	// When bob asks for the last two visible rows
	rows, err := f.visibility.History(domain.HistoryQuery{RequesterID: "bob", TopicID: group, Limit: 2})
	req.NoError(err)

	// Then the first of them is compared to the removal row of day 1
	req.Equal([]int64{6, 7}, annotatedIDs(rows))
	req.Equal([]bool{true, false}, firstOfDate(rows))

	// When the page lies entirely within day 2
	rows, err = f.visibility.History(domain.HistoryQuery{RequesterID: "alice", TopicID: group, Limit: 1})
	req.NoError(err)
	req.Equal([]int64{7}, annotatedIDs(rows))
	req.Equal([]bool{false}, firstOfDate(rows))

	// A range inside bob's absence is empty
	rows, err = f.visibility.History(domain.HistoryQuery{RequesterID: "bob", TopicID: group, FromSeq: 5, ToSeq: 5})
	req.NoError(err)
	req.Empty(rows)
}

func TestVisibility_FromSeq_Page_Compares_With_Row_Below(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	topic := domain.P2PTopicID("alice", "bob")

	// Given three messages sent on the same morning
	for _, content := range []string{"one", "two", "three"} {
		_, err := f.chat.SendMessage(domain.SendMessageCommand{TopicID: topic, SenderID: "alice", Content: content})
		req.NoError(err)
	}

	// When bob reads from the second one on
	rows, err := f.visibility.History(domain.HistoryQuery{RequesterID: "bob", TopicID: topic, FromSeq: 2, Limit: 50})
	req.NoError(err)

	// Then the first row of the page is not the first of its date
	req.Equal([]int64{2, 3}, annotatedIDs(rows))
	req.Equal([]bool{false, false}, firstOfDate(rows))

	// In a group the row below is the newest one inside the requester's windows
	group := rejoinScenario(t, f)
	rows, err = f.visibility.History(domain.HistoryQuery{RequesterID: "bob", TopicID: group, FromSeq: 6})
	req.NoError(err)
	req.Equal([]int64{6, 7}, annotatedIDs(rows))
	req.Equal([]bool{true, false}, firstOfDate(rows))

	rows, err = f.visibility.History(domain.HistoryQuery{RequesterID: "alice", TopicID: group, FromSeq: 6})
	req.NoError(err)
	req.Equal([]bool{false, false}, firstOfDate(rows))
}

func TestVisibility_Deleted_Rows_Do_Not_Shorten_Page(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	topic := domain.P2PTopicID("alice", "bob")
	for _, content := range []string{"one", "two", "three", "four", "five"} {
		_, err := f.chat.SendMessage(domain.SendMessageCommand{TopicID: topic, SenderID: "alice", Content: content})
		req.NoError(err)
	}

	// Given bob hid the two newest messages
	req.NoError(f.chat.DeleteForSelf("bob", topic, 4))
	req.NoError(f.chat.DeleteForSelf("bob", topic, 5))

	// When bob asks for a page of two
	rows, err := f.visibility.History(domain.HistoryQuery{RequesterID: "bob", TopicID: topic, Limit: 2})
	req.NoError(err)

	// Then the page is filled with older rows, dated against the row before it
	req.Equal([]int64{2, 3}, annotatedIDs(rows))
	req.Equal([]bool{false, false}, firstOfDate(rows))

	// And hiding everything below leaves only what remains
	req.NoError(f.chat.DeleteForSelf("bob", topic, 1))
	req.NoError(f.chat.DeleteForSelf("bob", topic, 2))
	rows, err = f.visibility.History(domain.HistoryQuery{RequesterID: "bob", TopicID: topic, Limit: 2})
	req.NoError(err)
	req.Equal([]int64{3}, annotatedIDs(rows))
	req.Equal([]bool{true}, firstOfDate(rows))
}

func TestVisibility_Deleted_For_Self_And_Never_Member(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	group := rejoinScenario(t, f)

	// When bob hides a message
	req.NoError(f.chat.DeleteForSelf("bob", group, 3))

	rows, err := f.visibility.History(domain.HistoryQuery{RequesterID: "bob", TopicID: group})
	req.NoError(err)
	req.Equal([]int64{2, 4, 6, 7}, annotatedIDs(rows))

	// alice still sees it
	rows, err = f.visibility.History(domain.HistoryQuery{RequesterID: "alice", TopicID: group})
	req.NoError(err)
	req.Len(rows, 7)

	// A message bob never could see cannot be hidden
	req.ErrorIs(f.chat.DeleteForSelf("bob", group, 5), apperrors.ErrResourceNotFound)

	// carol never was a member
	_, err = f.visibility.History(domain.HistoryQuery{RequesterID: "carol", TopicID: group})
	req.ErrorIs(err, apperrors.ErrNotMember)

	_, err = f.visibility.History(domain.HistoryQuery{RequesterID: "carol", TopicID: domain.P2PTopicID("alice", "bob")})
	req.ErrorIs(err, apperrors.ErrNotMember)
}

func TestVisibility_First_Of_Date_Uses_Location(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)
	topic := domain.P2PTopicID("alice", "bob")
	lateEvening := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)
	rows := []domain.Message{
		{TopicID: topic, SequenceID: 2, AuthorID: "bob", Kind: domain.MessageText, Content: "still up?", CreatedAt: lateEvening.Add(2 * time.Hour)},
		{TopicID: topic, SequenceID: 1, AuthorID: "alice", Kind: domain.MessageText, Content: "hi", CreatedAt: lateEvening},
	}

	// In UTC the two messages are on different days
	annotated, err := f.visibility.FilterAndAnnotate("alice", topic, rows, nil)
	req.NoError(err)
	req.Equal([]int64{1, 2}, annotatedIDs(annotated))
	req.Equal([]bool{true, true}, firstOfDate(annotated))

	// Two hours east they are both on March 2nd, like the preceding message
	east := NewVisibilityFilter(f.log, f.messages, f.memberships, f.cursors, time.FixedZone("UTC+2", 2*60*60), 50)
	preceding := lateEvening.Add(-30 * time.Minute)
	annotated, err = east.FilterAndAnnotate("alice", topic, rows, &preceding)
	req.NoError(err)
	req.Equal([]bool{false, false}, firstOfDate(annotated))
}

func annotatedIDs(rows []domain.AnnotatedMessage) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.SequenceID)
	}
	return ids
}

func texts(rows []domain.AnnotatedMessage) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Text)
	}
	return out
}

func firstOfDate(rows []domain.AnnotatedMessage) []bool {
	out := make([]bool, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.IsFirstOfDate)
	}
	return out
}

func readFlags(rows []domain.AnnotatedMessage) []bool {
	out := make([]bool, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Read)
	}
	return out
}
