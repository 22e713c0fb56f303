package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveWindows_Rejoin_Cycles(t *testing.T) {
	req := require.New(t)

	// Given a user who joined three times and left twice
	joins := []int64{3, 12, 18}
	leaves := []int64{5, 14}

	// When windows are resolved
	windows, stale := ResolveWindows(joins, leaves)

	// Then two closed windows are followed by an open one
	req.Equal([]MembershipWindow{
		{Start: 3, End: 5},
		{Start: 12, End: 14},
		{Start: 18, Open: true},
	}, windows)
	req.Empty(stale)
}

func TestResolveWindows_Single_Join_No_Leave(t *testing.T) {
	req := require.New(t)

	windows, stale := ResolveWindows([]int64{1}, nil)

	req.Equal([]MembershipWindow{{Start: 1, Open: true}}, windows)
	req.Empty(stale)
}

func TestResolveWindows_Repeated_Joins_Without_Leave_Open_At_First_Join(t *testing.T) {
	req := require.New(t)

	windows, _ := ResolveWindows([]int64{4, 9, 15}, nil)

	req.Equal([]MembershipWindow{{Start: 4, Open: true}}, windows)
}

func TestResolveWindows_No_Join(t *testing.T) {
	req := require.New(t)

	windows, stale := ResolveWindows(nil, []int64{7})

	req.Empty(windows)
	req.Empty(stale)
}

func TestResolveWindows_Last_Leave_Before_Join_Opens_Window(t *testing.T) {
	req := require.New(t)

	// Given the only leave precedes the only join
	windows, stale := ResolveWindows([]int64{10}, []int64{6})

	// Then the join is open ended and the leave is not reported as stale
	req.Equal([]MembershipWindow{{Start: 10, Open: true}}, windows)
	req.Empty(stale)
}

func TestResolveWindows_Stale_Leave_Is_Skipped_And_Reported(t *testing.T) {
	req := require.New(t)

	// Given a leave that precedes the first join and is not the last leave
	windows, stale := ResolveWindows([]int64{10, 30}, []int64{2, 20})

	// Then it is skipped and the remaining leave pairs with the first join
	req.Equal([]MembershipWindow{
		{Start: 10, End: 20},
		{Start: 30, Open: true},
	}, windows)
	req.Equal([]int64{2}, stale)
}

func TestResolveWindows_Windows_Are_Disjoint_And_Ascending(t *testing.T) {
	req := require.New(t)
	cases := []struct {
		joins, leaves []int64
	}{
		{[]int64{1, 4, 8}, []int64{2, 6}},
		{[]int64{1, 4}, []int64{2, 6}},
		{[]int64{5, 7, 9}, []int64{1, 6, 8}},
		{[]int64{2}, []int64{1, 3}},
		{[]int64{1, 10, 20, 30}, []int64{5, 15, 25}},
	}

	for _, c := range cases {
		windows, _ := ResolveWindows(c.joins, c.leaves)
		for i, w := range windows {
			if !w.Open {
				req.LessOrEqual(w.Start, w.End, "window %d of %v/%v", i, c.joins, c.leaves)
			}
			if i == 0 {
				continue
			}
			previous := windows[i-1]
			req.False(previous.Open, "only the last window may be open: %v/%v", c.joins, c.leaves)
			req.Greater(w.Start, previous.End, "windows overlap: %v/%v", c.joins, c.leaves)
		}
	}
}

func TestClipWindows_Intersects_Requested_Range(t *testing.T) {
	req := require.New(t)
	windows := []MembershipWindow{
		{Start: 3, End: 5},
		{Start: 12, End: 14},
		{Start: 18, Open: true},
	}

	req.Equal([]MembershipWindow{
		{Start: 4, End: 5},
		{Start: 12, End: 14},
		{Start: 18, End: 20},
	}, ClipWindows(windows, 4, 20))

	req.Equal([]MembershipWindow{{Start: 13, End: 14}}, ClipWindows(windows, 13, 17))
	req.Empty(ClipWindows(windows, 6, 11))
	req.Equal(windows, ClipWindows(windows, 0, 0))
}

func TestWindowsContain(t *testing.T) {
	req := require.New(t)
	windows, _ := ResolveWindows([]int64{3, 12, 18}, []int64{5, 14})

	for _, seq := range []int64{3, 4, 5, 12, 14, 18, 1000} {
		req.True(WindowsContain(windows, seq), "seq %d", seq)
	}
	for _, seq := range []int64{1, 2, 6, 11, 15, 17} {
		req.False(WindowsContain(windows, seq), "seq %d", seq)
	}
	req.Equal(int64(0), LastEnd(windows))
	req.Equal(int64(14), LastEnd(windows[:2]))
}
