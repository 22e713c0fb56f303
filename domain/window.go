package domain

// MembershipWindow is a contiguous span of message sequence ids during which a user
// held a subscription to a group. An open window has no end yet.
type MembershipWindow struct {
	Start int64
	End   int64
	Open  bool
}

func (w MembershipWindow) Contains(seq int64) bool {
	if seq < w.Start {
		return false
	}
	return w.Open || seq <= w.End
}

// ResolveWindows pairs ascending join and leave sequence ids into membership windows.
//
// A leave pairs with the current join when it comes after it. When it does not and it is
// the last leave, the join opens an unterminated window. Otherwise the leave belongs to an
// earlier cycle: it is skipped and reported in stale.
// With joins but no leaves at all, a single open window starts at the first join.
func ResolveWindows(joins, leaves []int64) (windows []MembershipWindow, stale []int64) {
	if len(joins) == 0 {
		return nil, nil
	}
	if len(leaves) == 0 {
		return []MembershipWindow{{Start: joins[0], Open: true}}, nil
	}

	i, j := 0, 0
	for i < len(joins) && j < len(leaves) {
		s, e := joins[i], leaves[j]
		switch {
		case e > s:
			windows = append(windows, MembershipWindow{Start: s, End: e})
			i++
			j++
		case j == len(leaves)-1:
			windows = append(windows, MembershipWindow{Start: s, Open: true})
			i++
		default:
			stale = append(stale, e)
			j++
		}
	}
	for ; i < len(joins); i++ {
		windows = append(windows, MembershipWindow{Start: joins[i], Open: true})
	}
	return windows, stale
}

func WindowsContain(windows []MembershipWindow, seq int64) bool {
	for _, w := range windows {
		if w.Contains(seq) {
			return true
		}
	}
	return false
}

// ClipWindows intersects windows with [from, to]. A zero bound is unbounded on that side.
// Windows falling entirely outside the range are dropped.
func ClipWindows(windows []MembershipWindow, from, to int64) []MembershipWindow {
	out := make([]MembershipWindow, 0, len(windows))
	for _, w := range windows {
		if from > 0 && w.Start < from {
			w.Start = from
		}
		if to > 0 && (w.Open || w.End > to) {
			w.End, w.Open = to, false
		}
		if !w.Open && w.End < w.Start {
			continue
		}
		out = append(out, w)
	}
	return out
}

// LastEnd returns the end of the last closed window, or 0 when the last window is open
// or there are none.
func LastEnd(windows []MembershipWindow) int64 {
	if len(windows) == 0 || windows[len(windows)-1].Open {
		return 0
	}
	return windows[len(windows)-1].End
}
