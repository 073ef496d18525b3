package analytics

import "sort"

// Correction records the double-count adjustment applied to a performance report.
type Correction struct {
	Applied           bool    `json:"applied"`
	Ratio             float64 `json:"ratio"`
	TrueCompleted     int     `json:"true_completed"`
	ReportedCompleted int     `json:"reported_completed"`
}

// correctCompletions scales member completions down when shared assignments
// make their sum exceed the distinct completed tasks in scope, then rescores
// the affected members.
//
// Shares are rounded with the largest-remainder method, so the corrected
// completions add up to trueCompleted exactly. Equal remainders go to the
// member with more original completions, then to the lower user id.
func correctCompletions(members []MemberPerformance, trueCompleted int) Correction {
	reported := 0
	for _, m := range members {
		reported += m.TaskStats.Completed
	}
	c := Correction{Ratio: 1, TrueCompleted: trueCompleted, ReportedCompleted: reported}
	if reported <= trueCompleted {
		return c
	}

	c.Applied = true
	c.Ratio = float64(trueCompleted) / float64(reported)

	type share struct {
		idx       int
		floor     int
		remainder int
	}
	shares := make([]share, len(members))
	assigned := 0
	for i, m := range members {
		scaled := m.TaskStats.Completed * trueCompleted
		shares[i] = share{idx: i, floor: scaled / reported, remainder: scaled % reported}
		assigned += shares[i].floor
	}

	sort.SliceStable(shares, func(a, b int) bool {
		sa, sb := shares[a], shares[b]
		if sa.remainder != sb.remainder {
			return sa.remainder > sb.remainder
		}
		ma, mb := members[sa.idx], members[sb.idx]
		if ma.TaskStats.Completed != mb.TaskStats.Completed {
			return ma.TaskStats.Completed > mb.TaskStats.Completed
		}
		return ma.UserID < mb.UserID
	})
	for k := 0; k < trueCompleted-assigned && k < len(shares); k++ {
		shares[k].floor++
	}

	for _, s := range shares {
		members[s.idx].TaskStats.Completed = s.floor
		score(&members[s.idx])
	}
	return c
}
