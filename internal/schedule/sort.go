package schedule

import (
	"sort"

	"nagbot/internal/model"
)

// sortDueInfos orders soonest-due first, entries without a due time last.
// Stability matters: callers rely on deterministic output for equal keys.
func sortDueInfos(infos []model.DueInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i].NextDue, infos[j].NextDue
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
