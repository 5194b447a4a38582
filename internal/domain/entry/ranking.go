package entry

import "sort"

// SortForRanking orders entries by period score descending, then join time ascending.
// Entry ID breaks exact join-time collisions so repeated runs agree.
func SortForRanking(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PeriodScore != out[j].PeriodScore {
			return out[i].PeriodScore > out[j].PeriodScore
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CompetitionRanks assigns tie-aware ranks: equal scores share a rank and the
// next distinct score takes its 1-based position, e.g. 50,50,30 -> 1,1,3.
// The result follows SortForRanking order.
func CompetitionRanks(entries []Entry) []RankUpdate {
	sorted := SortForRanking(entries)
	out := make([]RankUpdate, 0, len(sorted))

	currentRank := 0
	for i, item := range sorted {
		if i == 0 || item.PeriodScore != sorted[i-1].PeriodScore {
			currentRank = i + 1
		}
		out = append(out, RankUpdate{EntryID: item.ID, Rank: currentRank})
	}
	return out
}
