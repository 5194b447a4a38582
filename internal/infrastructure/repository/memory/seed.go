package memory

import (
	"fmt"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
)

const SeedContestID = "gw1-classic-200"

// SeedContests returns a demo contest for local runs with STORAGE_DRIVER=memory.
func SeedContests() []contest.Contest {
	return []contest.Contest{
		{
			ID:                 SeedContestID,
			Name:               "Gameweek 1 Classic",
			Gameweek:           1,
			Status:             contest.StatusUpcoming,
			EntryFee:           200,
			PlatformFeePercent: 10,
			PrizeTiers: []contest.PrizeTier{
				{Position: 1, Percentage: 50},
				{Position: 2, Percentage: 30},
				{Position: 3, Percentage: 20},
			},
			CreatedAt: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func SeedEntries() []entry.Entry {
	teamIDs := []int64{1001, 1002, 1003, 1004, 1005, 1006, 1007, 1008, 1009, 1010}
	joined := time.Date(2025, 8, 10, 9, 0, 0, 0, time.UTC)

	out := make([]entry.Entry, 0, len(teamIDs))
	for i, teamID := range teamIDs {
		out = append(out, entry.Entry{
			ID:        fmt.Sprintf("%s-%d", SeedContestID, teamID),
			ContestID: SeedContestID,
			TeamID:    teamID,
			JoinedAt:  joined.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}
