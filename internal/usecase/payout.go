package usecase

import (
	"math"
	"sort"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
)

type PayoutBreakdown struct {
	EntryCount  int              `json:"entry_count"`
	Pot         float64          `json:"pot"`
	PlatformFee float64          `json:"platform_fee"`
	PrizePool   float64          `json:"prize_pool"`
	Payouts     []contest.Payout `json:"payouts"`
}

// ComputePayouts splits the prize pool across prize tiers by rank. Entries tied on a
// paid rank share that tier evenly; a tier whose rank nobody holds pays nothing.
// Every entry gets a payout row, zero when unpaid.
func ComputePayouts(c contest.Contest, entries []entry.Entry) PayoutBreakdown {
	pot := c.EntryFee * float64(len(entries))
	fee := pot * c.PlatformFeePercent / 100
	pool := math.Max(0, pot-fee)

	holders := make(map[int][]int, len(entries))
	for i, e := range entries {
		holders[e.Rank] = append(holders[e.Rank], i)
	}

	amounts := make([]float64, len(entries))
	for _, tier := range contest.SortedPrizeTiers(c.PrizeTiers) {
		idx := holders[tier.Position]
		if len(idx) == 0 {
			continue
		}
		share := pool * tier.Percentage / 100 / float64(len(idx))
		for _, i := range idx {
			amounts[i] += share
		}
	}

	payouts := make([]contest.Payout, 0, len(entries))
	for i, e := range entries {
		payouts = append(payouts, contest.Payout{
			EntryID: e.ID,
			TeamID:  e.TeamID,
			Amount:  roundCents(amounts[i]),
		})
	}
	sort.SliceStable(payouts, func(i, j int) bool {
		return payouts[i].Amount > payouts[j].Amount
	})

	return PayoutBreakdown{
		EntryCount:  len(entries),
		Pot:         roundCents(pot),
		PlatformFee: roundCents(fee),
		PrizePool:   roundCents(pool),
		Payouts:     payouts,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
