package usecase

import (
	"testing"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
)

func rankedEntries(contestID string, ranks ...int) []entry.Entry {
	items := testEntries(contestID, len(ranks))
	for i, rank := range ranks {
		items[i].Rank = rank
	}
	return items
}

func payoutByEntry(payouts []contest.Payout) map[string]float64 {
	out := make(map[string]float64, len(payouts))
	for _, p := range payouts {
		out[p.EntryID] = p.Amount
	}
	return out
}

func TestComputePayouts_TenEntryPot(t *testing.T) {
	t.Parallel()

	c := testContest("c1", 3, contest.StatusActive)
	entries := rankedEntries("c1", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	got := ComputePayouts(c, entries)
	if got.EntryCount != 10 || got.Pot != 2000 || got.PlatformFee != 200 || got.PrizePool != 1800 {
		t.Fatalf("unexpected pot breakdown: %+v", got)
	}
	if len(got.Payouts) != 10 {
		t.Fatalf("every entry needs a payout row, got %d", len(got.Payouts))
	}

	byEntry := payoutByEntry(got.Payouts)
	want := map[string]float64{"c1-e01": 900, "c1-e02": 540, "c1-e03": 360}
	for _, e := range entries {
		if byEntry[e.ID] != want[e.ID] {
			t.Fatalf("unexpected payout for %s: got=%v want=%v", e.ID, byEntry[e.ID], want[e.ID])
		}
	}
	if got.Payouts[0].EntryID != "c1-e01" {
		t.Fatalf("payouts must be ordered by amount, first=%s", got.Payouts[0].EntryID)
	}
}

func TestComputePayouts_TieSplitsTierAndSkipsEmptyRank(t *testing.T) {
	t.Parallel()

	c := testContest("c1", 3, contest.StatusActive)
	c.PlatformFeePercent = 0
	c.EntryFee = 50
	c.PrizeTiers = []contest.PrizeTier{{Position: 1, Percentage: 60}, {Position: 2, Percentage: 40}}
	entries := rankedEntries("c1", 1, 1)

	got := ComputePayouts(c, entries)
	if got.PrizePool != 100 {
		t.Fatalf("unexpected prize pool: %v", got.PrizePool)
	}
	byEntry := payoutByEntry(got.Payouts)
	if byEntry["c1-e01"] != 30 || byEntry["c1-e02"] != 30 {
		t.Fatalf("tied winners must split the first tier: %+v", got.Payouts)
	}
}

func TestComputePayouts_TieAcrossPaidPositionsRoundsToCents(t *testing.T) {
	t.Parallel()

	c := testContest("c1", 3, contest.StatusActive)
	c.EntryFee = 10
	c.PlatformFeePercent = 0
	c.PrizeTiers = []contest.PrizeTier{{Position: 1, Percentage: 100}}
	entries := rankedEntries("c1", 1, 1, 1)

	got := ComputePayouts(c, entries)
	for _, p := range got.Payouts {
		if p.Amount != 10 {
			t.Fatalf("unexpected split payout: %+v", p)
		}
	}

	c.EntryFee = 1
	got = ComputePayouts(c, entries)
	for _, p := range got.Payouts {
		if p.Amount != 1 {
			t.Fatalf("unexpected split payout: %+v", p)
		}
	}

	c.EntryFee = 0.1
	got = ComputePayouts(c, rankedEntries("c1", 1, 1, 1, 4))
	if amount := got.Payouts[0].Amount; amount != 0.13 {
		t.Fatalf("split payout must round to cents: got=%v", amount)
	}
}

func TestComputePayouts_FeeAbovePotClampsPool(t *testing.T) {
	t.Parallel()

	c := testContest("c1", 3, contest.StatusActive)
	c.PlatformFeePercent = 100
	got := ComputePayouts(c, rankedEntries("c1", 1, 2))
	if got.PrizePool != 0 {
		t.Fatalf("prize pool must not go negative: %v", got.PrizePool)
	}
	for _, p := range got.Payouts {
		if p.Amount != 0 {
			t.Fatalf("unexpected payout from empty pool: %+v", p)
		}
	}
}

func TestComputePayouts_NoEntries(t *testing.T) {
	t.Parallel()

	got := ComputePayouts(testContest("c1", 3, contest.StatusActive), nil)
	if got.Pot != 0 || got.PrizePool != 0 || len(got.Payouts) != 0 {
		t.Fatalf("unexpected breakdown for empty contest: %+v", got)
	}
}
