package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
)

func TestContestStore_ActivateManyOnlyMovesUpcoming(t *testing.T) {
	t.Parallel()

	store := NewContestStore([]contest.Contest{
		{ID: "a", Gameweek: 1, Status: contest.StatusUpcoming},
		{ID: "b", Gameweek: 1, Status: contest.StatusActive},
		{ID: "c", Gameweek: 1, Status: contest.StatusCancelled},
	}, nil)

	changed, err := store.ActivateMany(context.Background(), []string{"a", "b", "c", "missing"})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected one activated contest, got %d", changed)
	}

	active, err := store.ListByStatus(context.Background(), contest.StatusActive)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 || active[0].ID != "a" || active[1].ID != "b" {
		t.Fatalf("unexpected active contests: %+v", active)
	}
}

func TestContestStore_SettleOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewContestStore(SeedContests(), SeedEntries())
	if _, err := store.ActivateMany(ctx, []string{SeedContestID}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	first := contest.Settlement{
		ContestID:   SeedContestID,
		Payouts:     []contest.Payout{{EntryID: SeedContestID + "-1001", TeamID: 1001, Amount: 900}},
		FinalizedAt: time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC),
	}
	settled, err := store.Settle(ctx, first)
	if err != nil || !settled {
		t.Fatalf("first settle: settled=%v err=%v", settled, err)
	}

	second := first
	second.Payouts = []contest.Payout{{EntryID: SeedContestID + "-1001", TeamID: 1001, Amount: 1}}
	settled, err = store.Settle(ctx, second)
	if err != nil || settled {
		t.Fatalf("second settle must be a no-op: settled=%v err=%v", settled, err)
	}

	entries, err := store.ListByContest(ctx, SeedContestID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if entries[0].Payout == nil || *entries[0].Payout != 900 {
		t.Fatalf("settled payout changed: %v", entries[0].Payout)
	}
	if entries[1].Payout != nil {
		t.Fatalf("entry without payout row got one: %v", *entries[1].Payout)
	}

	c, _, err := store.GetByID(ctx, SeedContestID)
	if err != nil {
		t.Fatalf("get contest: %v", err)
	}
	if c.Status != contest.StatusCompleted || c.FinalizedAt == nil || !c.FinalizedAt.Equal(first.FinalizedAt) {
		t.Fatalf("unexpected settled contest: %+v", c)
	}
}

func TestContestStore_SettleRejectsUpcoming(t *testing.T) {
	t.Parallel()

	store := NewContestStore(SeedContests(), nil)
	if _, err := store.Settle(context.Background(), contest.Settlement{ContestID: SeedContestID}); err == nil {
		t.Fatalf("expected transition error for upcoming contest")
	}
}

func TestContestStore_StandingsPutUnrankedLast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	joined := time.Date(2025, 8, 10, 9, 0, 0, 0, time.UTC)
	store := NewContestStore([]contest.Contest{{ID: "c", Gameweek: 1, Status: contest.StatusActive}}, []entry.Entry{
		{ID: "late", ContestID: "c", JoinedAt: joined.Add(3 * time.Minute)},
		{ID: "second", ContestID: "c", JoinedAt: joined.Add(time.Minute)},
		{ID: "first", ContestID: "c", JoinedAt: joined.Add(2 * time.Minute)},
		{ID: "tied", ContestID: "c", JoinedAt: joined},
	})
	if err := store.UpdateRanks(ctx, "c", []entry.RankUpdate{
		{EntryID: "first", Rank: 1},
		{EntryID: "second", Rank: 2},
		{EntryID: "tied", Rank: 2},
		{EntryID: "unknown", Rank: 9},
	}); err != nil {
		t.Fatalf("update ranks: %v", err)
	}

	got, err := store.ListStandings(ctx, "c")
	if err != nil {
		t.Fatalf("list standings: %v", err)
	}
	want := []string{"first", "tied", "second", "late"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("standings[%d]=%s want=%s", i, got[i].ID, id)
		}
	}
}

func TestContestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewContestStore(SeedContests(), SeedEntries())

	c, _, _ := store.GetByID(ctx, SeedContestID)
	c.PrizeTiers[0].Percentage = 99
	again, _, _ := store.GetByID(ctx, SeedContestID)
	if again.PrizeTiers[0].Percentage != 50 {
		t.Fatalf("caller mutated stored prize tiers")
	}

	if _, err := store.RaiseBestScore(ctx, SeedContestID, 40); err != nil {
		t.Fatalf("raise best score: %v", err)
	}
	raised, err := store.RaiseBestScore(ctx, SeedContestID, 30)
	if err != nil || raised {
		t.Fatalf("lower candidate must not raise: raised=%v err=%v", raised, err)
	}
	c, _, _ = store.GetByID(ctx, SeedContestID)
	if c.BestScoreSoFar == nil || *c.BestScoreSoFar != 40 {
		t.Fatalf("unexpected best score: %v", c.BestScoreSoFar)
	}
}
