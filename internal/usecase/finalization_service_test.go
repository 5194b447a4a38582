package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/infrastructure/repository/memory"
)

func finishedContestFixture(t *testing.T, entries int) *testServices {
	t.Helper()

	c := testContest("c1", 3, contest.StatusActive)
	store := memory.NewContestStore([]contest.Contest{c}, testEntries("c1", entries))

	provider := newFakeProvider()
	provider.finishGameweek(3, 3)
	for teamID := int64(1); teamID <= int64(entries); teamID++ {
		provider.setScore(teamID, 100-int(teamID))
	}
	return newTestServices(store, provider)
}

func TestFinalizationService_Finalize_SettlesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := finishedContestFixture(t, 10)

	first, err := svc.finalizer.Finalize(ctx, "c1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if first.Status != contest.StatusCompleted || first.Refinalized {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if first.Breakdown.PrizePool != 1800 {
		t.Fatalf("unexpected prize pool: %v", first.Breakdown.PrizePool)
	}
	wantTop := []float64{900, 540, 360}
	for i, want := range wantTop {
		if first.Breakdown.Payouts[i].Amount != want {
			t.Fatalf("unexpected payout %d: got=%v want=%v", i, first.Breakdown.Payouts[i].Amount, want)
		}
	}
	if !first.LedgerCredited || len(svc.creditor.calls) != 1 || len(svc.creditor.calls[0].payouts) != 3 {
		t.Fatalf("expected one ledger credit with three payouts, got %+v", svc.creditor.calls)
	}
	if first.FinalizedAt == nil || !first.FinalizedAt.Equal(testNow) {
		t.Fatalf("unexpected finalized at: %v", first.FinalizedAt)
	}

	second, err := svc.finalizer.Finalize(ctx, "c1")
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if !second.Refinalized || second.Status != contest.StatusCompleted {
		t.Fatalf("unexpected second result: %+v", second)
	}
	if second.LedgerCredited || len(svc.creditor.calls) != 1 {
		t.Fatalf("second finalize must not credit again: calls=%d", len(svc.creditor.calls))
	}

	firstPaid := payoutByEntry(first.Breakdown.Payouts)
	for _, p := range second.Breakdown.Payouts {
		if firstPaid[p.EntryID] != p.Amount {
			t.Fatalf("payout changed for %s: first=%v second=%v", p.EntryID, firstPaid[p.EntryID], p.Amount)
		}
	}

	saved, _, _ := svc.store.GetByID(ctx, "c1")
	if saved.Status != contest.StatusCompleted {
		t.Fatalf("unexpected stored status: %s", saved.Status)
	}
	for _, e := range mustListEntries(t, svc.store, "c1") {
		if e.Payout == nil {
			t.Fatalf("entry %s has no payout", e.ID)
		}
	}
}

func TestFinalizationService_Finalize_RefinalizeKeepsSettledPayouts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := finishedContestFixture(t, 4)

	if _, err := svc.finalizer.Finalize(ctx, "c1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Late upstream correction flips the order.
	svc.provider.setScore(4, 500)

	got, err := svc.finalizer.Finalize(ctx, "c1")
	if err != nil {
		t.Fatalf("refinalize: %v", err)
	}
	byTeam := entriesByTeam(mustListEntries(t, svc.store, "c1"))
	if byTeam[4].Rank != 1 {
		t.Fatalf("refinalize must refresh ranks, got rank=%d", byTeam[4].Rank)
	}
	if *byTeam[4].Payout != 0 || *byTeam[1].Payout == 0 {
		t.Fatalf("settled payouts must not move: t1=%v t4=%v", *byTeam[1].Payout, *byTeam[4].Payout)
	}
	if got.Breakdown.Payouts[0].EntryID != byTeam[1].ID {
		t.Fatalf("result must report settled payouts, got %+v", got.Breakdown.Payouts)
	}
	if len(got.PayoutDrift) != 4 {
		t.Fatalf("every reordered entry must be reported as drift, got %v", got.PayoutDrift)
	}
}

func TestFinalizationService_Finalize_RefinalizeWithoutChangesHasNoDrift(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := finishedContestFixture(t, 4)

	if _, err := svc.finalizer.Finalize(ctx, "c1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	got, err := svc.finalizer.Finalize(ctx, "c1")
	if err != nil {
		t.Fatalf("refinalize: %v", err)
	}
	if !got.Refinalized || len(got.PayoutDrift) != 0 {
		t.Fatalf("unchanged upstream data must not drift: %+v", got)
	}
}

func TestFinalizationService_Finalize_OpenCircuitDoesNotSettle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := finishedContestFixture(t, 3)
	svc.provider.scoreErrs[2] = []error{upstreamCircuitOpen("entry_history")}

	_, err := svc.finalizer.Finalize(ctx, "c1")
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}

	saved, _, _ := svc.store.GetByID(ctx, "c1")
	if saved.Status != contest.StatusActive {
		t.Fatalf("contest must stay active for a later retry, status=%s", saved.Status)
	}
	if len(svc.creditor.calls) != 0 {
		t.Fatalf("ledger must not be credited, calls=%d", len(svc.creditor.calls))
	}
	for _, e := range mustListEntries(t, svc.store, "c1") {
		if e.PeriodScore != 0 || e.Payout != nil {
			t.Fatalf("no scores or payouts may be written: %+v", e)
		}
	}

	got, err := svc.finalizer.Finalize(ctx, "c1")
	if err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if got.Status != contest.StatusCompleted || got.FailedEntries != 0 {
		t.Fatalf("unexpected result after recovery: %+v", got)
	}
}

func TestFinalizationService_Finalize_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		contestID string
		mutate    func(c *contest.Contest, p *fakeProvider)
		reason    RejectionReason
		wantIs    error
	}{
		{
			name:      "unknown contest",
			contestID: "missing",
			reason:    RejectContestNotFound,
			wantIs:    ErrNotFound,
		},
		{
			name:      "upcoming contest",
			contestID: "c1",
			mutate:    func(c *contest.Contest, _ *fakeProvider) { c.Status = contest.StatusUpcoming },
			reason:    RejectInvalidStatus,
			wantIs:    ErrConflict,
		},
		{
			name:      "cancelled contest",
			contestID: "c1",
			mutate:    func(c *contest.Contest, _ *fakeProvider) { c.Status = contest.StatusCancelled },
			reason:    RejectInvalidStatus,
			wantIs:    ErrConflict,
		},
		{
			name:      "prize table does not sum to 100",
			contestID: "c1",
			mutate: func(c *contest.Contest, _ *fakeProvider) {
				c.PrizeTiers = []contest.PrizeTier{{Position: 1, Percentage: 50}, {Position: 2, Percentage: 40}}
			},
			reason: RejectInvalidPrizeTable,
			wantIs: ErrConflict,
		},
		{
			name:      "fixtures still running",
			contestID: "c1",
			mutate:    func(_ *contest.Contest, p *fakeProvider) { p.fixtures[3][0].Finished = false },
			reason:    RejectFixturesNotFinished,
			wantIs:    ErrConflict,
		},
		{
			name:      "bonus not confirmed",
			contestID: "c1",
			mutate:    func(_ *contest.Contest, p *fakeProvider) { p.confirmations[0].BonusAdded = false },
			reason:    RejectBonusNotConfirmed,
			wantIs:    ErrConflict,
		},
		{
			name:      "status unavailable",
			contestID: "c1",
			mutate:    func(_ *contest.Contest, p *fakeProvider) { p.confirmationsErr = upstreamUnavailable("event_status") },
			reason:    RejectStatusUnavailable,
			wantIs:    ErrConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			c := testContest("c1", 3, contest.StatusActive)
			provider := newFakeProvider()
			provider.finishGameweek(3, 2)
			provider.setScore(1, 10)
			if tc.mutate != nil {
				tc.mutate(&c, provider)
			}
			store := memory.NewContestStore([]contest.Contest{c}, testEntries("c1", 1))
			svc := newTestServices(store, provider)

			_, err := svc.finalizer.Finalize(ctx, tc.contestID)
			var rejection *FinalizeRejection
			if !errors.As(err, &rejection) {
				t.Fatalf("expected finalize rejection, got %v", err)
			}
			if rejection.Reason != tc.reason {
				t.Fatalf("unexpected reason: got=%s want=%s", rejection.Reason, tc.reason)
			}
			if !errors.Is(err, tc.wantIs) {
				t.Fatalf("expected %v, got %v", tc.wantIs, err)
			}

			saved, _, _ := store.GetByID(ctx, "c1")
			if saved.Status == contest.StatusCompleted {
				t.Fatalf("rejected finalize must not complete the contest")
			}
			if calls := provider.count("entry_score"); calls != 0 {
				t.Fatalf("rejected finalize must not sync scores, got %d calls", calls)
			}
			if len(svc.creditor.calls) != 0 {
				t.Fatalf("rejected finalize must not credit the ledger")
			}
		})
	}
}

func TestFinalizationService_Finalize_RejectsConcurrentFinalization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := finishedContestFixture(t, 2)

	unlock, acquired, err := svc.locker.TryLock(ctx, "contest:finalize:c1", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("hold lock: acquired=%v err=%v", acquired, err)
	}

	_, err = svc.finalizer.Finalize(ctx, "c1")
	var rejection *FinalizeRejection
	if !errors.As(err, &rejection) || rejection.Reason != RejectInProgress {
		t.Fatalf("expected in-progress rejection, got %v", err)
	}

	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := svc.finalizer.Finalize(ctx, "c1"); err != nil {
		t.Fatalf("finalize after unlock: %v", err)
	}
	if len(svc.locker.held) != 0 {
		t.Fatalf("finalize must release its lock")
	}
}

func TestFinalizationService_Finalize_LedgerFailureKeepsSettlement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := finishedContestFixture(t, 3)
	svc.creditor.err = errors.New("ledger unavailable")

	got, err := svc.finalizer.Finalize(ctx, "c1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got.LedgerCredited || got.LedgerError == "" {
		t.Fatalf("expected ledger error to be reported: %+v", got)
	}
	saved, _, _ := svc.store.GetByID(ctx, "c1")
	if saved.Status != contest.StatusCompleted {
		t.Fatalf("settlement must stand when the ledger fails, status=%s", saved.Status)
	}
}

func TestFinalizationService_Finalize_ProceedsWithDegradedEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := finishedContestFixture(t, 3)
	svc.provider.scoreErrs[1] = []error{
		upstreamUnavailable("entry_history"),
		upstreamUnavailable("entry_history"),
		upstreamUnavailable("entry_history"),
	}

	got, err := svc.finalizer.Finalize(ctx, "c1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got.FailedEntries != 1 || got.Status != contest.StatusCompleted {
		t.Fatalf("unexpected result: %+v", got)
	}
	byTeam := entriesByTeam(mustListEntries(t, svc.store, "c1"))
	if byTeam[1].PeriodScore != 0 || byTeam[1].Rank != 3 {
		t.Fatalf("degraded entry must settle at zero: %+v", byTeam[1])
	}
}

func TestFinalizationService_FinalizeReady(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	contests := []contest.Contest{
		testContest("done", 3, contest.StatusActive),
		testContest("running", 4, contest.StatusActive),
		testContest("later", 5, contest.StatusUpcoming),
	}
	entries := append(testEntries("done", 2), testEntries("running", 2)...)
	store := memory.NewContestStore(contests, entries)

	provider := newFakeProvider()
	provider.finishGameweek(3, 2)
	provider.startGameweek(4)
	provider.setScore(1, 40)
	provider.setScore(2, 30)
	svc := newTestServices(store, provider)

	got, err := svc.finalizer.FinalizeReady(ctx)
	if err != nil {
		t.Fatalf("finalize ready: %v", err)
	}
	if got.Attempted != 2 || len(got.Finalized) != 1 || len(got.Rejected) != 1 || len(got.Errors) != 0 {
		t.Fatalf("unexpected sweep result: %+v", got)
	}
	if got.Finalized[0].ContestID != "done" {
		t.Fatalf("unexpected finalized contest: %s", got.Finalized[0].ContestID)
	}
	if got.Rejected[0].ContestID != "running" || got.Rejected[0].Reason != RejectFixturesNotFinished {
		t.Fatalf("unexpected rejection: %+v", got.Rejected[0])
	}
}
