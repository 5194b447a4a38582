package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/resilience"
)

var testNow = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu sync.Mutex

	static           ExternalStaticConfig
	fixtures         map[int][]ExternalFixture
	fixturesErr      error
	fixturesErrByGW  map[int]error
	confirmations    []ExternalCloseConfirmation
	confirmationsErr error
	scores           map[int64]ExternalEntryScore
	scoreErrs        map[int64][]error
	live             map[int]ExternalLiveSnapshot
	liveErr          error
	picks            map[int64][]ExternalPick
	calls            map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		fixtures:        make(map[int][]ExternalFixture),
		fixturesErrByGW: make(map[int]error),
		scores:          make(map[int64]ExternalEntryScore),
		scoreErrs:       make(map[int64][]error),
		live:            make(map[int]ExternalLiveSnapshot),
		picks:           make(map[int64][]ExternalPick),
		calls:           make(map[string]int),
	}
}

func (p *fakeProvider) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *fakeProvider) hit(name string) {
	p.calls[name]++
}

func (p *fakeProvider) GetStaticConfig(context.Context) (ExternalStaticConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hit("static")
	return p.static, nil
}

func (p *fakeProvider) GetFixtures(_ context.Context, gw int) ([]ExternalFixture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hit("fixtures")
	if p.fixturesErr != nil {
		return nil, p.fixturesErr
	}
	if err := p.fixturesErrByGW[gw]; err != nil {
		return nil, err
	}
	return append([]ExternalFixture(nil), p.fixtures[gw]...), nil
}

func (p *fakeProvider) GetCloseConfirmation(context.Context) ([]ExternalCloseConfirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hit("close_confirmation")
	if p.confirmationsErr != nil {
		return nil, p.confirmationsErr
	}
	return append([]ExternalCloseConfirmation(nil), p.confirmations...), nil
}

func (p *fakeProvider) GetEntryPeriodScore(_ context.Context, teamID int64, gw int) (ExternalEntryScore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hit("entry_score")
	if queued := p.scoreErrs[teamID]; len(queued) > 0 {
		p.scoreErrs[teamID] = queued[1:]
		return ExternalEntryScore{}, queued[0]
	}
	score, ok := p.scores[teamID]
	if !ok {
		return ExternalEntryScore{}, upstreamNotFound("entry_history")
	}
	score.TeamID, score.Gameweek = teamID, gw
	return score, nil
}

func (p *fakeProvider) GetLiveUnitScores(_ context.Context, gw int) (ExternalLiveSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hit("live")
	if p.liveErr != nil {
		return ExternalLiveSnapshot{}, p.liveErr
	}
	snapshot, ok := p.live[gw]
	if !ok {
		return ExternalLiveSnapshot{}, upstreamNotFound("event_live")
	}
	return snapshot, nil
}

func (p *fakeProvider) GetEntryPicks(_ context.Context, teamID int64, _ int) ([]ExternalPick, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hit("picks")
	picks, ok := p.picks[teamID]
	if !ok {
		return nil, upstreamNotFound("entry_picks")
	}
	return append([]ExternalPick(nil), picks...), nil
}

func (p *fakeProvider) setScore(teamID int64, points int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores[teamID] = ExternalEntryScore{Points: points}
}

func upstreamNotFound(endpoint string) error {
	return &UpstreamError{Endpoint: endpoint, StatusCode: http.StatusNotFound, Err: errors.New("not found")}
}

func upstreamUnavailable(endpoint string) error {
	return &UpstreamError{Endpoint: endpoint, StatusCode: http.StatusServiceUnavailable, Transient: true, Err: errors.New("service unavailable")}
}

func upstreamCircuitOpen(endpoint string) error {
	return &UpstreamError{Endpoint: endpoint, Transient: true, Err: fmt.Errorf("fpl: %w", resilience.ErrCircuitOpen)}
}

// finishGameweek marks gw as fully played with bonus confirmed on the last match day.
func (p *fakeProvider) finishGameweek(gw int, fixtures int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kickoff := testNow.Add(-48 * time.Hour)
	items := make([]ExternalFixture, 0, fixtures)
	for i := 0; i < fixtures; i++ {
		at := kickoff.Add(time.Duration(i) * time.Hour)
		items = append(items, ExternalFixture{ID: int64(gw*100 + i), Gameweek: gw, KickoffAt: &at, Started: true, Finished: true})
	}
	p.fixtures[gw] = items
	p.confirmations = append(p.confirmations, ExternalCloseConfirmation{
		Gameweek:   gw,
		Date:       kickoff.Format(confirmationDateLayout),
		BonusAdded: true,
		Points:     "r",
	})
}

// startGameweek marks gw as in play with its first fixture kicked off.
func (p *fakeProvider) startGameweek(gw int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	past := testNow.Add(-2 * time.Hour)
	future := testNow.Add(48 * time.Hour)
	p.fixtures[gw] = []ExternalFixture{
		{ID: int64(gw*100 + 1), Gameweek: gw, KickoffAt: &past, Started: true},
		{ID: int64(gw*100 + 2), Gameweek: gw, KickoffAt: &future},
	}
}

func (p *fakeProvider) scheduleGameweek(gw int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	future := testNow.Add(72 * time.Hour)
	p.fixtures[gw] = []ExternalFixture{{ID: int64(gw*100 + 1), Gameweek: gw, KickoffAt: &future}}
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

type fakeCreditor struct {
	mu    sync.Mutex
	err   error
	calls []contestCredit
}

type contestCredit struct {
	contestID string
	payouts   []contest.Payout
}

func (c *fakeCreditor) CreditPayouts(_ context.Context, contestID string, payouts []contest.Payout) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, contestCredit{contestID: contestID, payouts: append([]contest.Payout(nil), payouts...)})
	return c.err
}

type testServices struct {
	store     *memory.ContestStore
	provider  *fakeProvider
	status    *PeriodStatusService
	resolver  *ScoreResolver
	ranker    *RankService
	syncer    *ContestSyncService
	finalizer *FinalizationService
	activator *ActivationService
	locker    *fakeLocker
	creditor  *fakeCreditor
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestServices(store *memory.ContestStore, provider *fakeProvider) *testServices {
	logger := logging.NewNop()

	status := NewPeriodStatusService(provider, logger)
	status.now = func() time.Time { return testNow }

	resolver := NewScoreResolver(provider, ScoreResolverConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}, logger)
	resolver.sleep = noSleep

	ranker := NewRankService(store, store, logger)

	syncer := NewContestSyncService(store, store, provider, status, resolver, ranker, ContestSyncConfig{EntryConcurrency: 5, PacingDelay: time.Second}, logger)
	syncer.sleep = noSleep

	locker := newFakeLocker()
	creditor := &fakeCreditor{}
	finalizer := NewFinalizationService(store, store, status, syncer, locker, creditor, FinalizationConfig{}, logger)
	finalizer.now = func() time.Time { return testNow }

	activator := NewActivationService(store, status, syncer, ActivationConfig{ContestConcurrency: 3}, logger)

	return &testServices{
		store:     store,
		provider:  provider,
		status:    status,
		resolver:  resolver,
		ranker:    ranker,
		syncer:    syncer,
		finalizer: finalizer,
		activator: activator,
		locker:    locker,
		creditor:  creditor,
	}
}

func testContest(id string, gw int, status contest.Status) contest.Contest {
	return contest.Contest{
		ID:                 id,
		Name:               "Contest " + id,
		Gameweek:           gw,
		Status:             status,
		EntryFee:           200,
		PlatformFeePercent: 10,
		PrizeTiers: []contest.PrizeTier{
			{Position: 1, Percentage: 50},
			{Position: 2, Percentage: 30},
			{Position: 3, Percentage: 20},
		},
		CreatedAt: testNow.Add(-30 * 24 * time.Hour),
	}
}

// testEntries builds entries for team ids 1..n joined one minute apart.
func testEntries(contestID string, n int) []entry.Entry {
	out := make([]entry.Entry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, entry.Entry{
			ID:        fmt.Sprintf("%s-e%02d", contestID, i),
			ContestID: contestID,
			TeamID:    int64(i),
			JoinedAt:  testNow.Add(-7*24*time.Hour + time.Duration(i)*time.Minute),
		})
	}
	return out
}

func entriesByTeam(items []entry.Entry) map[int64]entry.Entry {
	out := make(map[int64]entry.Entry, len(items))
	for _, e := range items {
		out[e.TeamID] = e
	}
	return out
}
