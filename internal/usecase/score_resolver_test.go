package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
)

func newTestScoreResolver(provider ScoringProvider, retries int) *ScoreResolver {
	r := NewScoreResolver(provider, ScoreResolverConfig{MaxRetries: retries, RetryBackoff: time.Millisecond}, logging.NewNop())
	r.sleep = noSleep
	return r
}

func liveSnapshot(gw int, points map[int64]int) *ExternalLiveSnapshot {
	return &ExternalLiveSnapshot{Gameweek: gw, Points: points}
}

func TestScoreResolver_ResolveOnce(t *testing.T) {
	t.Parallel()

	live := liveSnapshot(3, map[int64]int{10: 5, 11: 2, 12: 0})

	tests := []struct {
		name       string
		score      *ExternalEntryScore
		picks      []ExternalPick
		live       *ExternalLiveSnapshot
		wantScore  int
		wantSource ScoreSource
	}{
		{
			name:       "authoritative score wins",
			score:      &ExternalEntryScore{Points: 64},
			picks:      []ExternalPick{{UnitID: 10, Multiplier: 2}},
			live:       live,
			wantScore:  64,
			wantSource: ScoreSourceAuthoritative,
		},
		{
			name:       "negative authoritative score is kept",
			score:      &ExternalEntryScore{Points: -4},
			picks:      []ExternalPick{{UnitID: 10, Multiplier: 2}},
			live:       live,
			wantScore:  -4,
			wantSource: ScoreSourceAuthoritative,
		},
		{
			name:       "zero falls back to recomputed net",
			score:      &ExternalEntryScore{Points: 0, Deduction: 0},
			picks:      []ExternalPick{{UnitID: 10, Multiplier: 2}, {UnitID: 11, Multiplier: 1}, {UnitID: 12, Multiplier: 1}, {UnitID: 10, Multiplier: 0}},
			live:       live,
			wantScore:  12,
			wantSource: ScoreSourceRecomputed,
		},
		{
			name:       "deduction applies to recomputed net",
			score:      &ExternalEntryScore{Points: 0, Deduction: 4},
			picks:      []ExternalPick{{UnitID: 10, Multiplier: 2}, {UnitID: 11, Multiplier: 1}},
			live:       live,
			wantScore:  8,
			wantSource: ScoreSourceRecomputed,
		},
		{
			name:       "non-positive net stays zero",
			score:      &ExternalEntryScore{Points: 0, Deduction: 8},
			picks:      []ExternalPick{{UnitID: 10, Multiplier: 1}},
			live:       live,
			wantScore:  0,
			wantSource: ScoreSourceZero,
		},
		{
			name:       "missing live snapshot keeps zero",
			score:      &ExternalEntryScore{Points: 0},
			picks:      []ExternalPick{{UnitID: 10, Multiplier: 2}},
			live:       nil,
			wantScore:  0,
			wantSource: ScoreSourceZero,
		},
		{
			name:       "missing history row uses picks",
			score:      nil,
			picks:      []ExternalPick{{UnitID: 11, Multiplier: 3}},
			live:       live,
			wantScore:  6,
			wantSource: ScoreSourceRecomputed,
		},
		{
			name:       "missing picks keeps zero",
			score:      &ExternalEntryScore{Points: 0},
			picks:      nil,
			live:       live,
			wantScore:  0,
			wantSource: ScoreSourceZero,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			provider := newFakeProvider()
			if tc.score != nil {
				provider.scores[42] = *tc.score
			}
			if tc.picks != nil {
				provider.picks[42] = tc.picks
			}

			score, source, err := newTestScoreResolver(provider, 0).ResolveOnce(context.Background(), 42, 3, tc.live)
			if err != nil {
				t.Fatalf("resolve once: %v", err)
			}
			if score != tc.wantScore || source != tc.wantSource {
				t.Fatalf("unexpected resolution: got=(%d,%s) want=(%d,%s)", score, source, tc.wantScore, tc.wantSource)
			}
		})
	}
}

func TestScoreResolver_Resolve_RetriesThenResolves(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.scores[7] = ExternalEntryScore{Points: 51}
	provider.scoreErrs[7] = []error{upstreamUnavailable("entry_history"), upstreamUnavailable("entry_history")}

	got := newTestScoreResolver(provider, 2).Resolve(context.Background(), entry.Entry{ID: "e7", TeamID: 7}, 3, nil)
	if got.State != ResolutionResolved || got.Score != 51 {
		t.Fatalf("unexpected resolution: %+v", got)
	}
	if got.Attempts != 3 {
		t.Fatalf("unexpected attempts: got=%d want=3", got.Attempts)
	}
	if got.Err != nil {
		t.Fatalf("resolved entry must not carry an error: %v", got.Err)
	}
}

func TestScoreResolver_Resolve_DegradesToZeroAfterRetries(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.scores[7] = ExternalEntryScore{Points: 51}
	provider.scoreErrs[7] = []error{
		upstreamUnavailable("entry_history"),
		upstreamUnavailable("entry_history"),
		upstreamUnavailable("entry_history"),
	}

	got := newTestScoreResolver(provider, 2).Resolve(context.Background(), entry.Entry{ID: "e7", TeamID: 7}, 3, nil)
	if got.State != ResolutionDegraded || got.Source != ScoreSourceDegraded {
		t.Fatalf("expected degraded resolution, got %+v", got)
	}
	if got.Score != 0 {
		t.Fatalf("degraded score must be zero, got %d", got.Score)
	}
	if got.Attempts != 3 {
		t.Fatalf("unexpected attempts: got=%d want=3", got.Attempts)
	}
	if got.Err == nil {
		t.Fatalf("degraded resolution must carry the last error")
	}
	if calls := provider.count("entry_score"); calls != 3 {
		t.Fatalf("unexpected upstream calls: got=%d want=3", calls)
	}
}

func TestScoreResolver_Resolve_CancelledContextDegrades(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.scoreErrs[7] = []error{upstreamUnavailable("entry_history"), upstreamUnavailable("entry_history")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := newTestScoreResolver(provider, 5).Resolve(ctx, entry.Entry{ID: "e7", TeamID: 7}, 3, nil)
	if got.State != ResolutionDegraded {
		t.Fatalf("expected degraded resolution, got %+v", got)
	}
	if got.Attempts != 1 {
		t.Fatalf("cancelled context must stop retries: attempts=%d", got.Attempts)
	}
}

func TestScoreResolver_Resolve_OpenCircuitIsUnavailable(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.scores[7] = ExternalEntryScore{Points: 51}
	provider.scoreErrs[7] = []error{upstreamCircuitOpen("entry_history")}

	got := newTestScoreResolver(provider, 2).Resolve(context.Background(), entry.Entry{ID: "e7", TeamID: 7}, 3, nil)
	if got.State != ResolutionUnavailable {
		t.Fatalf("expected unavailable resolution, got %+v", got)
	}
	if got.Attempts != 1 || provider.count("entry_score") != 1 {
		t.Fatalf("open circuit must not be retried: attempts=%d calls=%d", got.Attempts, provider.count("entry_score"))
	}
	if got.Source == ScoreSourceDegraded || got.Err == nil {
		t.Fatalf("unavailable resolution must carry the error and no score source: %+v", got)
	}
}
