package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/metrics"
	"github.com/riskibarqy/fantasy-contest/internal/platform/resilience"
)

// ResolutionState is the per-entry resolution state machine:
// fetching -> resolved | retrying -> fetching ... | degraded | unavailable.
// Unavailable means the provider as a whole refused the call and no score was resolved.
type ResolutionState string

const (
	ResolutionFetching    ResolutionState = "fetching"
	ResolutionRetrying    ResolutionState = "retrying"
	ResolutionResolved    ResolutionState = "resolved"
	ResolutionDegraded    ResolutionState = "degraded"
	ResolutionUnavailable ResolutionState = "unavailable"
)

type ScoreSource string

const (
	ScoreSourceAuthoritative ScoreSource = "authoritative"
	ScoreSourceRecomputed    ScoreSource = "recomputed"
	ScoreSourceZero          ScoreSource = "zero"
	ScoreSourceDegraded      ScoreSource = "degraded"
)

type ScoreResolverConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// EntryResolution is the terminal outcome for one entry.
type EntryResolution struct {
	EntryID  string
	TeamID   int64
	Score    int
	State    ResolutionState
	Source   ScoreSource
	Attempts int
	Err      error
}

type ScoreResolver struct {
	provider   ScoringProvider
	logger     *logging.Logger
	maxRetries int
	backoff    resilience.Backoff
	sleep      func(context.Context, time.Duration) error
}

func NewScoreResolver(provider ScoringProvider, cfg ScoreResolverConfig, logger *logging.Logger) *ScoreResolver {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * cfg.RetryBackoff
	}

	return &ScoreResolver{
		provider:   provider,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoff:    resilience.Backoff{Base: cfg.RetryBackoff, Max: cfg.MaxBackoff},
		sleep:      resilience.Sleep,
	}
}

// ResolveOnce performs a single resolution attempt without retries.
// A non-zero authoritative score always wins. Zero falls back to picks times live
// points minus deductions, used only when that net is positive.
func (r *ScoreResolver) ResolveOnce(ctx context.Context, teamID int64, gw int, live *ExternalLiveSnapshot) (int, ScoreSource, error) {
	score, err := r.provider.GetEntryPeriodScore(ctx, teamID, gw)
	switch {
	case errors.Is(err, ErrNotFound):
		score = ExternalEntryScore{TeamID: teamID, Gameweek: gw}
	case err != nil:
		return 0, "", fmt.Errorf("get entry period score team=%d gameweek=%d: %w", teamID, gw, err)
	}

	if score.Points != 0 {
		return score.Points, ScoreSourceAuthoritative, nil
	}
	if live == nil {
		return 0, ScoreSourceZero, nil
	}

	picks, err := r.provider.GetEntryPicks(ctx, teamID, gw)
	switch {
	case errors.Is(err, ErrNotFound):
		return 0, ScoreSourceZero, nil
	case err != nil:
		return 0, "", fmt.Errorf("get entry picks team=%d gameweek=%d: %w", teamID, gw, err)
	}

	if net := recomputeNetScore(picks, *live, score.Deduction); net > 0 {
		return net, ScoreSourceRecomputed, nil
	}
	return 0, ScoreSourceZero, nil
}

// Resolve drives the retry state machine for one entry. It never returns an error:
// exhausted retries degrade to an explicit zero. An open provider circuit ends in
// ResolutionUnavailable without a score, since it says nothing about this entry.
func (r *ScoreResolver) Resolve(ctx context.Context, e entry.Entry, gw int, live *ExternalLiveSnapshot) EntryResolution {
	out := EntryResolution{
		EntryID: e.ID,
		TeamID:  e.TeamID,
		State:   ResolutionFetching,
	}

	for {
		switch out.State {
		case ResolutionFetching:
			out.Attempts++
			score, source, err := r.ResolveOnce(ctx, e.TeamID, gw, live)
			if err == nil {
				out.Score, out.Source, out.Err = score, source, nil
				out.State = ResolutionResolved
				continue
			}
			out.Err = err
			if errors.Is(err, resilience.ErrCircuitOpen) {
				out.State = ResolutionUnavailable
				continue
			}
			if out.Attempts > r.maxRetries || ctx.Err() != nil {
				out.State = ResolutionDegraded
				continue
			}
			out.State = ResolutionRetrying

		case ResolutionRetrying:
			if err := r.sleep(ctx, r.backoff.Delay(out.Attempts-1)); err != nil {
				out.State = ResolutionDegraded
				continue
			}
			out.State = ResolutionFetching

		case ResolutionDegraded:
			out.Score = 0
			out.Source = ScoreSourceDegraded
			r.logger.WarnContext(ctx, "entry score degraded to zero",
				"entry_id", e.ID,
				"team_id", e.TeamID,
				"gameweek", gw,
				"attempts", out.Attempts,
				"error", out.Err,
			)
			metrics.EntryResolutionsTotal.WithLabelValues(string(out.State), string(out.Source)).Inc()
			return out

		case ResolutionUnavailable:
			metrics.EntryResolutionsTotal.WithLabelValues(string(out.State), "").Inc()
			return out

		case ResolutionResolved:
			metrics.EntryResolutionsTotal.WithLabelValues(string(out.State), string(out.Source)).Inc()
			return out
		}
	}
}

func recomputeNetScore(picks []ExternalPick, live ExternalLiveSnapshot, deduction int) int {
	raw := 0
	for _, pick := range picks {
		raw += live.Points[pick.UnitID] * pick.Multiplier
	}
	return raw - deduction
}
