package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
)

const confirmationDateLayout = "2006-01-02"

// PeriodStatusService decides whether a gameweek has started and whether it is strictly complete.
type PeriodStatusService struct {
	provider ScoringProvider
	logger   *logging.Logger
	now      func() time.Time
}

func NewPeriodStatusService(provider ScoringProvider, logger *logging.Logger) *PeriodStatusService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PeriodStatusService{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *PeriodStatusService) Evaluate(ctx context.Context, gw int) gameweek.Status {
	return s.EvaluateInRun(ctx, gw, nil)
}

// EvaluateInRun evaluates gw at most once per run.
func (s *PeriodStatusService) EvaluateInRun(ctx context.Context, gw int, run *RunCache) gameweek.Status {
	run = runCacheOrNew(run)
	return run.PeriodStatus(ctx, gw, func(ctx context.Context, gw int) gameweek.Status {
		return s.evaluate(ctx, gw, run)
	})
}

// EvaluateMany evaluates every distinct gameweek once.
func (s *PeriodStatusService) EvaluateMany(ctx context.Context, gws []int, run *RunCache) map[int]gameweek.Status {
	run = runCacheOrNew(run)
	out := make(map[int]gameweek.Status, len(gws))
	for _, gw := range gws {
		if _, ok := out[gw]; ok {
			continue
		}
		out[gw] = s.EvaluateInRun(ctx, gw, run)
	}
	return out
}

func (s *PeriodStatusService) evaluate(ctx context.Context, gw int, run *RunCache) gameweek.Status {
	ctx, span := startUsecaseSpan(ctx, "usecase.PeriodStatusService.Evaluate")
	defer span.End()

	now := s.now().UTC()
	if gw <= 0 {
		return gameweek.Unavailable(gw, fmt.Errorf("%w: gameweek must be > 0", ErrInvalidInput), now)
	}

	fixtures, err := s.provider.GetFixtures(ctx, gw)
	if err != nil {
		s.logger.WarnContext(ctx, "period status fixtures unavailable", "gameweek", gw, "error", err)
		return gameweek.Unavailable(gw, fmt.Errorf("fetch fixtures gameweek=%d: %w", gw, err), now)
	}
	if len(fixtures) == 0 {
		if err := s.ensureKnownGameweek(ctx, gw); err != nil {
			s.logger.WarnContext(ctx, "period status gameweek unknown", "gameweek", gw, "error", err)
			return gameweek.Unavailable(gw, err, now)
		}
	}

	status := gameweek.Status{
		Gameweek:     gw,
		FixtureCount: len(fixtures),
		EvaluatedAt:  now,
	}

	var lastKickoff time.Time
	for _, fixture := range fixtures {
		if fixture.KickoffAt != nil {
			kickoff := fixture.KickoffAt.UTC()
			if kickoff.Before(now) {
				status.HasStarted = true
			}
			if kickoff.After(lastKickoff) {
				lastKickoff = kickoff
			}
		}
		if fixture.Finished {
			status.FinishedCount++
		}
	}
	status.AllFixturesFinished = status.FixtureCount > 0 && status.FinishedCount == status.FixtureCount
	if !lastKickoff.IsZero() {
		status.LastFixtureDate = lastKickoff.Format(confirmationDateLayout)
	}

	confirmations, err := run.CloseConfirmations(ctx, s.provider)
	if err != nil {
		s.logger.WarnContext(ctx, "period status close confirmation unavailable", "gameweek", gw, "error", err)
		return gameweek.Unavailable(gw, fmt.Errorf("fetch close confirmation: %w", err), now)
	}

	if confirmation, ok := selectCloseConfirmation(confirmations, gw, status.LastFixtureDate); ok {
		status.BonusDataConfirmed = confirmation.BonusAdded
		status.ConfirmationDate = confirmation.Date
	}

	return status
}

func (s *PeriodStatusService) ensureKnownGameweek(ctx context.Context, gw int) error {
	cfg, err := s.provider.GetStaticConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetch static config: %w", err)
	}
	if _, ok := cfg.Gameweek(gw); !ok {
		return fmt.Errorf("%w: gameweek %d is unknown to the provider", ErrNotFound, gw)
	}
	return nil
}

// selectCloseConfirmation prefers the entry for the last fixture date and falls back
// to the most recent entry for the gameweek.
func selectCloseConfirmation(items []ExternalCloseConfirmation, gw int, lastFixtureDate string) (ExternalCloseConfirmation, bool) {
	var (
		latest ExternalCloseConfirmation
		found  bool
	)
	for _, item := range items {
		if item.Gameweek != gw {
			continue
		}
		if lastFixtureDate != "" && item.Date == lastFixtureDate {
			return item, true
		}
		if !found || item.Date > latest.Date {
			latest = item
			found = true
		}
	}
	return latest, found
}
