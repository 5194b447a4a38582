package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/metrics"
	"github.com/riskibarqy/fantasy-contest/internal/platform/resilience"
	"github.com/sourcegraph/conc/pool"
)

type ContestSyncConfig struct {
	EntryConcurrency int
	PacingDelay      time.Duration
}

type ContestSyncResult struct {
	ContestID         string `json:"contest_id"`
	Gameweek          int    `json:"gameweek"`
	Started           bool   `json:"started"`
	EntriesUpdated    int    `json:"entries_updated"`
	RanksUpdated      int    `json:"ranks_updated"`
	FailedEntries     int    `json:"failed_entries"`
	RecomputedEntries int    `json:"recomputed_entries"`
	LiveDataAvailable bool   `json:"live_data_available"`
	RunBestScore      *int   `json:"run_best_score,omitempty"`
	BestScoreRaised   bool   `json:"best_score_raised"`
	DurationMs        int64  `json:"duration_ms"`
}

// ContestSyncService pulls fresh scores for every entry of a contest, persists them,
// raises the best score watermark and re-ranks.
type ContestSyncService struct {
	contestRepo contest.Repository
	entryRepo   entry.Repository
	provider    ScoringProvider
	status      *PeriodStatusService
	resolver    *ScoreResolver
	ranker      *RankService
	cfg         ContestSyncConfig
	logger      *logging.Logger
	sleep       func(context.Context, time.Duration) error
}

func NewContestSyncService(
	contestRepo contest.Repository,
	entryRepo entry.Repository,
	provider ScoringProvider,
	status *PeriodStatusService,
	resolver *ScoreResolver,
	ranker *RankService,
	cfg ContestSyncConfig,
	logger *logging.Logger,
) *ContestSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.EntryConcurrency < 1 {
		cfg.EntryConcurrency = 5
	}
	if cfg.PacingDelay < 0 {
		cfg.PacingDelay = 0
	}

	return &ContestSyncService{
		contestRepo: contestRepo,
		entryRepo:   entryRepo,
		provider:    provider,
		status:      status,
		resolver:    resolver,
		ranker:      ranker,
		cfg:         cfg,
		logger:      logger,
		sleep:       resilience.Sleep,
	}
}

// SyncContest is safe to re-run at any cadence: every run overwrites scores with
// the latest resolution and ranks from what it just wrote. When the provider refuses
// calls outright the run stops with ErrDependencyUnavailable and writes nothing.
// Nothing is written when the stored contest status no longer matches item, so a sync
// that raced a settlement cannot rewrite settled standings.
func (s *ContestSyncService) SyncContest(ctx context.Context, item contest.Contest, run *RunCache) (ContestSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ContestSyncService.SyncContest")
	defer span.End()

	started := time.Now()
	run = runCacheOrNew(run)
	result := ContestSyncResult{ContestID: item.ID, Gameweek: item.Gameweek}

	res, err := s.syncContest(ctx, item, run, result)
	res.DurationMs = time.Since(started).Milliseconds()
	metrics.ContestSyncDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.ContestSyncsTotal.WithLabelValues("failed").Inc()
		return res, err
	}
	metrics.ContestSyncsTotal.WithLabelValues("succeeded").Inc()

	s.logger.InfoContext(ctx, "contest synced",
		"contest_id", item.ID,
		"gameweek", item.Gameweek,
		"started", res.Started,
		"entries_updated", res.EntriesUpdated,
		"failed_entries", res.FailedEntries,
		"recomputed_entries", res.RecomputedEntries,
		"ranks_updated", res.RanksUpdated,
		"duration_ms", res.DurationMs,
	)
	return res, nil
}

func (s *ContestSyncService) syncContest(ctx context.Context, item contest.Contest, run *RunCache, result ContestSyncResult) (ContestSyncResult, error) {
	// Entries joining mid-run are picked up on the next run.
	entries, err := s.entryRepo.ListByContest(ctx, item.ID)
	if err != nil {
		return result, fmt.Errorf("list entries contest=%s: %w", item.ID, err)
	}

	status := s.status.EvaluateInRun(ctx, item.Gameweek, run)
	if status.Err != nil {
		return result, fmt.Errorf("%w: period status gameweek=%d: %v", ErrDependencyUnavailable, item.Gameweek, status.Err)
	}
	result.Started = status.HasStarted

	var updates []entry.ScoreUpdate
	if !status.HasStarted {
		updates = make([]entry.ScoreUpdate, 0, len(entries))
		for _, e := range entries {
			updates = append(updates, entry.NewScoreUpdate(e, 0))
		}
	} else {
		var live *ExternalLiveSnapshot
		snapshot, err := run.LiveSnapshot(ctx, s.provider, item.Gameweek)
		if err != nil {
			s.logger.WarnContext(ctx, "live snapshot unavailable, fallback recompute disabled",
				"contest_id", item.ID,
				"gameweek", item.Gameweek,
				"error", err,
			)
		} else {
			live = &snapshot
			result.LiveDataAvailable = true
		}

		resolutions, err := s.resolveEntries(ctx, entries, item.Gameweek, live)
		if err != nil {
			return result, err
		}
		if unavailable := firstUnavailable(resolutions); unavailable != nil {
			return result, fmt.Errorf("%w: resolve entry=%s contest=%s: %v", ErrDependencyUnavailable, unavailable.EntryID, item.ID, unavailable.Err)
		}

		byID := make(map[string]entry.Entry, len(entries))
		for _, e := range entries {
			byID[e.ID] = e
		}

		updates = make([]entry.ScoreUpdate, 0, len(resolutions))
		for _, res := range resolutions {
			switch res.Source {
			case ScoreSourceDegraded:
				result.FailedEntries++
			case ScoreSourceRecomputed:
				result.RecomputedEntries++
			}
			updates = append(updates, entry.NewScoreUpdate(byID[res.EntryID], res.Score))

			if result.RunBestScore == nil || res.Score > *result.RunBestScore {
				best := res.Score
				result.RunBestScore = &best
			}
		}
	}

	current, exists, err := s.contestRepo.GetByID(ctx, item.ID)
	if err != nil {
		return result, fmt.Errorf("reload contest=%s: %w", item.ID, err)
	}
	if !exists {
		return result, fmt.Errorf("%w: contest=%s", ErrNotFound, item.ID)
	}
	if current.Status != item.Status {
		return result, fmt.Errorf("%w: contest=%s status changed from %s to %s", ErrConflict, item.ID, item.Status, current.Status)
	}

	if len(updates) > 0 {
		if err := s.entryRepo.UpdateScores(ctx, item.ID, updates); err != nil {
			return result, fmt.Errorf("persist scores contest=%s: %w", item.ID, err)
		}
	}
	result.EntriesUpdated = len(updates)

	if result.RunBestScore != nil {
		raised, err := s.contestRepo.RaiseBestScore(ctx, item.ID, *result.RunBestScore)
		if err != nil {
			return result, fmt.Errorf("raise best score contest=%s: %w", item.ID, err)
		}
		result.BestScoreRaised = raised
	}

	ranked, err := s.ranker.AssignRanks(ctx, item.ID)
	if err != nil {
		return result, err
	}
	result.RanksUpdated = ranked

	return result, nil
}

// resolveEntries runs groups of EntryConcurrency resolutions in parallel with a
// pacing delay between groups. The live snapshot is shared read-only.
func (s *ContestSyncService) resolveEntries(ctx context.Context, entries []entry.Entry, gw int, live *ExternalLiveSnapshot) ([]EntryResolution, error) {
	out := make([]EntryResolution, 0, len(entries))
	groupSize := s.cfg.EntryConcurrency

	for start := 0; start < len(entries); start += groupSize {
		if start > 0 {
			if err := s.sleep(ctx, s.cfg.PacingDelay); err != nil {
				return nil, fmt.Errorf("pace entry groups: %w", err)
			}
		}

		end := min(start+groupSize, len(entries))
		group := pool.NewWithResults[EntryResolution]().WithMaxGoroutines(groupSize)
		for _, e := range entries[start:end] {
			group.Go(func() EntryResolution {
				return s.resolver.Resolve(ctx, e, gw, live)
			})
		}
		resolved := group.Wait()
		out = append(out, resolved...)
		if firstUnavailable(resolved) != nil {
			break
		}
	}

	return out, nil
}

func firstUnavailable(resolutions []EntryResolution) *EntryResolution {
	for i := range resolutions {
		if resolutions[i].State == ResolutionUnavailable {
			return &resolutions[i]
		}
	}
	return nil
}
