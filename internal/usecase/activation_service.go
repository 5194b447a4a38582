package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/metrics"
)

type ActivationConfig struct {
	ContestConcurrency int
}

// ContestError is one contest's failure inside a multi-contest run.
type ContestError struct {
	ContestID string `json:"contest_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}

type ActivationResult struct {
	ContestsActivated int                 `json:"contests_activated"`
	ContestsProcessed int                 `json:"contests_processed"`
	ContestsSynced    int                 `json:"contests_synced"`
	EntriesUpdated    int                 `json:"entries_updated"`
	RanksUpdated      int                 `json:"ranks_updated"`
	FailedEntries     int                 `json:"failed_entries"`
	Contests          []ContestSyncResult `json:"contests"`
	Errors            []ContestError      `json:"errors"`
	DurationMs        int64               `json:"duration_ms"`
}

// ActivationService promotes upcoming contests whose gameweek started, then syncs
// every active contest with bounded parallelism.
type ActivationService struct {
	contestRepo contest.Repository
	status      *PeriodStatusService
	syncer      *ContestSyncService
	cfg         ActivationConfig
	logger      *logging.Logger
}

func NewActivationService(
	contestRepo contest.Repository,
	status *PeriodStatusService,
	syncer *ContestSyncService,
	cfg ActivationConfig,
	logger *logging.Logger,
) *ActivationService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ContestConcurrency < 1 {
		cfg.ContestConcurrency = 3
	}
	return &ActivationService{
		contestRepo: contestRepo,
		status:      status,
		syncer:      syncer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run never fails because of a single contest: per-contest failures are collected
// into the result. An error is returned only when the run cannot start.
func (s *ActivationService) Run(ctx context.Context) (ActivationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ActivationService.Run")
	defer span.End()

	started := time.Now()
	run := NewRunCache()
	result := ActivationResult{
		Contests: make([]ContestSyncResult, 0),
		Errors:   make([]ContestError, 0),
	}

	activated, err := s.activateStarted(ctx, run, &result)
	if err != nil {
		return result, err
	}
	result.ContestsActivated = activated

	active, err := s.contestRepo.ListByStatus(ctx, contest.StatusActive)
	if err != nil {
		return result, fmt.Errorf("list active contests: %w", err)
	}
	result.ContestsProcessed = len(active)

	if err := s.syncActive(ctx, active, run, &result); err != nil {
		return result, err
	}

	sort.Slice(result.Contests, func(i, j int) bool {
		return result.Contests[i].ContestID < result.Contests[j].ContestID
	})
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].ContestID < result.Errors[j].ContestID
	})
	result.DurationMs = time.Since(started).Milliseconds()

	s.logger.InfoContext(ctx, "activation and sync pass finished",
		"contests_activated", result.ContestsActivated,
		"contests_processed", result.ContestsProcessed,
		"contests_synced", result.ContestsSynced,
		"entries_updated", result.EntriesUpdated,
		"ranks_updated", result.RanksUpdated,
		"failed_entries", result.FailedEntries,
		"errors", len(result.Errors),
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

func (s *ActivationService) activateStarted(ctx context.Context, run *RunCache, result *ActivationResult) (int, error) {
	upcoming, err := s.contestRepo.ListByStatus(ctx, contest.StatusUpcoming)
	if err != nil {
		return 0, fmt.Errorf("list upcoming contests: %w", err)
	}
	if len(upcoming) == 0 {
		return 0, nil
	}

	gws := make([]int, 0, len(upcoming))
	for _, item := range upcoming {
		gws = append(gws, item.Gameweek)
	}
	statuses := s.status.EvaluateMany(ctx, gws, run)

	ids := make([]string, 0, len(upcoming))
	for _, item := range upcoming {
		status := statuses[item.Gameweek]
		if status.Err != nil {
			result.Errors = append(result.Errors, ContestError{
				ContestID: item.ID,
				Stage:     "activate",
				Message:   status.Err.Error(),
			})
			continue
		}
		if status.HasStarted {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	activated, err := s.contestRepo.ActivateMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("activate contests: %w", err)
	}
	metrics.ContestsActivatedTotal.Add(float64(activated))
	s.logger.InfoContext(ctx, "contests activated", "count", activated, "candidates", len(ids))
	return activated, nil
}

func (s *ActivationService) syncActive(ctx context.Context, active []contest.Contest, run *RunCache, result *ActivationResult) error {
	if len(active) == 0 {
		return nil
	}

	workers := min(s.cfg.ContestConcurrency, len(active))
	workerPool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("create contest worker pool: %w", err)
	}
	defer workerPool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(res ContestSyncResult, err error, contestID string) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Errors = append(result.Errors, ContestError{ContestID: contestID, Stage: "sync", Message: err.Error()})
			s.logger.WarnContext(ctx, "contest sync failed", "contest_id", contestID, "error", err)
			return
		}
		result.ContestsSynced++
		result.EntriesUpdated += res.EntriesUpdated
		result.RanksUpdated += res.RanksUpdated
		result.FailedEntries += res.FailedEntries
		result.Contests = append(result.Contests, res)
	}

	for _, item := range active {
		wg.Add(1)
		if err := workerPool.Submit(func() {
			defer wg.Done()
			res, err := s.syncer.SyncContest(ctx, item, run)
			record(res, err, item.ID)
		}); err != nil {
			wg.Done()
			record(ContestSyncResult{}, fmt.Errorf("submit contest sync: %w", err), item.ID)
		}
	}
	wg.Wait()
	return nil
}
