package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/metrics"
)

type RejectionReason string

const (
	RejectContestNotFound     RejectionReason = "contest_not_found"
	RejectInvalidStatus       RejectionReason = "invalid_status"
	RejectInvalidPrizeTable   RejectionReason = "invalid_prize_table"
	RejectStatusUnavailable   RejectionReason = "period_status_unavailable"
	RejectFixturesNotFinished RejectionReason = "fixtures_not_finished"
	RejectBonusNotConfirmed   RejectionReason = "bonus_not_confirmed"
	RejectInProgress          RejectionReason = "finalization_in_progress"
)

// FinalizeRejection is an unmet finalization precondition.
type FinalizeRejection struct {
	ContestID string          `json:"contest_id"`
	Reason    RejectionReason `json:"reason"`
	Message   string          `json:"message"`
}

func (e *FinalizeRejection) Error() string {
	return fmt.Sprintf("finalize contest=%s rejected: %s: %s", e.ContestID, e.Reason, e.Message)
}

func (e *FinalizeRejection) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Reason == RejectContestNotFound
	case ErrConflict:
		return e.Reason != RejectContestNotFound
	default:
		return false
	}
}

func reject(contestID string, reason RejectionReason, format string, args ...any) *FinalizeRejection {
	return &FinalizeRejection{
		ContestID: contestID,
		Reason:    reason,
		Message:   fmt.Sprintf(format, args...),
	}
}

type FinalizationConfig struct {
	LockTTL time.Duration
}

type FinalizeResult struct {
	ContestID      string            `json:"contest_id"`
	Gameweek       int               `json:"gameweek"`
	Status         contest.Status    `json:"status"`
	Refinalized    bool              `json:"refinalized"`
	Sync           ContestSyncResult `json:"sync"`
	FailedEntries  int               `json:"failed_entries"`
	Breakdown      PayoutBreakdown   `json:"breakdown"`
	LedgerCredited bool              `json:"ledger_credited"`
	LedgerError    string            `json:"ledger_error,omitempty"`
	FinalizedAt    *time.Time        `json:"finalized_at,omitempty"`
	// PayoutDrift lists entries whose refreshed standing would pay differently from
	// the settled payout. Only set on re-finalization.
	PayoutDrift    []string          `json:"payout_drift,omitempty"`
}

type FinalizeReadyResult struct {
	Attempted int                  `json:"attempted"`
	Finalized []FinalizeResult     `json:"finalized"`
	Rejected  []*FinalizeRejection `json:"rejected"`
	Errors    []ContestError       `json:"errors"`
}

// FinalizationService settles a contest once its gameweek is strictly complete.
type FinalizationService struct {
	contestRepo contest.Repository
	entryRepo   entry.Repository
	status      *PeriodStatusService
	syncer      *ContestSyncService
	locker      ContestLocker
	creditor    PayoutCreditor
	cfg         FinalizationConfig
	logger      *logging.Logger
	now         func() time.Time
}

func NewFinalizationService(
	contestRepo contest.Repository,
	entryRepo entry.Repository,
	status *PeriodStatusService,
	syncer *ContestSyncService,
	locker ContestLocker,
	creditor PayoutCreditor,
	cfg FinalizationConfig,
	logger *logging.Logger,
) *FinalizationService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}

	return &FinalizationService{
		contestRepo: contestRepo,
		entryRepo:   entryRepo,
		status:      status,
		syncer:      syncer,
		locker:      locker,
		creditor:    creditor,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Finalize runs a final sync and rank pass, computes prizes and settles the contest.
// Re-finalizing a completed contest refreshes scores and ranks but keeps the settled
// payouts, reports any drift and never credits the ledger again.
func (s *FinalizationService) Finalize(ctx context.Context, contestID string) (FinalizeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FinalizationService.Finalize")
	defer span.End()

	contestID = strings.TrimSpace(contestID)
	if contestID == "" {
		return FinalizeResult{}, fmt.Errorf("%w: contest id is required", ErrInvalidInput)
	}

	unlock, acquired, err := s.locker.TryLock(ctx, "contest:finalize:"+contestID, s.cfg.LockTTL)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("%w: acquire finalization lock: %v", ErrDependencyUnavailable, err)
	}
	if !acquired {
		return FinalizeResult{}, s.recordRejection(ctx, reject(contestID, RejectInProgress, "another finalization is running for this contest"))
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "release finalization lock failed", "contest_id", contestID, "error", err)
		}
	}()

	result, err := s.finalize(ctx, contestID)
	if err != nil {
		var rejection *FinalizeRejection
		if errors.As(err, &rejection) {
			return result, s.recordRejection(ctx, rejection)
		}
		metrics.FinalizationsTotal.WithLabelValues("failed").Inc()
		return result, err
	}

	outcome := "settled"
	if result.Refinalized {
		outcome = "refinalized"
	}
	metrics.FinalizationsTotal.WithLabelValues(outcome).Inc()
	return result, nil
}

func (s *FinalizationService) finalize(ctx context.Context, contestID string) (FinalizeResult, error) {
	item, exists, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("get contest: %w", err)
	}
	if !exists {
		return FinalizeResult{}, reject(contestID, RejectContestNotFound, "contest does not exist")
	}

	result := FinalizeResult{ContestID: item.ID, Gameweek: item.Gameweek, Status: item.Status}
	switch item.Status {
	case contest.StatusActive:
	case contest.StatusCompleted:
		result.Refinalized = true
		s.logger.WarnContext(ctx, "re-finalizing completed contest", "contest_id", item.ID, "gameweek", item.Gameweek)
	default:
		return result, reject(item.ID, RejectInvalidStatus, "contest status is %s, want active", item.Status)
	}

	if err := contest.ValidatePrizeTiers(item.PrizeTiers); err != nil {
		return result, reject(item.ID, RejectInvalidPrizeTable, "%v", err)
	}

	run := NewRunCache()
	status := s.status.EvaluateInRun(ctx, item.Gameweek, run)
	if rejection := rejectIncomplete(item.ID, status); rejection != nil {
		return result, rejection
	}

	syncResult, err := s.syncer.SyncContest(ctx, item, run)
	result.Sync = syncResult
	if err != nil {
		return result, fmt.Errorf("final sync contest=%s: %w", item.ID, err)
	}
	result.FailedEntries = syncResult.FailedEntries
	if syncResult.FailedEntries > 0 {
		s.logger.WarnContext(ctx, "finalizing with unresolved entries",
			"contest_id", item.ID,
			"failed_entries", syncResult.FailedEntries,
		)
	}

	entries, err := s.entryRepo.ListByContest(ctx, item.ID)
	if err != nil {
		return result, fmt.Errorf("list entries contest=%s: %w", item.ID, err)
	}
	breakdown := ComputePayouts(item, entries)

	if result.Refinalized {
		result.Breakdown = settledBreakdown(breakdown, entries)
		result.FinalizedAt = item.FinalizedAt
		if drift := payoutDrift(breakdown.Payouts, result.Breakdown.Payouts); len(drift) > 0 {
			result.PayoutDrift = drift
			s.logger.WarnContext(ctx, "recomputed payouts differ from settled payouts, keeping settled",
				"contest_id", item.ID,
				"entries", len(drift),
			)
		}
		return result, nil
	}

	finalizedAt := s.now().UTC()
	settled, err := s.contestRepo.Settle(ctx, contest.Settlement{
		ContestID:   item.ID,
		Payouts:     breakdown.Payouts,
		FinalizedAt: finalizedAt,
	})
	if err != nil {
		return result, fmt.Errorf("settle contest=%s: %w", item.ID, err)
	}
	if !settled {
		// Another writer settled first; report what is stored.
		fresh, err := s.entryRepo.ListByContest(ctx, item.ID)
		if err != nil {
			return result, fmt.Errorf("list settled entries contest=%s: %w", item.ID, err)
		}
		result.Refinalized = true
		result.Status = contest.StatusCompleted
		result.Breakdown = settledBreakdown(breakdown, fresh)
		return result, nil
	}

	result.Status = contest.StatusCompleted
	result.Breakdown = breakdown
	result.FinalizedAt = &finalizedAt

	s.logger.InfoContext(ctx, "contest finalized",
		"contest_id", item.ID,
		"gameweek", item.Gameweek,
		"entries", breakdown.EntryCount,
		"pot", breakdown.Pot,
		"platform_fee", breakdown.PlatformFee,
		"prize_pool", breakdown.PrizePool,
		"failed_entries", result.FailedEntries,
	)

	s.creditPayouts(ctx, item.ID, breakdown.Payouts, &result)
	return result, nil
}

func (s *FinalizationService) creditPayouts(ctx context.Context, contestID string, payouts []contest.Payout, result *FinalizeResult) {
	if s.creditor == nil {
		return
	}

	paid := make([]contest.Payout, 0, len(payouts))
	for _, p := range payouts {
		if p.Amount > 0 {
			paid = append(paid, p)
		}
	}
	if len(paid) == 0 {
		return
	}

	if err := s.creditor.CreditPayouts(ctx, contestID, paid); err != nil {
		metrics.LedgerCreditsTotal.WithLabelValues("failed").Inc()
		result.LedgerError = err.Error()
		s.logger.ErrorContext(ctx, "credit payouts failed", "contest_id", contestID, "payouts", len(paid), "error", err)
		return
	}
	metrics.LedgerCreditsTotal.WithLabelValues("succeeded").Inc()
	result.LedgerCredited = true
}

func (s *FinalizationService) recordRejection(ctx context.Context, rejection *FinalizeRejection) error {
	metrics.FinalizationsTotal.WithLabelValues(string(rejection.Reason)).Inc()
	s.logger.InfoContext(ctx, "finalization rejected",
		"contest_id", rejection.ContestID,
		"reason", rejection.Reason,
		"message", rejection.Message,
	)
	return rejection
}

// FinalizeReady tries every active contest. Rejections are expected and reported.
func (s *FinalizationService) FinalizeReady(ctx context.Context) (FinalizeReadyResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FinalizationService.FinalizeReady")
	defer span.End()

	active, err := s.contestRepo.ListByStatus(ctx, contest.StatusActive)
	if err != nil {
		return FinalizeReadyResult{}, fmt.Errorf("list active contests: %w", err)
	}

	out := FinalizeReadyResult{
		Attempted: len(active),
		Finalized: make([]FinalizeResult, 0),
		Rejected:  make([]*FinalizeRejection, 0),
		Errors:    make([]ContestError, 0),
	}
	for _, item := range active {
		res, err := s.Finalize(ctx, item.ID)
		if err == nil {
			out.Finalized = append(out.Finalized, res)
			continue
		}

		var rejection *FinalizeRejection
		if errors.As(err, &rejection) {
			out.Rejected = append(out.Rejected, rejection)
			continue
		}
		out.Errors = append(out.Errors, ContestError{ContestID: item.ID, Stage: "finalize", Message: err.Error()})
	}

	return out, nil
}

func rejectIncomplete(contestID string, status gameweek.Status) *FinalizeRejection {
	switch status.Missing() {
	case gameweek.MissingNone:
		return nil
	case gameweek.MissingStatusUnavailable:
		return reject(contestID, RejectStatusUnavailable, "gameweek %d status could not be read, retry later: %v", status.Gameweek, status.Err)
	case gameweek.MissingFixturesNotFinished:
		return reject(contestID, RejectFixturesNotFinished, "gameweek %d has %d of %d fixtures finished", status.Gameweek, status.FinishedCount, status.FixtureCount)
	default:
		return reject(contestID, RejectBonusNotConfirmed, "gameweek %d bonus data not confirmed", status.Gameweek)
	}
}

// settledBreakdown reports stored payouts in place of recomputed ones.
func settledBreakdown(computed PayoutBreakdown, entries []entry.Entry) PayoutBreakdown {
	out := computed
	out.Payouts = make([]contest.Payout, 0, len(entries))
	for _, e := range entries {
		amount := 0.0
		if e.Payout != nil {
			amount = *e.Payout
		}
		out.Payouts = append(out.Payouts, contest.Payout{EntryID: e.ID, TeamID: e.TeamID, Amount: amount})
	}
	sort.SliceStable(out.Payouts, func(i, j int) bool {
		return out.Payouts[i].Amount > out.Payouts[j].Amount
	})
	return out
}

// payoutDrift returns the sorted entry ids whose recomputed amount differs from the
// settled one by more than half a cent.
func payoutDrift(recomputed, settled []contest.Payout) []string {
	byEntry := make(map[string]float64, len(recomputed))
	for _, p := range recomputed {
		byEntry[p.EntryID] = p.Amount
	}

	var drift []string
	for _, p := range settled {
		amount, ok := byEntry[p.EntryID]
		if !ok || math.Abs(amount-p.Amount) > 0.005 {
			drift = append(drift, p.EntryID)
		}
		delete(byEntry, p.EntryID)
	}
	for entryID := range byEntry {
		drift = append(drift, entryID)
	}
	sort.Strings(drift)
	return drift
}
