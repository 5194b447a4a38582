package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
)

// RankService recomputes competition ranks from persisted scores.
type RankService struct {
	contestRepo contest.Repository
	entryRepo   entry.Repository
	logger      *logging.Logger
}

func NewRankService(contestRepo contest.Repository, entryRepo entry.Repository, logger *logging.Logger) *RankService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RankService{
		contestRepo: contestRepo,
		entryRepo:   entryRepo,
		logger:      logger,
	}
}

// AssignRanks reads the current scores and persists a rank for every entry.
// It must run after scores are written, never before.
func (s *RankService) AssignRanks(ctx context.Context, contestID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankService.AssignRanks")
	defer span.End()

	entries, err := s.entryRepo.ListByContest(ctx, contestID)
	if err != nil {
		return 0, fmt.Errorf("list entries contest=%s: %w", contestID, err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	updates := entry.CompetitionRanks(entries)
	if err := s.entryRepo.UpdateRanks(ctx, contestID, updates); err != nil {
		return 0, fmt.Errorf("update ranks contest=%s: %w", contestID, err)
	}

	s.logger.DebugContext(ctx, "contest ranks assigned", "contest_id", contestID, "entries", len(updates))
	return len(updates), nil
}

// Standings returns entries ordered by rank for read endpoints.
func (s *RankService) Standings(ctx context.Context, contestID string) ([]entry.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankService.Standings")
	defer span.End()

	contestID = strings.TrimSpace(contestID)
	if contestID == "" {
		return nil, fmt.Errorf("%w: contest id is required", ErrInvalidInput)
	}

	_, exists, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("get contest: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: contest=%s", ErrNotFound, contestID)
	}

	items, err := s.entryRepo.ListStandings(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("list standings contest=%s: %w", contestID, err)
	}
	return items, nil
}
