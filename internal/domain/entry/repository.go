package entry

import "context"

// Repository describes entry persistence needs from use cases.
type Repository interface {
	ListByContest(ctx context.Context, contestID string) ([]Entry, error)
	// ListStandings returns entries ordered by rank for read endpoints.
	ListStandings(ctx context.Context, contestID string) ([]Entry, error)
	// UpdateScores writes every score update in one transaction.
	UpdateScores(ctx context.Context, contestID string, updates []ScoreUpdate) error
	// UpdateRanks writes every rank update in one transaction.
	UpdateRanks(ctx context.Context, contestID string, updates []RankUpdate) error
}
