package cache

import (
	"context"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	basecache "github.com/riskibarqy/fantasy-contest/internal/platform/cache"
)

func standingsKey(contestID string) string {
	return "entry:standings:" + contestID
}

// EntryRepository caches standings reads. Writers always hit the wrapped
// repository and drop the cached standings of the contest they touched.
type EntryRepository struct {
	next  entry.Repository
	cache *basecache.Store
}

func NewEntryRepository(next entry.Repository, cache *basecache.Store) *EntryRepository {
	return &EntryRepository{next: next, cache: cache}
}

func (r *EntryRepository) ListByContest(ctx context.Context, contestID string) ([]entry.Entry, error) {
	return r.next.ListByContest(ctx, contestID)
}

func (r *EntryRepository) ListStandings(ctx context.Context, contestID string) ([]entry.Entry, error) {
	items, err := basecache.Load(ctx, r.cache, standingsKey(contestID), func(ctx context.Context) ([]entry.Entry, error) {
		items, err := r.next.ListStandings(ctx, contestID)
		if err != nil {
			return nil, err
		}
		return cloneEntries(items), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneEntries(items), nil
}

func (r *EntryRepository) UpdateScores(ctx context.Context, contestID string, updates []entry.ScoreUpdate) error {
	defer r.cache.Delete(ctx, standingsKey(contestID))
	return r.next.UpdateScores(ctx, contestID, updates)
}

func (r *EntryRepository) UpdateRanks(ctx context.Context, contestID string, updates []entry.RankUpdate) error {
	defer r.cache.Delete(ctx, standingsKey(contestID))
	return r.next.UpdateRanks(ctx, contestID, updates)
}

// ContestRepository passes contest reads through uncached; lifecycle gates must
// see the stored status. Settling drops the contest's cached standings.
type ContestRepository struct {
	next  contest.Repository
	cache *basecache.Store
}

func NewContestRepository(next contest.Repository, cache *basecache.Store) *ContestRepository {
	return &ContestRepository{next: next, cache: cache}
}

func (r *ContestRepository) GetByID(ctx context.Context, contestID string) (contest.Contest, bool, error) {
	return r.next.GetByID(ctx, contestID)
}

func (r *ContestRepository) ListByStatus(ctx context.Context, status contest.Status) ([]contest.Contest, error) {
	return r.next.ListByStatus(ctx, status)
}

func (r *ContestRepository) ActivateMany(ctx context.Context, contestIDs []string) (int, error) {
	return r.next.ActivateMany(ctx, contestIDs)
}

func (r *ContestRepository) RaiseBestScore(ctx context.Context, contestID string, candidate int) (bool, error) {
	return r.next.RaiseBestScore(ctx, contestID, candidate)
}

func (r *ContestRepository) Settle(ctx context.Context, settlement contest.Settlement) (bool, error) {
	defer r.cache.Delete(ctx, standingsKey(settlement.ContestID))
	return r.next.Settle(ctx, settlement)
}

func cloneEntries(items []entry.Entry) []entry.Entry {
	if items == nil {
		return nil
	}
	out := make([]entry.Entry, len(items))
	for i, item := range items {
		out[i] = item
		if item.Payout != nil {
			payout := *item.Payout
			out[i].Payout = &payout
		}
	}
	return out
}
