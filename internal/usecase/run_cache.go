package usecase

import (
	"context"
	"strconv"

	"github.com/riskibarqy/fantasy-contest/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-contest/internal/platform/cache"
)

// RunCache holds upstream reads shared by one activation, sync or finalization run.
// Create one per run and drop it afterwards. Failed loads are not cached.
type RunCache struct {
	store *cache.Store
}

func NewRunCache() *RunCache {
	return &RunCache{store: cache.NewStore(0)}
}

func (c *RunCache) LiveSnapshot(ctx context.Context, provider ScoringProvider, gw int) (ExternalLiveSnapshot, error) {
	return cache.Load(ctx, c.store, "live:"+strconv.Itoa(gw), func(ctx context.Context) (ExternalLiveSnapshot, error) {
		return provider.GetLiveUnitScores(ctx, gw)
	})
}

func (c *RunCache) PeriodStatus(ctx context.Context, gw int, evaluate func(context.Context, int) gameweek.Status) gameweek.Status {
	status, _ := cache.Load(ctx, c.store, "status:"+strconv.Itoa(gw), func(ctx context.Context) (gameweek.Status, error) {
		return evaluate(ctx, gw), nil
	})
	return status
}

func (c *RunCache) CloseConfirmations(ctx context.Context, provider ScoringProvider) ([]ExternalCloseConfirmation, error) {
	return cache.Load(ctx, c.store, "close-confirmation", func(ctx context.Context) ([]ExternalCloseConfirmation, error) {
		return provider.GetCloseConfirmation(ctx)
	})
}

func runCacheOrNew(run *RunCache) *RunCache {
	if run == nil {
		return NewRunCache()
	}
	return run
}
