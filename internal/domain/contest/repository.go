package contest

import (
	"context"
	"time"
)

// Payout is the settled amount credited to one entry.
type Payout struct {
	EntryID string
	TeamID  int64
	Amount  float64
}

// Settlement is written in one transaction: payouts plus the completed status.
type Settlement struct {
	ContestID   string
	Payouts     []Payout
	FinalizedAt time.Time
}

// Repository describes contest persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, contestID string) (Contest, bool, error)
	ListByStatus(ctx context.Context, status Status) ([]Contest, error)
	// ActivateMany moves upcoming contests to active and returns how many rows changed.
	ActivateMany(ctx context.Context, contestIDs []string) (int, error)
	// RaiseBestScore stores candidate only when it is above the stored value.
	RaiseBestScore(ctx context.Context, contestID string, candidate int) (bool, error)
	// Settle writes entry payouts and marks the contest completed.
	// It returns false without writing when the contest is already completed.
	Settle(ctx context.Context, settlement Settlement) (bool, error)
}
