package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
)

// ContestLocker grants single-writer access to a contest key.
type ContestLocker interface {
	// TryLock returns acquired=false without error when another holder owns key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

// PayoutCreditor hands settled payouts to the wallet/ledger system.
// contestID doubles as the idempotency key.
type PayoutCreditor interface {
	CreditPayouts(ctx context.Context, contestID string, payouts []contest.Payout) error
}
