package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-contest/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the demo contest into an empty database.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM contests WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("count contests for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, c := range memory.SeedContests() {
		tiers, err := encodePrizeTiers(c.PrizeTiers)
		if err != nil {
			return fmt.Errorf("encode seed contest %s prize tiers: %w", c.ID, err)
		}
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO contests (public_id, name, gameweek, status, entry_fee, platform_fee_percent, prize_tiers)
VALUES (:public_id, :name, :gameweek, :status, :entry_fee, :platform_fee_percent, CAST(:prize_tiers AS JSONB))
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id":            c.ID,
			"name":                 c.Name,
			"gameweek":             c.Gameweek,
			"status":               string(c.Status),
			"entry_fee":            roundMoney(c.EntryFee),
			"platform_fee_percent": c.PlatformFeePercent,
			"prize_tiers":          tiers,
		})
		if err != nil {
			return fmt.Errorf("bind seed contest %s query: %w", c.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed contest %s: %w", c.ID, err)
		}
	}

	for _, e := range memory.SeedEntries() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO contest_entries (public_id, contest_public_id, team_id, score_before_period, joined_at)
VALUES (:public_id, :contest_public_id, :team_id, :score_before_period, :joined_at)
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id":           e.ID,
			"contest_public_id":   e.ContestID,
			"team_id":             e.TeamID,
			"score_before_period": e.ScoreBeforePeriod,
			"joined_at":           e.JoinedAt,
		})
		if err != nil {
			return fmt.Errorf("bind seed entry %s query: %w", e.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
