package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	qb "github.com/riskibarqy/fantasy-contest/internal/platform/querybuilder"
)

type EntryRepository struct {
	db *sqlx.DB
}

func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) ListByContest(ctx context.Context, contestID string) ([]entry.Entry, error) {
	query, args, err := qb.Select("*").From("contest_entries").
		Where(
			qb.Eq("contest_public_id", contestID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("joined_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list contest entries query: %w", err)
	}
	return r.selectEntries(ctx, query, args)
}

func (r *EntryRepository) ListStandings(ctx context.Context, contestID string) ([]entry.Entry, error) {
	query, args, err := qb.Select("*").From("contest_entries").
		Where(
			qb.Eq("contest_public_id", contestID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("rank_position = 0", "rank_position", "period_score DESC", "joined_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list contest standings query: %w", err)
	}
	return r.selectEntries(ctx, query, args)
}

func (r *EntryRepository) UpdateScores(ctx context.Context, contestID string, updates []entry.ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update entry scores: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range updates {
		query, args, err := qb.Update("contest_entries").
			Set("period_score", item.PeriodScore).
			Set("total_score", item.TotalScore).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("public_id", item.EntryID),
				qb.Eq("contest_public_id", contestID),
				qb.IsNull("deleted_at"),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update entry score query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update entry score entry=%s: %w", item.EntryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update entry scores tx: %w", err)
	}
	return nil
}

func (r *EntryRepository) UpdateRanks(ctx context.Context, contestID string, updates []entry.RankUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update entry ranks: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range updates {
		query, args, err := qb.Update("contest_entries").
			Set("rank_position", item.Rank).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("public_id", item.EntryID),
				qb.Eq("contest_public_id", contestID),
				qb.IsNull("deleted_at"),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update entry rank query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update entry rank entry=%s: %w", item.EntryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update entry ranks tx: %w", err)
	}
	return nil
}

// Insert registers an entry; rejoining the same contest with the same team is a no-op.
func (r *EntryRepository) Insert(ctx context.Context, item entry.Entry) error {
	joinedAt := item.JoinedAt.UTC()
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	query, args, err := qb.InsertModel("contest_entries", entryInsertModel{
		PublicID:          item.ID,
		ContestID:         item.ContestID,
		TeamID:            item.TeamID,
		ScoreBeforePeriod: item.ScoreBeforePeriod,
		JoinedAt:          joinedAt,
	}, "ON CONFLICT DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert entry query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert entry id=%s: %w", item.ID, err)
	}
	return nil
}

func (r *EntryRepository) selectEntries(ctx context.Context, query string, args []any) ([]entry.Entry, error) {
	var rows []entryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list contest entries: %w", err)
	}

	out := make([]entry.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entry.Entry{
			ID:                row.PublicID,
			ContestID:         row.ContestID,
			TeamID:            row.TeamID,
			ScoreBeforePeriod: row.ScoreBeforePeriod,
			PeriodScore:       row.PeriodScore,
			TotalScore:        row.TotalScore,
			Rank:              row.RankPosition,
			Payout:            nullFloat64ToPtr(row.Payout),
			JoinedAt:          row.JoinedAt.UTC(),
			UpdatedAt:         row.UpdatedAt,
		})
	}
	return out, nil
}
