package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	qb "github.com/riskibarqy/fantasy-contest/internal/platform/querybuilder"
)

type ContestRepository struct {
	db *sqlx.DB
}

func NewContestRepository(db *sqlx.DB) *ContestRepository {
	return &ContestRepository{db: db}
}

func (r *ContestRepository) GetByID(ctx context.Context, contestID string) (contest.Contest, bool, error) {
	query, args, err := qb.Select("*").From("contests").
		Where(
			qb.Eq("public_id", contestID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return contest.Contest{}, false, fmt.Errorf("build get contest query: %w", err)
	}

	var row contestTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return contest.Contest{}, false, nil
		}
		return contest.Contest{}, false, fmt.Errorf("get contest id=%s: %w", contestID, err)
	}

	item, err := contestFromRow(row)
	if err != nil {
		return contest.Contest{}, false, err
	}
	return item, true, nil
}

func (r *ContestRepository) ListByStatus(ctx context.Context, status contest.Status) ([]contest.Contest, error) {
	query, args, err := qb.Select("*").From("contests").
		Where(
			qb.Eq("status", string(status)),
			qb.IsNull("deleted_at"),
		).
		OrderBy("gameweek", "created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list contests by status query: %w", err)
	}

	var rows []contestTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list contests status=%s: %w", status, err)
	}

	out := make([]contest.Contest, 0, len(rows))
	for _, row := range rows {
		item, err := contestFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *ContestRepository) ActivateMany(ctx context.Context, contestIDs []string) (int, error) {
	if len(contestIDs) == 0 {
		return 0, nil
	}

	query, args, err := qb.Update("contests").
		Set("status", string(contest.StatusActive)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.In("public_id", contestIDs),
			qb.Eq("status", string(contest.StatusUpcoming)),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build activate contests query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("activate contests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read activated contest count: %w", err)
	}
	return int(affected), nil
}

func (r *ContestRepository) RaiseBestScore(ctx context.Context, contestID string, candidate int) (bool, error) {
	query, args, err := qb.Update("contests").
		Set("best_score", candidate).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", contestID),
			qb.IsNull("deleted_at"),
			qb.Expr("(best_score IS NULL OR best_score < ?)", candidate),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build raise best score query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("raise best score contest=%s: %w", contestID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read raised best score count: %w", err)
	}
	return affected > 0, nil
}

func (r *ContestRepository) Settle(ctx context.Context, settlement contest.Settlement) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx settle contest: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	lockQuery, lockArgs, err := qb.Select("status").From("contests").
		Where(
			qb.Eq("public_id", settlement.ContestID),
			qb.IsNull("deleted_at"),
		).
		ForUpdate().
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build lock contest query: %w", err)
	}

	var status string
	if err := tx.GetContext(ctx, &status, lockQuery, lockArgs...); err != nil {
		if isNotFound(err) {
			return false, fmt.Errorf("settle contest id=%s: contest not found", settlement.ContestID)
		}
		return false, fmt.Errorf("lock contest id=%s: %w", settlement.ContestID, err)
	}
	if contest.Status(status) == contest.StatusCompleted {
		return false, nil
	}
	if !contest.CanTransition(contest.Status(status), contest.StatusCompleted) {
		return false, fmt.Errorf("%w: %s -> %s", contest.ErrInvalidTransition, status, contest.StatusCompleted)
	}

	for _, payout := range settlement.Payouts {
		query, args, err := qb.Update("contest_entries").
			Set("payout", roundMoney(payout.Amount)).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("public_id", payout.EntryID),
				qb.Eq("contest_public_id", settlement.ContestID),
				qb.IsNull("deleted_at"),
			).
			ToSQL()
		if err != nil {
			return false, fmt.Errorf("build write payout query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("write payout entry=%s: %w", payout.EntryID, err)
		}
	}

	finalizedAt := settlement.FinalizedAt.UTC()
	if finalizedAt.IsZero() {
		finalizedAt = time.Now().UTC()
	}
	completeQuery, completeArgs, err := qb.Update("contests").
		Set("status", string(contest.StatusCompleted)).
		Set("finalized_at", finalizedAt).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", settlement.ContestID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build complete contest query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, completeQuery, completeArgs...); err != nil {
		return false, fmt.Errorf("complete contest id=%s: %w", settlement.ContestID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit settle contest tx: %w", err)
	}
	return true, nil
}

// Insert is used by seeding and admin tooling; contests are otherwise created upstream of this service.
func (r *ContestRepository) Insert(ctx context.Context, item contest.Contest) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validate contest: %w", err)
	}
	tiers, err := encodePrizeTiers(item.PrizeTiers)
	if err != nil {
		return fmt.Errorf("encode prize tiers contest=%s: %w", item.ID, err)
	}
	status := item.Status
	if status == "" {
		status = contest.StatusUpcoming
	}

	query, args, err := qb.InsertModel("contests", contestInsertModel{
		PublicID:           item.ID,
		Name:               item.Name,
		Gameweek:           item.Gameweek,
		Status:             string(status),
		BestScore:          item.BestScoreSoFar,
		EntryFee:           roundMoney(item.EntryFee),
		PlatformFeePercent: item.PlatformFeePercent,
		PrizeTiers:         tiers,
	}, "ON CONFLICT (public_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert contest query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert contest id=%s: %w", item.ID, err)
	}
	return nil
}

func contestFromRow(row contestTableModel) (contest.Contest, error) {
	tiers, err := decodePrizeTiers(row.PrizeTiers)
	if err != nil {
		return contest.Contest{}, fmt.Errorf("decode prize tiers contest=%s: %w", row.PublicID, err)
	}
	return contest.Contest{
		ID:                 row.PublicID,
		Name:               row.Name,
		Gameweek:           row.Gameweek,
		Status:             contest.Status(row.Status),
		BestScoreSoFar:     nullInt64ToIntPtr(row.BestScore),
		EntryFee:           row.EntryFee,
		PlatformFeePercent: row.PlatformFeePercent,
		PrizeTiers:         tiers,
		FinalizedAt:        nullTimeToTimePtr(row.FinalizedAt),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}
