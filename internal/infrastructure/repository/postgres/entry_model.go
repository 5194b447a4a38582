package postgres

import (
	"database/sql"
	"time"
)

type entryTableModel struct {
	ID                int64           `db:"id"`
	PublicID          string          `db:"public_id"`
	ContestID         string          `db:"contest_public_id"`
	TeamID            int64           `db:"team_id"`
	ScoreBeforePeriod int             `db:"score_before_period"`
	PeriodScore       int             `db:"period_score"`
	TotalScore        int             `db:"total_score"`
	RankPosition      int             `db:"rank_position"`
	Payout            sql.NullFloat64 `db:"payout"`
	JoinedAt          time.Time       `db:"joined_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	DeletedAt         *time.Time      `db:"deleted_at"`
}

type entryInsertModel struct {
	PublicID          string    `db:"public_id"`
	ContestID         string    `db:"contest_public_id"`
	TeamID            int64     `db:"team_id"`
	ScoreBeforePeriod int       `db:"score_before_period"`
	JoinedAt          time.Time `db:"joined_at"`
}
