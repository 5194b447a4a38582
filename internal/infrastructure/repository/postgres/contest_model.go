package postgres

import (
	"database/sql"
	"time"
)

type contestTableModel struct {
	ID                 int64         `db:"id"`
	PublicID           string        `db:"public_id"`
	Name               string        `db:"name"`
	Gameweek           int           `db:"gameweek"`
	Status             string        `db:"status"`
	BestScore          sql.NullInt64 `db:"best_score"`
	EntryFee           float64       `db:"entry_fee"`
	PlatformFeePercent float64       `db:"platform_fee_percent"`
	PrizeTiers         []byte        `db:"prize_tiers"`
	FinalizedAt        sql.NullTime  `db:"finalized_at"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
	DeletedAt          *time.Time    `db:"deleted_at"`
}

type contestInsertModel struct {
	PublicID           string  `db:"public_id"`
	Name               string  `db:"name"`
	Gameweek           int     `db:"gameweek"`
	Status             string  `db:"status"`
	BestScore          *int    `db:"best_score"`
	EntryFee           float64 `db:"entry_fee"`
	PlatformFeePercent float64 `db:"platform_fee_percent"`
	PrizeTiers         string  `db:"prize_tiers"`
}
