package postgres

import (
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func nullTimeToTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullInt64ToIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloat64ToPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// roundMoney matches the NUMERIC(12, 2) columns.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func encodePrizeTiers(tiers []contest.PrizeTier) (string, error) {
	if len(tiers) == 0 {
		return "[]", nil
	}
	return sonic.MarshalString(contest.SortedPrizeTiers(tiers))
}

func decodePrizeTiers(raw []byte) ([]contest.PrizeTier, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var tiers []contest.PrizeTier
	if err := sonic.UnmarshalString(trimmed, &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}
