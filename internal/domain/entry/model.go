package entry

import "time"

// Entry is one participant's membership in a contest.
type Entry struct {
	ID                string
	ContestID         string
	TeamID            int64
	ScoreBeforePeriod int
	PeriodScore       int
	TotalScore        int
	Rank              int
	Payout            *float64
	JoinedAt          time.Time
	UpdatedAt         time.Time
}

// ScoreUpdate carries a freshly resolved period score for one entry.
type ScoreUpdate struct {
	EntryID     string
	PeriodScore int
	TotalScore  int
}

// RankUpdate carries a recomputed rank for one entry.
type RankUpdate struct {
	EntryID string
	Rank    int
}

// NewScoreUpdate derives the total from the immutable baseline.
func NewScoreUpdate(e Entry, periodScore int) ScoreUpdate {
	return ScoreUpdate{
		EntryID:     e.ID,
		PeriodScore: periodScore,
		TotalScore:  e.ScoreBeforePeriod + periodScore,
	}
}
