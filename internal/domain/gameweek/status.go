package gameweek

import "time"

// MissingCondition names the first unmet part of strict completion.
type MissingCondition string

const (
	MissingNone                MissingCondition = ""
	MissingStatusUnavailable   MissingCondition = "status_unavailable"
	MissingFixturesNotFinished MissingCondition = "fixtures_not_finished"
	MissingBonusNotConfirmed   MissingCondition = "bonus_not_confirmed"
)

// Status is evaluated fresh on every check and never persisted.
type Status struct {
	Gameweek            int       `json:"gameweek"`
	HasStarted          bool      `json:"has_started"`
	AllFixturesFinished bool      `json:"all_fixtures_finished"`
	BonusDataConfirmed  bool      `json:"bonus_data_confirmed"`
	FixtureCount        int       `json:"fixture_count"`
	FinishedCount       int       `json:"finished_count"`
	LastFixtureDate     string    `json:"last_fixture_date,omitempty"`
	ConfirmationDate    string    `json:"confirmation_date,omitempty"`
	EvaluatedAt         time.Time `json:"evaluated_at"`
	Err                 error     `json:"-"`
}

// Unavailable builds the fail-safe status returned when upstream data could not be read.
func Unavailable(gw int, err error, now time.Time) Status {
	return Status{Gameweek: gw, Err: err, EvaluatedAt: now}
}

func (s Status) IsStrictlyComplete() bool {
	return s.Err == nil && s.AllFixturesFinished && s.BonusDataConfirmed
}

func (s Status) Missing() MissingCondition {
	switch {
	case s.Err != nil:
		return MissingStatusUnavailable
	case !s.AllFixturesFinished:
		return MissingFixturesNotFinished
	case !s.BonusDataConfirmed:
		return MissingBonusNotConfirmed
	default:
		return MissingNone
	}
}

// ErrorMessage exposes the attached error marker for JSON views.
func (s Status) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
