package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ScoringProvider is the upstream fantasy data source.
type ScoringProvider interface {
	GetStaticConfig(ctx context.Context) (ExternalStaticConfig, error)
	GetFixtures(ctx context.Context, gameweek int) ([]ExternalFixture, error)
	GetCloseConfirmation(ctx context.Context) ([]ExternalCloseConfirmation, error)
	GetEntryPeriodScore(ctx context.Context, teamID int64, gameweek int) (ExternalEntryScore, error)
	GetLiveUnitScores(ctx context.Context, gameweek int) (ExternalLiveSnapshot, error)
	GetEntryPicks(ctx context.Context, teamID int64, gameweek int) ([]ExternalPick, error)
}

type ExternalGameweek struct {
	ID          int
	Name        string
	DeadlineAt  *time.Time
	Finished    bool
	DataChecked bool
	IsCurrent   bool
}

type ExternalStaticConfig struct {
	Gameweeks []ExternalGameweek
}

func (c ExternalStaticConfig) Gameweek(id int) (ExternalGameweek, bool) {
	for _, gw := range c.Gameweeks {
		if gw.ID == id {
			return gw, true
		}
	}
	return ExternalGameweek{}, false
}

type ExternalFixture struct {
	ID        int64
	Gameweek  int
	KickoffAt *time.Time
	Started   bool
	Finished  bool
}

// ExternalCloseConfirmation reports whether bonus data has been posted for one match day.
type ExternalCloseConfirmation struct {
	Gameweek   int
	Date       string
	BonusAdded bool
	Points     string
}

type ExternalEntryScore struct {
	TeamID    int64
	Gameweek  int
	Points    int
	Deduction int
}

// ExternalLiveSnapshot maps scoring unit id to its live total for one gameweek.
// It is shared read-only across every resolution in a run.
type ExternalLiveSnapshot struct {
	Gameweek int
	Points   map[int64]int
}

type ExternalPick struct {
	UnitID     int64
	Position   int
	Multiplier int
}

// UpstreamError is a non-2xx or transport failure from the scoring provider.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s status=%d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is lets callers match 404s as ErrNotFound and transient failures as ErrDependencyUnavailable.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrDependencyUnavailable:
		return e.Transient
	default:
		return false
	}
}
