package contest

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// prizeShareTolerance bounds floating drift when prize shares are summed.
const prizeShareTolerance = 0.01

var (
	ErrInvalidTransition = errors.New("invalid contest status transition")
	ErrInvalidPrizeTable = errors.New("invalid prize table")
)

// PrizeTier pays Percentage of the prize pool to the entries holding Position.
type PrizeTier struct {
	Position   int     `json:"position"`
	Percentage float64 `json:"percentage"`
}

// Contest is a paid league bound to a single gameweek.
type Contest struct {
	ID                 string
	Name               string
	Gameweek           int
	Status             Status
	BestScoreSoFar     *int
	EntryFee           float64
	PlatformFeePercent float64
	PrizeTiers         []PrizeTier
	FinalizedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c Contest) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("contest id is required")
	}
	if c.Gameweek <= 0 {
		return fmt.Errorf("contest gameweek must be > 0")
	}
	if c.EntryFee < 0 {
		return fmt.Errorf("contest entry fee must be >= 0")
	}
	if c.PlatformFeePercent < 0 || c.PlatformFeePercent > 100 {
		return fmt.Errorf("contest platform fee percent must be within [0, 100]")
	}
	return ValidatePrizeTiers(c.PrizeTiers)
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusUpcoming:
		return to == StatusActive || to == StatusCancelled
	case StatusActive:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

func (c Contest) Transition(to Status) (Contest, error) {
	if !CanTransition(c.Status, to) {
		return c, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	return c, nil
}

// ValidatePrizeTiers requires unique positive positions and shares summing to 100.
// An empty table is allowed and pays nothing.
func ValidatePrizeTiers(tiers []PrizeTier) error {
	if len(tiers) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(tiers))
	total := 0.0
	for _, tier := range tiers {
		if tier.Position <= 0 {
			return fmt.Errorf("%w: position must be > 0, got %d", ErrInvalidPrizeTable, tier.Position)
		}
		if tier.Percentage < 0 {
			return fmt.Errorf("%w: percentage must be >= 0 at position %d", ErrInvalidPrizeTable, tier.Position)
		}
		if _, ok := seen[tier.Position]; ok {
			return fmt.Errorf("%w: duplicate position %d", ErrInvalidPrizeTable, tier.Position)
		}
		seen[tier.Position] = struct{}{}
		total += tier.Percentage
	}

	if math.Abs(total-100) > prizeShareTolerance {
		return fmt.Errorf("%w: shares sum to %.4f, want 100", ErrInvalidPrizeTable, total)
	}
	return nil
}

// SortedPrizeTiers returns a copy ordered by position.
func SortedPrizeTiers(tiers []PrizeTier) []PrizeTier {
	out := append([]PrizeTier(nil), tiers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// RaiseBestScore returns the higher of the stored watermark and candidate.
// The watermark never decreases.
func RaiseBestScore(current *int, candidate int) (*int, bool) {
	if current != nil && *current >= candidate {
		return current, false
	}
	next := candidate
	return &next, true
}
