package gameweek

import (
	"errors"
	"testing"
	"time"
)

func TestStatus_Missing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status Status
		want   MissingCondition
		strict bool
	}{
		{name: "complete", status: Status{AllFixturesFinished: true, BonusDataConfirmed: true}, want: MissingNone, strict: true},
		{name: "fixtures open", status: Status{HasStarted: true, BonusDataConfirmed: true}, want: MissingFixturesNotFinished},
		{name: "bonus pending", status: Status{AllFixturesFinished: true}, want: MissingBonusNotConfirmed},
		{name: "upstream failure", status: Unavailable(5, errors.New("boom"), time.Now()), want: MissingStatusUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Missing(); got != tt.want {
				t.Fatalf("missing=%q want=%q", got, tt.want)
			}
			if got := tt.status.IsStrictlyComplete(); got != tt.strict {
				t.Fatalf("strict=%v want=%v", got, tt.strict)
			}
		})
	}
}
