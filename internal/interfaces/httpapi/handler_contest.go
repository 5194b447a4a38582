package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-contest/internal/usecase"
)

type standingView struct {
	EntryID     string   `json:"entry_id"`
	TeamID      int64    `json:"team_id"`
	Rank        int      `json:"rank"`
	PeriodScore int      `json:"period_score"`
	TotalScore  int      `json:"total_score"`
	Payout      *float64 `json:"payout,omitempty"`
}

type periodStatusView struct {
	Gameweek            int       `json:"gameweek"`
	HasStarted          bool      `json:"has_started"`
	AllFixturesFinished bool      `json:"all_fixtures_finished"`
	BonusDataConfirmed  bool      `json:"bonus_data_confirmed"`
	StrictlyComplete    bool      `json:"strictly_complete"`
	Missing             string    `json:"missing,omitempty"`
	FixtureCount        int       `json:"fixture_count"`
	FinishedCount       int       `json:"finished_count"`
	LastFixtureDate     string    `json:"last_fixture_date,omitempty"`
	ConfirmationDate    string    `json:"confirmation_date,omitempty"`
	Error               string    `json:"error,omitempty"`
	EvaluatedAt         time.Time `json:"evaluated_at"`
}

func (h *Handler) GetContestStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetContestStandings")
	defer span.End()

	contestID, err := h.contestIDParam(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.standings.Standings(ctx, contestID)
	if err != nil {
		if !errors.Is(err, usecase.ErrNotFound) {
			h.logger.ErrorContext(ctx, "list contest standings failed", "contest_id", contestID, "error", err)
		}
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, standingViews(items))
}

func (h *Handler) GetGameweekStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGameweekStatus")
	defer span.End()

	gw, err := h.gameweekParam(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := h.periodStatus.Evaluate(ctx, gw)
	if errors.Is(status.Err, usecase.ErrNotFound) {
		writeError(ctx, w, status.Err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, periodStatusViewFrom(status))
}

func standingViews(items []entry.Entry) []standingView {
	out := make([]standingView, 0, len(items))
	for _, item := range items {
		out = append(out, standingView{
			EntryID:     item.ID,
			TeamID:      item.TeamID,
			Rank:        item.Rank,
			PeriodScore: item.PeriodScore,
			TotalScore:  item.TotalScore,
			Payout:      item.Payout,
		})
	}
	return out
}

func periodStatusViewFrom(status gameweek.Status) periodStatusView {
	return periodStatusView{
		Gameweek:            status.Gameweek,
		HasStarted:          status.HasStarted,
		AllFixturesFinished: status.AllFixturesFinished,
		BonusDataConfirmed:  status.BonusDataConfirmed,
		StrictlyComplete:    status.IsStrictlyComplete(),
		Missing:             string(status.Missing()),
		FixtureCount:        status.FixtureCount,
		FinishedCount:       status.FinishedCount,
		LastFixtureDate:     status.LastFixtureDate,
		ConfirmationDate:    status.ConfirmationDate,
		Error:               status.ErrorMessage(),
		EvaluatedAt:         status.EvaluatedAt,
	}
}
