package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/fantasy-contest/internal/domain/entry"
	"github.com/riskibarqy/fantasy-contest/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/usecase"
)

// SyncRunner runs one activation and sync pass over all contests.
type SyncRunner interface {
	Run(ctx context.Context) (usecase.ActivationResult, error)
}

type ContestFinalizer interface {
	Finalize(ctx context.Context, contestID string) (usecase.FinalizeResult, error)
	FinalizeReady(ctx context.Context) (usecase.FinalizeReadyResult, error)
}

type StandingsReader interface {
	Standings(ctx context.Context, contestID string) ([]entry.Entry, error)
}

type PeriodStatusReader interface {
	Evaluate(ctx context.Context, gw int) gameweek.Status
}

type Handler struct {
	syncRunner   SyncRunner
	finalizer    ContestFinalizer
	standings    StandingsReader
	periodStatus PeriodStatusReader
	logger       *logging.Logger
	validator    *validator.Validate
}

func NewHandler(
	syncRunner SyncRunner,
	finalizer ContestFinalizer,
	standings StandingsReader,
	periodStatus PeriodStatusReader,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		syncRunner:   syncRunner,
		finalizer:    finalizer,
		standings:    standings,
		periodStatus: periodStatus,
		logger:       logger,
		validator:    validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) contestIDParam(ctx context.Context, r *http.Request) (string, error) {
	contestID := strings.TrimSpace(r.PathValue("contestID"))
	if err := h.validator.VarCtx(ctx, contestID, "required,max=128,printascii"); err != nil {
		return "", fmt.Errorf("%w: invalid contest id %q", usecase.ErrInvalidInput, contestID)
	}
	return contestID, nil
}

func (h *Handler) gameweekParam(ctx context.Context, r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("gameweek"))
	gw, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: gameweek must be a number, got %q", usecase.ErrInvalidInput, raw)
	}
	if err := h.validator.VarCtx(ctx, gw, "gte=1"); err != nil {
		return 0, fmt.Errorf("%w: gameweek must be >= 1", usecase.ErrInvalidInput)
	}
	return gw, nil
}
