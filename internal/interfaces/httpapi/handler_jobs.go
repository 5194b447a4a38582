package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/fantasy-contest/internal/usecase"
)

// internalJobRequest is the optional body sent by schedulers and operators.
type internalJobRequest struct {
	DispatchID string `json:"dispatch_id" validate:"omitempty,max=128"`
	Trigger    string `json:"trigger" validate:"omitempty,oneof=cron manual qstash"`
}

func (h *Handler) RunSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncJob")
	defer span.End()

	req, err := h.decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.syncRunner.Run(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run sync job failed", "dispatch_id", req.DispatchID, "trigger", req.Trigger, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "sync job completed",
		"dispatch_id", req.DispatchID,
		"trigger", req.Trigger,
		"contests_activated", result.ContestsActivated,
		"contests_synced", result.ContestsSynced,
		"entries_updated", result.EntriesUpdated,
		"errors", len(result.Errors),
	)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunFinalizeReadyJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunFinalizeReadyJob")
	defer span.End()

	req, err := h.decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.finalizer.FinalizeReady(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run finalize-ready job failed", "dispatch_id", req.DispatchID, "trigger", req.Trigger, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "finalize-ready job completed",
		"dispatch_id", req.DispatchID,
		"trigger", req.Trigger,
		"attempted", result.Attempted,
		"finalized", len(result.Finalized),
		"rejected", len(result.Rejected),
		"errors", len(result.Errors),
	)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) FinalizeContest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FinalizeContest")
	defer span.End()

	contestID, err := h.contestIDParam(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req, err := h.decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.finalizer.Finalize(ctx, contestID)
	if err != nil {
		var rejection *usecase.FinalizeRejection
		if errors.As(err, &rejection) {
			h.logger.InfoContext(ctx, "finalize contest rejected", "contest_id", contestID, "reason", rejection.Reason, "dispatch_id", req.DispatchID)
		} else {
			h.logger.ErrorContext(ctx, "finalize contest failed", "contest_id", contestID, "dispatch_id", req.DispatchID, "error", err)
		}
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) decodeInternalJobRequest(r *http.Request) (internalJobRequest, error) {
	var req internalJobRequest
	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return internalJobRequest{}, nil
		}
		return internalJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	req.DispatchID = strings.TrimSpace(req.DispatchID)
	req.Trigger = strings.ToLower(strings.TrimSpace(req.Trigger))
	if err := h.validateRequest(r.Context(), req); err != nil {
		return internalJobRequest{}, err
	}
	return req, nil
}
