package httpapi

import "net/http"

// Internal job paths, also used by the worker when it dispatches through QStash.
const (
	SyncJobPath          = "/v1/internal/jobs/sync"
	FinalizeReadyJobPath = "/v1/internal/jobs/finalize-ready"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metricsHandler http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
}

func registerPublicContestRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/contests/{contestID}/standings", handler.GetContestStandings)
	mux.HandleFunc("GET /v1/gameweeks/{gameweek}/status", handler.GetGameweekStatus)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST "+SyncJobPath, RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncJob)))
	mux.Handle("POST "+FinalizeReadyJobPath, RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunFinalizeReadyJob)))
	mux.Handle("POST /v1/internal/contests/{contestID}/finalize", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.FinalizeContest)))
}
