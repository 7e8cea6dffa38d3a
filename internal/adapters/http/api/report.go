package api

import (
	"errors"
	"net/http"
)

// ReportHandler serves the outcome of the latest run.
type ReportHandler struct {
	deps Dependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps Dependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleReport handles GET /report. It answers 404 until the first run
// has finished.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	res, ok := h.deps.LastResult()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.New("no run has completed yet"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RunHandler triggers a run on demand.
type RunHandler struct {
	deps Dependencies
}

// NewRunHandler creates a new run handler.
func NewRunHandler(deps Dependencies) *RunHandler {
	return &RunHandler{deps: deps}
}

// HandleRun handles POST /run. A failed run still answers with its result,
// using 502 since the failure lies with the leaderboard or the webhook.
func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrBadRequest)
		return
	}
	res, err := h.deps.RunOnce(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
