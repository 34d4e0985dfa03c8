package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tour-stitcher/internal/models"
)

// RunListResponse is one page of recorded runs
type RunListResponse struct {
	Runs   []models.Run `json:"runs"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// HandleListRuns handles GET /api/v1/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	runs, total, err := h.DB.Runs().List(r.Context(), limit, offset)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, RunListResponse{
		Runs:   runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// HandleGetRun handles GET /api/v1/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.DB.Runs().GetByID(r.Context(), id)
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Run not found")
		return
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, run)
}

// HandleDeleteRun handles DELETE /api/v1/runs/{id}
func (h *Handler) HandleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.DB.Runs().Delete(r.Context(), id)
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Run not found")
		return
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.Logger.Info("deleted run", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealthCheck handles GET /health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "connected"

	if err := h.DB.HealthCheck(r.Context()); err != nil {
		h.Logger.Warn("health check failed", zap.Error(err))
		status = "degraded"
		dbStatus = "error"
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"database": dbStatus,
	})
}
