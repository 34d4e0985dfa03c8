package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"tour-stitcher/internal/models"
	"tour-stitcher/internal/problem"
	"tour-stitcher/internal/routing"
)

// TourResponse is an assembled tour, with the id of its stored run when it was recorded
type TourResponse struct {
	models.Result
	RunID string `json:"run_id,omitempty"`
}

// HandleCreateTour handles POST /api/v1/tours.
// The body is a problem in the exchange format. Query parameters:
// record=true stores the run, format=text answers in the exchange format instead of JSON.
func (h *Handler) HandleCreateTour(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)

	points, err := problem.Parse(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Problem exceeds the request size limit", map[string]int64{
				"limit_bytes": tooLarge.Limit,
			})
			return
		}
		h.Logger.Debug("rejected problem", zap.Error(err))
		h.handleValidationError(w, err.Error())
		return
	}

	record, _ := strconv.ParseBool(r.URL.Query().Get("record"))

	h.Logger.Info("assembling tour", zap.Int("points", len(points)), zap.Bool("record", record))
	result, err := h.Assembler.Assemble(r.Context(), points)
	if err != nil {
		h.handleAssemblyError(w, err)
		return
	}

	resp := TourResponse{Result: *result}
	if record {
		run, err := h.DB.Runs().Create(r.Context(), &models.Run{
			PointCount: len(points),
			Clusters:   result.Clusters,
			Length:     result.Length,
			Optimal:    result.Optimal,
			Tour:       result.Tour,
		})
		if err != nil {
			h.handleInternalError(w, err)
			return
		}
		resp.RunID = run.ID
		h.Logger.Info("recorded run", zap.String("id", run.ID))
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if resp.RunID != "" {
			w.Header().Set("X-Run-ID", resp.RunID)
		}
		w.WriteHeader(http.StatusOK)
		if err := problem.WriteSolution(w, result); err != nil {
			h.Logger.Warn("failed to write solution", zap.Error(err))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAssemblyError(w http.ResponseWriter, err error) {
	var violation *routing.ErrContractViolation
	switch {
	case errors.As(err, &violation):
		h.Logger.Error("solver broke its contract", zap.String("cluster", violation.Cluster), zap.Error(err))
		h.writeError(w, http.StatusUnprocessableEntity, "SOLVER_CONTRACT_VIOLATION", violation.Reason, map[string]string{
			"cluster": violation.Cluster,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusServiceUnavailable, "CANCELLED", "Tour assembly was cancelled", nil)
	default:
		h.handleInternalError(w, err)
	}
}
