package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/data/repos"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// RecommendationHandler serves pipeline output.
// SSOT: recommendation API surface lives in this struct.
type RecommendationHandler struct {
	repo   *repos.RecommendationRepo
	logger *logger.Logger
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(repo *repos.RecommendationRepo, log *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{repo: repo, logger: log}
}

// List returns the latest recommendation per stock.
// GET /api/v1/recommendations?style=&signal=&min_score=&limit=
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repos.Filter{
		Style:  contracts.TradingStyle(q.Get("style")),
		Signal: contracts.Signal(q.Get("signal")),
	}
	if v := q.Get("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid min_score")
			return
		}
		filter.MinScore = score
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	recs, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list recommendations")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve recommendations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":           len(recs),
		"recommendations": recs,
	})
}

// History returns all persisted rows for one stock, newest first.
// GET /api/v1/recommendations/{code}/history?limit=
func (h *RecommendationHandler) History(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	recs, err := h.repo.History(r.Context(), code, limit)
	if err != nil {
		h.logger.WithError(err).WithField("stock_code", code).Error("Failed to load history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code":      code,
		"count":           len(recs),
		"recommendations": recs,
	})
}
