package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/data/repos"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// WeightsHandler serves the per-style factor weight configuration.
// SSOT: weight API surface lives in this struct.
type WeightsHandler struct {
	repo   *repos.WeightsRepo
	logger *logger.Logger
}

// NewWeightsHandler creates a new weights handler.
func NewWeightsHandler(repo *repos.WeightsRepo, log *logger.Logger) *WeightsHandler {
	return &WeightsHandler{repo: repo, logger: log}
}

// Get returns the effective weight tables for every style.
// GET /api/v1/config/weights
func (h *WeightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tables, err := h.repo.Load(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load weights")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve weights")
		return
	}

	respondJSON(w, http.StatusOK, tables)
}

// Put replaces the stored tables for the styles in the request body.
// Each table must sum to 1 over known dimensions.
// PUT /api/v1/config/weights
func (h *WeightsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var tables map[contracts.TradingStyle]map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&tables); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(tables) == 0 {
		respondError(w, http.StatusBadRequest, "No weight tables provided")
		return
	}

	for style, table := range tables {
		if !knownStyle(style) {
			respondError(w, http.StatusBadRequest, "Unknown style: "+string(style))
			return
		}
		if err := h.repo.Save(r.Context(), style, table); err != nil {
			if errors.Is(err, contracts.ErrInvalidConfig) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.logger.WithError(err).WithField("style", style).Error("Failed to save weights")
			respondError(w, http.StatusInternalServerError, "Failed to save weights")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"updated": len(tables),
	})
}

func knownStyle(style contracts.TradingStyle) bool {
	for _, s := range contracts.Styles {
		if style == s {
			return true
		}
	}
	return false
}
