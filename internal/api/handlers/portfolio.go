package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/simulator"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// PortfolioHandler serves the paper trading API.
// SSOT: portfolio API surface lives in this struct.
type PortfolioHandler struct {
	engine *simulator.Engine
	store  simulator.Store
	prices simulator.PriceSource
	logger *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler.
func NewPortfolioHandler(engine *simulator.Engine, store simulator.Store, prices simulator.PriceSource, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{engine: engine, store: store, prices: prices, logger: log}
}

// CreateRequest opens a new paper account.
type CreateRequest struct {
	Name           string  `json:"name"`
	InitialCapital float64 `json:"initial_capital"`
}

// Create opens a paper trading portfolio.
// POST /api/v1/portfolios
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.InitialCapital <= 0 {
		respondError(w, http.StatusBadRequest, "initial_capital must be positive")
		return
	}

	p, err := h.store.CreatePortfolio(r.Context(), req.Name, req.InitialCapital)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to create portfolio")
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// List returns all portfolios.
// GET /api/v1/portfolios
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.store.Portfolios(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list portfolios")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve portfolios")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(portfolios),
		"portfolios": portfolios,
	})
}

// Get returns one portfolio valued at current position marks.
// GET /api/v1/portfolios/{id}
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}

	summary, err := h.engine.Summarize(r.Context(), id)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Error("Failed to summarize portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve portfolio")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Delete deactivates a portfolio. Positions, trades and metrics stay
// readable afterwards.
// DELETE /api/v1/portfolios/{id}
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}

	err := h.store.DeactivatePortfolio(r.Context(), id)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Error("Failed to deactivate portfolio")
		respondError(w, http.StatusInternalServerError, "Failed to deactivate portfolio")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TradeRequest is one buy or sell order.
type TradeRequest struct {
	StockCode string              `json:"stock_code"`
	Type      contracts.TradeType `json:"trade_type"`
	Shares    int64               `json:"shares"`
	Price     float64             `json:"price"`
	Reason    string              `json:"reason"`
}

// Trade executes a paper order against the portfolio.
// POST /api/v1/portfolios/{id}/trades
func (h *PortfolioHandler) Trade(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StockCode == "" {
		respondError(w, http.StatusBadRequest, "stock_code is required")
		return
	}

	var (
		trade contracts.Trade
		err   error
	)
	switch req.Type {
	case contracts.TradeBuy:
		trade, err = h.engine.Buy(r.Context(), id, req.StockCode, req.Shares, req.Price, req.Reason)
	case contracts.TradeSell:
		trade, err = h.engine.Sell(r.Context(), id, req.StockCode, req.Shares, req.Price, req.Reason)
	default:
		respondError(w, http.StatusBadRequest, "trade_type must be BUY or SELL")
		return
	}

	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, trade)
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contracts.ErrInsufficientFunds),
		errors.Is(err, contracts.ErrInsufficientShares):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contracts.ErrPortfolioInactive):
		respondError(w, http.StatusConflict, err.Error())
	default:
		// order validation failures read better verbatim
		h.logger.WithError(err).WithField("portfolio_id", id).Warn("Trade rejected")
		respondError(w, http.StatusBadRequest, err.Error())
	}
}

// Positions returns current holdings.
// GET /api/v1/portfolios/{id}/positions
func (h *PortfolioHandler) Positions(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}

	positions, err := h.store.Positions(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Error("Failed to list positions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve positions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(positions),
		"positions": positions,
	})
}

// Trades returns the execution history, oldest first.
// GET /api/v1/portfolios/{id}/trades
func (h *PortfolioHandler) Trades(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}

	trades, err := h.store.Trades(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Error("Failed to list trades")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve trades")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// Performance returns the daily metric history, date ascending.
// GET /api/v1/portfolios/{id}/performance
func (h *PortfolioHandler) Performance(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}

	metrics, err := h.store.Metrics(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Error("Failed to load metrics")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve performance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(metrics),
		"metrics": metrics,
	})
}

// CalculatePerformance recomputes today's metric row.
// POST /api/v1/portfolios/{id}/calculate-performance
func (h *PortfolioHandler) CalculatePerformance(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}

	if err := h.engine.MarkToMarket(r.Context(), id, h.prices); err != nil {
		// stale marks are recoverable, the metric is still computed
		h.logger.WithError(err).WithField("portfolio_id", id).Warn("Mark to market failed")
	}

	metric, err := h.engine.CalculatePerformance(r.Context(), id, time.Now())
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Error("Performance calculation failed")
		respondError(w, http.StatusInternalServerError, "Failed to calculate performance")
		return
	}

	respondJSON(w, http.StatusOK, metric)
}

// portfolioID parses the {id} path variable, writing a 400 on failure.
func portfolioID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid portfolio id")
		return 0, false
	}
	return id, true
}
