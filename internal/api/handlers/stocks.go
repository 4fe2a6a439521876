package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/data/repos"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// StockHandler serves stock master data and synced market data.
// SSOT: stock API surface lives in this struct.
type StockHandler struct {
	provider *repos.Provider
	logger   *logger.Logger
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(provider *repos.Provider, log *logger.Logger) *StockHandler {
	return &StockHandler{provider: provider, logger: log}
}

// List returns the active universe.
// GET /api/v1/stocks?limit=
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	stocks, err := h.provider.ActiveStocks(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list stocks")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stocks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(stocks),
		"stocks": stocks,
	})
}

// Get returns master data for one stock.
// GET /api/v1/stocks/{code}
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	stock, err := h.provider.Stock(r.Context(), code)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Stock not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("stock_code", code).Error("Failed to get stock")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stock")
		return
	}

	respondJSON(w, http.StatusOK, stock)
}

// Klines returns recent daily bars, oldest first.
// GET /api/v1/stocks/{code}/klines?days=
func (h *StockHandler) Klines(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	days := queryDays(r, 120)

	klines, err := h.provider.Klines(r.Context(), code, days)
	if err != nil {
		h.logger.WithError(err).WithField("stock_code", code).Error("Failed to load klines")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve klines")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"count":      len(klines),
		"klines":     klines,
	})
}

// MoneyFlow returns recent capital flow rows, oldest first.
// GET /api/v1/stocks/{code}/moneyflow?days=
func (h *StockHandler) MoneyFlow(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	days := queryDays(r, 60)

	flows, err := h.provider.MoneyFlows(r.Context(), code, days)
	if err != nil {
		h.logger.WithError(err).WithField("stock_code", code).Error("Failed to load money flow")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve money flow")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"count":      len(flows),
		"money_flow": flows,
	})
}

// Financials returns the newest report snapshots first.
// GET /api/v1/stocks/{code}/financials?limit=
func (h *StockHandler) Financials(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	limit := 8
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	reports, err := h.provider.FinancialReports(r.Context(), code, limit)
	if err != nil {
		h.logger.WithError(err).WithField("stock_code", code).Error("Failed to load financials")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve financials")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"count":      len(reports),
		"reports":    reports,
	})
}

// News returns recent articles, newest first.
// GET /api/v1/stocks/{code}/news?days=
func (h *StockHandler) News(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	days := queryDays(r, 7)

	articles, err := h.provider.News(r.Context(), code, days)
	if err != nil {
		h.logger.WithError(err).WithField("stock_code", code).Error("Failed to load news")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve news")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"count":      len(articles),
		"articles":   articles,
	})
}

// queryDays parses the days query parameter with a fallback.
func queryDays(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("days")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
