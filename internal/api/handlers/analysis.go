package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vvnuui/cerisier/internal/ai"
	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/pipeline"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// reportFinancials caps the disclosure history fed into the AI report.
const reportFinancials = 8

// FinancialSource supplies recent disclosures for the AI report flow.
type FinancialSource interface {
	FinancialReports(ctx context.Context, code string, limit int) ([]contracts.FinancialReport, error)
}

// AnalysisHandler runs on-demand single-stock analysis and AI reports.
// SSOT: analysis API surface lives in this struct.
type AnalysisHandler struct {
	orchestrator *pipeline.Orchestrator
	aiService    *ai.Service // nil when AI is disabled
	financials   FinancialSource
	logger       *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(orch *pipeline.Orchestrator, aiService *ai.Service, financials FinancialSource, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{orchestrator: orch, aiService: aiService, financials: financials, logger: log}
}

// AnalysisRequest selects the stock and trading style to analyze.
type AnalysisRequest struct {
	StockCode string                 `json:"stock_code"`
	Style     contracts.TradingStyle `json:"style"`
}

func (req *AnalysisRequest) validate() string {
	if req.StockCode == "" {
		return "stock_code is required"
	}
	if req.Style == "" {
		return "style is required"
	}
	for _, s := range contracts.Styles {
		if req.Style == s {
			return ""
		}
	}
	return "unknown style"
}

// Analyze runs the full analyzer suite for one stock and returns the
// recommendation with per-dimension detail.
// POST /api/v1/analysis
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	rec, results, err := h.orchestrator.RunForStock(r.Context(), req.StockCode, req.Style)
	if err != nil {
		if contracts.IsDataUnavailable(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.WithError(err).WithField("stock_code", req.StockCode).Error("Analysis failed")
		respondError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recommendation": rec,
		"dimensions":     results,
	})
}

// Report generates a narrative AI report from a fresh analysis run.
// POST /api/v1/ai/report
func (h *AnalysisHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h.aiService == nil {
		respondError(w, http.StatusServiceUnavailable, "AI is disabled")
		return
	}

	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	rec, results, err := h.orchestrator.RunForStock(r.Context(), req.StockCode, req.Style)
	if err != nil {
		if contracts.IsDataUnavailable(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.WithError(err).WithField("stock_code", req.StockCode).Error("Analysis for report failed")
		respondError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	components := make(map[string]float64, len(results))
	for dim, res := range results {
		components[dim] = res.Score
	}
	sr := contracts.ScoreResult{
		StockCode:       rec.StockCode,
		Style:           rec.Style,
		FinalScore:      rec.Score,
		Signal:          rec.Signal,
		Confidence:      rec.Confidence,
		Explanation:     rec.Explanation,
		ComponentScores: components,
	}

	report, err := h.aiService.GenerateReport(r.Context(), rec.StockCode, rec.StockName, sr)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, contracts.ErrBudgetExhausted) {
			status = http.StatusTooManyRequests
		}
		h.logger.WithError(err).WithField("stock_code", req.StockCode).Warn("AI report failed")
		respondError(w, status, "AI report unavailable")
		return
	}

	report.Financials = h.financialInsight(r.Context(), rec.StockCode, rec.StockName)

	respondJSON(w, http.StatusOK, report)
}

// financialInsight reads recent disclosures through the AI service.
// Failures only cost the report its financials section.
func (h *AnalysisHandler) financialInsight(ctx context.Context, code, name string) *contracts.FinancialInsight {
	reports, err := h.financials.FinancialReports(ctx, code, reportFinancials)
	if err != nil || len(reports) == 0 {
		if err != nil {
			h.logger.WithError(err).WithField("stock_code", code).Warn("Loading financial reports failed")
		}
		return nil
	}

	insight, err := h.aiService.AnalyzeFinancials(ctx, code, name, reports)
	if err != nil {
		h.logger.WithError(err).WithField("stock_code", code).Warn("Financial analysis failed")
		return nil
	}
	return &insight
}
