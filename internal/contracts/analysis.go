package contracts

import "time"

// Signal is a trade direction produced by analyzers and the scorer.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// TradingStyle selects the weight table and risk parameters.
type TradingStyle string

const (
	StyleUltraShort TradingStyle = "ultra_short" // 1-3 day horizon
	StyleSwing      TradingStyle = "swing"       // 1-4 week horizon
	StyleMidLong    TradingStyle = "mid_long"    // 1-6 month horizon
)

// Styles lists all trading styles in a fixed order.
var Styles = []TradingStyle{StyleUltraShort, StyleSwing, StyleMidLong}

// Valid reports whether the style is one of the known values.
func (s TradingStyle) Valid() bool {
	switch s {
	case StyleUltraShort, StyleSwing, StyleMidLong:
		return true
	}
	return false
}

// Analyzer dimension names.
// SSOT: the closed set of scoring dimensions; weight tables and the
// analyzer registry are both keyed by these.
const (
	DimTechnical       = "technical"
	DimFundamental     = "fundamental"
	DimMoneyFlow       = "money_flow"
	DimChip            = "chip"
	DimSentiment       = "sentiment"
	DimSectorRotation  = "sector_rotation"
	DimGameTheory      = "game_theory"
	DimBehaviorFinance = "behavior_finance"
	DimMacro           = "macro"
	DimNews            = "news"
	DimAI              = "ai"
)

// Dimensions lists every analyzer dimension in registry order.
var Dimensions = []string{
	DimTechnical,
	DimFundamental,
	DimMoneyFlow,
	DimChip,
	DimSentiment,
	DimSectorRotation,
	DimGameTheory,
	DimBehaviorFinance,
	DimMacro,
	DimNews,
	DimAI,
}

// AnalysisResult is the output of one analyzer for one stock.
// Score is in [0, 100], Confidence in [0, 1]. A degraded analyzer
// returns Score 50 and Confidence 0 with an explanation naming the
// missing input; it never surfaces an error.
type AnalysisResult struct {
	StockCode   string             `json:"stock_code"`
	Dimension   string             `json:"dimension"`
	Score       float64            `json:"score"`
	Signal      Signal             `json:"signal"`
	Confidence  float64            `json:"confidence"`
	Explanation string             `json:"explanation"`
	Details     map[string]float64 `json:"details,omitempty"`
}

// Degraded reports whether this result came from the soft-failure path.
func (r AnalysisResult) Degraded() bool {
	return r.Confidence == 0
}

// NeutralResult builds the degraded result for a missing input.
func NeutralResult(code, dimension, explanation string) AnalysisResult {
	return AnalysisResult{
		StockCode:   code,
		Dimension:   dimension,
		Score:       50,
		Signal:      SignalHold,
		Confidence:  0,
		Explanation: explanation,
	}
}

// SignalFromScore maps a [0,100] score onto a direction using the
// conventional 70/30 bands.
func SignalFromScore(score float64) Signal {
	switch {
	case score >= 70:
		return SignalBuy
	case score <= 30:
		return SignalSell
	default:
		return SignalHold
	}
}

// ScoreResult is the composite output of the multi-factor scorer.
type ScoreResult struct {
	StockCode       string                    `json:"stock_code"`
	Style           TradingStyle              `json:"style"`
	FinalScore      float64                   `json:"final_score"`
	Signal          Signal                    `json:"signal"`
	Confidence      float64                   `json:"confidence"`
	Explanation     string                    `json:"explanation"`
	ComponentScores map[string]float64        `json:"component_scores"`
	Results         map[string]AnalysisResult `json:"-"`
}

// Recommendation is one immutable pipeline output row. Reruns for the
// same (stock, style, date) append new timestamped rows.
type Recommendation struct {
	ID          int64        `json:"id,omitempty"`
	StockCode   string       `json:"stock_code"`
	StockName   string       `json:"stock_name,omitempty"`
	Style       TradingStyle `json:"style"`
	Score       float64      `json:"score"`
	Signal      Signal       `json:"signal"`
	Confidence  float64      `json:"confidence"`
	EntryPrice  float64      `json:"entry_price"`
	StopLoss    float64      `json:"stop_loss"`
	TakeProfit  []float64    `json:"take_profit"`
	PositionPct float64      `json:"position_pct"`
	Explanation string       `json:"explanation"`
	CreatedAt   time.Time    `json:"created_at"`
}
