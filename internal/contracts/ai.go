package contracts

// NewsInsight is the AI service's digest of a news batch for one stock.
type NewsInsight struct {
	Sentiment float64 `json:"sentiment"` // [-1, 1]
	Summary   string  `json:"summary"`
}

// FactorAssessment is the AI service's adjustment over the other
// dimensions' results.
type FactorAssessment struct {
	AdjustedScore float64  `json:"adjusted_score"` // [0, 100]
	Reasoning     string   `json:"reasoning"`
	RiskFactors   []string `json:"risk_factors,omitempty"`
	Catalysts     []string `json:"catalysts,omitempty"`
}

// FinancialInsight is the AI service's read of a stock's financial
// disclosures.
type FinancialInsight struct {
	Score          float64  `json:"score"` // [0, 100]
	Strengths      []string `json:"strengths,omitempty"`
	Weaknesses     []string `json:"weaknesses,omitempty"`
	Recommendation string   `json:"recommendation"`
}

// AnalysisReport is a narrative report generated from a full score
// result. Financials carries the disclosure read when recent reports
// were available; nil otherwise.
type AnalysisReport struct {
	StockCode      string            `json:"stock_code"`
	StockName      string            `json:"stock_name,omitempty"`
	Summary        string            `json:"summary"`
	Technical      string            `json:"technical"`
	Fundamental    string            `json:"fundamental"`
	Risks          []string          `json:"risks,omitempty"`
	Recommendation string            `json:"recommendation"`
	Financials     *FinancialInsight `json:"financials,omitempty"`
}
