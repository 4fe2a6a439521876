package contracts

import "time"

// StockBasic represents A-share stock master data.
// SSOT: stock identity is keyed by exchange code (e.g. "000001", "600519").
type StockBasic struct {
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Industry string     `json:"industry"`
	Sector   string     `json:"sector"`
	Market   string     `json:"market"` // SH or SZ
	ListDate *time.Time `json:"list_date,omitempty"`
	IsActive bool       `json:"is_active"`
}

// Kline is one daily OHLCV bar. Dates are strictly increasing within a
// series; High >= max(Open, Close) and Low <= min(Open, Close).
type Kline struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Amount    float64   `json:"amount"`
	Turnover  *float64  `json:"turnover,omitempty"`   // percent
	ChangePct *float64  `json:"change_pct,omitempty"` // percent
}

// MoneyFlow is one daily capital flow record, net amounts in yuan.
type MoneyFlow struct {
	Date     time.Time `json:"date"`
	MainNet  float64   `json:"main_net"`
	HugeNet  float64   `json:"huge_net"`
	BigNet   float64   `json:"big_net"`
	MidNet   float64   `json:"mid_net"`
	SmallNet float64   `json:"small_net"`
}

// MarginData is one daily margin trading record.
type MarginData struct {
	Date          time.Time `json:"date"`
	MarginBalance float64   `json:"margin_balance"`
	ShortBalance  float64   `json:"short_balance"`
	MarginBuy     float64   `json:"margin_buy"`
	MarginRepay   float64   `json:"margin_repay"`
}

// FinancialReport is one quarterly or annual report snapshot.
// Nil pointers mean the field was not disclosed.
type FinancialReport struct {
	Period      string     `json:"period"` // e.g. "2025Q2", "2024A"
	PERatio     *float64   `json:"pe_ratio,omitempty"`
	PBRatio     *float64   `json:"pb_ratio,omitempty"`
	ROE         *float64   `json:"roe,omitempty"`
	Revenue     *float64   `json:"revenue,omitempty"`
	NetProfit   *float64   `json:"net_profit,omitempty"`
	GrossMargin *float64   `json:"gross_margin,omitempty"`
	DebtRatio   *float64   `json:"debt_ratio,omitempty"`
	ReportDate  *time.Time `json:"report_date,omitempty"`
}

// NewsArticle is one financial news item, optionally pre-scored.
// SentimentScore is in [-1, 1] when present.
type NewsArticle struct {
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Source         string    `json:"source"`
	URL            string    `json:"url"`
	SentimentScore *float64  `json:"sentiment_score,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
}

// MarketBreadth is a market-wide daily snapshot used by the sentiment
// analyzer: advance/decline counts, limit moves, and aggregate turnover.
type MarketBreadth struct {
	Date        time.Time `json:"date"`
	Advances    int       `json:"advances"`
	Declines    int       `json:"declines"`
	LimitUp     int       `json:"limit_up"`
	LimitDown   int       `json:"limit_down"`
	AvgTurnover float64   `json:"avg_turnover"` // percent
}
