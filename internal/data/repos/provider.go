package repos

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// Provider bundles the repos behind the read interface the analyzers
// consume and the store interface the pipeline persists through. It is
// the one wiring point between the database and the engine.
type Provider struct {
	Stocks          *StockRepo
	Market          *MarketRepo
	Financials      *FinancialRepo
	Articles        *NewsRepo
	Recommendations *RecommendationRepo
}

// NewProvider builds the repo bundle on one shared pool.
func NewProvider(pool *pgxpool.Pool) *Provider {
	return &Provider{
		Stocks:          NewStockRepo(pool),
		Market:          NewMarketRepo(pool),
		Financials:      NewFinancialRepo(pool),
		Articles:        NewNewsRepo(pool),
		Recommendations: NewRecommendationRepo(pool),
	}
}

// Klines returns recent daily bars, oldest first.
func (p *Provider) Klines(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	return p.Market.Klines(ctx, code, days)
}

// MoneyFlows returns recent capital flow rows, oldest first.
func (p *Provider) MoneyFlows(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	return p.Market.MoneyFlows(ctx, code, days)
}

// MarginRows returns recent margin rows, oldest first.
func (p *Provider) MarginRows(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	return p.Market.MarginRows(ctx, code, days)
}

// LatestCloses returns the newest stored close per code.
func (p *Provider) LatestCloses(ctx context.Context, codes []string) (map[string]float64, error) {
	return p.Market.LatestCloses(ctx, codes)
}

// FinancialReports returns the newest reports first.
func (p *Provider) FinancialReports(ctx context.Context, code string, limit int) ([]contracts.FinancialReport, error) {
	return p.Financials.Reports(ctx, code, limit)
}

// News returns recent articles, newest first.
func (p *Provider) News(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	return p.Articles.Recent(ctx, code, days)
}

// MarketBreadth returns the market-wide daily snapshots, oldest first.
func (p *Provider) MarketBreadth(ctx context.Context, days int) ([]contracts.MarketBreadth, error) {
	return p.Market.MarketBreadth(ctx, days)
}

// Stock returns master data for one code.
func (p *Provider) Stock(ctx context.Context, code string) (contracts.StockBasic, error) {
	return p.Stocks.Get(ctx, code)
}

// SectorCodes returns active peers sharing an industry.
func (p *Provider) SectorCodes(ctx context.Context, industry string) ([]string, error) {
	return p.Stocks.SectorCodes(ctx, industry)
}

// UpsertStocks saves a stock list batch.
func (p *Provider) UpsertStocks(ctx context.Context, stocks []contracts.StockBasic) error {
	return p.Stocks.UpsertBatch(ctx, stocks)
}

// ActiveStocks returns active stocks, capped when limit is positive.
func (p *Provider) ActiveStocks(ctx context.Context, limit int) ([]contracts.StockBasic, error) {
	return p.Stocks.List(ctx, limit)
}

// SaveKlines upserts daily bars for one stock.
func (p *Provider) SaveKlines(ctx context.Context, code string, klines []contracts.Kline) error {
	return p.Market.SaveKlines(ctx, code, klines)
}

// SaveMoneyFlows upserts capital flow rows for one stock.
func (p *Provider) SaveMoneyFlows(ctx context.Context, code string, flows []contracts.MoneyFlow) error {
	return p.Market.SaveMoneyFlows(ctx, code, flows)
}

// SaveMarginData upserts margin rows for one stock.
func (p *Provider) SaveMarginData(ctx context.Context, code string, rows []contracts.MarginData) error {
	return p.Market.SaveMarginData(ctx, code, rows)
}

// SaveReports upserts financial report rows for one stock.
func (p *Provider) SaveReports(ctx context.Context, code string, reports []contracts.FinancialReport) error {
	return p.Financials.SaveReports(ctx, code, reports)
}

// SaveArticles upserts news articles for one stock.
func (p *Provider) SaveArticles(ctx context.Context, code string, articles []contracts.NewsArticle) error {
	return p.Articles.SaveArticles(ctx, code, articles)
}

// UnscoredNews returns articles awaiting a sentiment score.
func (p *Provider) UnscoredNews(ctx context.Context, code string, limit int) ([]contracts.NewsArticle, error) {
	return p.Articles.Unscored(ctx, code, limit)
}

// SetNewsSentiment records one article's sentiment score.
func (p *Provider) SetNewsSentiment(ctx context.Context, code, url string, score float64) error {
	return p.Articles.SetSentiment(ctx, code, url, score)
}

// Universe returns the active stocks a pipeline run covers.
func (p *Provider) Universe(ctx context.Context, limit int) ([]contracts.StockBasic, error) {
	return p.Stocks.List(ctx, limit)
}

// SaveRecommendations appends one ranked batch.
func (p *Provider) SaveRecommendations(ctx context.Context, recs []contracts.Recommendation) error {
	return p.Recommendations.SaveBatch(ctx, recs)
}
