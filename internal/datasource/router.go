package datasource

import (
	"context"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// Router exposes the provider capability set over an ordered provider
// list. On provider error, timeout, or empty result it falls through to
// the next provider; when every provider fails the query returns a
// DataUnavailableError carrying the per-provider reasons.
type Router struct {
	providers []Provider
	logger    *logger.Logger
}

// NewRouter creates a router. Provider order is failover priority:
// primary first, supplementary after.
func NewRouter(log *logger.Logger, providers ...Provider) *Router {
	return &Router{
		providers: providers,
		logger:    log.WithComponent("datasource"),
	}
}

// Providers returns the configured provider names in failover order.
func (r *Router) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// fetch runs one query over the provider chain. get returns the row
// count so empty results count as failures.
func (r *Router) fetch(ctx context.Context, op, code string, get func(Provider) (int, error)) error {
	reasons := make(map[string]string, len(r.providers))

	for _, p := range r.providers {
		n, err := get(p)
		if err == nil && n > 0 {
			return nil
		}

		if err == nil {
			err = ErrEmptyResult
		}
		reasons[p.Name()] = err.Error()

		r.logger.WithFields(map[string]interface{}{
			"provider":   p.Name(),
			"operation":  op,
			"stock_code": code,
			"reason":     err.Error(),
		}).Warn("Provider failed, falling through")
	}

	return &contracts.DataUnavailableError{
		Operation: op,
		StockCode: code,
		Reasons:   reasons,
	}
}

// FetchKline returns up to days daily bars for code, oldest first.
func (r *Router) FetchKline(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	var out []contracts.Kline
	err := r.fetch(ctx, "fetch_kline", code, func(p Provider) (int, error) {
		rows, err := p.FetchKline(ctx, code, days)
		out = rows
		return len(rows), err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchMoneyFlow returns up to days daily money flow rows, oldest first.
func (r *Router) FetchMoneyFlow(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	var out []contracts.MoneyFlow
	err := r.fetch(ctx, "fetch_money_flow", code, func(p Provider) (int, error) {
		rows, err := p.FetchMoneyFlow(ctx, code, days)
		out = rows
		return len(rows), err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchNews returns recent news articles for code.
func (r *Router) FetchNews(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	var out []contracts.NewsArticle
	err := r.fetch(ctx, "fetch_news", code, func(p Provider) (int, error) {
		rows, err := p.FetchNews(ctx, code, days)
		out = rows
		return len(rows), err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchFinancialReports returns recent report snapshots, newest first.
func (r *Router) FetchFinancialReports(ctx context.Context, code string) ([]contracts.FinancialReport, error) {
	var out []contracts.FinancialReport
	err := r.fetch(ctx, "fetch_financial_report", code, func(p Provider) (int, error) {
		rows, err := p.FetchFinancialReports(ctx, code)
		out = rows
		return len(rows), err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchMarginData returns up to days margin trading rows, oldest first.
func (r *Router) FetchMarginData(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	var out []contracts.MarginData
	err := r.fetch(ctx, "fetch_margin_data", code, func(p Provider) (int, error) {
		rows, err := p.FetchMarginData(ctx, code, days)
		out = rows
		return len(rows), err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchStockList returns the active stock universe.
func (r *Router) FetchStockList(ctx context.Context) ([]contracts.StockBasic, error) {
	var out []contracts.StockBasic
	err := r.fetch(ctx, "fetch_stock_list", "", func(p Provider) (int, error) {
		rows, err := p.FetchStockList(ctx)
		out = rows
		return len(rows), err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
