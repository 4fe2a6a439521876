package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/httputil"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// TencentProvider is a kline-only backup source. All other operations
// report ErrNotSupported so the router falls through cleanly.
type TencentProvider struct {
	client  *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewTencentProvider creates the kline backup provider.
func NewTencentProvider(cfg *config.Config, client *httputil.Client, log *logger.Logger) *TencentProvider {
	return &TencentProvider{
		client:  client,
		baseURL: cfg.DataSource.TencentURL,
		logger:  log.WithComponent("tencent"),
	}
}

// Name implements Provider.
func (p *TencentProvider) Name() string { return "tencent" }

// FetchKline returns forward-adjusted daily bars, oldest first.
func (p *TencentProvider) FetchKline(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	if days <= 0 || days > 800 {
		days = 800
	}

	symbol := marketPrefix(code)
	url := fmt.Sprintf("%s/appstock/app/fqkline/get?param=%s,day,,,%d,qfq", p.baseURL, symbol, days)

	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// Adjusted series lives under "qfqday", unadjusted under "day"
	rows := gjson.GetBytes(body, fmt.Sprintf("data.%s.qfqday", symbol))
	if !rows.Exists() || !rows.IsArray() {
		rows = gjson.GetBytes(body, fmt.Sprintf("data.%s.day", symbol))
	}
	if !rows.Exists() || !rows.IsArray() {
		return nil, ErrEmptyResult
	}

	out := make([]contracts.Kline, 0, len(rows.Array()))
	for _, v := range rows.Array() {
		// [date, open, close, high, low, volume]
		fields := v.Array()
		if len(fields) < 6 {
			continue
		}

		date, err := time.Parse("2006-01-02", fields[0].String())
		if err != nil {
			continue
		}

		closeVal := fields[2].Float()
		// Tencent reports volume in lots (100 shares)
		volume := int64(fields[5].Float() * 100)

		out = append(out, contracts.Kline{
			Date:   date,
			Open:   fields[1].Float(),
			High:   fields[3].Float(),
			Low:    fields[4].Float(),
			Close:  closeVal,
			Volume: volume,
			Amount: closeVal * float64(volume),
		})
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

// FetchMoneyFlow implements Provider.
func (p *TencentProvider) FetchMoneyFlow(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	return nil, ErrNotSupported
}

// FetchNews implements Provider.
func (p *TencentProvider) FetchNews(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	return nil, ErrNotSupported
}

// FetchFinancialReports implements Provider.
func (p *TencentProvider) FetchFinancialReports(ctx context.Context, code string) ([]contracts.FinancialReport, error) {
	return nil, ErrNotSupported
}

// FetchMarginData implements Provider.
func (p *TencentProvider) FetchMarginData(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	return nil, ErrNotSupported
}

// FetchStockList implements Provider.
func (p *TencentProvider) FetchStockList(ctx context.Context) ([]contracts.StockBasic, error) {
	return nil, ErrNotSupported
}
