// Package datasource normalizes market data from external providers and
// routes each query over an ordered provider list with failover.
package datasource

import (
	"context"
	"errors"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// ErrNotSupported marks an operation a provider does not implement.
// The router records it as a failure reason and falls through.
var ErrNotSupported = errors.New("operation not supported")

// ErrEmptyResult marks a provider response that parsed but carried no
// rows. Treated the same as a failure by the router.
var ErrEmptyResult = errors.New("empty result")

// Provider is one market data origin. All providers normalize to the
// shared contract shapes regardless of their wire format.
type Provider interface {
	Name() string

	FetchKline(ctx context.Context, code string, days int) ([]contracts.Kline, error)
	FetchMoneyFlow(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error)
	FetchNews(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error)
	FetchFinancialReports(ctx context.Context, code string) ([]contracts.FinancialReport, error)
	FetchMarginData(ctx context.Context, code string, days int) ([]contracts.MarginData, error)
	FetchStockList(ctx context.Context) ([]contracts.StockBasic, error)
}

// secID converts an exchange code to the EastMoney secid format:
// "1.600519" for Shanghai, "0.000001" for Shenzhen.
func secID(code string) string {
	if code == "" {
		return "0.000000"
	}
	if code[0] == '6' || code[0] == '5' || code[0] == '9' {
		return "1." + code
	}
	return "0." + code
}

// marketPrefix returns the lowercase exchange prefix used by the
// Tencent and Sina quote endpoints ("sh600519", "sz000001").
func marketPrefix(code string) string {
	if code == "" {
		return "sz" + code
	}
	if code[0] == '6' || code[0] == '5' || code[0] == '9' {
		return "sh" + code
	}
	return "sz" + code
}
