package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// stubProvider answers kline queries from canned data and reports
// ErrNotSupported for everything else.
type stubProvider struct {
	name   string
	klines []contracts.Kline
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchKline(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.klines, nil
}

func (s *stubProvider) FetchMoneyFlow(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	return nil, ErrNotSupported
}

func (s *stubProvider) FetchNews(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	return nil, ErrNotSupported
}

func (s *stubProvider) FetchFinancialReports(ctx context.Context, code string) ([]contracts.FinancialReport, error) {
	return nil, ErrNotSupported
}

func (s *stubProvider) FetchMarginData(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	return nil, ErrNotSupported
}

func (s *stubProvider) FetchStockList(ctx context.Context) ([]contracts.StockBasic, error) {
	return nil, ErrNotSupported
}

func bar(close float64) contracts.Kline {
	return contracts.Kline{
		Date:  time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		Open:  close,
		High:  close,
		Low:   close,
		Close: close,
	}
}

func TestRouterPrimarySuccess(t *testing.T) {
	primary := &stubProvider{name: "eastmoney", klines: []contracts.Kline{bar(10.5)}}
	backup := &stubProvider{name: "tencent", klines: []contracts.Kline{bar(99)}}
	r := NewRouter(logger.Nop(), primary, backup)

	rows, err := r.FetchKline(context.Background(), "600519", 30)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10.5, rows[0].Close)

	// backup never consulted when the primary answers
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, backup.calls)
}

func TestRouterFallsThroughOnError(t *testing.T) {
	primary := &stubProvider{name: "eastmoney", err: errors.New("connection refused")}
	backup := &stubProvider{name: "tencent", klines: []contracts.Kline{bar(11.2)}}
	r := NewRouter(logger.Nop(), primary, backup)

	rows, err := r.FetchKline(context.Background(), "000001", 30)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 11.2, rows[0].Close)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestRouterEmptyResultCountsAsFailure(t *testing.T) {
	primary := &stubProvider{name: "eastmoney", klines: nil}
	backup := &stubProvider{name: "tencent", klines: []contracts.Kline{bar(7.7)}}
	r := NewRouter(logger.Nop(), primary, backup)

	rows, err := r.FetchKline(context.Background(), "300750", 30)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7.7, rows[0].Close)
}

func TestRouterAllFail(t *testing.T) {
	primary := &stubProvider{name: "eastmoney", err: errors.New("timeout")}
	backup := &stubProvider{name: "tencent", klines: nil}
	r := NewRouter(logger.Nop(), primary, backup)

	rows, err := r.FetchKline(context.Background(), "600519", 30)
	assert.Nil(t, rows)
	require.Error(t, err)
	assert.True(t, contracts.IsDataUnavailable(err))

	var dataErr *contracts.DataUnavailableError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "fetch_kline", dataErr.Operation)
	assert.Equal(t, "600519", dataErr.StockCode)
	assert.Equal(t, "timeout", dataErr.Reasons["eastmoney"])
	assert.Equal(t, "empty result", dataErr.Reasons["tencent"])
}

func TestRouterUnsupportedOperationRecorded(t *testing.T) {
	primary := &stubProvider{name: "eastmoney", err: errors.New("http 502")}
	backup := &stubProvider{name: "tencent"}
	r := NewRouter(logger.Nop(), primary, backup)

	_, err := r.FetchNews(context.Background(), "000001", 7)
	var dataErr *contracts.DataUnavailableError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "operation not supported", dataErr.Reasons["eastmoney"])
	assert.Equal(t, "operation not supported", dataErr.Reasons["tencent"])
}

func TestRouterProviderOrder(t *testing.T) {
	r := NewRouter(logger.Nop(),
		&stubProvider{name: "eastmoney"},
		&stubProvider{name: "tencent"},
		&stubProvider{name: "sina"},
	)
	assert.Equal(t, []string{"eastmoney", "tencent", "sina"}, r.Providers())
}
