package analyzers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

func TestFundamentalStrongValueStock(t *testing.T) {
	data := &fakeData{
		reports: []contracts.FinancialReport{
			{Period: "2025Q2", PERatio: ptr(8), PBRatio: ptr(0.8), ROE: ptr(25), Revenue: ptr(1300), NetProfit: ptr(260), GrossMargin: ptr(55), DebtRatio: ptr(30)},
			{Period: "2025Q1", PERatio: ptr(9), PBRatio: ptr(0.9), ROE: ptr(24), Revenue: ptr(1000), NetProfit: ptr(200), GrossMargin: ptr(54), DebtRatio: ptr(31)},
		},
	}
	a := NewFundamentalAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "600519", time.Now())

	// valuation 100 (PE<10 = 90, PB<1 bonus +10), quality 90 (ROE>20),
	// growth 85 (both revenue and profit up >20%), margins 95 (GM>50
	// = 85, low debt +10)
	expected := 100*0.30 + 90*0.25 + 85*0.25 + 95*0.20
	assert.InDelta(t, expected, res.Score, 0.01)
	assert.Equal(t, contracts.SignalBuy, res.Signal)
	assert.Equal(t, 1.0, res.Confidence)
	assert.False(t, res.Degraded())
}

func TestFundamentalExpensiveWeakStock(t *testing.T) {
	data := &fakeData{
		reports: []contracts.FinancialReport{
			{Period: "2025Q2", PERatio: ptr(80), ROE: ptr(2), Revenue: ptr(900), NetProfit: ptr(-50), GrossMargin: ptr(10), DebtRatio: ptr(80)},
			{Period: "2025Q1", PERatio: ptr(70), ROE: ptr(3), Revenue: ptr(1000), NetProfit: ptr(40), GrossMargin: ptr(12), DebtRatio: ptr(78)},
		},
	}
	a := NewFundamentalAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "688000", time.Now())

	// valuation 15 (PE>40), quality 15 (ROE<5), growth 25 (both
	// shrinking), margins 20 (GM<15 = 30, heavy debt -10)
	expected := 15*0.30 + 15*0.25 + 25*0.25 + 20*0.20
	assert.InDelta(t, expected, res.Score, 0.01)
	assert.Equal(t, contracts.SignalSell, res.Signal)
}

func TestFundamentalNoReports(t *testing.T) {
	a := NewFundamentalAnalyzer(&fakeData{}, logger.Nop())
	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.True(t, res.Degraded())
	assert.Equal(t, 50.0, res.Score)
	assert.Contains(t, res.Explanation, "No financial report data")
}

func TestFundamentalPartialDisclosure(t *testing.T) {
	data := &fakeData{
		reports: []contracts.FinancialReport{
			{Period: "2025Q2", PERatio: ptr(12)},
		},
	}
	a := NewFundamentalAnalyzer(data, logger.Nop())
	res := a.Analyze(context.Background(), "000001", time.Now())

	// only 1 of 7 fields disclosed
	assert.InDelta(t, 1.0/7.0, res.Confidence, 0.01)
	assert.False(t, res.Degraded())
}

func TestGrowthSubScore(t *testing.T) {
	assert.Equal(t, 85.0, growthSubScore(ptr(130), ptr(100)))
	assert.Equal(t, 70.0, growthSubScore(ptr(115), ptr(100)))
	assert.Equal(t, 50.0, growthSubScore(ptr(105), ptr(100)))
	assert.Equal(t, 25.0, growthSubScore(ptr(90), ptr(100)))
	assert.Equal(t, 50.0, growthSubScore(nil, ptr(100)))
	assert.Equal(t, 50.0, growthSubScore(ptr(100), ptr(0)))
}
