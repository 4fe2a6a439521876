package analyzers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

func TestSectorLeaderInHotSector(t *testing.T) {
	data := &fakeData{
		stocks: map[string]contracts.StockBasic{
			"000001": {Code: "000001", Name: "Ping An Bank", Industry: "bank"},
		},
		peers: []string{"000001", "600000", "601398"},
		klines: map[string][]contracts.Kline{
			"000001": trendBars(20, 10, 0.20, 100000), // +38% over window
			"600000": trendBars(20, 10, 0, 100000),    // flat
			"601398": trendBars(20, 10, 0, 100000),    // flat
		},
	}
	a := NewSectorRotationAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	// sector avg return ~12.7% (+35 = 85); no flow data (50); target
	// outruns the sector by ~25 points (+35 = 85)
	expected := 85*0.40 + 50*0.30 + 85*0.30
	assert.InDelta(t, expected, res.Score, 0.01)
	assert.Equal(t, contracts.SignalBuy, res.Signal)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestSectorNoIndustry(t *testing.T) {
	data := &fakeData{
		stocks: map[string]contracts.StockBasic{
			"000001": {Code: "000001", Name: "Ping An Bank"},
		},
	}
	a := NewSectorRotationAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.True(t, res.Degraded())
	assert.Contains(t, res.Explanation, "industry")
}

func TestSectorTooFewPeers(t *testing.T) {
	data := &fakeData{
		stocks: map[string]contracts.StockBasic{
			"000001": {Code: "000001", Industry: "bank"},
		},
		peers: []string{"000001", "600000"},
	}
	a := NewSectorRotationAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.True(t, res.Degraded())
	assert.Contains(t, res.Explanation, "Insufficient stocks in sector")
}

func TestTierShift(t *testing.T) {
	assert.Equal(t, 35.0, tierShift(12))
	assert.Equal(t, 25.0, tierShift(7))
	assert.Equal(t, 15.0, tierShift(3))
	assert.Equal(t, 5.0, tierShift(1))
	assert.Equal(t, -5.0, tierShift(-1))
	assert.Equal(t, -15.0, tierShift(-3))
	assert.Equal(t, -25.0, tierShift(-7))
	assert.Equal(t, -35.0, tierShift(-12))
}
