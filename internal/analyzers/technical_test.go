package analyzers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

func TestTechnicalUptrend(t *testing.T) {
	data := &fakeData{
		klines: map[string][]contracts.Kline{
			"600519": trendBars(120, 10, 0.15, 100000),
		},
	}
	a := NewTechnicalAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "600519", time.Now())

	assert.Greater(t, res.Score, 50.0)
	assert.False(t, res.Degraded())
	assert.Greater(t, res.Confidence, 0.0)
	assert.NotEmpty(t, res.Explanation)
	assert.Len(t, res.Details, 6)
}

func TestTechnicalDowntrend(t *testing.T) {
	data := &fakeData{
		klines: map[string][]contracts.Kline{
			"600519": trendBars(120, 30, -0.15, 100000),
		},
	}
	a := NewTechnicalAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "600519", time.Now())

	assert.Less(t, res.Score, 50.0)
}

func TestTechnicalInsufficientHistory(t *testing.T) {
	data := &fakeData{
		klines: map[string][]contracts.Kline{
			"600519": trendBars(20, 10, 0.1, 100000),
		},
	}
	a := NewTechnicalAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "600519", time.Now())

	assert.True(t, res.Degraded())
	assert.Contains(t, res.Explanation, "Insufficient kline history")
}

func TestScoreMAPerfectAlignment(t *testing.T) {
	// A long steady uptrend keeps the close above every MA and stacks
	// MA5 > MA10 > MA20: 50 + 4*8 + 10 = 92.
	bars := trendBars(120, 10, 0.1, 100000)
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	assert.Equal(t, 92.0, scoreMA(closes))
}

func TestScoreMACDTrendDirection(t *testing.T) {
	up := make([]float64, 60)
	down := make([]float64, 60)
	for i := range up {
		up[i] = 10 + float64(i)*0.2
		down[i] = 25 - float64(i)*0.2
	}

	// steady uptrend: DIF > 0, DIF > DEA, positive histogram
	assert.Greater(t, scoreMACD(up), 50.0)
	assert.Less(t, scoreMACD(down), 50.0)
}

func TestScoreVolumeExpansionConfirmsRally(t *testing.T) {
	closes := make([]float64, 30)
	volumes := make([]float64, 30)
	for i := range closes {
		closes[i] = 10 + float64(i)*0.1
		volumes[i] = 100000
	}
	// double the volume in the last five sessions
	for i := 25; i < 30; i++ {
		volumes[i] = 200000
	}
	assert.Equal(t, 70.0, scoreVolume(closes, volumes))
}

func TestScoreVolumeExpansionOnSelloff(t *testing.T) {
	closes := make([]float64, 30)
	volumes := make([]float64, 30)
	for i := range closes {
		closes[i] = 20 - float64(i)*0.1
		volumes[i] = 100000
	}
	for i := 25; i < 30; i++ {
		volumes[i] = 200000
	}
	assert.Equal(t, 35.0, scoreVolume(closes, volumes))
}
