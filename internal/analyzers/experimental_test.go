package analyzers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

func TestGameTheoryRallyOnVolume(t *testing.T) {
	bars := trendBars(30, 10, 0.1, 100000)
	// double the volume into the rally
	for i := 25; i < 30; i++ {
		bars[i].Volume *= 2
	}
	data := &fakeData{klines: map[string][]contracts.Kline{"000001": bars}}
	a := NewGameTheoryAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.Greater(t, res.Score, 50.0)
	assert.False(t, res.Degraded())
	assert.InDelta(t, 0.5, res.Confidence, 0.01)
}

func TestGameTheoryInsufficientHistory(t *testing.T) {
	data := &fakeData{klines: map[string][]contracts.Kline{"000001": trendBars(5, 10, 0.1, 100000)}}
	a := NewGameTheoryAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())
	assert.True(t, res.Degraded())
}

func TestBehaviorOverreactionAfterCrash(t *testing.T) {
	// -3% a day over the last five sessions reads as an overreaction
	bars := trendBars(30, 20, 0, 100000)
	price := 20.0
	for i := 25; i < 30; i++ {
		price *= 0.97
		bars[i].Close = price
		bars[i].High = price + 0.2
		bars[i].Low = price - 0.2
	}
	assert.Equal(t, 75.0, scoreOverreaction(bars))
}

func TestBehaviorFinanceBounds(t *testing.T) {
	data := &fakeData{klines: map[string][]contracts.Kline{"000001": trendBars(30, 10, 0.1, 100000)}}
	a := NewBehaviorFinanceAnalyzer(data, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.InDelta(t, 0.4, res.Confidence, 0.01)
}

func TestMacroPlaceholder(t *testing.T) {
	a := NewMacroAnalyzer()
	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.Equal(t, 50.0, res.Score)
	assert.Equal(t, contracts.SignalHold, res.Signal)
	assert.Equal(t, 0.1, res.Confidence)
	assert.False(t, res.Degraded())
}
