package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// lossRanges holds the per-style stop-loss percentage bands. The
// realized loss percent moves toward the wide end as confidence drops.
var lossRanges = map[contracts.TradingStyle][2]float64{
	contracts.StyleUltraShort: {3, 5},
	contracts.StyleSwing:      {5, 8},
	contracts.StyleMidLong:    {8, 15},
}

// takeProfitLevels is the number of laddered targets per signal.
const takeProfitLevels = 3

// SignalGenerator converts composite scores into recommendations with
// price levels and position sizing.
type SignalGenerator struct {
	buyThreshold   float64
	sellThreshold  float64
	maxPositionPct float64
	logger         *logger.Logger
}

// NewSignalGenerator creates the generator from engine configuration.
func NewSignalGenerator(cfg config.EngineConfig, log *logger.Logger) *SignalGenerator {
	return &SignalGenerator{
		buyThreshold:   cfg.BuyThreshold,
		sellThreshold:  cfg.SellThreshold,
		maxPositionPct: cfg.MaxPositionPct,
		logger:         log.WithComponent("signal"),
	}
}

// Generate builds a recommendation from a composite score, the
// renormalized weights used to produce it, and the latest close.
func (g *SignalGenerator) Generate(sr contracts.ScoreResult, weights map[string]float64, entryPrice float64) contracts.Recommendation {
	now := time.Now()

	if entryPrice <= 0 {
		return contracts.Recommendation{
			StockCode:   sr.StockCode,
			Style:       sr.Style,
			Score:       sr.FinalScore,
			Signal:      contracts.SignalHold,
			Confidence:  0,
			Explanation: "No price data available for signal generation",
			CreatedAt:   now,
		}
	}

	action := g.decide(sr, weights)

	lossPct := g.lossPct(sr.Style, sr.Confidence)
	stopLoss := contracts.Round2(entryPrice * (1 + lossPct/100))

	takeProfit := make([]float64, 0, takeProfitLevels)
	for k := 1; k <= takeProfitLevels; k++ {
		takeProfit = append(takeProfit, contracts.Round2(entryPrice*(1+float64(k)*math.Abs(lossPct)/100)))
	}

	positionPct := 0.0
	if action != contracts.SignalHold {
		positionPct = contracts.Round2(math.Min(g.maxPositionPct, sr.Confidence*sr.FinalScore))
	}

	return contracts.Recommendation{
		StockCode:   sr.StockCode,
		Style:       sr.Style,
		Score:       sr.FinalScore,
		Signal:      action,
		Confidence:  sr.Confidence,
		EntryPrice:  contracts.Round2(entryPrice),
		StopLoss:    stopLoss,
		TakeProfit:  takeProfit,
		PositionPct: positionPct,
		Explanation: g.buildReason(action, sr, weights),
		CreatedAt:   now,
	}
}

// decide applies the threshold-plus-majority rule: BUY needs the
// composite above the buy threshold AND a bullish weighted majority;
// SELL triggers on either a composite below the sell threshold OR a
// bearish weighted majority.
func (g *SignalGenerator) decide(sr contracts.ScoreResult, weights map[string]float64) contracts.Signal {
	var bullWeight, bearWeight, total float64
	for dim, w := range weights {
		r, ok := sr.Results[dim]
		if !ok {
			continue
		}
		total += w
		switch r.Signal {
		case contracts.SignalBuy:
			bullWeight += w
		case contracts.SignalSell:
			bearWeight += w
		}
	}

	majorityBull := total > 0 && bullWeight > total/2
	majorityBear := total > 0 && bearWeight > total/2

	switch {
	case sr.FinalScore >= g.buyThreshold && majorityBull:
		return contracts.SignalBuy
	case sr.FinalScore <= g.sellThreshold || majorityBear:
		return contracts.SignalSell
	}
	return contracts.SignalHold
}

// lossPct picks the stop distance inside the style band: full
// confidence sits at the tight end, zero confidence at the wide end.
func (g *SignalGenerator) lossPct(style contracts.TradingStyle, confidence float64) float64 {
	band, ok := lossRanges[style]
	if !ok {
		band = lossRanges[contracts.StyleSwing]
	}
	c := math.Max(0, math.Min(1, confidence))
	return -(band[0] + (band[1]-band[0])*(1-c))
}

// buildReason names the top weighted contributors with their own
// explanations.
func (g *SignalGenerator) buildReason(action contracts.Signal, sr contracts.ScoreResult, weights map[string]float64) string {
	type entry struct {
		dim          string
		contribution float64
	}
	entries := make([]entry, 0, len(sr.Results))
	for dim, r := range sr.Results {
		entries = append(entries, entry{dim, weights[dim] * math.Abs(r.Score-50)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].contribution != entries[j].contribution {
			return entries[i].contribution > entries[j].contribution
		}
		return entries[i].dim < entries[j].dim
	})

	limit := 3
	if len(entries) < limit {
		limit = len(entries)
	}

	reason := fmt.Sprintf("%s (%s, score %.1f)", action, sr.Style, sr.FinalScore)
	for _, e := range entries[:limit] {
		r := sr.Results[e.dim]
		reason += fmt.Sprintf("; %s %.0f: %s", e.dim, r.Score, r.Explanation)
	}
	return reason
}
