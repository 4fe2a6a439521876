package analyzers

import (
	"context"
	"math"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

var sectorWeights = map[string]float64{
	"sector_momentum":   0.40,
	"sector_flow":       0.30,
	"relative_strength": 0.30,
}

// maxSectorPeers bounds the per-stock query fan-out for large sectors.
const maxSectorPeers = 30

// SectorRotationAnalyzer compares the stock against its industry peers:
// sector momentum, sector capital flow, and relative strength.
type SectorRotationAnalyzer struct {
	data     DataProvider
	lookback int
	logger   *logger.Logger
}

// NewSectorRotationAnalyzer creates the sector rotation analyzer.
func NewSectorRotationAnalyzer(data DataProvider, log *logger.Logger) *SectorRotationAnalyzer {
	return &SectorRotationAnalyzer{
		data:     data,
		lookback: 20,
		logger:   log.WithComponent("analyzer.sector_rotation"),
	}
}

// Name implements Analyzer.
func (a *SectorRotationAnalyzer) Name() string { return contracts.DimSectorRotation }

// Analyze implements Analyzer.
func (a *SectorRotationAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	stock, err := a.data.Stock(ctx, code)
	if err != nil {
		return contracts.NeutralResult(code, contracts.DimSectorRotation,
			"Stock not found for sector analysis")
	}
	if stock.Industry == "" {
		return contracts.NeutralResult(code, contracts.DimSectorRotation,
			"Stock has no industry classification")
	}

	peers, err := a.data.SectorCodes(ctx, stock.Industry)
	if err != nil || len(peers) < 3 {
		return contracts.NeutralResult(code, contracts.DimSectorRotation,
			"Insufficient stocks in sector for analysis")
	}
	if len(peers) > maxSectorPeers {
		peers = peers[:maxSectorPeers]
	}

	returns := a.sectorReturns(ctx, peers)
	if len(returns) < 3 {
		return contracts.NeutralResult(code, contracts.DimSectorRotation,
			"Insufficient kline data in sector for analysis")
	}

	targetReturn, hasTarget := returns[code]

	components := map[string]float64{
		"sector_momentum":   scoreSectorMomentum(returns),
		"sector_flow":       a.scoreSectorFlow(ctx, peers),
		"relative_strength": scoreRelativeStrength(targetReturn, hasTarget, returns),
	}

	final := weighted(components, sectorWeights)
	sig := contracts.SignalFromScore(final)

	coverage := float64(len(returns)) / float64(len(peers))
	confidence := contracts.Round2(math.Min(1, coverage))

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimSectorRotation,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  confidence,
		Explanation: explain(components, sig, "Bullish sector rotation", "Bearish sector rotation", "Mixed sector signals", "neutral sector positioning"),
		Details:     components,
	}
}

// sectorReturns computes the lookback return for each peer with at
// least 10 days of data.
func (a *SectorRotationAnalyzer) sectorReturns(ctx context.Context, peers []string) map[string]float64 {
	returns := make(map[string]float64, len(peers))
	for _, peer := range peers {
		bars, err := a.data.Klines(ctx, peer, a.lookback)
		if err != nil || len(bars) < 10 {
			continue
		}
		oldest := bars[0].Close
		newest := bars[len(bars)-1].Close
		if oldest != 0 {
			returns[peer] = (newest - oldest) / oldest * 100
		}
	}
	return returns
}

// scoreSectorMomentum tiers the sector's average return.
func scoreSectorMomentum(returns map[string]float64) float64 {
	if len(returns) == 0 {
		return 50
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	avg := sum / float64(len(returns))
	return clamp(50 + tierShift(avg))
}

// scoreSectorFlow averages main-force net flow across the sector.
func (a *SectorRotationAnalyzer) scoreSectorFlow(ctx context.Context, peers []string) float64 {
	var total float64
	var count int
	for _, peer := range peers {
		flows, err := a.data.MoneyFlows(ctx, peer, a.lookback)
		if err != nil {
			continue
		}
		for _, f := range flows {
			total += f.MainNet
			count++
		}
	}
	if count == 0 {
		return 50
	}
	avg := total / float64(count)

	shift := math.Min(30, math.Abs(avg)/1_000_000*10)
	if avg > 0 {
		return clamp(50 + shift)
	}
	return clamp(50 - shift)
}

// scoreRelativeStrength tiers the stock's return spread over the
// sector average.
func scoreRelativeStrength(target float64, hasTarget bool, returns map[string]float64) float64 {
	if !hasTarget || len(returns) == 0 {
		return 50
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	avg := sum / float64(len(returns))
	return clamp(50 + tierShift(target-avg))
}

// tierShift maps a percentage move onto the symmetric ±35 point scale
// shared by the momentum and relative-strength components.
func tierShift(pct float64) float64 {
	switch {
	case pct > 10:
		return 35
	case pct > 5:
		return 25
	case pct > 2:
		return 15
	case pct > 0:
		return 5
	case pct > -2:
		return -5
	case pct > -5:
		return -15
	case pct > -10:
		return -25
	}
	return -35
}
