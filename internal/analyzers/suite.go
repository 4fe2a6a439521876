package analyzers

import (
	"github.com/vvnuui/cerisier/pkg/logger"
)

// Suite builds the full analyzer registry in dimension order. The set
// is closed: the scorer's weight tables key off exactly these names.
func Suite(data DataProvider, news NewsScorer, factors FactorScorer, log *logger.Logger) []Analyzer {
	return []Analyzer{
		NewTechnicalAnalyzer(data, log),
		NewFundamentalAnalyzer(data, log),
		NewMoneyFlowAnalyzer(data, log),
		NewChipAnalyzer(data, log),
		NewSentimentAnalyzer(data, log),
		NewSectorRotationAnalyzer(data, log),
		NewGameTheoryAnalyzer(data, log),
		NewBehaviorFinanceAnalyzer(data, log),
		NewMacroAnalyzer(),
		NewNewsAnalyzer(data, news, log),
		NewAIAnalyzer(data, factors, log),
	}
}
