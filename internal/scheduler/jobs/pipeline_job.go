package jobs

import (
	"context"
	"fmt"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/pipeline"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// PipelineJob runs the full analysis pipeline for one trading style
// after the market data job has landed.
type PipelineJob struct {
	orchestrator *pipeline.Orchestrator
	style        contracts.TradingStyle
	schedule     string
	logger       *logger.Logger
}

// NewPipelineJob creates a pipeline job for one style. The per-style
// schedules are staggered so runs do not overlap.
func NewPipelineJob(orch *pipeline.Orchestrator, style contracts.TradingStyle, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		orchestrator: orch,
		style:        style,
		schedule:     schedule,
		logger:       log,
	}
}

func (j *PipelineJob) Name() string { return "pipeline_" + string(j.style) }

func (j *PipelineJob) Schedule() string { return j.schedule }

func (j *PipelineJob) Run(ctx context.Context) error {
	result, err := j.orchestrator.RunForUniverse(ctx, j.style)
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", j.style, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"style":           j.style,
		"recommendations": len(result.Recommendations),
		"failures":        len(result.Failures),
		"ai_calls":        result.AICalls,
		"duration":        result.Duration,
	}).Info("Pipeline job completed")
	return nil
}

// DefaultPipelineJobs builds the standard staggered post-close runs:
// ultra-short at 17:00, swing at 17:30, mid-long at 18:00, weekdays.
func DefaultPipelineJobs(orch *pipeline.Orchestrator, log *logger.Logger) []*PipelineJob {
	return []*PipelineJob{
		NewPipelineJob(orch, contracts.StyleUltraShort, "0 0 17 * * 1-5", log),
		NewPipelineJob(orch, contracts.StyleSwing, "0 30 17 * * 1-5", log),
		NewPipelineJob(orch, contracts.StyleMidLong, "0 0 18 * * 1-5", log),
	}
}
