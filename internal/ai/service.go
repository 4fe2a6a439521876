// Package ai talks to an OpenAI-compatible chat completions endpoint
// for the analysis tasks that need judgment instead of arithmetic:
// news digests, cross-factor adjustment, financial reads, and report
// generation. Every call is budget-checked and timeout-bounded; all
// failures surface as soft errors the callers degrade on.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/httputil"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// maxArticlesPerCall bounds the prompt size for news batches.
const maxArticlesPerCall = 10

// profile is one resolved provider endpoint.
type profile struct {
	name    string
	baseURL string
	model   string
	apiKey  string
}

func resolveProfile(cfg config.AIConfig) (profile, error) {
	switch cfg.Provider {
	case "deepseek":
		return profile{name: "deepseek", baseURL: cfg.DeepSeekURL, model: cfg.DeepSeekModel, apiKey: cfg.DeepSeekKey}, nil
	case "chatgpt":
		return profile{name: "chatgpt", baseURL: cfg.ChatGPTURL, model: cfg.ChatGPTModel, apiKey: cfg.ChatGPTKey}, nil
	}
	return profile{}, fmt.Errorf("unknown AI provider %q", cfg.Provider)
}

// Service is the AI client. It satisfies the analyzer-facing
// NewsScorer and FactorScorer interfaces.
type Service struct {
	client  *httputil.Client
	profile profile
	budget  *Budget
	timeout time.Duration
	sem     chan struct{}
	logger  *logger.Logger
}

// NewService creates the AI service. It fails fast when the selected
// provider has no API key so callers can wire a nil scorer instead.
func NewService(cfg config.AIConfig, client *httputil.Client, budget *Budget, log *logger.Logger) (*Service, error) {
	p, err := resolveProfile(cfg)
	if err != nil {
		return nil, err
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", p.name)
	}

	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Service{
		client:  client,
		profile: p,
		budget:  budget,
		timeout: cfg.CallTimeout,
		sem:     make(chan struct{}, concurrency),
		logger:  log.WithComponent("ai").WithFields(map[string]interface{}{"provider": p.name}),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

// call runs one budgeted chat completion and returns the parsed JSON
// object from the assistant message.
func (s *Service) call(ctx context.Context, userPrompt string, maxTokens int) (gjson.Result, error) {
	if err := s.budget.Acquire(ctx); err != nil {
		return gjson.Result{}, err
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return gjson.Result{}, fmt.Errorf("%w: %v", contracts.ErrAIUnavailable, ctx.Err())
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := chatRequest{
		Model: s.profile.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: maxTokens,
		// low temperature for analytical consistency
		Temperature:    0.3,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(s.profile.baseURL, "/"))
	headers := map[string]string{"Authorization": "Bearer " + s.profile.apiKey}

	start := time.Now()
	resp, err := s.client.PostJSONWithHeaders(callCtx, url, req, headers)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", contracts.ErrAIUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: read response: %v", contracts.ErrAIUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%w: status %d", contracts.ErrAIUnavailable, resp.StatusCode)
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || content.String() == "" {
		return gjson.Result{}, fmt.Errorf("%w: empty completion", contracts.ErrAIUnavailable)
	}

	parsed := gjson.Parse(content.String())
	if !parsed.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: completion is not a JSON object", contracts.ErrAIUnavailable)
	}

	s.logger.WithFields(map[string]interface{}{
		"model":    s.profile.model,
		"tokens":   gjson.GetBytes(body, "usage.total_tokens").Int(),
		"duration": time.Since(start),
	}).Debug("AI call completed")

	return parsed, nil
}

// AnalyzeNews digests a news batch into one aggregate sentiment.
func (s *Service) AnalyzeNews(ctx context.Context, code string, articles []contracts.NewsArticle) (contracts.NewsInsight, error) {
	if len(articles) == 0 {
		return contracts.NewsInsight{}, fmt.Errorf("%w: no articles to analyze", contracts.ErrAIUnavailable)
	}

	parsed, err := s.call(ctx, fmt.Sprintf(newsDigestPrompt, code, formatArticles(articles)), 1000)
	if err != nil {
		return contracts.NewsInsight{}, err
	}

	return contracts.NewsInsight{
		Sentiment: clampSentiment(parsed.Get("sentiment").Float()),
		Summary:   parsed.Get("summary").String(),
	}, nil
}

// ScoreArticles returns one sentiment per article, in input order.
// Articles the model skipped stay at the neutral 0.
func (s *Service) ScoreArticles(ctx context.Context, code string, articles []contracts.NewsArticle) ([]float64, error) {
	if len(articles) == 0 {
		return nil, nil
	}
	if len(articles) > maxArticlesPerCall {
		articles = articles[:maxArticlesPerCall]
	}

	parsed, err := s.call(ctx, fmt.Sprintf(articleScoringPrompt, code, formatArticles(articles)), 2000)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(articles))
	for i, item := range parsed.Get("articles").Array() {
		if i >= len(scores) {
			break
		}
		scores[i] = clampSentiment(item.Get("sentiment").Float())
	}
	return scores, nil
}

// ScoreFactors asks for a cross-factor adjustment over the other
// dimensions' results.
func (s *Service) ScoreFactors(ctx context.Context, code, name string, results map[string]contracts.AnalysisResult) (contracts.FactorAssessment, error) {
	factorData, err := json.Marshal(results)
	if err != nil {
		return contracts.FactorAssessment{}, fmt.Errorf("marshal factor data: %w", err)
	}

	parsed, err := s.call(ctx, fmt.Sprintf(factorScoringPrompt, stockLabel(code, name), factorData), 2000)
	if err != nil {
		return contracts.FactorAssessment{}, err
	}

	return contracts.FactorAssessment{
		AdjustedScore: parsed.Get("adjusted_score").Float(),
		Reasoning:     parsed.Get("reasoning").String(),
		RiskFactors:   stringList(parsed.Get("risk_factors")),
		Catalysts:     stringList(parsed.Get("catalysts")),
	}, nil
}

// AnalyzeFinancials asks for a qualitative read of recent reports.
func (s *Service) AnalyzeFinancials(ctx context.Context, code, name string, reports []contracts.FinancialReport) (contracts.FinancialInsight, error) {
	data, err := json.Marshal(reports)
	if err != nil {
		return contracts.FinancialInsight{}, fmt.Errorf("marshal financial data: %w", err)
	}

	parsed, err := s.call(ctx, fmt.Sprintf(financialAnalysisPrompt, stockLabel(code, name), data), 2000)
	if err != nil {
		return contracts.FinancialInsight{}, err
	}

	return contracts.FinancialInsight{
		Score:          parsed.Get("score").Float(),
		Strengths:      stringList(parsed.Get("strengths")),
		Weaknesses:     stringList(parsed.Get("weaknesses")),
		Recommendation: parsed.Get("recommendation").String(),
	}, nil
}

// GenerateReport turns a full score result into a narrative report.
func (s *Service) GenerateReport(ctx context.Context, code, name string, sr contracts.ScoreResult) (contracts.AnalysisReport, error) {
	data, err := json.Marshal(sr)
	if err != nil {
		return contracts.AnalysisReport{}, fmt.Errorf("marshal analysis data: %w", err)
	}

	parsed, err := s.call(ctx, fmt.Sprintf(reportPrompt, stockLabel(code, name), data), 4000)
	if err != nil {
		return contracts.AnalysisReport{}, err
	}

	return contracts.AnalysisReport{
		StockCode:      code,
		StockName:      name,
		Summary:        parsed.Get("summary").String(),
		Technical:      parsed.Get("technical").String(),
		Fundamental:    parsed.Get("fundamental").String(),
		Risks:          stringList(parsed.Get("risks")),
		Recommendation: parsed.Get("recommendation").String(),
	}, nil
}

func formatArticles(articles []contracts.NewsArticle) string {
	if len(articles) > maxArticlesPerCall {
		articles = articles[:maxArticlesPerCall]
	}
	var b strings.Builder
	for i, a := range articles {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Title: %s", a.Title)
		if a.Content != "" {
			fmt.Fprintf(&b, "\nContent: %s", a.Content)
		}
	}
	return b.String()
}

func stockLabel(code, name string) string {
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", code, name)
}

func stringList(r gjson.Result) []string {
	arr := r.Array()
	if len(arr) == 0 {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.String())
	}
	return out
}

func clampSentiment(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
