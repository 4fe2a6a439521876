package ai

// systemPrompt frames every request. Responses come back as JSON
// objects in Chinese prose fields.
const systemPrompt = "You are an expert A-share (Chinese stock market) analyst. " +
	"Respond in Chinese. Be data-driven, concise, and objective."

// newsDigestPrompt asks for one aggregate sentiment over a batch of
// headlines, used by the news analyzer fallback.
const newsDigestPrompt = "Analyze the following financial news articles related to stock %s. " +
	"Assess the overall sentiment across all articles and summarize the key drivers.\n\n" +
	"Respond in JSON format:\n" +
	`{"sentiment": 0.5, "summary": "..."}` + "\n" +
	"where sentiment is a float from -1.0 (very bearish) to 1.0 (very bullish).\n\n" +
	"Articles:\n%s"

// articleScoringPrompt asks for per-article sentiments, used by the
// news sync backfill.
const articleScoringPrompt = "Analyze the following financial news articles related to stock %s. " +
	"For each article, provide a sentiment score: a float from -1.0 (very bearish) to 1.0 (very bullish).\n\n" +
	"Respond in JSON format, preserving article order:\n" +
	`{"articles": [{"title": "...", "sentiment": 0.5}]}` + "\n\n" +
	"Articles:\n%s"

// factorScoringPrompt asks for a cross-factor adjustment over the
// quantitative dimension results.
const factorScoringPrompt = "Given the following multi-factor analysis results for stock %s:\n\n%s\n\n" +
	"As an expert analyst, evaluate and adjust the scores if needed. " +
	"Consider cross-factor interactions that quantitative models might miss.\n\n" +
	"Respond in JSON format:\n" +
	`{"adjusted_score": 75, "reasoning": "...", "risk_factors": ["..."], "catalysts": ["..."]}`

// financialAnalysisPrompt asks for a health read of recent disclosures.
const financialAnalysisPrompt = "Analyze the following financial data for stock %s:\n\n%s\n\n" +
	"Provide:\n" +
	"1. Overall financial health score (0-100)\n" +
	"2. Key strengths and weaknesses\n" +
	"3. Investment recommendation\n\n" +
	"Respond in JSON format:\n" +
	`{"score": 75, "strengths": ["..."], "weaknesses": ["..."], "recommendation": "..."}`

// reportPrompt asks for a structured narrative report.
const reportPrompt = "Generate a comprehensive analysis report for stock %s.\n\n" +
	"Analysis data:\n%s\n\n" +
	"Generate a structured report covering:\n" +
	"1. Executive summary (2-3 sentences)\n" +
	"2. Technical outlook\n" +
	"3. Fundamental assessment\n" +
	"4. Risk factors\n" +
	"5. Actionable recommendation\n\n" +
	"Respond in JSON format:\n" +
	`{"summary": "...", "technical": "...", "fundamental": "...", "risks": ["..."], "recommendation": "..."}`
