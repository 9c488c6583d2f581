package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"insight-stack/internal/models"
)

// TrendAnalyzer condenses a window of keyword analyses into one market
// summary. Summarize never returns an error: when the model is unavailable
// or its output unusable, a deterministic template built from the computed
// statistics is returned instead.
type TrendAnalyzer struct {
	generator Generator
	disabled  bool
}

func NewTrendAnalyzer(generator Generator, disabled bool) *TrendAnalyzer {
	return &TrendAnalyzer{generator: generator, disabled: disabled}
}

const (
	maxTrendSummaries = 10
	maxTrendInsights  = 20
)

// Summarize aggregates the analyses into a TrendSummary for the given period
// label. Sentiment is the plain mean of the per-analysis scores; the label
// is bullish above 0.1, bearish below -0.1, neutral between.
func (t *TrendAnalyzer) Summarize(ctx context.Context, analyses []*models.Analysis, period string) *models.TrendSummary {
	avg := averageSentiment(analyses)
	label := sentimentLabel(avg)

	summary := &models.TrendSummary{
		OverallTrend:     label,
		MarketSentiment:  label,
		AverageSentiment: avg,
		AnalysisCount:    len(analyses),
		Period:           period,
	}

	if len(analyses) == 0 {
		summary.Summary = fmt.Sprintf("No analyses available for %s.", period)
		return summary
	}

	if t.disabled || t.generator == nil {
		t.fillFallback(summary, analyses)
		return summary
	}

	prompt := t.buildPrompt(analyses, avg, label, period)
	response, err := t.generator.Generate(ctx, trendSystemPrompt, prompt)
	if err != nil {
		log.Printf("⚠️ Trend summary generation failed, using computed fallback: %v", err)
		t.fillFallback(summary, analyses)
		return summary
	}

	var parsed struct {
		KeyThemes       []string `json:"key_themes"`
		HotTopics       []string `json:"hot_topics"`
		ConsensusView   string   `json:"consensus_view"`
		ContrarianViews []string `json:"contrarian_views"`
		RiskFactors     []string `json:"risk_factors"`
		Opportunities   []string `json:"opportunities"`
		Summary         string   `json:"summary"`
	}
	if err := decodeJSONObject(response, &parsed); err != nil {
		log.Printf("⚠️ Trend summary response unusable, using computed fallback: %v", err)
		t.fillFallback(summary, analyses)
		return summary
	}

	summary.KeyThemes = parsed.KeyThemes
	summary.HotTopics = parsed.HotTopics
	summary.ConsensusView = parsed.ConsensusView
	summary.ContrarianViews = parsed.ContrarianViews
	summary.RiskFactors = parsed.RiskFactors
	summary.Opportunities = parsed.Opportunities
	summary.Summary = parsed.Summary
	if summary.Summary == "" {
		t.fillFallback(summary, analyses)
	}
	return summary
}

const trendSystemPrompt = `You are a market trend analyst. Given per-video keyword analyses from investment channels, synthesize the overall picture. Respond with a single JSON object and nothing else:
{
  "key_themes": ["theme", ...],
  "hot_topics": ["topic", ...],
  "consensus_view": "what most sources agree on",
  "contrarian_views": ["dissenting take", ...],
  "risk_factors": ["risk", ...],
  "opportunities": ["opportunity", ...],
  "summary": "3-5 sentence narrative summary"
}`

func (t *TrendAnalyzer) buildPrompt(analyses []*models.Analysis, avg float64, label, period string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Period: %s\n", period)
	fmt.Fprintf(&sb, "Analyses: %d, average sentiment %.2f (%s)\n\n", len(analyses), avg, label)

	for i, analysis := range analyses {
		if i >= maxTrendSummaries {
			break
		}
		fmt.Fprintf(&sb, "[%s] (sentiment %.2f) %s\n", analysis.Keyword, analysis.SentimentScore, analysis.Summary)
	}

	insights := collectInsights(analyses, maxTrendInsights)
	if len(insights) > 0 {
		sb.WriteString("\nKey insights:\n")
		for _, insight := range insights {
			fmt.Fprintf(&sb, "- %s\n", insight)
		}
	}

	entities := collectEntities(analyses)
	if len(entities) > 0 {
		fmt.Fprintf(&sb, "\nMentioned entities: %s\n", strings.Join(entities, ", "))
	}
	return sb.String()
}

// fillFallback populates the narrative fields from the analyses themselves,
// without a model call.
func (t *TrendAnalyzer) fillFallback(summary *models.TrendSummary, analyses []*models.Analysis) {
	keywords := make([]string, 0, len(analyses))
	seen := make(map[string]bool)
	for _, analysis := range analyses {
		if analysis.Keyword != "" && !seen[analysis.Keyword] {
			seen[analysis.Keyword] = true
			keywords = append(keywords, analysis.Keyword)
		}
	}

	summary.KeyThemes = keywords
	summary.HotTopics = collectEntities(analyses)
	summary.ConsensusView = fmt.Sprintf("Overall sentiment across %d analyses is %s (%.2f).",
		len(analyses), summary.MarketSentiment, summary.AverageSentiment)
	summary.Summary = fmt.Sprintf(
		"Across %d analyses covering %s, average sentiment was %.2f, a %s reading for the period.",
		len(analyses), joinOr(keywords, "tracked keywords"), summary.AverageSentiment, summary.MarketSentiment)
}

func averageSentiment(analyses []*models.Analysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	var total float64
	for _, analysis := range analyses {
		total += analysis.SentimentScore
	}
	return total / float64(len(analyses))
}

func sentimentLabel(score float64) string {
	switch {
	case score > 0.1:
		return "bullish"
	case score < -0.1:
		return "bearish"
	default:
		return "neutral"
	}
}

func collectInsights(analyses []*models.Analysis, limit int) []string {
	var insights []string
	for _, analysis := range analyses {
		for _, insight := range analysis.KeyInsights {
			if len(insights) >= limit {
				return insights
			}
			insights = append(insights, insight)
		}
	}
	return insights
}

func collectEntities(analyses []*models.Analysis) []string {
	seen := make(map[string]bool)
	var entities []string
	for _, analysis := range analyses {
		for _, entity := range analysis.MentionedEntities {
			if entity == "" || seen[entity] {
				continue
			}
			seen[entity] = true
			entities = append(entities, entity)
		}
	}
	return entities
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
